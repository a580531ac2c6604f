package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SyncElectionRequest struct {
	CandidateIDs []string `json:"candidate_ids" validate:"required,min=1,max=100,dive,required"`
	SeatsToFill  int      `json:"seats_to_fill" validate:"required,min=1"`
	Status       string   `json:"status" validate:"required,oneof=draft published closed archived"`
}

type ElectionResponse struct {
	ElectionID   string   `json:"election_id"`
	CandidateIDs []string `json:"candidate_ids"`
	SeatsToFill  int      `json:"seats_to_fill"`
	Status       string   `json:"status"`
	UpdatedAt    string   `json:"updated_at"`
	Created      bool     `json:"created"`
}

type RegisterTokenRequest struct {
	TokenHash string `json:"token_hash" validate:"required,len=64,hexadecimal,lowercase"`
}

type RegisterTokenResponse struct {
	ElectionID   string `json:"election_id"`
	TokenHash    string `json:"token_hash"`
	RegisteredAt string `json:"registered_at"`
}

type CastBallotRequest struct {
	ElectionID  string   `json:"election_id" validate:"required"`
	Token       string   `json:"token" validate:"required"`
	Preferences []string `json:"preferences"`
}

type BallotReceiptResponse struct {
	BallotID    string `json:"ballot_id"`
	ElectionID  string `json:"election_id"`
	SubmittedAt string `json:"submitted_at"`
}

type ElectionResultResponse struct {
	ElectionID  string   `json:"election_id"`
	SeatsToFill int      `json:"seats_to_fill"`
	Quota       string   `json:"quota"`
	TotalWeight string   `json:"total_weight"`
	BallotCount int      `json:"ballot_count"`
	Winners     []string `json:"winners"`
	Rounds      int      `json:"rounds"`
	Trace       []string `json:"trace"`
	TabulatedAt string   `json:"tabulated_at"`
}
