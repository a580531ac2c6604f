package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type IssueTokenResponse struct {
	ElectionID string `json:"election_id"`
	Token      string `json:"token"`
	IssuedAt   string `json:"issued_at"`
}
