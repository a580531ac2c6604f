package v1

import "time"

const (
	EventTypeBallotCast       = "election.ballot_cast"
	EventTypeResultsPublished = "election.results_published"
	EventTypeElectionClosed   = "election.closed"
)

// BallotCastData deliberately omits the token hash and the preferences.
type BallotCastData struct {
	ElectionID  string    `json:"election_id"`
	BallotID    string    `json:"ballot_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type ResultsPublishedData struct {
	ElectionID  string    `json:"election_id"`
	SeatsToFill int       `json:"seats_to_fill"`
	Quota       string    `json:"quota"`
	BallotCount int       `json:"ballot_count"`
	Winners     []string  `json:"winners"`
	TabulatedAt time.Time `json:"tabulated_at"`
}

// ElectionClosedData is emitted by election management when voting ends.
type ElectionClosedData struct {
	ElectionID string    `json:"election_id"`
	ClosedAt   time.Time `json:"closed_at"`
}
