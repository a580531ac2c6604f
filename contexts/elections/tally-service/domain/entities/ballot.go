package entities

import "time"

// DefaultBallotWeight is the stored weight of every cast ballot.
const DefaultBallotWeight = "1"

// Ballot is immutable once stored. Weight is an exact rational in string form.
type Ballot struct {
	BallotID    string
	ElectionID  string
	TokenHash   string
	Preferences []string
	Weight      string
	SubmittedAt time.Time
}

type BallotReceipt struct {
	BallotID    string
	ElectionID  string
	SubmittedAt time.Time
}
