package entities

import "time"

// IssuedToken is what the voter receives. It is never stored.
type IssuedToken struct {
	ElectionID string
	Token      string
	IssuedAt   time.Time
}

// IssuanceRecord remembers that a voter already received a token for an
// election. VoterKey is a hash of the voter subject; no token material is kept.
type IssuanceRecord struct {
	ElectionID string
	VoterKey   string
	ReservedAt time.Time
}
