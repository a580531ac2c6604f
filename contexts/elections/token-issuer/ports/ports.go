package ports

import (
	"context"
	"time"
)

// RegistrarClient forwards a token hash to the tally service. Implementations
// return ErrRegistrarUnavailable, ErrRegistrationConflict or
// ErrRegistrationRejected from the issuer's error set.
type RegistrarClient interface {
	RegisterToken(ctx context.Context, electionID string, tokenHash string) error
}

// IssuanceLedger enforces one token per voter per election.
type IssuanceLedger interface {
	// Reserve returns false when the pair is already reserved.
	Reserve(ctx context.Context, electionID string, voterKey string, reservedAt time.Time) (bool, error)
	Release(ctx context.Context, electionID string, voterKey string) error
}

type TokenSource interface {
	NewToken() (string, error)
}

type Clock interface {
	Now() time.Time
}
