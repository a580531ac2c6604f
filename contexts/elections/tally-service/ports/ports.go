package ports

import (
	"context"
	"time"

	"votecore/contexts/elections/tally-service/domain/entities"
	contractsv1 "votecore/contracts/gen/events/v1"
)

// ElectionRepository holds the election configuration synced from election
// management. The tally side never creates elections on its own.
type ElectionRepository interface {
	GetElection(ctx context.Context, electionID string) (entities.Election, error)
	UpsertElection(ctx context.Context, election entities.Election) error
	SetElectionStatus(ctx context.Context, electionID string, status entities.ElectionStatus, updatedAt time.Time) error
}

// TokenRegistry stores token hashes registered by the issuer.
type TokenRegistry interface {
	// RegisterTokenHash must reject a second registration of the same
	// (election, hash) pair with ErrRegistrationConflict and leave the
	// original record untouched.
	RegisterTokenHash(ctx context.Context, record entities.TokenHashRecord) error
	GetTokenHashRecord(ctx context.Context, electionID string, tokenHash string) (entities.TokenHashRecord, error)
}

// BallotRepository owns the casting transaction boundary.
type BallotRepository interface {
	// CastBallotWithOutbox must, as one atomic unit, lock the token record,
	// reject a missing or used token, insert the ballot, mark the token used
	// and persist the outbox event.
	CastBallotWithOutbox(ctx context.Context, ballot entities.Ballot, event EventEnvelope) error
	ListBallots(ctx context.Context, electionID string) ([]entities.Ballot, error)
}

type ResultRepository interface {
	GetResult(ctx context.Context, electionID string) (entities.ElectionResult, error)
	// SaveResultWithOutbox writes the result once; a second write fails with
	// ErrResultsAlreadyPublished.
	SaveResultWithOutbox(ctx context.Context, result entities.ElectionResult, event EventEnvelope) error
}

// Unlock releases a lock obtained from Locker.
type Unlock func(ctx context.Context) error

// Locker serialises tabulation of one election across replicas.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (Unlock, bool, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

// EventDedupStore provides idempotent processing for consumed events.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type EventEnvelope = contractsv1.Envelope

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
