package redisadapter

import (
	"context"
	"log/slog"
	"time"

	"votecore/contexts/elections/token-issuer/ports"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "issuer:issued:"

// Ledger keeps issuance reservations in Redis so every issuer replica sees
// the same one-token-per-voter state.
type Ledger struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewLedger builds a ledger. A zero ttl keeps reservations forever; a positive
// ttl should outlive the election.
func NewLedger(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{client: client, ttl: ttl, logger: logger}
}

func (l *Ledger) Reserve(ctx context.Context, electionID string, voterKey string, reservedAt time.Time) (bool, error) {
	ok, err := l.client.SetNX(ctx, ledgerKey(electionID, voterKey), reservedAt.UTC().Format(time.RFC3339Nano), l.ttl).Result()
	if err != nil {
		l.logger.Error("issuance ledger reserve failed",
			"event", "issuer_ledger_reserve_failed",
			"module", "elections/token-issuer",
			"layer", "adapter",
			"election_id", electionID,
			"error", err.Error(),
		)
		return false, err
	}
	return ok, nil
}

func (l *Ledger) Release(ctx context.Context, electionID string, voterKey string) error {
	if err := l.client.Del(ctx, ledgerKey(electionID, voterKey)).Err(); err != nil {
		l.logger.Error("issuance ledger release failed",
			"event", "issuer_ledger_release_failed",
			"module", "elections/token-issuer",
			"layer", "adapter",
			"election_id", electionID,
			"error", err.Error(),
		)
		return err
	}
	return nil
}

func ledgerKey(electionID string, voterKey string) string {
	return keyPrefix + electionID + ":" + voterKey
}

var _ ports.IssuanceLedger = (*Ledger)(nil)
