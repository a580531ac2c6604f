package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	application "votecore/contexts/elections/tally-service/application"
	"votecore/contexts/elections/tally-service/application/commands"
	"votecore/contexts/elections/tally-service/domain/entities"
	domainerrors "votecore/contexts/elections/tally-service/domain/errors"
	"votecore/contexts/elections/tally-service/ports"
	contractsv1 "votecore/contracts/gen/events/v1"
)

const defaultConsumerGroup = "elections-tally-closed-cg"

// ElectionClosedConsumer freezes an election when election management closes
// it and then runs tabulation.
type ElectionClosedConsumer struct {
	Subscriber    ports.EventSubscriber
	Elections     ports.ElectionRepository
	Dedup         ports.EventDedupStore
	Tabulate      commands.TabulateElectionUseCase
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (c ElectionClosedConsumer) Start(ctx context.Context) error {
	group := c.ConsumerGroup
	if group == "" {
		group = defaultConsumerGroup
	}
	return c.Subscriber.Subscribe(ctx, contractsv1.EventTypeElectionClosed, group, c.Handle)
}

func (c ElectionClosedConsumer) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}

	var payload contractsv1.ElectionClosedData
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return fmt.Errorf("decode election closed payload: %w", err)
	}
	if payload.ElectionID == "" {
		return fmt.Errorf("election closed event missing election_id")
	}

	if err := c.Elections.SetElectionStatus(ctx, payload.ElectionID, entities.ElectionStatusClosed, now); err != nil {
		logger.Error("election close failed",
			"event", "tally_election_close_failed",
			"module", "elections/tally-service",
			"layer", "worker",
			"election_id", payload.ElectionID,
			"error", err.Error(),
		)
		return err
	}

	// The event is reserved only once its outcome is settled, so a failed
	// attempt stays eligible for redelivery.
	result, err := c.Tabulate.Execute(ctx, commands.TabulateElectionCommand{ElectionID: payload.ElectionID})
	switch {
	case errors.Is(err, domainerrors.ErrResultsAlreadyPublished), errors.Is(err, domainerrors.ErrTabulationInProgress):
		logger.Info("election closed tabulation skipped",
			"event", "tally_election_closed_tabulation_skipped",
			"module", "elections/tally-service",
			"layer", "worker",
			"election_id", payload.ElectionID,
			"reason", err.Error(),
		)
	case err != nil:
		logger.Error("election closed tabulation failed",
			"event", "tally_election_closed_tabulation_failed",
			"module", "elections/tally-service",
			"layer", "worker",
			"event_id", event.EventID,
			"election_id", payload.ElectionID,
			"error", err.Error(),
		)
		return err
	default:
		logger.Info("election closed and tabulated",
			"event", "tally_election_closed_processed",
			"module", "elections/tally-service",
			"layer", "worker",
			"event_id", event.EventID,
			"election_id", payload.ElectionID,
			"winners", result.Result.Winners,
		)
	}

	alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), now.Add(c.dedupTTL()))
	if err != nil {
		logger.Error("election closed dedupe failed",
			"event", "tally_election_closed_dedupe_failed",
			"module", "elections/tally-service",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if alreadyProcessed {
		logger.Debug("election closed event already processed",
			"event", "tally_election_closed_replayed",
			"module", "elections/tally-service",
			"layer", "worker",
			"event_id", event.EventID,
		)
	}
	return nil
}

func (c ElectionClosedConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
