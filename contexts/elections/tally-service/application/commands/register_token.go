package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "votecore/contexts/elections/tally-service/application"
	"votecore/contexts/elections/tally-service/domain/entities"
	domainerrors "votecore/contexts/elections/tally-service/domain/errors"
	"votecore/contexts/elections/tally-service/domain/services"
	"votecore/contexts/elections/tally-service/ports"
)

type RegisterTokenCommand struct {
	ElectionID string
	TokenHash  string
}

type RegisterTokenResult struct {
	Record entities.TokenHashRecord
}

// RegisterTokenUseCase is the registrar side of issuance. Retried calls with
// the same hash are rejected as conflicts rather than accepted again.
type RegisterTokenUseCase struct {
	Elections ports.ElectionRepository
	Tokens    ports.TokenRegistry
	Clock     ports.Clock
	Logger    *slog.Logger
}

func (u RegisterTokenUseCase) Execute(ctx context.Context, cmd RegisterTokenCommand) (RegisterTokenResult, error) {
	logger := application.ResolveLogger(u.Logger)
	electionID := strings.TrimSpace(cmd.ElectionID)
	if electionID == "" {
		return RegisterTokenResult{}, domainerrors.ErrElectionNotFound
	}
	if !services.ValidTokenHash(cmd.TokenHash) {
		return RegisterTokenResult{}, domainerrors.ErrInvalidTokenHash
	}

	election, err := u.Elections.GetElection(ctx, electionID)
	if err != nil {
		logger.Warn("register token election lookup failed",
			"event", "register_token_election_lookup_failed",
			"module", "elections/tally-service",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return RegisterTokenResult{}, err
	}
	if !election.AcceptsTokens() {
		return RegisterTokenResult{}, domainerrors.ErrElectionNotAcceptingTokens
	}

	record := entities.TokenHashRecord{
		ElectionID:   electionID,
		TokenHash:    cmd.TokenHash,
		Used:         false,
		RegisteredAt: u.now(),
	}
	if err := u.Tokens.RegisterTokenHash(ctx, record); err != nil {
		if errors.Is(err, domainerrors.ErrRegistrationConflict) {
			logger.Warn("token hash registration conflict",
				"event", "register_token_conflict",
				"module", "elections/tally-service",
				"layer", "application",
				"election_id", electionID,
			)
			return RegisterTokenResult{}, err
		}
		logger.Error("token hash registration failed",
			"event", "register_token_failed",
			"module", "elections/tally-service",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return RegisterTokenResult{}, err
	}

	logger.Info("token hash registered",
		"event", "register_token_succeeded",
		"module", "elections/tally-service",
		"layer", "application",
		"election_id", electionID,
	)
	return RegisterTokenResult{Record: record}, nil
}

func (u RegisterTokenUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
