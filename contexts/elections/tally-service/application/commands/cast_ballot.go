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
	contractsv1 "votecore/contracts/gen/events/v1"
)

type CastBallotCommand struct {
	ElectionID  string
	Token       string
	Preferences []string
}

type CastBallotResult struct {
	Receipt entities.BallotReceipt
}

type CastBallotUseCase struct {
	Elections   ports.ElectionRepository
	Tokens      ports.TokenRegistry
	Ballots     ports.BallotRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute runs the casting workflow in this order:
// 1) hash the presented token
// 2) reject unknown or used tokens
// 3) validate preferences against the election
// 4) atomic ballot insert + token flip + outbox write.
// Step 2 is repeated under a row lock inside step 4; the pre-check only keeps
// error precedence stable for callers.
func (u CastBallotUseCase) Execute(ctx context.Context, cmd CastBallotCommand) (CastBallotResult, error) {
	logger := application.ResolveLogger(u.Logger)
	electionID := strings.TrimSpace(cmd.ElectionID)
	if electionID == "" || cmd.Token == "" {
		return CastBallotResult{}, domainerrors.ErrTokenInvalid
	}

	tokenHash := services.HashToken(cmd.Token)

	election, err := u.Elections.GetElection(ctx, electionID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrElectionNotFound) {
			return CastBallotResult{}, domainerrors.ErrTokenInvalid
		}
		return CastBallotResult{}, err
	}

	record, err := u.Tokens.GetTokenHashRecord(ctx, electionID, tokenHash)
	if err != nil {
		if !errors.Is(err, domainerrors.ErrTokenInvalid) {
			logger.Error("cast ballot token lookup failed",
				"event", "cast_ballot_token_lookup_failed",
				"module", "elections/tally-service",
				"layer", "application",
				"election_id", electionID,
				"error", err.Error(),
			)
		}
		return CastBallotResult{}, err
	}
	if record.Used {
		logger.Info("cast ballot rejected for used token",
			"event", "cast_ballot_token_already_used",
			"module", "elections/tally-service",
			"layer", "application",
			"election_id", electionID,
		)
		return CastBallotResult{}, domainerrors.ErrTokenAlreadyUsed
	}

	if err := services.ValidatePreferences(election, cmd.Preferences); err != nil {
		return CastBallotResult{}, err
	}
	if !election.AcceptsBallots() {
		return CastBallotResult{}, domainerrors.ErrElectionNotOpen
	}

	ballotID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return CastBallotResult{}, err
	}
	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return CastBallotResult{}, err
	}

	now := u.now()
	ballot := entities.Ballot{
		BallotID:    ballotID,
		ElectionID:  electionID,
		TokenHash:   tokenHash,
		Preferences: append([]string(nil), cmd.Preferences...),
		Weight:      entities.DefaultBallotWeight,
		SubmittedAt: now,
	}
	event, err := newElectionEnvelope(eventID, contractsv1.EventTypeBallotCast, electionID, now, contractsv1.BallotCastData{
		ElectionID:  electionID,
		BallotID:    ballotID,
		SubmittedAt: now,
	})
	if err != nil {
		return CastBallotResult{}, err
	}

	if err := u.Ballots.CastBallotWithOutbox(ctx, ballot, event); err != nil {
		if errors.Is(err, domainerrors.ErrTokenAlreadyUsed) || errors.Is(err, domainerrors.ErrTokenInvalid) {
			logger.Info("cast ballot lost token race",
				"event", "cast_ballot_token_race_lost",
				"module", "elections/tally-service",
				"layer", "application",
				"election_id", electionID,
				"error", err.Error(),
			)
			return CastBallotResult{}, err
		}
		logger.Error("cast ballot persistence failed",
			"event", "cast_ballot_persist_failed",
			"module", "elections/tally-service",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return CastBallotResult{}, err
	}

	logger.Info("ballot cast",
		"event", "cast_ballot_succeeded",
		"module", "elections/tally-service",
		"layer", "application",
		"election_id", electionID,
		"ballot_id", ballotID,
	)
	return CastBallotResult{
		Receipt: entities.BallotReceipt{
			BallotID:    ballotID,
			ElectionID:  electionID,
			SubmittedAt: now,
		},
	}, nil
}

func (u CastBallotUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
