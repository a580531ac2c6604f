package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	application "votecore/contexts/elections/tally-service/application"
	"votecore/contexts/elections/tally-service/domain/entities"
	domainerrors "votecore/contexts/elections/tally-service/domain/errors"
	"votecore/contexts/elections/tally-service/domain/services"
	"votecore/contexts/elections/tally-service/ports"
	contractsv1 "votecore/contracts/gen/events/v1"
)

type TabulateElectionCommand struct {
	ElectionID string
}

type TabulateElectionResult struct {
	Result entities.ElectionResult
}

// TabulateElectionUseCase runs STV once per closed election and stores the
// winners with their audit trace.
type TabulateElectionUseCase struct {
	Elections   ports.ElectionRepository
	Ballots     ports.BallotRepository
	Results     ports.ResultRepository
	Locker      ports.Locker
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	LockTTL     time.Duration
	MaxRounds   int
	Logger      *slog.Logger
}

func (u TabulateElectionUseCase) Execute(ctx context.Context, cmd TabulateElectionCommand) (TabulateElectionResult, error) {
	logger := application.ResolveLogger(u.Logger)
	electionID := strings.TrimSpace(cmd.ElectionID)
	if electionID == "" {
		return TabulateElectionResult{}, domainerrors.ErrElectionNotFound
	}

	unlock, acquired, err := u.Locker.TryLock(ctx, "tabulation/"+electionID, u.lockTTL())
	if err != nil {
		logger.Error("tabulation lock failed",
			"event", "tabulate_election_lock_failed",
			"module", "elections/tally-service",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return TabulateElectionResult{}, err
	}
	if !acquired {
		return TabulateElectionResult{}, domainerrors.ErrTabulationInProgress
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("tabulation unlock failed",
				"event", "tabulate_election_unlock_failed",
				"module", "elections/tally-service",
				"layer", "application",
				"election_id", electionID,
				"error", err.Error(),
			)
		}
	}()

	election, err := u.Elections.GetElection(ctx, electionID)
	if err != nil {
		return TabulateElectionResult{}, err
	}
	if election.Status != entities.ElectionStatusClosed {
		return TabulateElectionResult{}, domainerrors.ErrElectionNotClosed
	}
	if _, err := u.Results.GetResult(ctx, electionID); err == nil {
		return TabulateElectionResult{}, domainerrors.ErrResultsAlreadyPublished
	} else if !errors.Is(err, domainerrors.ErrResultsNotAvailable) {
		return TabulateElectionResult{}, err
	}

	stored, err := u.Ballots.ListBallots(ctx, electionID)
	if err != nil {
		return TabulateElectionResult{}, err
	}
	input, err := tabulationInput(election, stored)
	if err != nil {
		return TabulateElectionResult{}, err
	}

	logger.Info("tabulation started",
		"event", "tabulate_election_started",
		"module", "elections/tally-service",
		"layer", "application",
		"election_id", electionID,
		"ballot_count", len(stored),
		"seats_to_fill", election.SeatsToFill,
	)

	trace := &services.TraceLog{}
	winners, err := services.Tabulator{Trace: trace, MaxRounds: u.MaxRounds}.Tabulate(input)
	if err != nil {
		if errors.Is(err, domainerrors.ErrTabulationAnomaly) {
			logger.Error("tabulation anomaly",
				"event", "tabulation_anomaly",
				"module", "elections/tally-service",
				"layer", "application",
				"election_id", electionID,
				"rounds", trace.Rounds(),
				"error", err.Error(),
			)
		} else {
			logger.Warn("tabulation rejected input",
				"event", "tabulate_election_invalid_input",
				"module", "elections/tally-service",
				"layer", "application",
				"election_id", electionID,
				"error", err.Error(),
			)
		}
		return TabulateElectionResult{}, err
	}

	quota, _ := trace.Quota()
	total := new(big.Rat)
	for _, b := range input.Ballots {
		total.Add(total, b.Weight)
	}
	now := u.now()
	result := entities.ElectionResult{
		ElectionID:  electionID,
		SeatsToFill: election.SeatsToFill,
		Quota:       services.FormatRat(quota),
		TotalWeight: services.FormatRat(total),
		BallotCount: len(stored),
		Winners:     winners,
		Rounds:      trace.Rounds(),
		Trace:       trace.Lines(),
		TabulatedAt: now,
	}

	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return TabulateElectionResult{}, err
	}
	event, err := newElectionEnvelope(eventID, contractsv1.EventTypeResultsPublished, electionID, now, contractsv1.ResultsPublishedData{
		ElectionID:  electionID,
		SeatsToFill: result.SeatsToFill,
		Quota:       result.Quota,
		BallotCount: result.BallotCount,
		Winners:     result.Winners,
		TabulatedAt: now,
	})
	if err != nil {
		return TabulateElectionResult{}, err
	}
	if err := u.Results.SaveResultWithOutbox(ctx, result, event); err != nil {
		logger.Error("tabulation result persistence failed",
			"event", "tabulate_election_persist_failed",
			"module", "elections/tally-service",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return TabulateElectionResult{}, err
	}

	logger.Info("tabulation completed",
		"event", "tabulate_election_completed",
		"module", "elections/tally-service",
		"layer", "application",
		"election_id", electionID,
		"winners", winners,
		"quota", result.Quota,
		"rounds", result.Rounds,
	)
	return TabulateElectionResult{Result: result}, nil
}

func tabulationInput(election entities.Election, ballots []entities.Ballot) (services.TabulationInput, error) {
	input := services.TabulationInput{
		SeatsToFill: election.SeatsToFill,
		Candidates:  append([]string(nil), election.CandidateIDs...),
		Ballots:     make([]services.TabulationBallot, 0, len(ballots)),
	}
	for _, b := range ballots {
		weight := big.NewRat(1, 1)
		if b.Weight != "" {
			if _, ok := weight.SetString(b.Weight); !ok {
				return services.TabulationInput{}, fmt.Errorf("%w: ballot %s has unreadable weight %q",
					domainerrors.ErrRepositoryInvariantBroke, b.BallotID, b.Weight)
			}
		}
		input.Ballots = append(input.Ballots, services.TabulationBallot{
			Weight:      weight,
			Preferences: b.Preferences,
		})
	}
	return input, nil
}

func (u TabulateElectionUseCase) lockTTL() time.Duration {
	if u.LockTTL <= 0 {
		return 5 * time.Minute
	}
	return u.LockTTL
}

func (u TabulateElectionUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
