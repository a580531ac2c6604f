package commands

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	application "votecore/contexts/elections/tally-service/application"
	"votecore/contexts/elections/tally-service/domain/entities"
	domainerrors "votecore/contexts/elections/tally-service/domain/errors"
	"votecore/contexts/elections/tally-service/domain/services"
	"votecore/contexts/elections/tally-service/ports"
)

type SyncElectionCommand struct {
	ElectionID   string
	CandidateIDs []string
	SeatsToFill  int
	Status       string
}

type SyncElectionResult struct {
	Election entities.Election
	Created  bool
}

// SyncElectionUseCase mirrors election configuration pushed by election
// management. Once an election is closed its candidates and seats stop
// changing and its status may only advance to archived.
type SyncElectionUseCase struct {
	Elections ports.ElectionRepository
	Clock     ports.Clock
	Logger    *slog.Logger
}

func (u SyncElectionUseCase) Execute(ctx context.Context, cmd SyncElectionCommand) (SyncElectionResult, error) {
	logger := application.ResolveLogger(u.Logger)
	election := entities.Election{
		ElectionID:   strings.TrimSpace(cmd.ElectionID),
		CandidateIDs: append([]string(nil), cmd.CandidateIDs...),
		SeatsToFill:  cmd.SeatsToFill,
		Status:       entities.ElectionStatus(strings.ToLower(strings.TrimSpace(cmd.Status))),
		UpdatedAt:    u.now(),
	}
	if err := services.ValidateElection(election); err != nil {
		return SyncElectionResult{}, err
	}

	created := false
	existing, err := u.Elections.GetElection(ctx, election.ElectionID)
	switch {
	case errors.Is(err, domainerrors.ErrElectionNotFound):
		created = true
	case err != nil:
		return SyncElectionResult{}, err
	case existing.Frozen():
		if !existing.CanBecome(election.Status) ||
			!slices.Equal(existing.CandidateIDs, election.CandidateIDs) ||
			existing.SeatsToFill != election.SeatsToFill {
			logger.Warn("frozen election edit rejected",
				"event", "sync_election_frozen",
				"module", "elections/tally-service",
				"layer", "application",
				"election_id", election.ElectionID,
				"status", existing.Status,
				"requested_status", election.Status,
			)
			return SyncElectionResult{}, domainerrors.ErrElectionFrozen
		}
	}

	if err := u.Elections.UpsertElection(ctx, election); err != nil {
		logger.Error("election sync failed",
			"event", "sync_election_failed",
			"module", "elections/tally-service",
			"layer", "application",
			"election_id", election.ElectionID,
			"error", err.Error(),
		)
		return SyncElectionResult{}, err
	}

	logger.Info("election synced",
		"event", "sync_election_succeeded",
		"module", "elections/tally-service",
		"layer", "application",
		"election_id", election.ElectionID,
		"status", election.Status,
		"candidate_count", len(election.CandidateIDs),
		"seats_to_fill", election.SeatsToFill,
		"created", created,
	)
	return SyncElectionResult{Election: election, Created: created}, nil
}

func (u SyncElectionUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
