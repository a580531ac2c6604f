package queries

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	application "votecore/contexts/elections/tally-service/application"
	"votecore/contexts/elections/tally-service/domain/entities"
	domainerrors "votecore/contexts/elections/tally-service/domain/errors"
	"votecore/contexts/elections/tally-service/ports"
)

type GetResultsQuery struct {
	ElectionID string
}

type GetResultsResult struct {
	Result entities.ElectionResult
}

type GetResultsUseCase struct {
	Results ports.ResultRepository
	Logger  *slog.Logger
}

func (u GetResultsUseCase) Execute(ctx context.Context, query GetResultsQuery) (GetResultsResult, error) {
	logger := application.ResolveLogger(u.Logger)
	electionID := strings.TrimSpace(query.ElectionID)
	if electionID == "" {
		return GetResultsResult{}, domainerrors.ErrResultsNotAvailable
	}

	result, err := u.Results.GetResult(ctx, electionID)
	if err != nil {
		if !errors.Is(err, domainerrors.ErrResultsNotAvailable) {
			logger.Error("get results failed",
				"event", "get_results_failed",
				"module", "elections/tally-service",
				"layer", "application",
				"election_id", electionID,
				"error", err.Error(),
			)
		}
		return GetResultsResult{}, err
	}
	return GetResultsResult{Result: result}, nil
}
