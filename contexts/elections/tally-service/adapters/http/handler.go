package httpadapter

import (
	"context"
	"log/slog"
	"time"

	application "votecore/contexts/elections/tally-service/application"
	"votecore/contexts/elections/tally-service/application/commands"
	"votecore/contexts/elections/tally-service/application/queries"
	"votecore/contexts/elections/tally-service/domain/entities"
	httptransport "votecore/contexts/elections/tally-service/transport/http"
)

type Handler struct {
	SyncElection  commands.SyncElectionUseCase
	RegisterToken commands.RegisterTokenUseCase
	CastBallot    commands.CastBallotUseCase
	Tabulate      commands.TabulateElectionUseCase
	GetResults    queries.GetResultsUseCase
	Logger        *slog.Logger
}

// SyncElectionHandler godoc
// @Summary Sync election configuration
// @Description Creates or updates the candidate list, seat count and status of an election. Candidates and seats are frozen once the election is closed.
// @Tags elections-s2s
// @Accept json
// @Produce json
// @Security S2SApiKey
// @Param election_id path string true "Election id"
// @Param request body httptransport.SyncElectionRequest true "Election configuration"
// @Success 200 {object} httptransport.ElectionResponse
// @Success 201 {object} httptransport.ElectionResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /api/s2s/elections/{election_id} [put]
func (h Handler) SyncElectionHandler(
	ctx context.Context,
	electionID string,
	req httptransport.SyncElectionRequest,
) (httptransport.ElectionResponse, error) {
	result, err := h.SyncElection.Execute(ctx, commands.SyncElectionCommand{
		ElectionID:   electionID,
		CandidateIDs: req.CandidateIDs,
		SeatsToFill:  req.SeatsToFill,
		Status:       req.Status,
	})
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return httptransport.ElectionResponse{
		ElectionID:   result.Election.ElectionID,
		CandidateIDs: result.Election.CandidateIDs,
		SeatsToFill:  result.Election.SeatsToFill,
		Status:       string(result.Election.Status),
		UpdatedAt:    result.Election.UpdatedAt.Format(time.RFC3339),
		Created:      result.Created,
	}, nil
}

// RegisterTokenHandler godoc
// @Summary Register a voting token hash
// @Description Stores the SHA-256 hash of an issued token as unused. The raw token never reaches this service.
// @Tags elections-s2s
// @Accept json
// @Produce json
// @Security S2SApiKey
// @Param election_id path string true "Election id"
// @Param request body httptransport.RegisterTokenRequest true "Token hash"
// @Success 201 {object} httptransport.RegisterTokenResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /api/s2s/elections/{election_id}/tokens [post]
func (h Handler) RegisterTokenHandler(
	ctx context.Context,
	electionID string,
	req httptransport.RegisterTokenRequest,
) (httptransport.RegisterTokenResponse, error) {
	result, err := h.RegisterToken.Execute(ctx, commands.RegisterTokenCommand{
		ElectionID: electionID,
		TokenHash:  req.TokenHash,
	})
	if err != nil {
		return httptransport.RegisterTokenResponse{}, err
	}
	return httptransport.RegisterTokenResponse{
		ElectionID:   result.Record.ElectionID,
		TokenHash:    result.Record.TokenHash,
		RegisteredAt: result.Record.RegisteredAt.Format(time.RFC3339),
	}, nil
}

// CastBallotHandler godoc
// @Summary Cast an anonymous ballot
// @Description Validates the voting token and ranked preferences, then records the ballot and consumes the token in one step.
// @Tags ballots
// @Accept json
// @Produce json
// @Param request body httptransport.CastBallotRequest true "Ballot"
// @Success 201 {object} httptransport.BallotReceiptResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /v1/ballots [post]
func (h Handler) CastBallotHandler(
	ctx context.Context,
	req httptransport.CastBallotRequest,
) (httptransport.BallotReceiptResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("cast ballot request received",
		"event", "http_cast_ballot_received",
		"module", "elections/tally-service",
		"layer", "transport",
		"election_id", req.ElectionID,
	)

	result, err := h.CastBallot.Execute(ctx, commands.CastBallotCommand{
		ElectionID:  req.ElectionID,
		Token:       req.Token,
		Preferences: req.Preferences,
	})
	if err != nil {
		return httptransport.BallotReceiptResponse{}, err
	}
	return httptransport.BallotReceiptResponse{
		BallotID:    result.Receipt.BallotID,
		ElectionID:  result.Receipt.ElectionID,
		SubmittedAt: result.Receipt.SubmittedAt.Format(time.RFC3339),
	}, nil
}

// TabulateHandler godoc
// @Summary Tabulate a closed election
// @Description Runs STV over the stored ballots once and publishes the result.
// @Tags elections-s2s
// @Produce json
// @Security S2SApiKey
// @Param election_id path string true "Election id"
// @Success 201 {object} httptransport.ElectionResultResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/s2s/elections/{election_id}/tabulate [post]
func (h Handler) TabulateHandler(ctx context.Context, electionID string) (httptransport.ElectionResultResponse, error) {
	result, err := h.Tabulate.Execute(ctx, commands.TabulateElectionCommand{ElectionID: electionID})
	if err != nil {
		return httptransport.ElectionResultResponse{}, err
	}
	return mapResult(result.Result), nil
}

// GetResultsHandler godoc
// @Summary Get published election results
// @Tags elections-s2s
// @Produce json
// @Security S2SApiKey
// @Param election_id path string true "Election id"
// @Success 200 {object} httptransport.ElectionResultResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /api/s2s/elections/{election_id}/results [get]
func (h Handler) GetResultsHandler(ctx context.Context, electionID string) (httptransport.ElectionResultResponse, error) {
	result, err := h.GetResults.Execute(ctx, queries.GetResultsQuery{ElectionID: electionID})
	if err != nil {
		return httptransport.ElectionResultResponse{}, err
	}
	return mapResult(result.Result), nil
}

func mapResult(result entities.ElectionResult) httptransport.ElectionResultResponse {
	winners := result.Winners
	if winners == nil {
		winners = []string{}
	}
	return httptransport.ElectionResultResponse{
		ElectionID:  result.ElectionID,
		SeatsToFill: result.SeatsToFill,
		Quota:       result.Quota,
		TotalWeight: result.TotalWeight,
		BallotCount: result.BallotCount,
		Winners:     winners,
		Rounds:      result.Rounds,
		Trace:       result.Trace,
		TabulatedAt: result.TabulatedAt.Format(time.RFC3339),
	}
}
