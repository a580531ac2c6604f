package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"votecore/contexts/elections/token-issuer/application/commands"
	httptransport "votecore/contexts/elections/token-issuer/transport/http"
)

type Handler struct {
	IssueToken commands.IssueTokenUseCase
	Logger     *slog.Logger
}

// IssueTokenHandler godoc
// @Summary Issue a voting token
// @Description Mints a single-use token for the authenticated voter and registers its hash with the tally service before returning it. One token per voter per election.
// @Tags token-issuer
// @Produce json
// @Param X-User-Id header string true "Authenticated voter subject"
// @Param election_id path string true "Election id"
// @Success 201 {object} httptransport.IssueTokenResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 502 {object} httptransport.ErrorResponse
// @Router /v1/elections/{election_id}/tokens [post]
func (h Handler) IssueTokenHandler(
	ctx context.Context,
	electionID string,
	voterSubject string,
) (httptransport.IssueTokenResponse, error) {
	result, err := h.IssueToken.Execute(ctx, commands.IssueTokenCommand{
		ElectionID:   electionID,
		VoterSubject: voterSubject,
	})
	if err != nil {
		return httptransport.IssueTokenResponse{}, err
	}
	return httptransport.IssueTokenResponse{
		ElectionID: result.Token.ElectionID,
		Token:      result.Token.Token,
		IssuedAt:   result.Token.IssuedAt.Format(time.RFC3339),
	}, nil
}
