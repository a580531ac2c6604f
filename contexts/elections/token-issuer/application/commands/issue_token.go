package commands

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "votecore/contexts/elections/token-issuer/application"
	"votecore/contexts/elections/token-issuer/domain/entities"
	domainerrors "votecore/contexts/elections/token-issuer/domain/errors"
	"votecore/contexts/elections/token-issuer/domain/services"
	"votecore/contexts/elections/token-issuer/ports"
)

type IssueTokenCommand struct {
	ElectionID   string
	VoterSubject string
}

type IssueTokenResult struct {
	Token entities.IssuedToken
}

// IssueTokenUseCase hands a voter exactly one token per election. The caller
// has already established eligibility.
type IssueTokenUseCase struct {
	Registrar ports.RegistrarClient
	Ledger    ports.IssuanceLedger
	Tokens    ports.TokenSource
	Clock     ports.Clock
	Logger    *slog.Logger
}

// Execute reserves the voter's slot, mints a token, and registers its hash
// before returning it. Any failure after the reservation releases the slot so
// the voter can try again; the token is discarded.
func (u IssueTokenUseCase) Execute(ctx context.Context, cmd IssueTokenCommand) (IssueTokenResult, error) {
	logger := application.ResolveLogger(u.Logger)
	electionID := strings.TrimSpace(cmd.ElectionID)
	if electionID == "" {
		return IssueTokenResult{}, domainerrors.ErrElectionRequired
	}
	if strings.TrimSpace(cmd.VoterSubject) == "" {
		return IssueTokenResult{}, domainerrors.ErrVoterRequired
	}
	voterKey := services.VoterKey(cmd.VoterSubject)
	now := u.now()

	reserved, err := u.Ledger.Reserve(ctx, electionID, voterKey, now)
	if err != nil {
		logger.Error("issuance reservation failed",
			"event", "issue_token_reserve_failed",
			"module", "elections/token-issuer",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return IssueTokenResult{}, err
	}
	if !reserved {
		logger.Info("token already issued for voter",
			"event", "issue_token_already_issued",
			"module", "elections/token-issuer",
			"layer", "application",
			"election_id", electionID,
		)
		return IssueTokenResult{}, domainerrors.ErrTokenAlreadyIssued
	}

	token, err := u.newToken()
	if err != nil {
		u.release(ctx, logger, electionID, voterKey)
		return IssueTokenResult{}, err
	}

	if err := u.Registrar.RegisterToken(ctx, electionID, services.HashToken(token)); err != nil {
		u.release(ctx, logger, electionID, voterKey)
		level := slog.LevelError
		if errors.Is(err, domainerrors.ErrRegistrationRejected) {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "token registration failed",
			"event", "issue_token_registration_failed",
			"module", "elections/token-issuer",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return IssueTokenResult{}, err
	}

	logger.Info("token issued",
		"event", "issue_token_succeeded",
		"module", "elections/token-issuer",
		"layer", "application",
		"election_id", electionID,
	)
	return IssueTokenResult{
		Token: entities.IssuedToken{
			ElectionID: electionID,
			Token:      token,
			IssuedAt:   now,
		},
	}, nil
}

func (u IssueTokenUseCase) release(ctx context.Context, logger *slog.Logger, electionID string, voterKey string) {
	if err := u.Ledger.Release(context.WithoutCancel(ctx), electionID, voterKey); err != nil {
		logger.Error("issuance reservation release failed",
			"event", "issue_token_release_failed",
			"module", "elections/token-issuer",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
	}
}

func (u IssueTokenUseCase) newToken() (string, error) {
	if u.Tokens != nil {
		return u.Tokens.NewToken()
	}
	return services.GenerateToken(rand.Reader)
}

func (u IssueTokenUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
