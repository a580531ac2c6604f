package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	tokenissuer "votecore/contexts/elections/token-issuer"
	issuererrors "votecore/contexts/elections/token-issuer/domain/errors"
	issuerhttp "votecore/contexts/elections/token-issuer/transport/http"
)

// IssuerServer exposes token issuance behind the gateway. The gateway
// authenticates the voter and forwards the subject in X-User-Id.
type IssuerServer struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	issuer tokenissuer.Module
	http   *http.Server
}

func NewIssuer(issuer tokenissuer.Module, logger *slog.Logger, addr string) *IssuerServer {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8081"
	}
	s := &IssuerServer{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		issuer: issuer,
	}
	s.mux.HandleFunc("GET /healthz", handleHealth)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/tokens", s.handleIssueToken)
	s.http = newHTTPServer(addr, requestLogger(logger, "token-issuer", s.mux))
	return s
}

func (s *IssuerServer) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"service", "token-issuer",
		"addr", s.addr,
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *IssuerServer) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *IssuerServer) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	voter := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if voter == "" {
		writeIssuerError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	resp, err := s.issuer.Handler.IssueTokenHandler(r.Context(), r.PathValue("election_id"), voter)
	if err != nil {
		s.writeIssuerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *IssuerServer) writeIssuerDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, issuererrors.ErrVoterRequired):
		writeIssuerError(w, http.StatusUnauthorized, "missing_user", "authenticated voter required")
	case errors.Is(err, issuererrors.ErrElectionRequired):
		writeIssuerError(w, http.StatusBadRequest, "election_required", "election id is required")
	case errors.Is(err, issuererrors.ErrTokenAlreadyIssued):
		writeIssuerError(w, http.StatusConflict, "token_already_issued", "a token has already been issued for this election")
	case errors.Is(err, issuererrors.ErrRegistrationConflict):
		writeIssuerError(w, http.StatusConflict, "registration_conflict", "token registration conflicted, request a new token")
	case errors.Is(err, issuererrors.ErrRegistrarUnavailable):
		s.logUpstreamError(err)
		writeIssuerError(w, http.StatusBadGateway, "registrar_unavailable", "token registration is temporarily unavailable")
	case errors.Is(err, issuererrors.ErrRegistrationRejected):
		s.logUpstreamError(err)
		writeIssuerError(w, http.StatusBadGateway, "registration_rejected", "token registration was rejected")
	default:
		s.logger.Error("unmapped issuer error",
			"event", "http_unmapped_error",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
		writeIssuerError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (s *IssuerServer) logUpstreamError(err error) {
	s.logger.Warn("registrar call failed for voter request",
		"event", "http_issuer_registrar_failed",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"error", err.Error(),
	)
}

func writeIssuerError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, issuerhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
