package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	tallyservice "votecore/contexts/elections/tally-service"
	tallyerrors "votecore/contexts/elections/tally-service/domain/errors"
	tallyhttp "votecore/contexts/elections/tally-service/transport/http"
	s2sv1 "votecore/contracts/gen/s2s/v1"

	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "votecore/internal/platform/httpserver/docs"
)

const maxBodyBytes = 1 << 20

// Server exposes the tally service: S2S routes guarded by X-API-Key and the
// public ballot route.
type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	apiKey   string
	tally    tallyservice.Module
	validate *validator.Validate
	http     *http.Server
}

func New(
	tally tallyservice.Module,
	apiKey string,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		apiKey:   apiKey,
		tally:    tally,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	s.registerRoutes()
	s.http = newHTTPServer(addr, requestLogger(logger, "tally-service", s.mux))
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /healthz", handleHealth)

	s.mux.Handle("PUT /api/s2s/elections/{election_id}", s.requireAPIKey(s.handleSyncElection))
	s.mux.Handle("POST /api/s2s/elections/{election_id}/tokens", s.requireAPIKey(s.handleRegisterToken))
	s.mux.Handle("POST /api/s2s/elections/{election_id}/tabulate", s.requireAPIKey(s.handleTabulate))
	s.mux.Handle("GET /api/s2s/elections/{election_id}/results", s.requireAPIKey(s.handleGetResults))

	s.mux.HandleFunc("POST /v1/ballots", s.handleCastBallot)
}

func (s *Server) requireAPIKey(next http.HandlerFunc) http.Handler {
	return requireAPIKey(s.apiKey, next, func(w http.ResponseWriter) {
		writeTallyError(w, http.StatusUnauthorized, s2sv1.CodeUnauthorized, "valid X-API-Key header is required")
	})
}

func (s *Server) handleSyncElection(w http.ResponseWriter, r *http.Request) {
	var req tallyhttp.SyncElectionRequest
	if !s.decodeAndValidate(w, r, &req, "invalid_election") {
		return
	}
	resp, err := s.tally.Handler.SyncElectionHandler(r.Context(), r.PathValue("election_id"), req)
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var req tallyhttp.RegisterTokenRequest
	if !s.decodeAndValidate(w, r, &req, s2sv1.CodeInvalidTokenHash) {
		return
	}
	resp, err := s.tally.Handler.RegisterTokenHandler(r.Context(), r.PathValue("election_id"), req)
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCastBallot(w http.ResponseWriter, r *http.Request) {
	var req tallyhttp.CastBallotRequest
	if !s.decodeAndValidate(w, r, &req, "ballot_invalid") {
		return
	}
	resp, err := s.tally.Handler.CastBallotHandler(r.Context(), req)
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleTabulate(w http.ResponseWriter, r *http.Request) {
	resp, err := s.tally.Handler.TabulateHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	resp, err := s.tally.Handler.GetResultsHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any, code string) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		writeTallyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeTallyError(w, http.StatusBadRequest, code, validationMessage(err))
		return false
	}
	return true
}

func (s *Server) writeTallyDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tallyerrors.ErrBallotInvalid):
		writeTallyError(w, http.StatusBadRequest, "ballot_invalid", err.Error())
	case errors.Is(err, tallyerrors.ErrInvalidTokenHash):
		writeTallyError(w, http.StatusBadRequest, s2sv1.CodeInvalidTokenHash, err.Error())
	case errors.Is(err, tallyerrors.ErrInvalidElection):
		writeTallyError(w, http.StatusBadRequest, "invalid_election", err.Error())
	case errors.Is(err, tallyerrors.ErrValidation):
		writeTallyError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, tallyerrors.ErrTokenInvalid):
		writeTallyError(w, http.StatusForbidden, "token_invalid", err.Error())
	case errors.Is(err, tallyerrors.ErrElectionNotFound):
		writeTallyError(w, http.StatusNotFound, s2sv1.CodeElectionNotFound, err.Error())
	case errors.Is(err, tallyerrors.ErrResultsNotAvailable):
		writeTallyError(w, http.StatusNotFound, "results_not_available", err.Error())
	case errors.Is(err, tallyerrors.ErrTokenAlreadyUsed):
		writeTallyError(w, http.StatusConflict, "token_already_used", err.Error())
	case errors.Is(err, tallyerrors.ErrElectionNotOpen):
		writeTallyError(w, http.StatusConflict, "election_not_open", err.Error())
	case errors.Is(err, tallyerrors.ErrRegistrationConflict):
		writeTallyError(w, http.StatusConflict, s2sv1.CodeRegistrationConflict, err.Error())
	case errors.Is(err, tallyerrors.ErrElectionNotAcceptingTokens):
		writeTallyError(w, http.StatusConflict, "election_not_accepting_tokens", err.Error())
	case errors.Is(err, tallyerrors.ErrElectionFrozen):
		writeTallyError(w, http.StatusConflict, "election_frozen", err.Error())
	case errors.Is(err, tallyerrors.ErrElectionNotClosed):
		writeTallyError(w, http.StatusConflict, "election_not_closed", err.Error())
	case errors.Is(err, tallyerrors.ErrResultsAlreadyPublished):
		writeTallyError(w, http.StatusConflict, "results_already_published", err.Error())
	case errors.Is(err, tallyerrors.ErrTabulationInProgress):
		writeTallyError(w, http.StatusConflict, "tabulation_in_progress", err.Error())
	case errors.Is(err, tallyerrors.ErrTransientInfrastructure):
		writeTallyError(w, http.StatusServiceUnavailable, "service_unavailable", "temporary infrastructure failure, retry later")
	case errors.Is(err, tallyerrors.ErrTabulationAnomaly):
		writeTallyError(w, http.StatusInternalServerError, "tabulation_anomaly", err.Error())
	default:
		s.logger.Error("unmapped tally error",
			"event", "http_unmapped_error",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeTallyError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeTallyError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, tallyhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
