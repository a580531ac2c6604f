package registrar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	domainerrors "votecore/contexts/elections/token-issuer/domain/errors"
	s2sv1 "votecore/contracts/gen/s2s/v1"
)

const testHash = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

func newTestClient(serverURL string) *Client {
	return NewClient(Config{
		BaseURL:     serverURL,
		APIKey:      "secret",
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	}, nil, nil)
}

func TestRegisterTokenSendsHashAndKey(t *testing.T) {
	var gotPath, gotKey string
	var gotBody s2sv1.RegisterTokenRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get(s2sv1.APIKeyHeader)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	if err := newTestClient(server.URL).RegisterToken(context.Background(), "election-1", testHash); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if gotPath != "/api/s2s/elections/election-1/tokens" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotKey != "secret" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if gotBody.TokenHash != testHash {
		t.Fatalf("unexpected body hash %q", gotBody.TokenHash)
	}
}

func TestRegisterTokenConflictOnRetryCountsAsRegistered(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(s2sv1.ErrorResponse{Code: s2sv1.CodeRegistrationConflict})
	}))
	defer server.Close()

	if err := newTestClient(server.URL).RegisterToken(context.Background(), "election-1", testHash); err != nil {
		t.Fatalf("expected retry conflict to count as registered, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", atomic.LoadInt32(&calls))
	}
}

func TestRegisterTokenConflictOnFirstAttemptFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(s2sv1.ErrorResponse{Code: s2sv1.CodeRegistrationConflict})
	}))
	defer server.Close()

	err := newTestClient(server.URL).RegisterToken(context.Background(), "election-1", testHash)
	if !errors.Is(err, domainerrors.ErrRegistrationConflict) {
		t.Fatalf("expected registration conflict, got %v", err)
	}
}

func TestRegisterTokenOtherConflictOnRetryIsRejected(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(s2sv1.ErrorResponse{Code: "election_not_accepting_tokens"})
	}))
	defer server.Close()

	err := newTestClient(server.URL).RegisterToken(context.Background(), "election-1", testHash)
	if !errors.Is(err, domainerrors.ErrRegistrationRejected) {
		t.Fatalf("expected registration rejected, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", atomic.LoadInt32(&calls))
	}
}

func TestRegisterTokenBareConflictIsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	err := newTestClient(server.URL).RegisterToken(context.Background(), "election-1", testHash)
	if !errors.Is(err, domainerrors.ErrRegistrationRejected) {
		t.Fatalf("expected registration rejected, got %v", err)
	}
}

func TestRegisterTokenGivesUpAfterServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := newTestClient(server.URL).RegisterToken(context.Background(), "election-1", testHash)
	if !errors.Is(err, domainerrors.ErrRegistrarUnavailable) {
		t.Fatalf("expected registrar unavailable, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", atomic.LoadInt32(&calls))
	}
}

func TestRegisterTokenUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	serverURL := server.URL
	server.Close()

	err := newTestClient(serverURL).RegisterToken(context.Background(), "election-1", testHash)
	if !errors.Is(err, domainerrors.ErrRegistrarUnavailable) {
		t.Fatalf("expected registrar unavailable, got %v", err)
	}
}

func TestRegisterTokenClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(s2sv1.ErrorResponse{Code: s2sv1.CodeUnauthorized})
	}))
	defer server.Close()

	err := newTestClient(server.URL).RegisterToken(context.Background(), "election-1", testHash)
	if !errors.Is(err, domainerrors.ErrRegistrationRejected) {
		t.Fatalf("expected registration rejected, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single attempt, got %d", atomic.LoadInt32(&calls))
	}
}
