package httpserver

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tallyservice "votecore/contexts/elections/tally-service"
	"votecore/contexts/elections/tally-service/domain/entities"
	"votecore/contexts/elections/tally-service/domain/services"
	tallyhttp "votecore/contexts/elections/tally-service/transport/http"
)

const testAPIKey = "s2s-secret"

func newTestServer() *Server {
	return New(
		tallyservice.NewInMemoryModule([]entities.Election{{
			ElectionID:   "election-1",
			CandidateIDs: []string{"A", "B", "C"},
			SeatsToFill:  1,
			Status:       entities.ElectionStatusPublished,
		}}, slog.Default()),
		testAPIKey,
		slog.Default(),
		":0",
	)
}

func serve(server *Server, method string, path string, body string, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp tallyhttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v body=%s", err, rr.Body.String())
	}
	return resp.Code
}

func registerToken(t *testing.T, server *Server, token string) {
	t.Helper()
	body := `{"token_hash":"` + services.HashToken(token) + `"}`
	rr := serve(server, http.MethodPost, "/api/s2s/elections/election-1/tokens", body, testAPIKey)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func castBallot(server *Server, token string, prefs ...string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(tallyhttp.CastBallotRequest{
		ElectionID:  "election-1",
		Token:       token,
		Preferences: prefs,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/ballots", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func TestS2SRoutesRequireAPIKey(t *testing.T) {
	server := newTestServer()
	hash := services.HashToken("tok")

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		key    string
	}{
		{"register without key", http.MethodPost, "/api/s2s/elections/election-1/tokens", `{"token_hash":"` + hash + `"}`, ""},
		{"register with wrong key", http.MethodPost, "/api/s2s/elections/election-1/tokens", `{"token_hash":"` + hash + `"}`, "nope"},
		{"results without key", http.MethodGet, "/api/s2s/elections/election-1/results", "", ""},
		{"tabulate without key", http.MethodPost, "/api/s2s/elections/election-1/tabulate", "", ""},
		{"sync without key", http.MethodPut, "/api/s2s/elections/election-1", `{"candidate_ids":["A"],"seats_to_fill":1,"status":"published"}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(server, tc.method, tc.path, tc.body, tc.key)
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
			}
		})
	}
	if server.tally.Store.TokenRecordCount("election-1") != 0 {
		t.Fatal("rejected request must not register a hash")
	}
}

func TestRegisterTokenConflictAndValidation(t *testing.T) {
	server := newTestServer()
	registerToken(t, server, "tok-1")

	rr := serve(server, http.MethodPost, "/api/s2s/elections/election-1/tokens",
		`{"token_hash":"`+services.HashToken("tok-1")+`"}`, testAPIKey)
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "registration_conflict" {
		t.Fatalf("expected 409 registration_conflict, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = serve(server, http.MethodPost, "/api/s2s/elections/election-1/tokens",
		`{"token_hash":"`+strings.ToUpper(services.HashToken("tok-2"))+`"}`, testAPIKey)
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "invalid_token_hash" {
		t.Fatalf("expected 400 invalid_token_hash, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = serve(server, http.MethodPost, "/api/s2s/elections/missing/tokens",
		`{"token_hash":"`+services.HashToken("tok-3")+`"}`, testAPIKey)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCastBallotLifecycle(t *testing.T) {
	server := newTestServer()
	registerToken(t, server, "tok-1")

	rr := castBallot(server, "tok-1", "B", "A")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var receipt tallyhttp.BallotReceiptResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.BallotID == "" || receipt.ElectionID != "election-1" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if strings.Contains(rr.Body.String(), services.HashToken("tok-1")) {
		t.Fatal("receipt must not expose the token hash")
	}

	rr = castBallot(server, "tok-1", "A")
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "token_already_used" {
		t.Fatalf("expected 409 token_already_used, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = castBallot(server, "never-issued", "A")
	if rr.Code != http.StatusForbidden || errorCode(t, rr) != "token_invalid" {
		t.Fatalf("expected 403 token_invalid, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCastBallotRejectsInvalidPreferences(t *testing.T) {
	server := newTestServer()
	registerToken(t, server, "tok-1")

	for _, prefs := range [][]string{{}, {"A", "A"}, {"Z"}} {
		rr := castBallot(server, "tok-1", prefs...)
		if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "ballot_invalid" {
			t.Fatalf("prefs %v: expected 400 ballot_invalid, got %d body=%s", prefs, rr.Code, rr.Body.String())
		}
	}

	rr := castBallot(server, "tok-1", "C")
	if rr.Code != http.StatusCreated {
		t.Fatalf("token must survive rejected ballots, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCastBallotRejectsMalformedJSON(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/v1/ballots", strings.NewReader(`{"election_id":`))
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestTabulateRequiresClosedElection(t *testing.T) {
	server := newTestServer()
	registerToken(t, server, "tok-1")
	if rr := castBallot(server, "tok-1", "A"); rr.Code != http.StatusCreated {
		t.Fatalf("cast failed: %d %s", rr.Code, rr.Body.String())
	}

	rr := serve(server, http.MethodPost, "/api/s2s/elections/election-1/tabulate", "", testAPIKey)
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "election_not_closed" {
		t.Fatalf("expected 409 election_not_closed, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = serve(server, http.MethodGet, "/api/s2s/elections/election-1/results", "", testAPIKey)
	if rr.Code != http.StatusNotFound || errorCode(t, rr) != "results_not_available" {
		t.Fatalf("expected 404 results_not_available, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCloseTabulateAndReadResults(t *testing.T) {
	server := newTestServer()
	votes := map[string][]string{
		"t1": {"A"}, "t2": {"A"}, "t3": {"A"},
		"t4": {"B"}, "t5": {"B"},
		"t6": {"C", "A"},
	}
	for token, prefs := range votes {
		registerToken(t, server, token)
		if rr := castBallot(server, token, prefs...); rr.Code != http.StatusCreated {
			t.Fatalf("cast failed: %d %s", rr.Code, rr.Body.String())
		}
	}

	rr := serve(server, http.MethodPut, "/api/s2s/elections/election-1",
		`{"candidate_ids":["A","B","C"],"seats_to_fill":1,"status":"closed"}`, testAPIKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on close, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = castBallot(server, "late", "A")
	if rr.Code == http.StatusCreated {
		t.Fatal("closed election must not accept ballots")
	}

	rr = serve(server, http.MethodPost, "/api/s2s/elections/election-1/tabulate", "", testAPIKey)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = serve(server, http.MethodGet, "/api/s2s/elections/election-1/results", "", testAPIKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var result tallyhttp.ElectionResultResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.Winners) != 1 || result.Winners[0] != "A" {
		t.Fatalf("expected winner A, got %v", result.Winners)
	}
	if result.Quota != "4" || result.BallotCount != 6 {
		t.Fatalf("unexpected result %+v", result)
	}

	rr = serve(server, http.MethodPost, "/api/s2s/elections/election-1/tabulate", "", testAPIKey)
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "results_already_published" {
		t.Fatalf("expected 409 results_already_published, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSyncElectionFreezesClosedElection(t *testing.T) {
	server := newTestServer()
	rr := serve(server, http.MethodPut, "/api/s2s/elections/election-2",
		`{"candidate_ids":["X","Y"],"seats_to_fill":1,"status":"draft"}`, testAPIKey)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 on create, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = serve(server, http.MethodPut, "/api/s2s/elections/election-1",
		`{"candidate_ids":["A","B","C"],"seats_to_fill":1,"status":"closed"}`, testAPIKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = serve(server, http.MethodPut, "/api/s2s/elections/election-1",
		`{"candidate_ids":["A","B"],"seats_to_fill":1,"status":"closed"}`, testAPIKey)
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "election_frozen" {
		t.Fatalf("expected 409 election_frozen, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = serve(server, http.MethodPut, "/api/s2s/elections/election-1",
		`{"candidate_ids":["A","B","C"],"seats_to_fill":1,"status":"published"}`, testAPIKey)
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "election_frozen" {
		t.Fatalf("expected reopen to be rejected with 409 election_frozen, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = serve(server, http.MethodPut, "/api/s2s/elections/election-3",
		`{"candidate_ids":["X"],"seats_to_fill":1,"status":"running"}`, testAPIKey)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	server := newTestServer()
	rr := serve(server, http.MethodGet, "/healthz", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
