package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"votecore/contexts/elections/tally-service/adapters/memory"
	"votecore/contexts/elections/tally-service/domain/entities"
	domainerrors "votecore/contexts/elections/tally-service/domain/errors"
	"votecore/contexts/elections/tally-service/domain/services"
	contractsv1 "votecore/contracts/gen/events/v1"
)

func newTestStore(status entities.ElectionStatus) *memory.Store {
	return memory.NewStore([]entities.Election{{
		ElectionID:   "election-1",
		CandidateIDs: []string{"A", "B", "C"},
		SeatsToFill:  1,
		Status:       status,
		UpdatedAt:    time.Now().UTC(),
	}}, nil)
}

func registerUseCase(store *memory.Store) RegisterTokenUseCase {
	return RegisterTokenUseCase{Elections: store, Tokens: store, Clock: store}
}

func castUseCase(store *memory.Store) CastBallotUseCase {
	return CastBallotUseCase{
		Elections:   store,
		Tokens:      store,
		Ballots:     store,
		Clock:       store,
		IDGenerator: store,
	}
}

func tabulateUseCase(store *memory.Store) TabulateElectionUseCase {
	return TabulateElectionUseCase{
		Elections:   store,
		Ballots:     store,
		Results:     store,
		Locker:      store,
		Clock:       store,
		IDGenerator: store,
	}
}

func mustRegister(t *testing.T, store *memory.Store, token string) {
	t.Helper()
	_, err := registerUseCase(store).Execute(context.Background(), RegisterTokenCommand{
		ElectionID: "election-1",
		TokenHash:  services.HashToken(token),
	})
	if err != nil {
		t.Fatalf("register token %s failed: %v", token, err)
	}
}

func TestRegisterTokenStoresUnusedHash(t *testing.T) {
	store := newTestStore(entities.ElectionStatusDraft)
	hash := services.HashToken("token-1")

	result, err := registerUseCase(store).Execute(context.Background(), RegisterTokenCommand{
		ElectionID: "election-1",
		TokenHash:  hash,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if result.Record.Used {
		t.Fatal("new record must be unused")
	}

	record, err := store.GetTokenHashRecord(context.Background(), "election-1", hash)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if record.TokenHash != hash || record.Used {
		t.Fatalf("unexpected stored record %+v", record)
	}
}

func TestRegisterTokenRejectsDuplicateHash(t *testing.T) {
	store := newTestStore(entities.ElectionStatusPublished)
	mustRegister(t, store, "token-1")

	_, err := registerUseCase(store).Execute(context.Background(), RegisterTokenCommand{
		ElectionID: "election-1",
		TokenHash:  services.HashToken("token-1"),
	})
	if !errors.Is(err, domainerrors.ErrRegistrationConflict) {
		t.Fatalf("expected registration conflict, got %v", err)
	}
	if count := store.TokenRecordCount("election-1"); count != 1 {
		t.Fatalf("expected one stored record, got %d", count)
	}
}

func TestRegisterTokenRejections(t *testing.T) {
	cases := []struct {
		name       string
		status     entities.ElectionStatus
		electionID string
		hash       string
		want       error
	}{
		{"short hash", entities.ElectionStatusPublished, "election-1", "abc", domainerrors.ErrInvalidTokenHash},
		{"uppercase hash", entities.ElectionStatusPublished, "election-1", strings.ToUpper(services.HashToken("x")), domainerrors.ErrInvalidTokenHash},
		{"unknown election", entities.ElectionStatusPublished, "election-9", services.HashToken("x"), domainerrors.ErrElectionNotFound},
		{"closed election", entities.ElectionStatusClosed, "election-1", services.HashToken("x"), domainerrors.ErrElectionNotAcceptingTokens},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newTestStore(tc.status)
			_, err := registerUseCase(store).Execute(context.Background(), RegisterTokenCommand{
				ElectionID: tc.electionID,
				TokenHash:  tc.hash,
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCastBallotConsumesToken(t *testing.T) {
	store := newTestStore(entities.ElectionStatusPublished)
	mustRegister(t, store, "token-1")

	result, err := castUseCase(store).Execute(context.Background(), CastBallotCommand{
		ElectionID:  "election-1",
		Token:       "token-1",
		Preferences: []string{"B", "A"},
	})
	if err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if result.Receipt.BallotID == "" || result.Receipt.ElectionID != "election-1" {
		t.Fatalf("unexpected receipt %+v", result.Receipt)
	}

	record, err := store.GetTokenHashRecord(context.Background(), "election-1", services.HashToken("token-1"))
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !record.Used || record.UsedAt == nil {
		t.Fatalf("expected token marked used, got %+v", record)
	}

	_, err = castUseCase(store).Execute(context.Background(), CastBallotCommand{
		ElectionID:  "election-1",
		Token:       "token-1",
		Preferences: []string{"A"},
	})
	if !errors.Is(err, domainerrors.ErrTokenAlreadyUsed) {
		t.Fatalf("expected token already used, got %v", err)
	}

	ballots, err := store.ListBallots(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("list ballots failed: %v", err)
	}
	if len(ballots) != 1 {
		t.Fatalf("expected one ballot, got %d", len(ballots))
	}

	events := store.OutboxEvents()
	if len(events) != 1 || events[0].EventType != contractsv1.EventTypeBallotCast {
		t.Fatalf("expected one ballot_cast outbox event, got %+v", events)
	}
	if strings.Contains(string(events[0].Payload), services.HashToken("token-1")) {
		t.Fatal("ballot_cast payload must not carry the token hash")
	}
}

func TestCastBallotConcurrentSameTokenSingleSuccess(t *testing.T) {
	store := newTestStore(entities.ElectionStatusPublished)
	mustRegister(t, store, "token-race")

	const attempts = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		alreadyUs int
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := castUseCase(store).Execute(context.Background(), CastBallotCommand{
				ElectionID:  "election-1",
				Token:       "token-race",
				Preferences: []string{"A", "B"},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domainerrors.ErrTokenAlreadyUsed):
				alreadyUs++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one success, got %d", successes)
	}
	if alreadyUs != attempts-1 {
		t.Fatalf("expected %d already-used rejections, got %d", attempts-1, alreadyUs)
	}
	ballots, _ := store.ListBallots(context.Background(), "election-1")
	if len(ballots) != 1 {
		t.Fatalf("expected one stored ballot, got %d", len(ballots))
	}
}

func TestCastBallotErrorPrecedence(t *testing.T) {
	t.Run("unknown token beats bad preferences", func(t *testing.T) {
		store := newTestStore(entities.ElectionStatusPublished)
		_, err := castUseCase(store).Execute(context.Background(), CastBallotCommand{
			ElectionID:  "election-1",
			Token:       "never-issued",
			Preferences: []string{"Z"},
		})
		if !errors.Is(err, domainerrors.ErrTokenInvalid) {
			t.Fatalf("expected token invalid, got %v", err)
		}
	})

	t.Run("bad preferences leave token unused", func(t *testing.T) {
		store := newTestStore(entities.ElectionStatusPublished)
		mustRegister(t, store, "token-2")
		_, err := castUseCase(store).Execute(context.Background(), CastBallotCommand{
			ElectionID:  "election-1",
			Token:       "token-2",
			Preferences: []string{"A", "A"},
		})
		if !errors.Is(err, domainerrors.ErrBallotInvalid) {
			t.Fatalf("expected ballot invalid, got %v", err)
		}
		record, _ := store.GetTokenHashRecord(context.Background(), "election-1", services.HashToken("token-2"))
		if record.Used {
			t.Fatal("rejected ballot must not consume the token")
		}
	})

	t.Run("token for another election", func(t *testing.T) {
		store := newTestStore(entities.ElectionStatusPublished)
		mustRegister(t, store, "token-3")
		_, err := castUseCase(store).Execute(context.Background(), CastBallotCommand{
			ElectionID:  "election-2",
			Token:       "token-3",
			Preferences: []string{"A"},
		})
		if !errors.Is(err, domainerrors.ErrTokenInvalid) {
			t.Fatalf("expected token invalid, got %v", err)
		}
	})

	t.Run("closed election", func(t *testing.T) {
		store := newTestStore(entities.ElectionStatusPublished)
		mustRegister(t, store, "token-4")
		if err := store.SetElectionStatus(context.Background(), "election-1", entities.ElectionStatusClosed, time.Now()); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		_, err := castUseCase(store).Execute(context.Background(), CastBallotCommand{
			ElectionID:  "election-1",
			Token:       "token-4",
			Preferences: []string{"A"},
		})
		if !errors.Is(err, domainerrors.ErrElectionNotOpen) {
			t.Fatalf("expected election not open, got %v", err)
		}
	})

	t.Run("bad preferences beat closed election", func(t *testing.T) {
		store := newTestStore(entities.ElectionStatusPublished)
		mustRegister(t, store, "token-5")
		if err := store.SetElectionStatus(context.Background(), "election-1", entities.ElectionStatusClosed, time.Now()); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		_, err := castUseCase(store).Execute(context.Background(), CastBallotCommand{
			ElectionID:  "election-1",
			Token:       "token-5",
			Preferences: []string{"Z"},
		})
		if !errors.Is(err, domainerrors.ErrBallotInvalid) {
			t.Fatalf("expected ballot invalid, got %v", err)
		}
	})
}

func TestTabulateElectionEndToEnd(t *testing.T) {
	store := newTestStore(entities.ElectionStatusPublished)
	ballots := [][]string{{"A"}, {"A"}, {"A"}, {"B"}, {"B"}, {"C", "A"}}
	for i, prefs := range ballots {
		token := fmt.Sprintf("token-%d", i)
		mustRegister(t, store, token)
		if _, err := castUseCase(store).Execute(context.Background(), CastBallotCommand{
			ElectionID:  "election-1",
			Token:       token,
			Preferences: prefs,
		}); err != nil {
			t.Fatalf("cast %d failed: %v", i, err)
		}
	}

	if _, err := tabulateUseCase(store).Execute(context.Background(), TabulateElectionCommand{ElectionID: "election-1"}); !errors.Is(err, domainerrors.ErrElectionNotClosed) {
		t.Fatalf("expected election not closed, got %v", err)
	}

	if err := store.SetElectionStatus(context.Background(), "election-1", entities.ElectionStatusClosed, time.Now()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	result, err := tabulateUseCase(store).Execute(context.Background(), TabulateElectionCommand{ElectionID: "election-1"})
	if err != nil {
		t.Fatalf("tabulate failed: %v", err)
	}
	if len(result.Result.Winners) != 1 || result.Result.Winners[0] != "A" {
		t.Fatalf("expected winner A, got %v", result.Result.Winners)
	}
	if result.Result.Quota != "4" || result.Result.BallotCount != 6 || result.Result.TotalWeight != "6" {
		t.Fatalf("unexpected result summary %+v", result.Result)
	}
	if len(result.Result.Trace) == 0 {
		t.Fatal("expected a narrated trace")
	}

	stored, err := store.GetResult(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("get result failed: %v", err)
	}
	if stored.Winners[0] != "A" {
		t.Fatalf("unexpected stored winners %v", stored.Winners)
	}

	_, err = tabulateUseCase(store).Execute(context.Background(), TabulateElectionCommand{ElectionID: "election-1"})
	if !errors.Is(err, domainerrors.ErrResultsAlreadyPublished) {
		t.Fatalf("expected results already published, got %v", err)
	}

	published := 0
	for _, evt := range store.OutboxEvents() {
		if evt.EventType == contractsv1.EventTypeResultsPublished {
			published++
		}
	}
	if published != 1 {
		t.Fatalf("expected one results_published event, got %d", published)
	}
}

func TestTabulateElectionWithoutBallotsIsRejected(t *testing.T) {
	store := newTestStore(entities.ElectionStatusClosed)
	_, err := tabulateUseCase(store).Execute(context.Background(), TabulateElectionCommand{ElectionID: "election-1"})
	if !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := store.GetResult(context.Background(), "election-1"); !errors.Is(err, domainerrors.ErrResultsNotAvailable) {
		t.Fatalf("expected no stored result, got %v", err)
	}
}

func TestTabulateElectionLockHeld(t *testing.T) {
	store := newTestStore(entities.ElectionStatusClosed)
	unlock, ok, err := store.TryLock(context.Background(), "tabulation/election-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected lock, got ok=%v err=%v", ok, err)
	}
	defer func() { _ = unlock(context.Background()) }()

	_, err = tabulateUseCase(store).Execute(context.Background(), TabulateElectionCommand{ElectionID: "election-1"})
	if !errors.Is(err, domainerrors.ErrTabulationInProgress) {
		t.Fatalf("expected tabulation in progress, got %v", err)
	}
}

func TestSyncElectionFreezesClosedConfiguration(t *testing.T) {
	store := memory.NewStore(nil, nil)
	syncer := SyncElectionUseCase{Elections: store, Clock: store}

	created, err := syncer.Execute(context.Background(), SyncElectionCommand{
		ElectionID:   "election-7",
		CandidateIDs: []string{"A", "B"},
		SeatsToFill:  1,
		Status:       "PUBLISHED",
	})
	if err != nil {
		t.Fatalf("initial sync failed: %v", err)
	}
	if !created.Created || created.Election.Status != entities.ElectionStatusPublished {
		t.Fatalf("unexpected sync result %+v", created)
	}

	if _, err := syncer.Execute(context.Background(), SyncElectionCommand{
		ElectionID:   "election-7",
		CandidateIDs: []string{"A", "B"},
		SeatsToFill:  1,
		Status:       "closed",
	}); err != nil {
		t.Fatalf("close sync failed: %v", err)
	}

	_, err = syncer.Execute(context.Background(), SyncElectionCommand{
		ElectionID:   "election-7",
		CandidateIDs: []string{"A", "B", "C"},
		SeatsToFill:  1,
		Status:       "closed",
	})
	if !errors.Is(err, domainerrors.ErrElectionFrozen) {
		t.Fatalf("expected frozen election, got %v", err)
	}

	for _, status := range []string{"published", "draft"} {
		_, err = syncer.Execute(context.Background(), SyncElectionCommand{
			ElectionID:   "election-7",
			CandidateIDs: []string{"A", "B"},
			SeatsToFill:  1,
			Status:       status,
		})
		if !errors.Is(err, domainerrors.ErrElectionFrozen) {
			t.Fatalf("expected reopening as %s to be frozen, got %v", status, err)
		}
	}
	if election, err := store.GetElection(context.Background(), "election-7"); err != nil || election.Status != entities.ElectionStatusClosed {
		t.Fatalf("expected election to stay closed, got %+v (%v)", election, err)
	}

	archived, err := syncer.Execute(context.Background(), SyncElectionCommand{
		ElectionID:   "election-7",
		CandidateIDs: []string{"A", "B"},
		SeatsToFill:  1,
		Status:       "archived",
	})
	if err != nil {
		t.Fatalf("status-only sync failed: %v", err)
	}
	if archived.Created || archived.Election.Status != entities.ElectionStatusArchived {
		t.Fatalf("unexpected archived result %+v", archived)
	}

	_, err = syncer.Execute(context.Background(), SyncElectionCommand{
		ElectionID:   "election-7",
		CandidateIDs: []string{"A", "B"},
		SeatsToFill:  1,
		Status:       "closed",
	})
	if !errors.Is(err, domainerrors.ErrElectionFrozen) {
		t.Fatalf("expected archived election to stay archived, got %v", err)
	}

	_, err = syncer.Execute(context.Background(), SyncElectionCommand{
		ElectionID:   "election-8",
		CandidateIDs: []string{"A", "A"},
		SeatsToFill:  1,
		Status:       "draft",
	})
	if !errors.Is(err, domainerrors.ErrInvalidElection) {
		t.Fatalf("expected invalid election, got %v", err)
	}
}
