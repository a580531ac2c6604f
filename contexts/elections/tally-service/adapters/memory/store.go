package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	application "votecore/contexts/elections/tally-service/application"
	"votecore/contexts/elections/tally-service/domain/entities"
	domainerrors "votecore/contexts/elections/tally-service/domain/errors"
	"votecore/contexts/elections/tally-service/ports"
)

// Store is an in-memory adapter implementing the tally ports for local runtime
// and tests. It is not intended as production persistence.
type Store struct {
	mu          sync.RWMutex
	elections   map[string]entities.Election
	tokens      map[tokenKey]entities.TokenHashRecord
	ballots     map[string][]entities.Ballot
	results     map[string]entities.ElectionResult
	outbox      map[string]ports.OutboxMessage
	outboxOrder []string
	outboxSent  map[string]time.Time
	eventDedup  map[string]string
	locks       map[string]uint64
	sequence    uint64
	logger      *slog.Logger
}

type tokenKey struct {
	electionID string
	tokenHash  string
}

func NewStore(seedElections []entities.Election, logger *slog.Logger) *Store {
	elections := make(map[string]entities.Election, len(seedElections))
	for _, election := range seedElections {
		elections[election.ElectionID] = cloneElection(election)
	}
	return &Store{
		elections:   elections,
		tokens:      make(map[tokenKey]entities.TokenHashRecord),
		ballots:     make(map[string][]entities.Ballot),
		results:     make(map[string]entities.ElectionResult),
		outbox:      make(map[string]ports.OutboxMessage),
		outboxOrder: make([]string, 0),
		outboxSent:  make(map[string]time.Time),
		eventDedup:  make(map[string]string),
		locks:       make(map[string]uint64),
		logger:      application.ResolveLogger(logger),
	}
}

func (s *Store) GetElection(_ context.Context, electionID string) (entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	election, ok := s.elections[electionID]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return cloneElection(election), nil
}

func (s *Store) UpsertElection(_ context.Context, election entities.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.elections[election.ElectionID] = cloneElection(election)
	return nil
}

func (s *Store) SetElectionStatus(_ context.Context, electionID string, status entities.ElectionStatus, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	election, ok := s.elections[electionID]
	if !ok {
		return domainerrors.ErrElectionNotFound
	}
	election.Status = status
	election.UpdatedAt = updatedAt.UTC()
	s.elections[electionID] = election
	return nil
}

func (s *Store) RegisterTokenHash(_ context.Context, record entities.TokenHashRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tokenKey{electionID: record.ElectionID, tokenHash: record.TokenHash}
	if _, exists := s.tokens[key]; exists {
		return domainerrors.ErrRegistrationConflict
	}
	record.Used = false
	record.UsedAt = nil
	s.tokens[key] = record
	return nil
}

func (s *Store) GetTokenHashRecord(_ context.Context, electionID string, tokenHash string) (entities.TokenHashRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.tokens[tokenKey{electionID: electionID, tokenHash: tokenHash}]
	if !ok {
		return entities.TokenHashRecord{}, domainerrors.ErrTokenInvalid
	}
	return record, nil
}

func (s *Store) CastBallotWithOutbox(_ context.Context, ballot entities.Ballot, event ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// One critical section stands in for the database transaction: the token
	// check, ballot insert, token flip and outbox append succeed or fail together.
	key := tokenKey{electionID: ballot.ElectionID, tokenHash: ballot.TokenHash}
	record, ok := s.tokens[key]
	if !ok {
		return domainerrors.ErrTokenInvalid
	}
	if record.Used {
		return domainerrors.ErrTokenAlreadyUsed
	}
	if err := s.appendOutboxLocked(event); err != nil {
		return err
	}

	usedAt := ballot.SubmittedAt.UTC()
	record.Used = true
	record.UsedAt = &usedAt
	s.tokens[key] = record
	s.ballots[ballot.ElectionID] = append(s.ballots[ballot.ElectionID], cloneBallot(ballot))

	s.logger.Debug("ballot and outbox persisted in memory store",
		"event", "memory_cast_ballot_with_outbox",
		"module", "elections/tally-service",
		"layer", "adapter",
		"election_id", ballot.ElectionID,
		"ballot_id", ballot.BallotID,
		"outbox_event_id", event.EventID,
	)
	return nil
}

func (s *Store) ListBallots(_ context.Context, electionID string) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.ballots[electionID]
	items := make([]entities.Ballot, 0, len(stored))
	for _, ballot := range stored {
		items = append(items, cloneBallot(ballot))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].SubmittedAt.Equal(items[j].SubmittedAt) {
			return items[i].BallotID < items[j].BallotID
		}
		return items[i].SubmittedAt.Before(items[j].SubmittedAt)
	})
	return items, nil
}

func (s *Store) GetResult(_ context.Context, electionID string) (entities.ElectionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[electionID]
	if !ok {
		return entities.ElectionResult{}, domainerrors.ErrResultsNotAvailable
	}
	return cloneResult(result), nil
}

func (s *Store) SaveResultWithOutbox(_ context.Context, result entities.ElectionResult, event ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.results[result.ElectionID]; exists {
		return domainerrors.ErrResultsAlreadyPublished
	}
	if err := s.appendOutboxLocked(event); err != nil {
		return err
	}
	s.results[result.ElectionID] = cloneResult(result)
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	messages := make([]ports.OutboxMessage, 0, limit)
	for _, id := range s.outboxOrder {
		if _, sent := s.outboxSent[id]; sent {
			continue
		}
		if msg, ok := s.outbox[id]; ok {
			messages = append(messages, msg)
		}
		if len(messages) >= limit {
			break
		}
	}
	return messages, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.outbox[outboxID]; !ok {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	s.outboxSent[outboxID] = sentAt.UTC()
	return nil
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.eventDedup[eventID]; ok {
		if existing != payloadHash {
			return false, domainerrors.ErrIdempotencyKeyConflict
		}
		return true, nil
	}
	s.eventDedup[eventID] = payloadHash
	return false, nil
}

// TryLock is a process-local Locker. The ttl is ignored.
func (s *Store) TryLock(_ context.Context, key string, _ time.Duration) (ports.Unlock, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.locks[key]; held {
		return nil, false, nil
	}
	owner := atomic.AddUint64(&s.sequence, 1)
	s.locks[key] = owner
	return func(context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.locks[key] == owner {
			delete(s.locks, key)
		}
		return nil
	}, true, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	value := atomic.AddUint64(&s.sequence, 1)
	return fmt.Sprintf("tally-%d", value), nil
}

func (s *Store) OutboxEvents() []ports.OutboxMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]ports.OutboxMessage, 0, len(s.outboxOrder))
	for _, id := range s.outboxOrder {
		if evt, ok := s.outbox[id]; ok {
			events = append(events, evt)
		}
	}
	return events
}

// TokenRecordCount reports how many hashes are registered for an election.
func (s *Store) TokenRecordCount(electionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for key := range s.tokens {
		if key.electionID == electionID {
			count++
		}
	}
	return count
}

func (s *Store) appendOutboxLocked(event ports.EventEnvelope) error {
	if _, exists := s.outbox[event.EventID]; exists {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.outbox[event.EventID] = ports.OutboxMessage{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		CreatedAt:    event.OccurredAt.UTC(),
	}
	s.outboxOrder = append(s.outboxOrder, event.EventID)
	return nil
}

func cloneElection(election entities.Election) entities.Election {
	election.CandidateIDs = append([]string(nil), election.CandidateIDs...)
	return election
}

func cloneBallot(ballot entities.Ballot) entities.Ballot {
	ballot.Preferences = append([]string(nil), ballot.Preferences...)
	return ballot
}

func cloneResult(result entities.ElectionResult) entities.ElectionResult {
	result.Winners = append([]string(nil), result.Winners...)
	result.Trace = append([]string(nil), result.Trace...)
	return result
}
