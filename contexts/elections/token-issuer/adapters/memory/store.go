package memory

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"votecore/contexts/elections/token-issuer/domain/entities"
	"votecore/contexts/elections/token-issuer/domain/services"
)

// Store is a process-local issuance ledger for development and tests.
type Store struct {
	mu     sync.Mutex
	issued map[ledgerKey]entities.IssuanceRecord
}

type ledgerKey struct {
	electionID string
	voterKey   string
}

func NewStore() *Store {
	return &Store{issued: make(map[ledgerKey]entities.IssuanceRecord)}
}

func (s *Store) Reserve(_ context.Context, electionID string, voterKey string, reservedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledgerKey{electionID: electionID, voterKey: voterKey}
	if _, exists := s.issued[key]; exists {
		return false, nil
	}
	s.issued[key] = entities.IssuanceRecord{
		ElectionID: electionID,
		VoterKey:   voterKey,
		ReservedAt: reservedAt.UTC(),
	}
	return true, nil
}

func (s *Store) Release(_ context.Context, electionID string, voterKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.issued, ledgerKey{electionID: electionID, voterKey: voterKey})
	return nil
}

// Issued reports whether a reservation is held.
func (s *Store) Issued(electionID string, voterKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.issued[ledgerKey{electionID: electionID, voterKey: voterKey}]
	return ok
}

func (s *Store) NewToken() (string, error) {
	return services.GenerateToken(rand.Reader)
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}
