package services

import (
	"fmt"
	"strings"

	"votecore/contexts/elections/tally-service/domain/entities"
	domainerrors "votecore/contexts/elections/tally-service/domain/errors"
)

// ValidatePreferences checks a ranked preference list against the election
// candidate set: non-empty, known candidates only, no repeats.
func ValidatePreferences(election entities.Election, preferences []string) error {
	if len(preferences) == 0 {
		return fmt.Errorf("%w: preferences must not be empty", domainerrors.ErrBallotInvalid)
	}
	seen := make(map[string]struct{}, len(preferences))
	for rank, candidateID := range preferences {
		if !election.HasCandidate(candidateID) {
			return fmt.Errorf("%w: unknown candidate %q at rank %d", domainerrors.ErrBallotInvalid, candidateID, rank+1)
		}
		if _, dup := seen[candidateID]; dup {
			return fmt.Errorf("%w: candidate %q ranked more than once", domainerrors.ErrBallotInvalid, candidateID)
		}
		seen[candidateID] = struct{}{}
	}
	return nil
}

// ValidateElection checks configuration pushed by election management.
func ValidateElection(election entities.Election) error {
	if strings.TrimSpace(election.ElectionID) == "" {
		return fmt.Errorf("%w: election id is required", domainerrors.ErrInvalidElection)
	}
	if !election.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domainerrors.ErrInvalidElection, election.Status)
	}
	if len(election.CandidateIDs) == 0 || len(election.CandidateIDs) > MaxCandidates {
		return fmt.Errorf("%w: candidate count must be between 1 and %d", domainerrors.ErrInvalidElection, MaxCandidates)
	}
	seen := make(map[string]struct{}, len(election.CandidateIDs))
	for _, candidateID := range election.CandidateIDs {
		if strings.TrimSpace(candidateID) == "" {
			return fmt.Errorf("%w: candidate id must not be blank", domainerrors.ErrInvalidElection)
		}
		if _, dup := seen[candidateID]; dup {
			return fmt.Errorf("%w: duplicate candidate %q", domainerrors.ErrInvalidElection, candidateID)
		}
		seen[candidateID] = struct{}{}
	}
	if election.SeatsToFill < 1 || election.SeatsToFill > len(election.CandidateIDs) {
		return fmt.Errorf("%w: seats_to_fill must be between 1 and %d", domainerrors.ErrInvalidElection, len(election.CandidateIDs))
	}
	return nil
}
