package entities

import "time"

type ElectionStatus string

const (
	ElectionStatusDraft     ElectionStatus = "draft"
	ElectionStatusPublished ElectionStatus = "published"
	ElectionStatusClosed    ElectionStatus = "closed"
	ElectionStatusArchived  ElectionStatus = "archived"
)

// Election is the read-only configuration synced from election management.
type Election struct {
	ElectionID   string
	CandidateIDs []string
	SeatsToFill  int
	Status       ElectionStatus
	UpdatedAt    time.Time
}

func (s ElectionStatus) Valid() bool {
	switch s {
	case ElectionStatusDraft, ElectionStatusPublished, ElectionStatusClosed, ElectionStatusArchived:
		return true
	default:
		return false
	}
}

// AcceptsTokens reports whether token hashes may still be registered.
func (e Election) AcceptsTokens() bool {
	return e.Status == ElectionStatusDraft || e.Status == ElectionStatusPublished
}

// AcceptsBallots reports whether voting is open.
func (e Election) AcceptsBallots() bool {
	return e.Status == ElectionStatusPublished
}

// Frozen elections keep their candidate list and seat count.
func (e Election) Frozen() bool {
	return e.Status == ElectionStatusClosed || e.Status == ElectionStatusArchived
}

// CanBecome reports whether a frozen election may move to next. Closed
// elections only advance to archived; archived is terminal.
func (e Election) CanBecome(next ElectionStatus) bool {
	switch e.Status {
	case ElectionStatusClosed:
		return next == ElectionStatusClosed || next == ElectionStatusArchived
	case ElectionStatusArchived:
		return next == ElectionStatusArchived
	default:
		return true
	}
}

func (e Election) HasCandidate(candidateID string) bool {
	for _, id := range e.CandidateIDs {
		if id == candidateID {
			return true
		}
	}
	return false
}
