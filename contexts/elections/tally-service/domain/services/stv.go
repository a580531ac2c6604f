package services

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	domainerrors "votecore/contexts/elections/tally-service/domain/errors"
)

const (
	MaxCandidates = 100
	MaxBallots    = 10000
)

// TabulationBallot is the in-memory copy of a stored ballot. A nil Weight
// counts as 1. Preferences naming unknown candidates are ignored.
type TabulationBallot struct {
	Weight      *big.Rat
	Preferences []string
}

type TabulationInput struct {
	SeatsToFill int
	Candidates  []string
	Ballots     []TabulationBallot
}

// Tabulator runs a Droop quota / Gregory transfer STV count.
//
// Ties are broken by ascending candidate id: among candidates tied for the
// highest count the first id is elected, and among candidates tied for the
// lowest count the first id is eliminated.
type Tabulator struct {
	Trace TraceSink
	// MaxRounds overrides the round guard. Zero means 2 x candidate count.
	MaxRounds int
}

type workingBallot struct {
	weight      *big.Rat
	preferences []string
}

// Tabulate returns winners in election order. Stored ballots are never
// touched; weights are copied into private working state.
func (t Tabulator) Tabulate(input TabulationInput) ([]string, error) {
	if err := ValidateTabulationInput(input); err != nil {
		return nil, err
	}

	candidates := append([]string(nil), input.Candidates...)
	sort.Strings(candidates)
	known := make(map[string]struct{}, len(candidates))
	for _, id := range candidates {
		known[id] = struct{}{}
	}

	ballots := make([]workingBallot, 0, len(input.Ballots))
	total := new(big.Rat)
	for _, b := range input.Ballots {
		weight := big.NewRat(1, 1)
		if b.Weight != nil {
			weight.Set(b.Weight)
		}
		ballots = append(ballots, workingBallot{
			weight:      weight,
			preferences: filterPreferences(b.Preferences, known),
		})
		total.Add(total, weight)
	}

	seats := input.SeatsToFill
	quota := DroopQuota(total, seats)
	t.record(TraceEvent{
		Round: 0,
		Kind:  TraceQuota,
		Value: new(big.Rat).Set(quota),
		Message: fmt.Sprintf("total weight %s, %d seat(s) to fill, droop quota %s",
			FormatRat(total), seats, FormatRat(quota)),
	})

	active := make(map[string]bool, len(candidates))
	for _, id := range candidates {
		active[id] = true
	}

	maxRounds := t.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 2 * len(candidates)
	}

	winners := make([]string, 0, seats)
	for round := 1; ; round++ {
		if len(winners) == seats || len(active) == 0 {
			return winners, nil
		}
		if round > maxRounds {
			t.record(TraceEvent{
				Round: round,
				Kind:  TraceAnomaly,
				Message: fmt.Sprintf("round guard of %d reached with %d of %d seats filled",
					maxRounds, len(winners), seats),
			})
			return nil, fmt.Errorf("%w: round guard of %d reached with %d of %d seats filled",
				domainerrors.ErrTabulationAnomaly, maxRounds, len(winners), seats)
		}

		order := activeInOrder(candidates, active)
		counts, assigned, exhausted := countRound(ballots, active, order)
		snapshot := snapshotCounts(order, counts)
		t.record(TraceEvent{
			Round:     round,
			Kind:      TraceCounts,
			Counts:    snapshot,
			Exhausted: exhausted,
			Message:   describeCounts(round, snapshot, exhausted),
		})

		if elected, ok := highestMeetingQuota(order, counts, quota); ok {
			winners = append(winners, elected)
			delete(active, elected)
			electedCount := counts[elected]
			t.record(TraceEvent{
				Round:       round,
				Kind:        TraceElected,
				CandidateID: elected,
				Value:       new(big.Rat).Set(electedCount),
				Message: fmt.Sprintf("round %d: %s elected with %s (quota %s)",
					round, elected, FormatRat(electedCount), FormatRat(quota)),
			})

			if len(winners) < seats {
				surplus := new(big.Rat).Sub(electedCount, quota)
				transferValue := new(big.Rat).Quo(surplus, electedCount)
				for i := range ballots {
					if assigned[i] == elected {
						ballots[i].weight.Mul(ballots[i].weight, transferValue)
					}
				}
				if surplus.Sign() > 0 {
					t.record(TraceEvent{
						Round:       round,
						Kind:        TraceTransfer,
						CandidateID: elected,
						Value:       new(big.Rat).Set(transferValue),
						Message: fmt.Sprintf("round %d: surplus %s of %s transferred at value %s",
							round, FormatRat(surplus), elected, FormatRat(transferValue)),
					})
				} else {
					t.record(TraceEvent{
						Round:       round,
						Kind:        TraceTransfer,
						CandidateID: elected,
						Value:       new(big.Rat),
						Message:     fmt.Sprintf("round %d: ballots of %s spent at value 0", round, elected),
					})
				}
			}
			continue
		}

		seatsRemaining := seats - len(winners)
		if len(active) > seatsRemaining {
			loser := lowestCount(order, counts)
			delete(active, loser)
			t.record(TraceEvent{
				Round:       round,
				Kind:        TraceEliminated,
				CandidateID: loser,
				Value:       new(big.Rat).Set(counts[loser]),
				Message: fmt.Sprintf("round %d: %s eliminated with %s",
					round, loser, FormatRat(counts[loser])),
			})
			continue
		}

		remaining := rankByCount(order, counts)
		for _, id := range remaining {
			delete(active, id)
		}
		winners = append(winners, remaining...)
		t.record(TraceEvent{
			Round:        round,
			Kind:         TraceElectedRemaining,
			CandidateIDs: append([]string(nil), remaining...),
			Message: fmt.Sprintf("round %d: %d remaining candidate(s) fill %d open seat(s): %s",
				round, len(remaining), seatsRemaining, strings.Join(remaining, ", ")),
		})
	}
}

// ValidateTabulationInput rejects out-of-range input before any counting.
func ValidateTabulationInput(input TabulationInput) error {
	if len(input.Candidates) == 0 {
		return fmt.Errorf("%w: at least one candidate is required", domainerrors.ErrValidation)
	}
	if len(input.Candidates) > MaxCandidates {
		return fmt.Errorf("%w: %d candidates exceeds the limit of %d",
			domainerrors.ErrValidation, len(input.Candidates), MaxCandidates)
	}
	seen := make(map[string]struct{}, len(input.Candidates))
	for _, id := range input.Candidates {
		if id == "" {
			return fmt.Errorf("%w: candidate id must not be empty", domainerrors.ErrValidation)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate candidate %q", domainerrors.ErrValidation, id)
		}
		seen[id] = struct{}{}
	}
	if input.SeatsToFill < 1 || input.SeatsToFill > len(input.Candidates) {
		return fmt.Errorf("%w: seats to fill must be between 1 and %d, got %d",
			domainerrors.ErrValidation, len(input.Candidates), input.SeatsToFill)
	}
	if len(input.Ballots) == 0 {
		return fmt.Errorf("%w: at least one ballot is required", domainerrors.ErrValidation)
	}
	if len(input.Ballots) > MaxBallots {
		return fmt.Errorf("%w: %d ballots exceeds the limit of %d",
			domainerrors.ErrValidation, len(input.Ballots), MaxBallots)
	}
	for i, b := range input.Ballots {
		if b.Weight != nil && b.Weight.Sign() < 0 {
			return fmt.Errorf("%w: ballot %d has negative weight", domainerrors.ErrValidation, i)
		}
	}
	return nil
}

// DroopQuota returns floor(total/(seats+1)) + 1 for a non-negative total.
func DroopQuota(total *big.Rat, seats int) *big.Rat {
	denominator := new(big.Int).Mul(total.Denom(), big.NewInt(int64(seats)+1))
	quota := new(big.Int).Quo(total.Num(), denominator)
	quota.Add(quota, big.NewInt(1))
	return new(big.Rat).SetInt(quota)
}

func (t Tabulator) record(event TraceEvent) {
	if t.Trace != nil {
		t.Trace.Record(event)
	}
}

func filterPreferences(preferences []string, known map[string]struct{}) []string {
	filtered := make([]string, 0, len(preferences))
	seen := make(map[string]struct{}, len(preferences))
	for _, id := range preferences {
		if _, ok := known[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		filtered = append(filtered, id)
	}
	return filtered
}

func activeInOrder(candidates []string, active map[string]bool) []string {
	order := make([]string, 0, len(active))
	for _, id := range candidates {
		if active[id] {
			order = append(order, id)
		}
	}
	return order
}

// countRound gives every ballot's current weight to its highest ranked active
// preference. assigned[i] is empty for exhausted ballots.
func countRound(
	ballots []workingBallot,
	active map[string]bool,
	order []string,
) (map[string]*big.Rat, []string, *big.Rat) {
	counts := make(map[string]*big.Rat, len(order))
	for _, id := range order {
		counts[id] = new(big.Rat)
	}
	assigned := make([]string, len(ballots))
	exhausted := new(big.Rat)
	for i, b := range ballots {
		for _, id := range b.preferences {
			if active[id] {
				assigned[i] = id
				break
			}
		}
		if assigned[i] == "" {
			exhausted.Add(exhausted, b.weight)
			continue
		}
		counts[assigned[i]].Add(counts[assigned[i]], b.weight)
	}
	return counts, assigned, exhausted
}

func highestMeetingQuota(order []string, counts map[string]*big.Rat, quota *big.Rat) (string, bool) {
	best := ""
	for _, id := range order {
		if counts[id].Cmp(quota) < 0 {
			continue
		}
		if best == "" || counts[id].Cmp(counts[best]) > 0 {
			best = id
		}
	}
	return best, best != ""
}

func lowestCount(order []string, counts map[string]*big.Rat) string {
	lowest := order[0]
	for _, id := range order[1:] {
		if counts[id].Cmp(counts[lowest]) < 0 {
			lowest = id
		}
	}
	return lowest
}

func rankByCount(order []string, counts map[string]*big.Rat) []string {
	ranked := append([]string(nil), order...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]].Cmp(counts[ranked[j]]) > 0
	})
	return ranked
}

func snapshotCounts(order []string, counts map[string]*big.Rat) []CandidateCount {
	snapshot := make([]CandidateCount, 0, len(order))
	for _, id := range order {
		snapshot = append(snapshot, CandidateCount{
			CandidateID: id,
			Count:       new(big.Rat).Set(counts[id]),
		})
	}
	return snapshot
}
