package services

import (
	"fmt"
	"math/big"
	"strings"
)

type TraceKind string

const (
	TraceQuota            TraceKind = "quota"
	TraceCounts           TraceKind = "counts"
	TraceElected          TraceKind = "elected"
	TraceTransfer         TraceKind = "transfer"
	TraceEliminated       TraceKind = "eliminated"
	TraceElectedRemaining TraceKind = "elected_remaining"
	TraceAnomaly          TraceKind = "anomaly"
)

type CandidateCount struct {
	CandidateID string
	Count       *big.Rat
}

// TraceEvent is one step of the audit narration. Value carries the quota,
// surplus or transfer value depending on Kind.
type TraceEvent struct {
	Round        int
	Kind         TraceKind
	CandidateID  string
	CandidateIDs []string
	Counts       []CandidateCount
	Exhausted    *big.Rat
	Value        *big.Rat
	Message      string
}

// TraceSink receives round events. It is advisory and never affects results.
type TraceSink interface {
	Record(event TraceEvent)
}

type TraceFunc func(event TraceEvent)

func (f TraceFunc) Record(event TraceEvent) {
	f(event)
}

// TraceLog collects events in order.
type TraceLog struct {
	Events []TraceEvent
}

func (l *TraceLog) Record(event TraceEvent) {
	l.Events = append(l.Events, event)
}

func (l *TraceLog) Lines() []string {
	lines := make([]string, 0, len(l.Events))
	for _, event := range l.Events {
		lines = append(lines, event.Message)
	}
	return lines
}

// Rounds returns the highest round number recorded.
func (l *TraceLog) Rounds() int {
	rounds := 0
	for _, event := range l.Events {
		if event.Round > rounds {
			rounds = event.Round
		}
	}
	return rounds
}

// Quota returns the quota announced before the first round, if any.
func (l *TraceLog) Quota() (*big.Rat, bool) {
	for _, event := range l.Events {
		if event.Kind == TraceQuota && event.Value != nil {
			return new(big.Rat).Set(event.Value), true
		}
	}
	return nil, false
}

// FormatRat renders integers exactly and fractions to six decimals.
func FormatRat(value *big.Rat) string {
	if value == nil {
		return "0"
	}
	if value.IsInt() {
		return value.Num().String()
	}
	return value.FloatString(6)
}

func describeCounts(round int, counts []CandidateCount, exhausted *big.Rat) string {
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s=%s", c.CandidateID, FormatRat(c.Count)))
	}
	return fmt.Sprintf("round %d counts: %s (exhausted %s)", round, strings.Join(parts, ", "), FormatRat(exhausted))
}
