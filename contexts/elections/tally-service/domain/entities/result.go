package entities

import "time"

// ElectionResult is written once per election after tabulation.
type ElectionResult struct {
	ElectionID  string
	SeatsToFill int
	Quota       string
	TotalWeight string
	BallotCount int
	Winners     []string
	Rounds      int
	Trace       []string
	TabulatedAt time.Time
}
