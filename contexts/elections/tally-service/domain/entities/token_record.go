package entities

import "time"

// TokenHashRecord is the registrar's only knowledge of a minted token.
type TokenHashRecord struct {
	ElectionID   string
	TokenHash    string
	Used         bool
	RegisteredAt time.Time
	UsedAt       *time.Time
}
