// Package v1 holds the wire shapes shared between the token issuer and the
// tally registrar S2S API.
package v1

// APIKeyHeader carries the shared S2S secret on every registrar call.
const APIKeyHeader = "X-API-Key"

// Error codes returned by the tally service.
const (
	CodeUnauthorized         = "unauthorized"
	CodeInvalidTokenHash     = "invalid_token_hash"
	CodeRegistrationConflict = "registration_conflict"
	CodeElectionNotFound     = "election_not_found"
)

type RegisterTokenRequest struct {
	TokenHash string `json:"token_hash"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
