package errors

import "errors"

var (
	ErrElectionRequired     = errors.New("election id is required")
	ErrVoterRequired        = errors.New("voter subject is required")
	ErrTokenAlreadyIssued   = errors.New("token already issued for voter")
	ErrRegistrarUnavailable = errors.New("token registrar unavailable")
	ErrRegistrationConflict = errors.New("token hash already registered")
	ErrRegistrationRejected = errors.New("token registration rejected")
	ErrTokenGeneration      = errors.New("token generation failed")
)
