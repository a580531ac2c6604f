package errors

import "errors"

var (
	ErrElectionNotFound           = errors.New("election not found")
	ErrInvalidElection            = errors.New("invalid election configuration")
	ErrElectionFrozen             = errors.New("election configuration is frozen")
	ErrElectionNotAcceptingTokens = errors.New("election is not accepting token registrations")
	ErrElectionNotOpen            = errors.New("election is not open for voting")
	ErrElectionNotClosed          = errors.New("election is not closed")
	ErrInvalidTokenHash           = errors.New("invalid token hash")
	ErrRegistrationConflict       = errors.New("token hash already registered")
	ErrTokenInvalid               = errors.New("token is not valid for this election")
	ErrTokenAlreadyUsed           = errors.New("token has already been used")
	ErrBallotInvalid              = errors.New("invalid ballot")
	ErrValidation                 = errors.New("invalid tabulation input")
	ErrTabulationAnomaly          = errors.New("tabulation did not converge")
	ErrTabulationInProgress       = errors.New("tabulation already in progress")
	ErrResultsAlreadyPublished    = errors.New("results already published")
	ErrResultsNotAvailable        = errors.New("results not available")
	ErrTransientInfrastructure    = errors.New("transient infrastructure failure")
	ErrIdempotencyKeyConflict     = errors.New("event id reused with different payload")
	ErrRepositoryInvariantBroke   = errors.New("repository invariant violated")
)
