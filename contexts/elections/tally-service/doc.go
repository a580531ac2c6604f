// Package tallyservice contains the tallying side of the anonymous voting core:
// the token registrar, ballot casting and STV tabulation.
//
// The tallying side never sees a voter identity. It only stores one-way token
// hashes registered by the token issuer, and ballots keyed by those hashes.
package tallyservice
