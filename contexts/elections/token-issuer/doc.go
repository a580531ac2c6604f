// Package tokenissuer mints single-use voting tokens for authenticated voters.
//
// The plaintext token goes back to the voter only. Its SHA-256 hash is
// registered with the tally service before the token is returned, so a token
// the tally side does not know about is never handed out.
package tokenissuer
