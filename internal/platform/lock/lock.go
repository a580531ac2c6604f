// Package lock provides the tabulation lockers: process-local, Redis and
// etcd. All of them are try-locks; callers that lose simply back off.
package lock

import (
	"context"
	"time"

	"votecore/contexts/elections/tally-service/ports"
)

// Locker is satisfied by every backend in this package.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (ports.Unlock, bool, error)
}

var (
	_ Locker = (*Memory)(nil)
	_ Locker = (*Redis)(nil)
	_ Locker = (*Etcd)(nil)
)
