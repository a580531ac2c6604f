package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockExcludesUntilUnlock(t *testing.T) {
	locker := NewMemory()

	unlock, ok, err := locker.TryLock(context.Background(), "tabulation/e1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(context.Background(), "tabulation/e1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, unlock(context.Background()))
	_, ok, err = locker.TryLock(context.Background(), "tabulation/e1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLockExpires(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	locker := NewMemory()
	locker.clock = func() time.Time { return now }

	staleUnlock, ok, err := locker.TryLock(context.Background(), "tabulation/e1", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, err = locker.TryLock(context.Background(), "tabulation/e1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "expired hold must be reclaimable")

	require.NoError(t, staleUnlock(context.Background()))
	_, ok, _ = locker.TryLock(context.Background(), "tabulation/e1", time.Minute)
	assert.False(t, ok, "stale unlock must not release the new holder")
}
