package lock

import (
	"context"
	"log/slog"
	"time"

	"votecore/contexts/elections/tally-service/ports"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Etcd holds a lock as a key bound to a lease. The lease is kept alive until
// release, so a crashed holder frees the lock once its ttl runs out.
type Etcd struct {
	client *clientv3.Client
	prefix string
	logger *slog.Logger
}

func NewEtcd(client *clientv3.Client, logger *slog.Logger) *Etcd {
	if logger == nil {
		logger = slog.Default()
	}
	return &Etcd{client: client, prefix: "/votecore/locks/", logger: logger}
}

func (e *Etcd) TryLock(ctx context.Context, key string, ttl time.Duration) (ports.Unlock, bool, error) {
	name := e.prefix + key
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	grant, err := e.client.Grant(ctx, seconds)
	if err != nil {
		return nil, false, e.logError("etcd_lock_grant_failed", name, err)
	}

	txn, err := e.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(name), "=", 0)).
		Then(clientv3.OpPut(name, "", clientv3.WithLease(grant.ID))).
		Commit()
	if err != nil {
		_, _ = e.client.Revoke(context.WithoutCancel(ctx), grant.ID)
		return nil, false, e.logError("etcd_lock_txn_failed", name, err)
	}
	if !txn.Succeeded {
		_, _ = e.client.Revoke(context.WithoutCancel(ctx), grant.ID)
		return nil, false, nil
	}

	keepAliveCtx, stopKeepAlive := context.WithCancel(context.WithoutCancel(ctx))
	responses, err := e.client.KeepAlive(keepAliveCtx, grant.ID)
	if err != nil {
		stopKeepAlive()
		_, _ = e.client.Revoke(context.WithoutCancel(ctx), grant.ID)
		return nil, false, e.logError("etcd_lock_keepalive_failed", name, err)
	}
	go func() {
		for range responses {
		}
	}()

	return func(ctx context.Context) error {
		stopKeepAlive()
		if _, err := e.client.Revoke(ctx, grant.ID); err != nil {
			return e.logError("etcd_lock_revoke_failed", name, err)
		}
		return nil
	}, true, nil
}

func (e *Etcd) logError(event string, name string, err error) error {
	e.logger.Error("etcd lock operation failed",
		"event", event,
		"module", "internal/platform/lock",
		"layer", "platform",
		"lock_key", name,
		"error", err.Error(),
	)
	return err
}
