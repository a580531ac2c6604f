package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"votecore/contexts/elections/tally-service/ports"
	redisadapter "votecore/contexts/elections/token-issuer/adapters/redis"
	"votecore/internal/platform/config"
	"votecore/internal/platform/db"
	"votecore/internal/platform/lock"
	"votecore/internal/platform/messaging"

	"github.com/go-redis/redis/v8"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const dialTimeout = 5 * time.Second

type eventBus interface {
	ports.EventPublisher
	ports.EventSubscriber
	Close() error
}

// resources owns every infrastructure client a process opened and closes
// them in reverse order.
type resources struct {
	closers []func() error
	redis   *redis.Client
}

func (r *resources) track(closer func() error) {
	r.closers = append(r.closers, closer)
}

func (r *resources) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *resources) postgres(cfg config.Config) (*db.Postgres, error) {
	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	r.track(pg.Close)
	return pg, nil
}

func (r *resources) messaging(cfg config.Config, logger *slog.Logger) (eventBus, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return messaging.NewBus(logger), nil
	}
	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}
	r.track(kafka.Close)
	return kafka, nil
}

func (r *resources) redisClient(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if r.redis != nil {
		return r.redis, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	r.redis = client
	r.track(client.Close)
	return client, nil
}

func (r *resources) redisLedger(ctx context.Context, cfg config.Config, logger *slog.Logger) (*redisadapter.Ledger, error) {
	client, err := r.redisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return redisadapter.NewLedger(client, cfg.IssuanceTTL, logger), nil
}

func (r *resources) locker(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.Locker, error) {
	switch cfg.LockBackend {
	case config.LockBackendRedis:
		client, err := r.redisClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return lock.NewRedis(client, logger), nil
	case config.LockBackendEtcd:
		client, err := clientv3.New(clientv3.Config{
			Endpoints:   cfg.EtcdEndpoints,
			DialTimeout: dialTimeout,
			Context:     ctx,
		})
		if err != nil {
			return nil, fmt.Errorf("connect etcd: %w", err)
		}
		r.track(client.Close)
		return lock.NewEtcd(client, logger), nil
	default:
		return lock.NewMemory(), nil
	}
}
