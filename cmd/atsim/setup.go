package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/atsim/internal/config"
	"github.com/aretw0/atsim/pkg/adapters/bolt"
	"github.com/aretw0/atsim/pkg/adapters/memory"
	"github.com/aretw0/atsim/pkg/adapters/redis"
	"github.com/aretw0/atsim/pkg/ports"
)

// backend is the process store selected by the configuration.
type backend struct {
	store  ports.ProcessStore
	locker ports.DistributedLocker
	closer io.Closer
}

func (b *backend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

func openBackend(cfg config.Config, logger *slog.Logger) (*backend, error) {
	switch cfg.Store {
	case config.StoreRedis:
		var opts []redis.Option
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Redis.TTL))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		logger.Info("Using redis process store", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
		return &backend{
			store:  store,
			locker: redis.NewLocker(store.Client(), cfg.Redis.Prefix),
			closer: store,
		}, nil

	case config.StoreBolt:
		store, err := bolt.Open(cfg.Bolt.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt store: %w", err)
		}
		logger.Info("Using bolt process store", "path", cfg.Bolt.Path)
		return &backend{store: store, closer: store}, nil

	default:
		logger.Info("Using in-memory process store")
		return &backend{store: memory.NewStore()}, nil
	}
}
