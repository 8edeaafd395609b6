// Package storage provides the durable key-value adapter behind snapshot
// persistence. Drivers are selected by configuration; all of them are
// treated as fallible and the resilient wrapper keeps the session usable
// when the backing store breaks.
package storage

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/sakugaworks/cutflow/internal/apperr"
	"github.com/sakugaworks/cutflow/internal/config"
	"github.com/sakugaworks/cutflow/internal/storage/file"
	"github.com/sakugaworks/cutflow/internal/storage/gormstore"
	"github.com/sakugaworks/cutflow/internal/storage/memory"
	"github.com/sakugaworks/cutflow/internal/storage/redisstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Adapter is string key-value storage. Load reports presence explicitly so
// an empty value and a missing key stay distinguishable.
type Adapter interface {
	Save(ctx context.Context, key, value string) error
	Load(ctx context.Context, key string) (string, bool, error)
	Remove(ctx context.Context, key string) error
}

// Open selects a driver from configuration.
//
//	CUTFLOW_STORAGE_DRIVER: memory|file|sqlite|redis (default file)
//	CUTFLOW_DATA_DIR: directory for file and sqlite drivers
//	CUTFLOW_REDIS_ADDR: redis address when driver=redis
func Open(cfg config.Config) (Adapter, error) {
	switch cfg.StorageDriver {
	case "memory":
		return memory.New(), nil
	case "file":
		return file.New(cfg.DataDir)
	case "sqlite":
		return gormstore.Open(sqlite.Open(fmt.Sprintf("%s/cutflow.db", cfg.DataDir)))
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return redisstore.New(client), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.StorageDriver)
	}
}

// NewResilientFromConfig opens the configured driver and wraps it so
// adapter failures degrade to in-memory operation instead of breaking the
// session.
func NewResilientFromConfig(cfg config.Config, log *zap.Logger, recorder *apperr.Recorder) (Adapter, error) {
	inner, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return NewResilient(inner, log, recorder), nil
}

// Module wires the resilient storage adapter.
var Module = fx.Module("storage",
	fx.Provide(NewResilientFromConfig),
)
