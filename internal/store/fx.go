package store

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/sakugaworks/cutflow/internal/clock"
	"github.com/sakugaworks/cutflow/internal/config"
	"github.com/sakugaworks/cutflow/internal/eventbus"
	"github.com/sakugaworks/cutflow/internal/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params collects the store's constructor dependencies.
type Params struct {
	fx.In

	Log        *zap.Logger
	Config     config.Config
	Clock      clock.Clock
	GenID      *snowflake.Node
	Dispatcher *eventbus.Dispatcher
	Storage    storage.Adapter
}

func newFromParams(p Params) *Store {
	return New(p.Log, p.Clock, p.GenID, p.Dispatcher, p.Storage, p.Config.SnapshotKey)
}

func registerLifecycle(lc fx.Lifecycle, s *Store) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Rehydrate(ctx)
			return nil
		},
	})
}

// Module wires the unified data store.
var Module = fx.Module("store",
	fx.Provide(newFromParams),
	fx.Invoke(registerLifecycle),
)
