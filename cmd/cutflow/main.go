package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/sakugaworks/cutflow/internal/apperr"
	"github.com/sakugaworks/cutflow/internal/clock"
	"github.com/sakugaworks/cutflow/internal/config"
	"github.com/sakugaworks/cutflow/internal/eventbus"
	"github.com/sakugaworks/cutflow/internal/logger"
	obsmetrics "github.com/sakugaworks/cutflow/internal/observability/metrics"
	"github.com/sakugaworks/cutflow/internal/remote"
	"github.com/sakugaworks/cutflow/internal/storage"
	"github.com/sakugaworks/cutflow/internal/store"
	"github.com/sakugaworks/cutflow/internal/syncmanager"
	"github.com/sakugaworks/cutflow/internal/uievent"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		apperr.Module,
		storage.Module,

		// Data plane
		eventbus.Module,
		store.Module,
		remote.Module,
		syncmanager.Module,
		uievent.Module,

		fx.Invoke(func(cfg config.Config) {
			obsmetrics.CoreWithConfig(obsmetrics.Config{
				ServiceName: cfg.AppName,
				Environment: cfg.Environment,
			})
		}),
		// Keep the store and sync manager alive for the session.
		fx.Invoke(func(*store.Store, *syncmanager.Manager) {}),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
