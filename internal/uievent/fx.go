package uievent

import (
	"context"

	"go.uber.org/fx"
)

func registerLifecycle(lc fx.Lifecycle, c *Coordinator) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			c.Destroy()
			return nil
		},
	})
}

// Module wires the app-level event coordinator. Transient consumers such
// as popups construct their own with NewCoordinator.
var Module = fx.Module("uievent",
	fx.Provide(NewCoordinator),
	fx.Invoke(registerLifecycle),
)
