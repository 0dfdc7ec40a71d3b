package storage

import (
	"context"

	"go.uber.org/fx"
)

// Module wires the Resolver into the application. The factories are supplied by
// the application module, which knows the configured adapters.
var Module = fx.Options(
	fx.Invoke(registerCloseHook),
)

func registerCloseHook(lc fx.Lifecycle, r *Resolver) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return r.Close()
		},
	})
}
