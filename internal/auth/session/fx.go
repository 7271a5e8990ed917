package session

import (
	"github.com/smallbiznis/lis/internal/clock"
	"github.com/smallbiznis/lis/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.session",
	fx.Provide(provideManager),
)

func provideManager(cfg config.Config, clk clock.Clock) *Manager {
	return NewManager(cfg).WithClock(clk)
}
