package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lis/internal/clock"
	"github.com/smallbiznis/lis/internal/config"
	"github.com/smallbiznis/lis/internal/migration"
	"github.com/smallbiznis/lis/internal/observability"
	"github.com/smallbiznis/lis/internal/scheduler"
	"github.com/smallbiznis/lis/internal/server"
	"github.com/smallbiznis/lis/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
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
