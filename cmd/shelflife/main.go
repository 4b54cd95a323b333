package main

import (
	_ "time/tzdata"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelflife/internal/clock"
	"github.com/smallbiznis/shelflife/internal/config"
	"github.com/smallbiznis/shelflife/internal/migration"
	"github.com/smallbiznis/shelflife/internal/observability"
	"github.com/smallbiznis/shelflife/internal/scheduler"
	"github.com/smallbiznis/shelflife/internal/server"
	"github.com/smallbiznis/shelflife/pkg/db"
	"go.uber.org/fx"
)

// shelflife runs the HTTP API and the reminder scheduler in one process.
func main() {
	app := fx.New(
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
