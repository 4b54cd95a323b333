package main

import (
	_ "time/tzdata"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelflife/internal/authorization"
	"github.com/smallbiznis/shelflife/internal/cache"
	"github.com/smallbiznis/shelflife/internal/catalog"
	"github.com/smallbiznis/shelflife/internal/clock"
	"github.com/smallbiznis/shelflife/internal/config"
	"github.com/smallbiznis/shelflife/internal/entry"
	"github.com/smallbiznis/shelflife/internal/notification"
	"github.com/smallbiznis/shelflife/internal/observability"
	"github.com/smallbiznis/shelflife/internal/providers/push"
	"github.com/smallbiznis/shelflife/internal/ratelimit"
	"github.com/smallbiznis/shelflife/internal/scheduler"
	"github.com/smallbiznis/shelflife/internal/store"
	"github.com/smallbiznis/shelflife/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services required by the reminder job
		authorization.Module,
		cache.Module,
		catalog.Module,
		entry.Module,
		store.Module,
		notification.Module,
		push.Module,
		ratelimit.Module,

		// No server module!
		scheduler.Module,
	)
	app.Run()
}

// Node 2 keeps ids apart from an API replica running node 1.
func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
