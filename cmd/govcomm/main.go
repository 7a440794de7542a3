package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/stateline/govcomm/internal/clock"
	"github.com/stateline/govcomm/internal/migration"
	"github.com/stateline/govcomm/internal/observability"
	"github.com/stateline/govcomm/internal/server"
	"github.com/stateline/govcomm/pkg/db"
)

func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
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
