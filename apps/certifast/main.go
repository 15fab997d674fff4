package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/certifast/certifast/internal/clock"
	"github.com/certifast/certifast/internal/logger"
	"github.com/certifast/certifast/internal/migration"
	"github.com/certifast/certifast/internal/observability"
	"github.com/certifast/certifast/internal/seed"
	"github.com/certifast/certifast/internal/server"
	"github.com/certifast/certifast/pkg/db"
)

func main() {
	app := fx.New(
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		seed.Module,
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
