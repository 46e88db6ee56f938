package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/canopyhq/canopy/internal/clock"
	"github.com/canopyhq/canopy/internal/config"
	"github.com/canopyhq/canopy/internal/migration"
	"github.com/canopyhq/canopy/internal/observability"
	"github.com/canopyhq/canopy/internal/server"
	"github.com/canopyhq/canopy/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Functional domains and HTTP surface
		server.Module,
		migration.Module,
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
