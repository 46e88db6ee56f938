package importer

import (
	"github.com/canopyhq/canopy/internal/importer/parser"
	"github.com/canopyhq/canopy/internal/importer/repository"
	"github.com/canopyhq/canopy/internal/importer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("importer.service",
	fx.Provide(parser.New),
	fx.Provide(repository.ProvideJobs),
	fx.Provide(service.New),
)
