package catalog

import (
	"github.com/canopyhq/canopy/internal/catalog/repository"
	"github.com/canopyhq/canopy/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.ProvideProducts),
	fx.Provide(repository.ProvideVariants),
	fx.Provide(service.New),
)
