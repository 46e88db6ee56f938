package organization

import (
	"github.com/canopyhq/canopy/internal/organization/repository"
	"github.com/canopyhq/canopy/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
