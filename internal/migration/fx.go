package migration

import (
	catalogdomain "github.com/canopyhq/canopy/internal/catalog/domain"
	"github.com/canopyhq/canopy/internal/config"
	importerdomain "github.com/canopyhq/canopy/internal/importer/domain"
	organizationdomain "github.com/canopyhq/canopy/internal/organization/domain"
	"github.com/canopyhq/canopy/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// The versioned SQL targets postgres; sqlite is for local runs
			// where the gorm schema is authoritative.
			if err := conn.AutoMigrate(
				&organizationdomain.Organization{},
				&catalogdomain.Product{},
				&catalogdomain.Variant{},
				&importerdomain.ImportJob{},
			); err != nil {
				return err
			}
		}

		if cfg.DefaultOrgID != 0 {
			return seed.EnsureMainOrgWithID(conn, cfg.DefaultOrgID)
		}
		return seed.EnsureMainOrg(conn)
	}),
)
