package migration

import (
	"github.com/smallbiznis/lis/internal/config"
	"github.com/smallbiznis/lis/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if err := Migrate(conn, cfg.DBType); err != nil {
			return err
		}

		if err := seed.EnsureMainOrgWithID(conn, cfg.DefaultOrgID); err != nil {
			return err
		}
		if cfg.Bootstrap.EnsureDefaultOrgAndUser {
			if err := seed.EnsureMainOrgAndAdmin(conn); err != nil {
				return err
			}
		}
		if cfg.Bootstrap.SeedSampleCatalog {
			return seed.EnsureSampleCatalog(conn)
		}
		return nil
	}),
)
