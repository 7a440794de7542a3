package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/stateline/govcomm/internal/config"
	"github.com/stateline/govcomm/internal/seed"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}

		if cfg.Bootstrap.EnsureRootUnit {
			if err := seed.EnsureRootUnit(conn, cfg.Bootstrap.RootUnitName); err != nil {
				return err
			}
		}
		if cfg.Bootstrap.EnsureDefaultAdmin {
			return seed.EnsureDefaultAdmin(conn, cfg.Bootstrap.DefaultAdminLogin, cfg.Bootstrap.DefaultAdminName)
		}
		return nil
	}),
)
