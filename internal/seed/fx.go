package seed

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/certifast/certifast/internal/config"
)

// Module seeds demo data outside production.
var Module = fx.Module("seed",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.IsProduction() {
			return nil
		}
		return EnsureDemoAgency(conn)
	}),
)
