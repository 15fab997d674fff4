package migration

import (
	"strings"

	"go.uber.org/fx"
	"gorm.io/gorm"

	agencydomain "github.com/certifast/certifast/internal/agency/domain"
	"github.com/certifast/certifast/internal/config"
	creditdomain "github.com/certifast/certifast/internal/credit/domain"
	orderdomain "github.com/certifast/certifast/internal/order/domain"
	paymentdomain "github.com/certifast/certifast/internal/payment/domain"
	providerdomain "github.com/certifast/certifast/internal/provider/domain"
	subscriptiondomain "github.com/certifast/certifast/internal/subscription/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Embedded migrations target postgres; dev and test sqlite
		// databases migrate through gorm AutoMigrate instead.
		if !strings.EqualFold(cfg.DBType, "postgres") {
			return conn.AutoMigrate(
				&agencydomain.Agency{},
				&agencydomain.Customer{},
				&agencydomain.Property{},
				&providerdomain.Provider{},
				&orderdomain.Order{},
				&orderdomain.StatusHistory{},
				&creditdomain.Transaction{},
				&subscriptiondomain.Subscription{},
				&subscriptiondomain.History{},
				&paymentdomain.EventRecord{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		return RunMigrations(sqlDB)
	}),
)
