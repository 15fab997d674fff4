package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	agencydomain "github.com/certifast/certifast/internal/agency/domain"
	providerdomain "github.com/certifast/certifast/internal/provider/domain"
	"gorm.io/datatypes"
)

const (
	demoAgencyName  = "Demo Agency"
	demoAgencyEmail = "demo@certifast.dev"
)

// EnsureDemoAgency seeds one agency with a provider, a customer and a
// property so a fresh development database is immediately usable.
func EnsureDemoAgency(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(9)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agencyID, created, err := ensureAgencyTx(ctx, tx, node)
		if err != nil || !created {
			return err
		}
		if err := ensureProviderTx(ctx, tx, node, agencyID); err != nil {
			return err
		}
		if err := ensureCustomerTx(ctx, tx, node, agencyID); err != nil {
			return err
		}
		return ensurePropertyTx(ctx, tx, node, agencyID)
	})
}

func ensureAgencyTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (snowflake.ID, bool, error) {
	var existing agencydomain.Agency
	err := tx.WithContext(ctx).Raw(
		`SELECT * FROM agencies WHERE email = ? LIMIT 1`, demoAgencyEmail,
	).Scan(&existing).Error
	if err != nil {
		return 0, false, err
	}
	if existing.ID != 0 {
		return existing.ID, false, nil
	}

	agency := agencydomain.Agency{
		ID:              node.Generate(),
		Name:            demoAgencyName,
		Email:           demoAgencyEmail,
		PlanTier:        "starter",
		CreditBalance:   10,
		IncludedCredits: 10,
	}
	if err := tx.WithContext(ctx).Create(&agency).Error; err != nil {
		return 0, false, err
	}
	return agency.ID, true, nil
}

func ensureProviderTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, agencyID snowflake.ID) error {
	provider := providerdomain.Provider{
		ID:                  node.Generate(),
		AgencyID:            agencyID,
		Name:                "Demo Certifier",
		ServiceTypes:        datatypes.JSONSlice[string]{"energy_certificate"},
		WorkingDays:         datatypes.JSONSlice[string]{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		WorkStart:           "09:00",
		WorkEnd:             "18:00",
		SlotDurationMinutes: 60,
		MaxDailyOrders:      8,
		Active:              true,
	}
	return tx.WithContext(ctx).Create(&provider).Error
}

func ensureCustomerTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, agencyID snowflake.ID) error {
	customer := agencydomain.Customer{
		ID:       node.Generate(),
		AgencyID: agencyID,
		Name:     "Demo Customer",
		Email:    "customer@certifast.dev",
	}
	return tx.WithContext(ctx).Create(&customer).Error
}

func ensurePropertyTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, agencyID snowflake.ID) error {
	property := agencydomain.Property{
		ID:           node.Generate(),
		AgencyID:     agencyID,
		Address:      "Avenida da Liberdade 1",
		City:         "Lisboa",
		PostalCode:   "1250-096",
		PropertyType: "apartment",
	}
	return tx.WithContext(ctx).Create(&property).Error
}
