package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/certifast/certifast/internal/agency/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, agency *domain.Agency) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO agencies (id, name, email, plan_tier, credit_balance, included_credits, credits_used, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agency.ID,
		agency.Name,
		agency.Email,
		agency.PlanTier,
		agency.CreditBalance,
		agency.IncludedCredits,
		agency.CreditsUsed,
		agency.Metadata,
		agency.CreatedAt,
		agency.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Agency, error) {
	var agency domain.Agency
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, plan_tier, credit_balance, included_credits, credits_used, metadata, created_at, updated_at
		 FROM agencies WHERE id = ?`,
		id,
	).Scan(&agency).Error
	if err != nil {
		return nil, err
	}
	if agency.ID == 0 {
		return nil, nil
	}
	return &agency, nil
}

func (r *repo) InsertCustomer(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, agency_id, name, email, phone, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.AgencyID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) InsertProperty(ctx context.Context, db *gorm.DB, property *domain.Property) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO properties (id, agency_id, address, city, postal_code, property_type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		property.ID,
		property.AgencyID,
		property.Address,
		property.City,
		property.PostalCode,
		property.PropertyType,
		property.CreatedAt,
		property.UpdatedAt,
	).Error
}
