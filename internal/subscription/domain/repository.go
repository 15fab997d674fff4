package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByAgency(ctx context.Context, db *gorm.DB, agencyID snowflake.ID, forUpdate bool) (*Subscription, error)
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	Update(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	InsertHistory(ctx context.Context, db *gorm.DB, entry *History) error
	ListHistory(ctx context.Context, db *gorm.DB, agencyID snowflake.ID) ([]History, error)
	// UpdateAgencyPlan stamps the denormalized plan columns on the
	// agency row.
	UpdateAgencyPlan(ctx context.Context, db *gorm.DB, agencyID snowflake.ID, tier string, includedCredits int64) error
}
