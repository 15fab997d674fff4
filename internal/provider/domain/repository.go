package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, provider *Provider) error
	FindByID(ctx context.Context, db *gorm.DB, agencyID, id snowflake.ID) (*Provider, error)
	FindByUserID(ctx context.Context, db *gorm.DB, agencyID, userID snowflake.ID) (*Provider, error)
	List(ctx context.Context, db *gorm.DB, agencyID snowflake.ID) ([]*Provider, error)
	DayBookings(ctx context.Context, db *gorm.DB, providerID snowflake.ID, date string) ([]BookingWindow, error)
}
