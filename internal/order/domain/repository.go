package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ListFilter mirrors ListOrderRequest with parsed ids. Search stays in
// the service; only indexed predicates reach SQL.
type ListFilter struct {
	AgencyID      snowflake.ID
	Statuses      []string
	ServiceTypes  []string
	ProviderID    snowflake.ID
	PropertyID    snowflake.ID
	CustomerID    snowflake.ID
	ScheduledFrom string
	ScheduledTo   string
	Limit         int
	CalendarOrder bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, agencyID, id snowflake.ID, forUpdate bool) (*Order, error)
	FindRowByID(ctx context.Context, db *gorm.DB, agencyID, id snowflake.ID) (*OrderRow, error)
	Update(ctx context.Context, db *gorm.DB, order *Order) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]OrderRow, error)
	InsertHistory(ctx context.Context, db *gorm.DB, entry *StatusHistory) error
	ListHistory(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]StatusHistory, error)
}
