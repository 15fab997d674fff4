package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Agency is a tenant. It owns properties, customers, orders and the
// prepaid credit balance.
type Agency struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name            string            `gorm:"not null" json:"name"`
	Email           string            `gorm:"not null" json:"email"`
	PlanTier        string            `gorm:"type:text;not null;default:'starter'" json:"plan_tier"`
	CreditBalance   int64             `gorm:"not null;default:0" json:"credit_balance"`
	IncludedCredits int64             `gorm:"not null;default:0" json:"included_credits"`
	CreditsUsed     int64             `gorm:"not null;default:0" json:"credits_used"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Agency) TableName() string { return "agencies" }

// Customer is an agency-scoped end customer referenced by orders.
type Customer struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	AgencyID  snowflake.ID `gorm:"not null;index" json:"agency_id"`
	Name      string       `gorm:"not null" json:"name"`
	Email     string       `gorm:"not null" json:"email"`
	Phone     string       `gorm:"type:text" json:"phone,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }

// Property is an agency-scoped real estate asset referenced by orders.
type Property struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	AgencyID     snowflake.ID `gorm:"not null;index" json:"agency_id"`
	Address      string       `gorm:"not null" json:"address"`
	City         string       `gorm:"not null" json:"city"`
	PostalCode   string       `gorm:"type:text" json:"postal_code,omitempty"`
	PropertyType string       `gorm:"type:text" json:"property_type,omitempty"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Property) TableName() string { return "properties" }
