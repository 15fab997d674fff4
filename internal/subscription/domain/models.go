package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Subscription statuses as reported by the payment provider.
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

// Subscription mirrors the provider-side subscription for one agency.
// One row per agency; provider events keep it current.
type Subscription struct {
	ID                     snowflake.ID `gorm:"primaryKey" json:"id"`
	AgencyID               snowflake.ID `gorm:"not null;uniqueIndex" json:"agency_id"`
	ProviderSubscriptionID string       `gorm:"type:text" json:"provider_subscription_id,omitempty"`
	Tier                   string       `gorm:"not null" json:"tier"`
	Status                 string       `gorm:"not null" json:"status"`
	CurrentPeriodEnd       *time.Time   `json:"current_period_end,omitempty"`
	CreatedAt              time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt              time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// History is one append-only subscription change entry.
type History struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	AgencyID       snowflake.ID `gorm:"not null;index" json:"agency_id"`
	SubscriptionID snowflake.ID `gorm:"not null" json:"subscription_id"`
	EventType      string       `gorm:"not null" json:"event_type"`
	Tier           string       `gorm:"type:text" json:"tier,omitempty"`
	Status         string       `gorm:"not null" json:"status"`
	PeriodEnd      *time.Time   `json:"period_end,omitempty"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (History) TableName() string { return "subscription_history" }
