package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// UpsertRequest carries the provider-side subscription state from a
// webhook event.
type UpsertRequest struct {
	AgencyID               snowflake.ID
	ProviderSubscriptionID string
	Tier                   string
	Status                 string
	PeriodEnd              *time.Time
	EventType              string
}

type RenewRequest struct {
	AgencyID  snowflake.ID
	PeriodEnd *time.Time
	EventType string
}

type CancelRequest struct {
	AgencyID  snowflake.ID
	EventType string
}

type Service interface {
	Get(ctx context.Context, agencyID snowflake.ID) (Subscription, error)
	History(ctx context.Context, agencyID snowflake.ID) ([]History, error)
	// Upsert persists tier, status and period end, stamps the agency's
	// plan tier and included allotment, and appends a history row.
	Upsert(ctx context.Context, req UpsertRequest) (Subscription, error)
	// Renew advances the current period and resets the included
	// allotment from the plan catalog.
	Renew(ctx context.Context, req RenewRequest) (Subscription, error)
	// Cancel marks the subscription canceled and zeroes the included
	// allotment. Purchased credits stay spendable.
	Cancel(ctx context.Context, req CancelRequest) (Subscription, error)
}

var (
	ErrInvalidAgency = errors.New("invalid_agency")
	ErrInvalidTier   = errors.New("invalid_tier")
	ErrInvalidStatus = errors.New("invalid_status")
	ErrNotFound      = errors.New("not_found")
)
