package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Canonical event types emitted by adapters.
const (
	EventTypePaymentSucceeded    = "payment_succeeded"
	EventTypeInvoicePaid         = "invoice_paid"
	EventTypeSubscriptionCreated = "subscription_created"
	EventTypeSubscriptionUpdated = "subscription_updated"
	EventTypeSubscriptionDeleted = "subscription_deleted"
)

// EventRecord is the stored webhook event. It doubles as the
// dead-letter queue: a row with last_error set and processed_at null
// failed processing and waits for the provider's redelivery.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event,priority:1"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event,priority:2"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	AgencyID        snowflake.ID   `json:"agency_id" gorm:"index"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
	LastError       string         `json:"last_error,omitempty" gorm:"type:text"`
	LastErrorAt     *time.Time     `json:"last_error_at,omitempty"`
}

// TableName sets the database table name.
func (EventRecord) TableName() string { return "payment_events" }

// PaymentEvent is the canonical event parsed by adapters.
type PaymentEvent struct {
	Provider               string
	ProviderEventID        string
	Type                   string
	AgencyID               snowflake.ID
	Credits                int64
	Tier                   string
	Status                 string
	ProviderSubscriptionID string
	PeriodEnd              *time.Time
	Amount                 int64
	Currency               string
	ReferenceID            string
	OccurredAt             time.Time
	RawPayload             []byte
}

// AdapterConfig carries provider credentials.
type AdapterConfig struct {
	Config map[string]any
}

// PaymentAdapter verifies and parses one provider's webhooks.
type PaymentAdapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*PaymentEvent, error)
}

// AdapterFactory builds adapters for a provider name.
type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (PaymentAdapter, error)
}

// Service is the webhook ingestion surface.
type Service interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}

type Repository interface {
	FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*EventRecord, error)
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
	RecordFailure(ctx context.Context, db *gorm.DB, id snowflake.ID, message string, failedAt time.Time) error
	ListFailed(ctx context.Context, db *gorm.DB, limit int) ([]EventRecord, error)
}

var (
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrInvalidConfig         = errors.New("invalid_provider_config")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidAgency         = errors.New("invalid_agency")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
)
