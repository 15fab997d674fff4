package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/certifast/certifast/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*domain.EventRecord, error) {
	var item domain.EventRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider, provider_event_id, event_type, agency_id,
			payload, received_at, processed_at, last_error, last_error_at
		 FROM payment_events
		 WHERE provider = ? AND provider_event_id = ?
		 LIMIT 1`,
		provider,
		providerEventID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.EventRecord) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payment_events (
			id, provider, provider_event_id, event_type, agency_id,
			payload, received_at, processed_at, last_error, last_error_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, provider_event_id) DO NOTHING`,
		event.ID,
		event.Provider,
		event.ProviderEventID,
		event.EventType,
		event.AgencyID,
		event.Payload,
		event.ReceivedAt,
		event.ProcessedAt,
		event.LastError,
		event.LastErrorAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_events
		 SET processed_at = ?, last_error = '', last_error_at = NULL
		 WHERE id = ?`,
		processedAt,
		id,
	).Error
}

func (r *repo) RecordFailure(ctx context.Context, db *gorm.DB, id snowflake.ID, message string, failedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_events
		 SET last_error = ?, last_error_at = ?
		 WHERE id = ?`,
		message,
		failedAt,
		id,
	).Error
}

// ListFailed returns unprocessed events with a recorded error, oldest
// first. Operators read this as the dead-letter queue.
func (r *repo) ListFailed(ctx context.Context, db *gorm.DB, limit int) ([]domain.EventRecord, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.EventRecord{}).
		Where("processed_at IS NULL AND last_error != ''").
		Order("received_at asc, id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}

	var events []domain.EventRecord
	if err := stmt.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
