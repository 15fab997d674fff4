package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/certifast/certifast/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByAgency(ctx context.Context, db *gorm.DB, agencyID snowflake.ID, forUpdate bool) (*domain.Subscription, error) {
	query := `SELECT id, agency_id, provider_subscription_id, tier, status, current_period_end, created_at, updated_at
	 FROM subscriptions
	 WHERE agency_id = ?
	 LIMIT 1`
	if forUpdate && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var subscription domain.Subscription
	if err := db.WithContext(ctx).Raw(query, agencyID).Scan(&subscription).Error; err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (id, agency_id, provider_subscription_id, tier, status, current_period_end, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		subscription.ID,
		subscription.AgencyID,
		subscription.ProviderSubscriptionID,
		subscription.Tier,
		subscription.Status,
		subscription.CurrentPeriodEnd,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET provider_subscription_id = ?, tier = ?, status = ?, current_period_end = ?, updated_at = ?
		 WHERE id = ?`,
		subscription.ProviderSubscriptionID,
		subscription.Tier,
		subscription.Status,
		subscription.CurrentPeriodEnd,
		subscription.UpdatedAt,
		subscription.ID,
	).Error
}

func (r *repo) InsertHistory(ctx context.Context, db *gorm.DB, entry *domain.History) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscription_history (id, agency_id, subscription_id, event_type, tier, status, period_end, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.AgencyID,
		entry.SubscriptionID,
		entry.EventType,
		entry.Tier,
		entry.Status,
		entry.PeriodEnd,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListHistory(ctx context.Context, db *gorm.DB, agencyID snowflake.ID) ([]domain.History, error) {
	var entries []domain.History
	err := db.WithContext(ctx).
		Model(&domain.History{}).
		Where("agency_id = ?", agencyID).
		Order("created_at asc, id asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) UpdateAgencyPlan(ctx context.Context, db *gorm.DB, agencyID snowflake.ID, tier string, includedCredits int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE agencies
		 SET plan_tier = ?, included_credits = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		tier,
		includedCredits,
		agencyID,
	).Error
}
