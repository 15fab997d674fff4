package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/certifast/certifast/internal/provider/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, provider *domain.Provider) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO providers (id, agency_id, user_id, name, service_types, working_days, work_start, work_end,
		                        slot_duration_minutes, max_daily_orders, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		provider.ID,
		provider.AgencyID,
		provider.UserID,
		provider.Name,
		provider.ServiceTypes,
		provider.WorkingDays,
		provider.WorkStart,
		provider.WorkEnd,
		provider.SlotDurationMinutes,
		provider.MaxDailyOrders,
		provider.Active,
		provider.CreatedAt,
		provider.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, agencyID, id snowflake.ID) (*domain.Provider, error) {
	var provider domain.Provider
	err := db.WithContext(ctx).
		Model(&domain.Provider{}).
		Where("agency_id = ? AND id = ?", agencyID, id).
		Limit(1).
		Find(&provider).Error
	if err != nil {
		return nil, err
	}
	if provider.ID == 0 {
		return nil, nil
	}
	return &provider, nil
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, agencyID, userID snowflake.ID) (*domain.Provider, error) {
	if userID == 0 {
		return nil, nil
	}
	var provider domain.Provider
	err := db.WithContext(ctx).
		Model(&domain.Provider{}).
		Where("agency_id = ? AND user_id = ?", agencyID, userID).
		Limit(1).
		Find(&provider).Error
	if err != nil {
		return nil, err
	}
	if provider.ID == 0 {
		return nil, nil
	}
	return &provider, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, agencyID snowflake.ID) ([]*domain.Provider, error) {
	var providers []*domain.Provider
	err := db.WithContext(ctx).
		Model(&domain.Provider{}).
		Where("agency_id = ?", agencyID).
		Order("created_at desc, id desc").
		Find(&providers).Error
	if err != nil {
		return nil, err
	}
	return providers, nil
}

// DayBookings returns the active bookings occupying a provider's day.
// Cancelled and delivered orders never block a slot.
func (r *repo) DayBookings(ctx context.Context, db *gorm.DB, providerID snowflake.ID, date string) ([]domain.BookingWindow, error) {
	var bookings []domain.BookingWindow
	err := db.WithContext(ctx).Raw(
		`SELECT scheduled_time_slot AS time_slot, duration_minutes
		 FROM orders
		 WHERE provider_id = ?
		   AND scheduled_date = ?
		   AND status IN (?, ?, ?, ?)`,
		providerID,
		date,
		"assigned",
		"scheduled",
		"in_progress",
		"processing",
	).Scan(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
