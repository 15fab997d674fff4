package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/certifast/certifast/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const orderRowSelect = `o.id, o.agency_id, o.property_id, o.customer_id, o.provider_id,
	o.service_type, o.status, o.scheduled_date, o.scheduled_time_slot, o.duration_minutes,
	o.total_price, o.agency_commission, o.notes, o.completed_date, o.created_at, o.updated_at,
	c.name AS customer_name, c.email AS customer_email,
	p.address AS property_address, p.city AS property_city`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (id, agency_id, property_id, customer_id, provider_id, service_type, status,
		                     scheduled_date, scheduled_time_slot, duration_minutes, total_price,
		                     agency_commission, notes, completed_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.AgencyID,
		order.PropertyID,
		order.CustomerID,
		order.ProviderID,
		order.ServiceType,
		order.Status,
		order.ScheduledDate,
		order.ScheduledTimeSlot,
		order.DurationMinutes,
		order.TotalPrice,
		order.AgencyCommission,
		order.Notes,
		order.CompletedDate,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, agencyID, id snowflake.ID, forUpdate bool) (*domain.Order, error) {
	query := `SELECT id, agency_id, property_id, customer_id, provider_id, service_type, status,
		scheduled_date, scheduled_time_slot, duration_minutes, total_price, agency_commission,
		notes, completed_date, created_at, updated_at
	 FROM orders
	 WHERE agency_id = ? AND id = ?
	 LIMIT 1`
	if forUpdate && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var order domain.Order
	if err := db.WithContext(ctx).Raw(query, agencyID, id).Scan(&order).Error; err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) FindRowByID(ctx context.Context, db *gorm.DB, agencyID, id snowflake.ID) (*domain.OrderRow, error) {
	var row domain.OrderRow
	err := db.WithContext(ctx).Raw(
		`SELECT `+orderRowSelect+`
		 FROM orders o
		 LEFT JOIN customers c ON c.id = o.customer_id
		 LEFT JOIN properties p ON p.id = o.property_id
		 WHERE o.agency_id = ? AND o.id = ?
		 LIMIT 1`,
		agencyID, id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET provider_id = ?, status = ?, scheduled_date = ?, scheduled_time_slot = ?,
		     duration_minutes = ?, notes = ?, completed_date = ?, updated_at = ?
		 WHERE agency_id = ? AND id = ?`,
		order.ProviderID,
		order.Status,
		order.ScheduledDate,
		order.ScheduledTimeSlot,
		order.DurationMinutes,
		order.Notes,
		order.CompletedDate,
		order.UpdatedAt,
		order.AgencyID,
		order.ID,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.OrderRow, error) {
	stmt := db.WithContext(ctx).
		Table("orders o").
		Select(orderRowSelect).
		Joins("LEFT JOIN customers c ON c.id = o.customer_id").
		Joins("LEFT JOIN properties p ON p.id = o.property_id").
		Where("o.agency_id = ?", filter.AgencyID)

	if len(filter.Statuses) > 0 {
		stmt = stmt.Where("o.status IN ?", filter.Statuses)
	}
	if len(filter.ServiceTypes) > 0 {
		stmt = stmt.Where("o.service_type IN ?", filter.ServiceTypes)
	}
	if filter.ProviderID != 0 {
		stmt = stmt.Where("o.provider_id = ?", filter.ProviderID)
	}
	if filter.PropertyID != 0 {
		stmt = stmt.Where("o.property_id = ?", filter.PropertyID)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("o.customer_id = ?", filter.CustomerID)
	}
	if filter.ScheduledFrom != "" {
		stmt = stmt.Where("o.scheduled_date >= ?", filter.ScheduledFrom)
	}
	if filter.ScheduledTo != "" {
		stmt = stmt.Where("o.scheduled_date <= ?", filter.ScheduledTo)
	}

	if filter.CalendarOrder {
		stmt = stmt.Order("o.scheduled_date asc, o.scheduled_time_slot asc, o.id asc")
	} else {
		stmt = stmt.Order("o.created_at desc, o.id desc")
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var rows []domain.OrderRow
	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) InsertHistory(ctx context.Context, db *gorm.DB, entry *domain.StatusHistory) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO order_status_history (id, order_id, previous_status, new_status, actor_id, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.OrderID,
		entry.PreviousStatus,
		entry.NewStatus,
		entry.ActorID,
		entry.Notes,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListHistory(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.StatusHistory, error) {
	var entries []domain.StatusHistory
	err := db.WithContext(ctx).
		Model(&domain.StatusHistory{}).
		Where("order_id = ?", orderID).
		Order("created_at asc, id asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
