package domain

import (
	"context"
	"errors"
)

type CreateProviderRequest struct {
	Name                string   `json:"name"`
	UserID              string   `json:"user_id"`
	ServiceTypes        []string `json:"service_types"`
	WorkingDays         []string `json:"working_days"`
	WorkStart           string   `json:"work_start"`
	WorkEnd             string   `json:"work_end"`
	SlotDurationMinutes int      `json:"slot_duration_minutes"`
	MaxDailyOrders      int      `json:"max_daily_orders"`
}

type GetProviderRequest struct {
	ID string
}

type AvailabilityRequest struct {
	ProviderID string
	Date       string // YYYY-MM-DD
}

type Service interface {
	Create(context.Context, CreateProviderRequest) (Provider, error)
	GetByID(context.Context, GetProviderRequest) (Provider, error)
	List(context.Context) ([]Provider, error)
	Availability(context.Context, AvailabilityRequest) (DayAvailability, error)
}

var (
	ErrInvalidAgency = errors.New("invalid_agency")
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidDate   = errors.New("invalid_date")
	ErrInvalidHours  = errors.New("invalid_working_hours")
	ErrNotFound      = errors.New("not_found")
)
