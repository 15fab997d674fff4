package domain

import (
	"context"
	"errors"
)

type CreateOrderRequest struct {
	PropertyID        string `json:"property_id"`
	CustomerID        string `json:"customer_id"`
	ProviderID        string `json:"provider_id"`
	ServiceType       string `json:"service_type"`
	ScheduledDate     string `json:"scheduled_date"`
	ScheduledTimeSlot string `json:"scheduled_time_slot"`
	DurationMinutes   int    `json:"duration_minutes"`
	TotalPrice        int64  `json:"total_price"`
	AgencyCommission  int64  `json:"agency_commission"`
	Notes             string `json:"notes"`
}

type GetOrderRequest struct {
	ID string
}

type TransitionRequest struct {
	OrderID   string `json:"-"`
	NewStatus string `json:"new_status"`
	Notes     string `json:"notes"`
}

// ListOrderRequest carries optional predicates. Zero values mean the
// predicate is not applied.
type ListOrderRequest struct {
	Statuses      []string
	ServiceTypes  []string
	ProviderID    string
	PropertyID    string
	CustomerID    string
	ScheduledFrom string // YYYY-MM-DD inclusive
	ScheduledTo   string // YYYY-MM-DD inclusive
	Search        string
	Limit         int
}

type Service interface {
	Create(context.Context, CreateOrderRequest) (Order, error)
	GetByID(context.Context, GetOrderRequest) (OrderRow, error)
	List(context.Context, ListOrderRequest) ([]OrderRow, error)
	Calendar(context.Context, ListOrderRequest) ([]OrderRow, error)
	Transition(context.Context, TransitionRequest) (Order, error)
	History(context.Context, GetOrderRequest) ([]StatusHistory, error)
}

var (
	ErrInvalidAgency     = errors.New("invalid_agency")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrInvalidDate       = errors.New("invalid_date")
	ErrMissingField      = errors.New("missing_required_field")
	ErrNotFound          = errors.New("not_found")
)
