package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Order statuses. Processing is a distinct stored value with the same
// lifecycle position as in_progress; both stay valid on reads.
const (
	StatusPending    = "pending"
	StatusAssigned   = "assigned"
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// transitions is the allowed status adjacency. Absent target means
// the edge is illegal.
var transitions = map[string][]string{
	StatusPending:    {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusScheduled, StatusCancelled},
	StatusScheduled:  {StatusInProgress, StatusProcessing, StatusCancelled},
	StatusInProgress: {StatusProcessing, StatusCompleted, StatusCancelled},
	StatusProcessing: {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusCompleted:  {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// ValidStatus reports whether value is a known order status.
func ValidStatus(value string) bool {
	_, ok := transitions[value]
	return ok
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether status has no outgoing edges.
func IsTerminal(status string) bool {
	next, ok := transitions[status]
	return ok && len(next) == 0
}

// Order is a certification service order. Rows are never deleted;
// cancellation is a status.
type Order struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	AgencyID          snowflake.ID `gorm:"not null;index" json:"agency_id"`
	PropertyID        snowflake.ID `gorm:"not null" json:"property_id"`
	CustomerID        snowflake.ID `gorm:"not null" json:"customer_id"`
	ProviderID        snowflake.ID `gorm:"index" json:"provider_id,omitempty"`
	ServiceType       string       `gorm:"not null" json:"service_type"`
	Status            string       `gorm:"not null;index" json:"status"`
	ScheduledDate     string       `gorm:"type:text" json:"scheduled_date,omitempty"`
	ScheduledTimeSlot string       `gorm:"type:text" json:"scheduled_time_slot,omitempty"`
	DurationMinutes   int          `gorm:"not null;default:0" json:"duration_minutes,omitempty"`
	TotalPrice        int64        `gorm:"not null;default:0" json:"total_price"`
	AgencyCommission  int64        `gorm:"not null;default:0" json:"agency_commission"`
	Notes             string       `gorm:"type:text" json:"notes,omitempty"`
	CompletedDate     *time.Time   `json:"completed_date,omitempty"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Order) TableName() string { return "orders" }

// StatusHistory is one append-only lifecycle entry. PreviousStatus is
// empty on the creation row.
type StatusHistory struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID        snowflake.ID `gorm:"not null;index" json:"order_id"`
	PreviousStatus string       `gorm:"type:text" json:"previous_status,omitempty"`
	NewStatus      string       `gorm:"not null" json:"new_status"`
	ActorID        snowflake.ID `gorm:"not null" json:"actor_id"`
	Notes          string       `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (StatusHistory) TableName() string { return "order_status_history" }

// OrderRow is an order joined with the customer and property columns
// the free-text search matches against.
type OrderRow struct {
	Order
	CustomerName    string `json:"customer_name,omitempty"`
	CustomerEmail   string `json:"customer_email,omitempty"`
	PropertyAddress string `json:"property_address,omitempty"`
	PropertyCity    string `json:"property_city,omitempty"`
}
