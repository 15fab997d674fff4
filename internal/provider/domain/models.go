package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Scheduling defaults applied when a provider has no configuration.
const (
	DefaultSlotDurationMinutes = 60
	DefaultWorkStart           = "09:00"
	DefaultWorkEnd             = "18:00"
)

// DefaultWorkingDays is Monday through Friday.
var DefaultWorkingDays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}

// Provider is an agency-scoped service worker who fulfills orders.
type Provider struct {
	ID                  snowflake.ID                 `gorm:"primaryKey" json:"id"`
	AgencyID            snowflake.ID                 `gorm:"not null;index" json:"agency_id"`
	UserID              snowflake.ID                 `gorm:"index" json:"user_id,omitempty"`
	Name                string                       `gorm:"not null" json:"name"`
	ServiceTypes        datatypes.JSONSlice[string]  `gorm:"type:jsonb" json:"service_types,omitempty"`
	WorkingDays         datatypes.JSONSlice[string]  `gorm:"type:jsonb" json:"working_days,omitempty"`
	WorkStart           string                       `gorm:"type:text" json:"work_start,omitempty"`
	WorkEnd             string                       `gorm:"type:text" json:"work_end,omitempty"`
	SlotDurationMinutes int                          `gorm:"not null;default:0" json:"slot_duration_minutes,omitempty"`
	MaxDailyOrders      int                          `gorm:"not null;default:0" json:"max_daily_orders,omitempty"`
	Active              bool                         `gorm:"not null;default:true" json:"active"`
	CreatedAt           time.Time                    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time                    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Provider) TableName() string { return "providers" }

// TimeSlot is a computed calendar bucket. Never persisted.
type TimeSlot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// DayAvailability is the free/busy result for one provider and date.
type DayAvailability struct {
	Date           string     `json:"date"`
	AvailableSlots []TimeSlot `json:"available_slots"`
	BookedSlots    []string   `json:"booked_slots"`
}

// BookingWindow is an existing booking projected onto a day.
type BookingWindow struct {
	TimeSlot        string
	DurationMinutes int
}
