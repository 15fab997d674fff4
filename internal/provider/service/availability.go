package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/certifast/certifast/internal/provider/domain"
)

// schedule is a provider's effective day configuration after defaults.
type schedule struct {
	workingDays  map[string]struct{}
	startMinutes int
	endMinutes   int
	slotMinutes  int
}

func scheduleFor(provider *domain.Provider) (schedule, error) {
	days := []string(provider.WorkingDays)
	if len(days) == 0 {
		days = domain.DefaultWorkingDays
	}
	workingDays := make(map[string]struct{}, len(days))
	for _, day := range days {
		workingDays[strings.ToLower(strings.TrimSpace(day))] = struct{}{}
	}

	workStart := strings.TrimSpace(provider.WorkStart)
	if workStart == "" {
		workStart = domain.DefaultWorkStart
	}
	workEnd := strings.TrimSpace(provider.WorkEnd)
	if workEnd == "" {
		workEnd = domain.DefaultWorkEnd
	}

	start, err := parseClock(workStart)
	if err != nil {
		return schedule{}, domain.ErrInvalidHours
	}
	end, err := parseClock(workEnd)
	if err != nil {
		return schedule{}, domain.ErrInvalidHours
	}
	if end <= start {
		return schedule{}, domain.ErrInvalidHours
	}

	slot := provider.SlotDurationMinutes
	if slot <= 0 {
		slot = domain.DefaultSlotDurationMinutes
	}

	return schedule{
		workingDays:  workingDays,
		startMinutes: start,
		endMinutes:   end,
		slotMinutes:  slot,
	}, nil
}

func (s schedule) worksOn(weekday string) bool {
	_, ok := s.workingDays[strings.ToLower(weekday)]
	return ok
}

// computeDaySlots partitions the working interval into consecutive
// slot-duration buckets and marks each one busy when it overlaps an
// existing booking. Bookings outside working hours generate no buckets
// but still participate in the overlap test.
func (s schedule) computeDaySlots(bookings []domain.BookingWindow) ([]domain.TimeSlot, []string) {
	windows := make([][2]int, 0, len(bookings))
	for _, booking := range bookings {
		start, err := parseClock(booking.TimeSlot)
		if err != nil {
			continue
		}
		duration := booking.DurationMinutes
		if duration <= 0 {
			duration = domain.DefaultSlotDurationMinutes
		}
		windows = append(windows, [2]int{start, start + duration})
	}

	slots := make([]domain.TimeSlot, 0, (s.endMinutes-s.startMinutes)/s.slotMinutes)
	booked := make([]string, 0)
	for bucketStart := s.startMinutes; bucketStart+s.slotMinutes <= s.endMinutes; bucketStart += s.slotMinutes {
		bucketEnd := bucketStart + s.slotMinutes
		available := true
		for _, window := range windows {
			// half-open interval overlap
			if bucketStart < window[1] && bucketEnd > window[0] {
				available = false
				break
			}
		}

		label := formatClock(bucketStart)
		slots = append(slots, domain.TimeSlot{Time: label, Available: available})
		if !available {
			booked = append(booked, label)
		}
	}

	return slots, booked
}

func parseClock(value string) (int, error) {
	value = strings.TrimSpace(value)
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	return hour*60 + minute, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
