package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/certifast/certifast/internal/agencyctx"
	"github.com/certifast/certifast/internal/clock"
	"github.com/certifast/certifast/internal/provider/domain"
	"github.com/certifast/certifast/internal/provider/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&domain.Provider{}))
	// DayBookings reads the orders table directly; create the columns it touches.
	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY,
		provider_id INTEGER,
		scheduled_date TEXT,
		scheduled_time_slot TEXT,
		duration_minutes INTEGER,
		status TEXT
	)`).Error)

	return db
}

func newTestService(t *testing.T, db *gorm.DB) (*Service, snowflake.ID) {
	t.Helper()

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	}).(*Service)

	return svc, node.Generate()
}

func seedProvider(t *testing.T, db *gorm.DB, agencyID snowflake.ID, mutate func(*domain.Provider)) domain.Provider {
	t.Helper()

	node, err := snowflake.NewNode(8)
	require.NoError(t, err)

	provider := domain.Provider{
		ID:       node.Generate(),
		AgencyID: agencyID,
		Name:     "Ana Costa",
		Active:   true,
	}
	if mutate != nil {
		mutate(&provider)
	}
	require.NoError(t, db.Create(&provider).Error)
	return provider
}

func seedBooking(t *testing.T, db *gorm.DB, providerID snowflake.ID, date, timeSlot string, duration int, status string) {
	t.Helper()

	require.NoError(t, db.Exec(
		`INSERT INTO orders (provider_id, scheduled_date, scheduled_time_slot, duration_minutes, status) VALUES (?, ?, ?, ?, ?)`,
		providerID, date, timeSlot, duration, status,
	).Error)
}

func TestAvailabilityDefaultScheduleFreeDay(t *testing.T) {
	db := setupTestDB(t)
	svc, agencyID := newTestService(t, db)
	ctx := agencyctx.WithAgencyID(context.Background(), agencyID)

	provider := seedProvider(t, db, agencyID, nil)

	// 2026-09-07 is a Monday.
	day, err := svc.Availability(ctx, domain.AvailabilityRequest{
		ProviderID: provider.ID.String(),
		Date:       "2026-09-07",
	})
	require.NoError(t, err)

	assert.Equal(t, "2026-09-07", day.Date)
	assert.Len(t, day.AvailableSlots, 9)
	assert.Empty(t, day.BookedSlots)
	assert.Equal(t, "09:00", day.AvailableSlots[0].Time)
	assert.Equal(t, "17:00", day.AvailableSlots[8].Time)
	for _, slot := range day.AvailableSlots {
		assert.True(t, slot.Available, slot.Time)
	}
}

func TestAvailabilityMarksBookedSlot(t *testing.T) {
	db := setupTestDB(t)
	svc, agencyID := newTestService(t, db)
	ctx := agencyctx.WithAgencyID(context.Background(), agencyID)

	provider := seedProvider(t, db, agencyID, nil)
	seedBooking(t, db, provider.ID, "2026-09-07", "10:00", 60, "scheduled")

	day, err := svc.Availability(ctx, domain.AvailabilityRequest{
		ProviderID: provider.ID.String(),
		Date:       "2026-09-07",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"10:00"}, day.BookedSlots)
	for _, slot := range day.AvailableSlots {
		if slot.Time == "10:00" {
			assert.False(t, slot.Available)
			continue
		}
		assert.True(t, slot.Available, slot.Time)
	}
}

func TestAvailabilityLongBookingBlocksMultipleSlots(t *testing.T) {
	db := setupTestDB(t)
	svc, agencyID := newTestService(t, db)
	ctx := agencyctx.WithAgencyID(context.Background(), agencyID)

	provider := seedProvider(t, db, agencyID, nil)
	seedBooking(t, db, provider.ID, "2026-09-07", "10:30", 90, "in_progress")

	day, err := svc.Availability(ctx, domain.AvailabilityRequest{
		ProviderID: provider.ID.String(),
		Date:       "2026-09-07",
	})
	require.NoError(t, err)

	// 10:30-12:00 overlaps the 10:00, 11:00 buckets.
	assert.Equal(t, []string{"10:00", "11:00"}, day.BookedSlots)
}

func TestAvailabilityIgnoresInactiveStatuses(t *testing.T) {
	db := setupTestDB(t)
	svc, agencyID := newTestService(t, db)
	ctx := agencyctx.WithAgencyID(context.Background(), agencyID)

	provider := seedProvider(t, db, agencyID, nil)
	seedBooking(t, db, provider.ID, "2026-09-07", "10:00", 60, "cancelled")
	seedBooking(t, db, provider.ID, "2026-09-07", "11:00", 60, "completed")

	day, err := svc.Availability(ctx, domain.AvailabilityRequest{
		ProviderID: provider.ID.String(),
		Date:       "2026-09-07",
	})
	require.NoError(t, err)
	assert.Empty(t, day.BookedSlots)
}

func TestAvailabilityClosedDayReturnsEmpty(t *testing.T) {
	db := setupTestDB(t)
	svc, agencyID := newTestService(t, db)
	ctx := agencyctx.WithAgencyID(context.Background(), agencyID)

	provider := seedProvider(t, db, agencyID, nil)

	// 2026-09-06 is a Sunday, outside the default monday-friday window.
	day, err := svc.Availability(ctx, domain.AvailabilityRequest{
		ProviderID: provider.ID.String(),
		Date:       "2026-09-06",
	})
	require.NoError(t, err)

	assert.Empty(t, day.AvailableSlots)
	assert.Empty(t, day.BookedSlots)
}

func TestAvailabilityCustomHoursAndSlotDuration(t *testing.T) {
	db := setupTestDB(t)
	svc, agencyID := newTestService(t, db)
	ctx := agencyctx.WithAgencyID(context.Background(), agencyID)

	provider := seedProvider(t, db, agencyID, func(p *domain.Provider) {
		p.WorkingDays = datatypes.NewJSONSlice([]string{"saturday"})
		p.WorkStart = "08:00"
		p.WorkEnd = "11:00"
		p.SlotDurationMinutes = 90
	})

	// 2026-09-05 is a Saturday.
	day, err := svc.Availability(ctx, domain.AvailabilityRequest{
		ProviderID: provider.ID.String(),
		Date:       "2026-09-05",
	})
	require.NoError(t, err)

	// 08:00-11:00 at 90 minutes fits two buckets.
	require.Len(t, day.AvailableSlots, 2)
	assert.Equal(t, "08:00", day.AvailableSlots[0].Time)
	assert.Equal(t, "09:30", day.AvailableSlots[1].Time)
}

func TestAvailabilityInvalidDate(t *testing.T) {
	db := setupTestDB(t)
	svc, agencyID := newTestService(t, db)
	ctx := agencyctx.WithAgencyID(context.Background(), agencyID)

	provider := seedProvider(t, db, agencyID, nil)

	_, err := svc.Availability(ctx, domain.AvailabilityRequest{
		ProviderID: provider.ID.String(),
		Date:       "07/09/2026",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestAvailabilityUnknownProvider(t *testing.T) {
	db := setupTestDB(t)
	svc, agencyID := newTestService(t, db)
	ctx := agencyctx.WithAgencyID(context.Background(), agencyID)

	node, err := snowflake.NewNode(9)
	require.NoError(t, err)

	_, err = svc.Availability(ctx, domain.AvailabilityRequest{
		ProviderID: node.Generate().String(),
		Date:       "2026-09-07",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateStampsInjectedClock(t *testing.T) {
	db := setupTestDB(t)
	svc, agencyID := newTestService(t, db)
	ctx := agencyctx.WithAgencyID(context.Background(), agencyID)

	created, err := svc.Create(ctx, domain.CreateProviderRequest{Name: "Ana Costa"})
	require.NoError(t, err)
	assert.Equal(t, svc.clock.Now(), created.CreatedAt)
	assert.Equal(t, svc.clock.Now(), created.UpdatedAt)
}

func TestScheduleForRejectsInvertedHours(t *testing.T) {
	_, err := scheduleFor(&domain.Provider{
		WorkStart: "18:00",
		WorkEnd:   "09:00",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidHours)
}

func TestComputeDaySlotsBoundaryAdjacency(t *testing.T) {
	sched := schedule{
		workingDays:  map[string]struct{}{"monday": {}},
		startMinutes: 9 * 60,
		endMinutes:   12 * 60,
		slotMinutes:  60,
	}

	// A booking ending exactly when a bucket starts does not block it.
	slots, booked := sched.computeDaySlots([]domain.BookingWindow{
		{TimeSlot: "09:00", DurationMinutes: 60},
	})
	require.Len(t, slots, 3)
	assert.Equal(t, []string{"09:00"}, booked)
	assert.True(t, slots[1].Available)
	assert.True(t, slots[2].Available)
}
