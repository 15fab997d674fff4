package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/certifast/certifast/internal/agencyctx"
	"github.com/certifast/certifast/internal/clock"
	"github.com/certifast/certifast/internal/provider/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("provider.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProviderRequest) (domain.Provider, error) {
	agencyID, ok := agencyctx.AgencyIDFromContext(ctx)
	if !ok || agencyID == 0 {
		return domain.Provider{}, domain.ErrInvalidAgency
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Provider{}, domain.ErrInvalidName
	}

	var userID snowflake.ID
	if trimmed := strings.TrimSpace(req.UserID); trimmed != "" {
		parsed, err := snowflake.ParseString(trimmed)
		if err != nil {
			return domain.Provider{}, domain.ErrInvalidID
		}
		userID = parsed
	}

	now := s.clock.Now()
	provider := domain.Provider{
		ID:                  s.genID.Generate(),
		AgencyID:            agencyID,
		UserID:              userID,
		Name:                name,
		ServiceTypes:        datatypes.NewJSONSlice(normalizeStrings(req.ServiceTypes)),
		WorkingDays:         datatypes.NewJSONSlice(normalizeStrings(req.WorkingDays)),
		WorkStart:           strings.TrimSpace(req.WorkStart),
		WorkEnd:             strings.TrimSpace(req.WorkEnd),
		SlotDurationMinutes: req.SlotDurationMinutes,
		MaxDailyOrders:      req.MaxDailyOrders,
		Active:              true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	// Reject unparseable hours up front instead of at availability time.
	if _, err := scheduleFor(&provider); err != nil {
		return domain.Provider{}, err
	}

	if err := s.repo.Insert(ctx, s.db, &provider); err != nil {
		return domain.Provider{}, err
	}

	return provider, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetProviderRequest) (domain.Provider, error) {
	agencyID, ok := agencyctx.AgencyIDFromContext(ctx)
	if !ok || agencyID == 0 {
		return domain.Provider{}, domain.ErrInvalidAgency
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Provider{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, agencyID, id)
	if err != nil {
		return domain.Provider{}, err
	}
	if item == nil {
		return domain.Provider{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Provider, error) {
	agencyID, ok := agencyctx.AgencyIDFromContext(ctx)
	if !ok || agencyID == 0 {
		return nil, domain.ErrInvalidAgency
	}

	items, err := s.repo.List(ctx, s.db, agencyID)
	if err != nil {
		return nil, err
	}

	providers := make([]domain.Provider, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		providers = append(providers, *item)
	}
	return providers, nil
}

// Availability computes the free/busy slots for one provider and date.
// A date outside the provider's working days yields empty slot sets,
// not an error.
func (s *Service) Availability(ctx context.Context, req domain.AvailabilityRequest) (domain.DayAvailability, error) {
	agencyID, ok := agencyctx.AgencyIDFromContext(ctx)
	if !ok || agencyID == 0 {
		return domain.DayAvailability{}, domain.ErrInvalidAgency
	}

	providerID, err := s.parseID(req.ProviderID)
	if err != nil {
		return domain.DayAvailability{}, err
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date))
	if err != nil {
		return domain.DayAvailability{}, domain.ErrInvalidDate
	}
	day := date.Format("2006-01-02")

	provider, err := s.repo.FindByID(ctx, s.db, agencyID, providerID)
	if err != nil {
		return domain.DayAvailability{}, err
	}
	if provider == nil {
		return domain.DayAvailability{}, domain.ErrNotFound
	}

	sched, err := scheduleFor(provider)
	if err != nil {
		return domain.DayAvailability{}, err
	}

	result := domain.DayAvailability{
		Date:           day,
		AvailableSlots: []domain.TimeSlot{},
		BookedSlots:    []string{},
	}

	if !sched.worksOn(date.Weekday().String()) {
		return result, nil
	}

	bookings, err := s.repo.DayBookings(ctx, s.db, providerID, day)
	if err != nil {
		return domain.DayAvailability{}, err
	}

	result.AvailableSlots, result.BookedSlots = sched.computeDaySlots(bookings)
	return result, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func normalizeStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	return out
}
