package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/certifast/certifast/internal/agencyctx"
	"github.com/certifast/certifast/internal/clock"
	"github.com/certifast/certifast/internal/observability/metrics"
	"github.com/certifast/certifast/internal/order/domain"
	providerdomain "github.com/certifast/certifast/internal/provider/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	ProviderRepo providerdomain.Repository
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	providerRepo providerdomain.Repository
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("order.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		providerRepo: p.ProviderRepo,
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	agencyID, ok := agencyctx.AgencyIDFromContext(ctx)
	if !ok || agencyID == 0 {
		return domain.Order{}, domain.ErrInvalidAgency
	}

	propertyID, err := parseRequiredID(req.PropertyID)
	if err != nil {
		return domain.Order{}, err
	}
	customerID, err := parseRequiredID(req.CustomerID)
	if err != nil {
		return domain.Order{}, err
	}

	serviceType := strings.TrimSpace(req.ServiceType)
	if serviceType == "" {
		return domain.Order{}, domain.ErrMissingField
	}

	var providerID snowflake.ID
	if trimmed := strings.TrimSpace(req.ProviderID); trimmed != "" {
		providerID, err = snowflake.ParseString(trimmed)
		if err != nil || providerID == 0 {
			return domain.Order{}, domain.ErrInvalidID
		}
	}

	scheduledDate := strings.TrimSpace(req.ScheduledDate)
	if scheduledDate != "" {
		if _, err := time.Parse("2006-01-02", scheduledDate); err != nil {
			return domain.Order{}, domain.ErrInvalidDate
		}
	}

	status := domain.StatusPending
	if providerID != 0 {
		status = domain.StatusAssigned
	}

	now := s.clock.Now()
	order := domain.Order{
		ID:                s.genID.Generate(),
		AgencyID:          agencyID,
		PropertyID:        propertyID,
		CustomerID:        customerID,
		ProviderID:        providerID,
		ServiceType:       serviceType,
		Status:            status,
		ScheduledDate:     scheduledDate,
		ScheduledTimeSlot: strings.TrimSpace(req.ScheduledTimeSlot),
		DurationMinutes:   req.DurationMinutes,
		TotalPrice:        req.TotalPrice,
		AgencyCommission:  req.AgencyCommission,
		Notes:             req.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	actorID, _ := agencyctx.UserIDFromContext(ctx)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &order); err != nil {
			return err
		}
		return s.repo.InsertHistory(ctx, tx, &domain.StatusHistory{
			ID:        s.genID.Generate(),
			OrderID:   order.ID,
			NewStatus: order.Status,
			ActorID:   actorID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("status", order.Status),
		zap.String("service_type", order.ServiceType),
	)
	return order, nil
}

// Transition moves an order along the lifecycle graph. The load,
// validation, update and history append run in one transaction so a
// failed step leaves no partial state.
func (s *Service) Transition(ctx context.Context, req domain.TransitionRequest) (domain.Order, error) {
	agencyID, ok := agencyctx.AgencyIDFromContext(ctx)
	if !ok || agencyID == 0 {
		return domain.Order{}, domain.ErrInvalidAgency
	}

	orderID, err := parseRequiredID(req.OrderID)
	if err != nil {
		return domain.Order{}, err
	}

	newStatus := strings.ToLower(strings.TrimSpace(req.NewStatus))
	if !domain.ValidStatus(newStatus) {
		return domain.Order{}, domain.ErrInvalidStatus
	}

	actorID, _ := agencyctx.UserIDFromContext(ctx)

	var updated domain.Order
	var previous string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByID(ctx, tx, agencyID, orderID, true)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound
		}

		previous = order.Status
		if !domain.CanTransition(order.Status, newStatus) {
			return domain.ErrInvalidTransition
		}

		now := s.clock.Now()
		order.Status = newStatus
		order.UpdatedAt = now

		if newStatus == domain.StatusCompleted && order.CompletedDate == nil {
			completed := now
			order.CompletedDate = &completed
		}

		// A worker accepting an unassigned order claims it.
		if newStatus == domain.StatusAssigned && order.ProviderID == 0 && actorID != 0 {
			profile, err := s.providerRepo.FindByUserID(ctx, tx, agencyID, actorID)
			if err != nil {
				return err
			}
			if profile != nil {
				order.ProviderID = profile.ID
			}
		}

		if err := s.repo.Update(ctx, tx, order); err != nil {
			return err
		}

		if err := s.repo.InsertHistory(ctx, tx, &domain.StatusHistory{
			ID:             s.genID.Generate(),
			OrderID:        order.ID,
			PreviousStatus: previous,
			NewStatus:      newStatus,
			ActorID:        actorID,
			Notes:          strings.TrimSpace(req.Notes),
			CreatedAt:      now,
		}); err != nil {
			return err
		}

		updated = *order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.metrics.RecordOrderTransition(previous, newStatus)
	s.log.Info("order transitioned",
		zap.String("order_id", updated.ID.String()),
		zap.String("from", previous),
		zap.String("to", newStatus),
	)
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetOrderRequest) (domain.OrderRow, error) {
	agencyID, ok := agencyctx.AgencyIDFromContext(ctx)
	if !ok || agencyID == 0 {
		return domain.OrderRow{}, domain.ErrInvalidAgency
	}

	id, err := parseRequiredID(req.ID)
	if err != nil {
		return domain.OrderRow{}, err
	}

	row, err := s.repo.FindRowByID(ctx, s.db, agencyID, id)
	if err != nil {
		return domain.OrderRow{}, err
	}
	if row == nil {
		return domain.OrderRow{}, domain.ErrNotFound
	}
	return *row, nil
}

func (s *Service) List(ctx context.Context, req domain.ListOrderRequest) ([]domain.OrderRow, error) {
	return s.list(ctx, req, false)
}

// Calendar lists orders in schedule order for day or week views.
func (s *Service) Calendar(ctx context.Context, req domain.ListOrderRequest) ([]domain.OrderRow, error) {
	return s.list(ctx, req, true)
}

func (s *Service) list(ctx context.Context, req domain.ListOrderRequest, calendarOrder bool) ([]domain.OrderRow, error) {
	agencyID, ok := agencyctx.AgencyIDFromContext(ctx)
	if !ok || agencyID == 0 {
		return nil, domain.ErrInvalidAgency
	}

	filter := domain.ListFilter{
		AgencyID:      agencyID,
		CalendarOrder: calendarOrder,
		Limit:         req.Limit,
	}

	for _, status := range req.Statuses {
		status = strings.ToLower(strings.TrimSpace(status))
		if status == "" {
			continue
		}
		if !domain.ValidStatus(status) {
			return nil, domain.ErrInvalidStatus
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, serviceType := range req.ServiceTypes {
		if serviceType = strings.TrimSpace(serviceType); serviceType != "" {
			filter.ServiceTypes = append(filter.ServiceTypes, serviceType)
		}
	}

	var err error
	if filter.ProviderID, err = parseOptionalID(req.ProviderID); err != nil {
		return nil, err
	}
	if filter.PropertyID, err = parseOptionalID(req.PropertyID); err != nil {
		return nil, err
	}
	if filter.CustomerID, err = parseOptionalID(req.CustomerID); err != nil {
		return nil, err
	}

	if filter.ScheduledFrom, err = parseOptionalDate(req.ScheduledFrom); err != nil {
		return nil, err
	}
	if filter.ScheduledTo, err = parseOptionalDate(req.ScheduledTo); err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(req.Search))
	if search != "" {
		// The text match runs in memory, so the SQL limit has to wait
		// until after filtering.
		filter.Limit = 0
	}

	rows, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	if search == "" {
		return rows, nil
	}

	matched := make([]domain.OrderRow, 0, len(rows))
	for _, row := range rows {
		if matchesSearch(row, search) {
			matched = append(matched, row)
			if req.Limit > 0 && len(matched) >= req.Limit {
				break
			}
		}
	}
	return matched, nil
}

func (s *Service) History(ctx context.Context, req domain.GetOrderRequest) ([]domain.StatusHistory, error) {
	agencyID, ok := agencyctx.AgencyIDFromContext(ctx)
	if !ok || agencyID == 0 {
		return nil, domain.ErrInvalidAgency
	}

	id, err := parseRequiredID(req.ID)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.FindByID(ctx, s.db, agencyID, id, false)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}

	return s.repo.ListHistory(ctx, s.db, order.ID)
}

func matchesSearch(row domain.OrderRow, search string) bool {
	for _, field := range []string{
		row.CustomerName,
		row.CustomerEmail,
		row.PropertyAddress,
		row.PropertyCity,
	} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func parseRequiredID(value string) (snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, domain.ErrMissingField
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func parseOptionalID(value string) (snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func parseOptionalDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return "", domain.ErrInvalidDate
	}
	return value, nil
}
