package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/certifast/certifast/internal/clock"
	"github.com/certifast/certifast/internal/config"
	creditdomain "github.com/certifast/certifast/internal/credit/domain"
	"github.com/certifast/certifast/internal/observability/metrics"
	paymentdomain "github.com/certifast/certifast/internal/payment/domain"
	subscriptiondomain "github.com/certifast/certifast/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Repo            paymentdomain.Repository
	CreditSvc       creditdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Plans           *config.PlanCatalogHolder
	Metrics         *metrics.Metrics `optional:"true"`
}

// Service reconciles provider payment events against the credit ledger
// and the subscription mirror.
type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	repo            paymentdomain.Repository
	creditSvc       creditdomain.Service
	subscriptionSvc subscriptiondomain.Service
	plans           *config.PlanCatalogHolder
	metrics         *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("payment.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		creditSvc:       p.CreditSvc,
		subscriptionSvc: p.SubscriptionSvc,
		plans:           p.Plans,
		metrics:         p.Metrics,
	}
}

// ProcessEvent stores the event once and applies its side effects. A
// replayed provider_event_id that was already applied returns
// ErrEventAlreadyProcessed; one that previously failed is retried.
func (s *Service) ProcessEvent(ctx context.Context, event *paymentdomain.PaymentEvent, payload []byte) error {
	if event == nil {
		return paymentdomain.ErrInvalidEvent
	}
	event.Provider = strings.ToLower(strings.TrimSpace(event.Provider))
	if event.Provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	if strings.TrimSpace(event.ProviderEventID) == "" {
		return paymentdomain.ErrInvalidEvent
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}

	now := s.clock.Now()
	received := paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		AgencyID:        event.AgencyID,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			s.recordMetric(event, "duplicate")
			return paymentdomain.ErrEventAlreadyProcessed
		}
	}

	if err := s.apply(ctx, event); err != nil {
		failedAt := s.clock.Now()
		if recordErr := s.repo.RecordFailure(ctx, s.db, stored.ID, err.Error(), failedAt); recordErr != nil {
			s.log.Error("failed to record payment event failure", zap.Error(recordErr))
		}
		s.recordMetric(event, "failed")
		return err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, s.clock.Now()); err != nil {
		return err
	}

	s.recordMetric(event, "processed")
	return nil
}

// FailedEvents exposes the dead-letter rows for operators.
func (s *Service) FailedEvents(ctx context.Context, limit int) ([]paymentdomain.EventRecord, error) {
	return s.repo.ListFailed(ctx, s.db, limit)
}

func (s *Service) apply(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	switch event.Type {
	case paymentdomain.EventTypePaymentSucceeded:
		return s.applyPurchase(ctx, event)
	case paymentdomain.EventTypeInvoicePaid:
		return s.applyRenewal(ctx, event)
	case paymentdomain.EventTypeSubscriptionCreated, paymentdomain.EventTypeSubscriptionUpdated:
		return s.applySubscription(ctx, event)
	case paymentdomain.EventTypeSubscriptionDeleted:
		return s.applyCancellation(ctx, event)
	default:
		return paymentdomain.ErrEventIgnored
	}
}

func (s *Service) applyPurchase(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	if event.AgencyID == 0 {
		return paymentdomain.ErrInvalidAgency
	}
	if event.Credits <= 0 {
		return paymentdomain.ErrInvalidEvent
	}

	_, err := s.creditSvc.Add(ctx, event.AgencyID, creditdomain.AddRequest{
		Amount:      event.Credits,
		Type:        creditdomain.TypePurchase,
		Description: "credit pack purchase",
		ReferenceID: event.ReferenceID,
	})
	if errors.Is(err, creditdomain.ErrDuplicateReference) {
		// The ledger already holds this payment.
		return nil
	}
	return err
}

func (s *Service) applyRenewal(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	if event.AgencyID == 0 {
		return paymentdomain.ErrInvalidAgency
	}

	subscription, err := s.subscriptionSvc.Renew(ctx, subscriptiondomain.RenewRequest{
		AgencyID:  event.AgencyID,
		PeriodEnd: event.PeriodEnd,
		EventType: "invoice.paid",
	})
	if err != nil {
		return err
	}

	plan, ok := s.plans.Get().FindTier(subscription.Tier)
	if !ok {
		return subscriptiondomain.ErrInvalidTier
	}

	_, err = s.creditSvc.Add(ctx, event.AgencyID, creditdomain.AddRequest{
		Amount:      plan.MonthlyCredits,
		Type:        creditdomain.TypeSubscriptionGrant,
		Description: "monthly allotment " + subscription.Tier,
		ReferenceID: event.ReferenceID,
	})
	if errors.Is(err, creditdomain.ErrDuplicateReference) {
		return nil
	}
	return err
}

func (s *Service) applySubscription(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	if event.AgencyID == 0 {
		return paymentdomain.ErrInvalidAgency
	}

	eventType := "customer.subscription.created"
	if event.Type == paymentdomain.EventTypeSubscriptionUpdated {
		eventType = "customer.subscription.updated"
	}

	_, err := s.subscriptionSvc.Upsert(ctx, subscriptiondomain.UpsertRequest{
		AgencyID:               event.AgencyID,
		ProviderSubscriptionID: event.ProviderSubscriptionID,
		Tier:                   event.Tier,
		Status:                 event.Status,
		PeriodEnd:              event.PeriodEnd,
		EventType:              eventType,
	})
	return err
}

func (s *Service) applyCancellation(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	if event.AgencyID == 0 {
		return paymentdomain.ErrInvalidAgency
	}

	_, err := s.subscriptionSvc.Cancel(ctx, subscriptiondomain.CancelRequest{
		AgencyID:  event.AgencyID,
		EventType: "customer.subscription.deleted",
	})
	return err
}

func (s *Service) recordMetric(event *paymentdomain.PaymentEvent, outcome string) {
	s.metrics.RecordPaymentEvent(event.Provider, event.Type, outcome)
}
