package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/certifast/certifast/internal/clock"
	"github.com/certifast/certifast/internal/config"
	"github.com/certifast/certifast/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Plans *config.PlanCatalogHolder
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	plans *config.PlanCatalogHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscription.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		plans: p.Plans,
	}
}

func (s *Service) Get(ctx context.Context, agencyID snowflake.ID) (domain.Subscription, error) {
	if agencyID == 0 {
		return domain.Subscription{}, domain.ErrInvalidAgency
	}
	subscription, err := s.repo.FindByAgency(ctx, s.db, agencyID, false)
	if err != nil {
		return domain.Subscription{}, err
	}
	if subscription == nil {
		return domain.Subscription{}, domain.ErrNotFound
	}
	return *subscription, nil
}

func (s *Service) History(ctx context.Context, agencyID snowflake.ID) ([]domain.History, error) {
	if agencyID == 0 {
		return nil, domain.ErrInvalidAgency
	}
	return s.repo.ListHistory(ctx, s.db, agencyID)
}

func (s *Service) Upsert(ctx context.Context, req domain.UpsertRequest) (domain.Subscription, error) {
	if req.AgencyID == 0 {
		return domain.Subscription{}, domain.ErrInvalidAgency
	}

	tier := strings.ToLower(strings.TrimSpace(req.Tier))
	plan, ok := s.plans.Get().FindTier(tier)
	if !ok {
		return domain.Subscription{}, domain.ErrInvalidTier
	}

	status := strings.ToLower(strings.TrimSpace(req.Status))
	switch status {
	case domain.StatusActive, domain.StatusTrialing, domain.StatusPastDue, domain.StatusCanceled:
	default:
		return domain.Subscription{}, domain.ErrInvalidStatus
	}

	var result domain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		existing, err := s.repo.FindByAgency(ctx, tx, req.AgencyID, true)
		if err != nil {
			return err
		}

		if existing == nil {
			result = domain.Subscription{
				ID:                     s.genID.Generate(),
				AgencyID:               req.AgencyID,
				ProviderSubscriptionID: strings.TrimSpace(req.ProviderSubscriptionID),
				Tier:                   tier,
				Status:                 status,
				CurrentPeriodEnd:       req.PeriodEnd,
				CreatedAt:              now,
				UpdatedAt:              now,
			}
			if err := s.repo.Insert(ctx, tx, &result); err != nil {
				return err
			}
		} else {
			existing.Tier = tier
			existing.Status = status
			existing.UpdatedAt = now
			if trimmed := strings.TrimSpace(req.ProviderSubscriptionID); trimmed != "" {
				existing.ProviderSubscriptionID = trimmed
			}
			if req.PeriodEnd != nil {
				existing.CurrentPeriodEnd = req.PeriodEnd
			}
			if err := s.repo.Update(ctx, tx, existing); err != nil {
				return err
			}
			result = *existing
		}

		included := plan.MonthlyCredits
		if status == domain.StatusCanceled {
			included = 0
		}
		if err := s.repo.UpdateAgencyPlan(ctx, tx, req.AgencyID, tier, included); err != nil {
			return err
		}

		return s.repo.InsertHistory(ctx, tx, &domain.History{
			ID:             s.genID.Generate(),
			AgencyID:       req.AgencyID,
			SubscriptionID: result.ID,
			EventType:      strings.TrimSpace(req.EventType),
			Tier:           tier,
			Status:         status,
			PeriodEnd:      result.CurrentPeriodEnd,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return domain.Subscription{}, err
	}

	s.log.Info("subscription upserted",
		zap.String("agency_id", req.AgencyID.String()),
		zap.String("tier", tier),
		zap.String("status", status),
	)
	return result, nil
}

func (s *Service) Renew(ctx context.Context, req domain.RenewRequest) (domain.Subscription, error) {
	if req.AgencyID == 0 {
		return domain.Subscription{}, domain.ErrInvalidAgency
	}

	var result domain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByAgency(ctx, tx, req.AgencyID, true)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}

		plan, ok := s.plans.Get().FindTier(existing.Tier)
		if !ok {
			return domain.ErrInvalidTier
		}

		now := s.clock.Now()
		existing.Status = domain.StatusActive
		existing.UpdatedAt = now
		if req.PeriodEnd != nil {
			existing.CurrentPeriodEnd = req.PeriodEnd
		}
		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return err
		}

		if err := s.repo.UpdateAgencyPlan(ctx, tx, req.AgencyID, existing.Tier, plan.MonthlyCredits); err != nil {
			return err
		}

		result = *existing
		return s.repo.InsertHistory(ctx, tx, &domain.History{
			ID:             s.genID.Generate(),
			AgencyID:       req.AgencyID,
			SubscriptionID: existing.ID,
			EventType:      strings.TrimSpace(req.EventType),
			Tier:           existing.Tier,
			Status:         existing.Status,
			PeriodEnd:      existing.CurrentPeriodEnd,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return domain.Subscription{}, err
	}
	return result, nil
}

func (s *Service) Cancel(ctx context.Context, req domain.CancelRequest) (domain.Subscription, error) {
	if req.AgencyID == 0 {
		return domain.Subscription{}, domain.ErrInvalidAgency
	}

	var result domain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByAgency(ctx, tx, req.AgencyID, true)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}

		now := s.clock.Now()
		existing.Status = domain.StatusCanceled
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return err
		}

		// Included allotment stops; purchased credits stay spendable.
		if err := s.repo.UpdateAgencyPlan(ctx, tx, req.AgencyID, existing.Tier, 0); err != nil {
			return err
		}

		result = *existing
		return s.repo.InsertHistory(ctx, tx, &domain.History{
			ID:             s.genID.Generate(),
			AgencyID:       req.AgencyID,
			SubscriptionID: existing.ID,
			EventType:      strings.TrimSpace(req.EventType),
			Tier:           existing.Tier,
			Status:         domain.StatusCanceled,
			PeriodEnd:      existing.CurrentPeriodEnd,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return domain.Subscription{}, err
	}

	s.log.Info("subscription canceled", zap.String("agency_id", req.AgencyID.String()))
	return result, nil
}
