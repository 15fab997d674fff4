package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/certifast/certifast/internal/clock"
	"github.com/certifast/certifast/internal/credit/domain"
	"github.com/certifast/certifast/internal/observability/metrics"
	"github.com/certifast/certifast/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("credit.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

// Deduct consumes credits. The balance never goes below zero; a short
// balance returns ErrInsufficientCredits and leaves no trace.
func (s *Service) Deduct(ctx context.Context, agencyID snowflake.ID, req domain.DeductRequest) (domain.Balance, error) {
	if agencyID == 0 {
		return domain.Balance{}, domain.ErrInvalidAgency
	}
	if req.Amount <= 0 {
		return domain.Balance{}, domain.ErrInvalidAmount
	}

	balance, err := s.mutate(ctx, agencyID, strings.TrimSpace(req.ReferenceID), func(current domain.Balance) (domain.Balance, domain.Transaction, error) {
		if current.CreditBalance < req.Amount {
			return domain.Balance{}, domain.Transaction{}, domain.ErrInsufficientCredits
		}
		next := current
		next.CreditBalance -= req.Amount
		next.CreditsUsed += req.Amount
		return next, domain.Transaction{
			Type:        domain.TypeConsumption,
			Amount:      -req.Amount,
			Description: strings.TrimSpace(req.Description),
		}, nil
	})
	if err != nil {
		return domain.Balance{}, err
	}

	s.metrics.RecordCreditTransaction(domain.TypeConsumption)
	return balance, nil
}

// Add grants credits from a purchase or a subscription renewal. A
// reference id already seen for the agency is a replayed event and
// returns ErrDuplicateReference without crediting twice.
func (s *Service) Add(ctx context.Context, agencyID snowflake.ID, req domain.AddRequest) (domain.Balance, error) {
	if agencyID == 0 {
		return domain.Balance{}, domain.ErrInvalidAgency
	}
	if req.Amount <= 0 {
		return domain.Balance{}, domain.ErrInvalidAmount
	}

	txType := strings.TrimSpace(req.Type)
	if txType != domain.TypePurchase && txType != domain.TypeSubscriptionGrant {
		return domain.Balance{}, domain.ErrInvalidType
	}

	balance, err := s.mutate(ctx, agencyID, strings.TrimSpace(req.ReferenceID), func(current domain.Balance) (domain.Balance, domain.Transaction, error) {
		next := current
		next.CreditBalance += req.Amount
		return next, domain.Transaction{
			Type:        txType,
			Amount:      req.Amount,
			Description: strings.TrimSpace(req.Description),
		}, nil
	})
	if err != nil {
		return domain.Balance{}, err
	}

	s.metrics.RecordCreditTransaction(txType)
	return balance, nil
}

// mutate runs one balance change: lock the agency row, apply the
// change, guard the snapshot update on the observed balance, append
// the ledger row. The unique reference index backstops the pre-check.
func (s *Service) mutate(
	ctx context.Context,
	agencyID snowflake.ID,
	referenceID string,
	apply func(domain.Balance) (domain.Balance, domain.Transaction, error),
) (domain.Balance, error) {
	var next domain.Balance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindBalanceForUpdate(ctx, tx, agencyID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}

		if referenceID != "" {
			exists, err := s.repo.ReferenceExists(ctx, tx, agencyID, referenceID)
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrDuplicateReference
			}
		}

		var txn domain.Transaction
		next, txn, err = apply(*current)
		if err != nil {
			return err
		}

		ok, err := s.repo.UpdateBalance(ctx, tx, agencyID, current.CreditBalance, next)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrConcurrentUpdate
		}

		txn.ID = s.genID.Generate()
		txn.AgencyID = agencyID
		txn.BalanceAfter = next.CreditBalance
		txn.ReferenceID = referenceID
		txn.CreatedAt = s.clock.Now()
		if err := s.repo.Insert(ctx, tx, &txn); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateReference
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Balance{}, err
	}

	s.log.Info("credit balance updated",
		zap.String("agency_id", agencyID.String()),
		zap.Int64("balance", next.CreditBalance),
	)
	return next, nil
}

func (s *Service) Balance(ctx context.Context, agencyID snowflake.ID) (domain.Balance, error) {
	if agencyID == 0 {
		return domain.Balance{}, domain.ErrInvalidAgency
	}
	balance, err := s.repo.FindBalanceForUpdate(ctx, s.db, agencyID)
	if err != nil {
		return domain.Balance{}, err
	}
	if balance == nil {
		return domain.Balance{}, domain.ErrNotFound
	}
	return *balance, nil
}

func (s *Service) Transactions(ctx context.Context, agencyID snowflake.ID, req domain.ListTransactionsRequest) ([]domain.Transaction, error) {
	if agencyID == 0 {
		return nil, domain.ErrInvalidAgency
	}

	types := make([]string, 0, len(req.Types))
	for _, txType := range req.Types {
		txType = strings.TrimSpace(txType)
		if txType == "" {
			continue
		}
		if txType != domain.TypePurchase && txType != domain.TypeSubscriptionGrant && txType != domain.TypeConsumption {
			return nil, domain.ErrInvalidType
		}
		types = append(types, txType)
	}
	req.Types = types

	return s.repo.List(ctx, s.db, agencyID, req)
}

func (s *Service) Transaction(ctx context.Context, agencyID snowflake.ID, id string) (domain.Transaction, error) {
	if agencyID == 0 {
		return domain.Transaction{}, domain.ErrInvalidAgency
	}
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return domain.Transaction{}, domain.ErrInvalidID
	}

	txn, err := s.repo.FindByID(ctx, s.db, agencyID, parsed)
	if err != nil {
		return domain.Transaction{}, err
	}
	if txn == nil {
		return domain.Transaction{}, domain.ErrNotFound
	}
	return *txn, nil
}

// Reconcile audits the snapshot against the summed ledger amounts.
// Drift means a write bypassed the ledger and needs investigation.
func (s *Service) Reconcile(ctx context.Context, agencyID snowflake.ID) (domain.ReconcileReport, error) {
	if agencyID == 0 {
		return domain.ReconcileReport{}, domain.ErrInvalidAgency
	}

	balance, err := s.repo.FindBalanceForUpdate(ctx, s.db, agencyID)
	if err != nil {
		return domain.ReconcileReport{}, err
	}
	if balance == nil {
		return domain.ReconcileReport{}, domain.ErrNotFound
	}

	sum, err := s.repo.SumAmounts(ctx, s.db, agencyID)
	if err != nil {
		return domain.ReconcileReport{}, err
	}

	report := domain.ReconcileReport{
		AgencyID:  agencyID,
		Snapshot:  balance.CreditBalance,
		LedgerSum: sum,
		Drift:     balance.CreditBalance - sum,
	}
	if !report.Consistent() {
		s.log.Warn("credit ledger drift",
			zap.String("agency_id", agencyID.String()),
			zap.Int64("snapshot", report.Snapshot),
			zap.Int64("ledger_sum", report.LedgerSum),
		)
	}
	return report, nil
}
