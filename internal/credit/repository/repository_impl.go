package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/certifast/certifast/internal/credit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindBalanceForUpdate(ctx context.Context, db *gorm.DB, agencyID snowflake.ID) (*domain.Balance, error) {
	query := `SELECT id AS agency_id, credit_balance, included_credits, credits_used
	 FROM agencies
	 WHERE id = ?
	 LIMIT 1`
	if db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var balance domain.Balance
	if err := db.WithContext(ctx).Raw(query, agencyID).Scan(&balance).Error; err != nil {
		return nil, err
	}
	if balance.AgencyID == 0 {
		return nil, nil
	}
	return &balance, nil
}

// UpdateBalance applies the new snapshot only when the stored balance
// still matches the observed one. The row lock makes this a formality
// on postgres; on sqlite it is the actual guard.
func (r *repo) UpdateBalance(ctx context.Context, db *gorm.DB, agencyID snowflake.ID, observed int64, next domain.Balance) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE agencies
		 SET credit_balance = ?, included_credits = ?, credits_used = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND credit_balance = ?`,
		next.CreditBalance,
		next.IncludedCredits,
		next.CreditsUsed,
		agencyID,
		observed,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ReferenceExists(ctx context.Context, db *gorm.DB, agencyID snowflake.ID, referenceID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("agency_id = ? AND reference_id = ?", agencyID, referenceID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, txn *domain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO credit_transactions (id, agency_id, type, amount, balance_after, reference_id, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.AgencyID,
		txn.Type,
		txn.Amount,
		txn.BalanceAfter,
		txn.ReferenceID,
		txn.Description,
		txn.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, agencyID, id snowflake.ID) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM credit_transactions WHERE id = ? AND agency_id = ? LIMIT 1`,
		id, agencyID,
	).Scan(&txn).Error
	if err != nil {
		return nil, err
	}
	if txn.ID == 0 {
		return nil, nil
	}
	return &txn, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, agencyID snowflake.ID, req domain.ListTransactionsRequest) ([]domain.Transaction, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("agency_id = ?", agencyID)
	if len(req.Types) > 0 {
		stmt = stmt.Where("type IN ?", req.Types)
	}
	stmt = stmt.Order("created_at desc, id desc")
	if req.Limit > 0 {
		stmt = stmt.Limit(req.Limit)
	}

	var txns []domain.Transaction
	if err := stmt.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repo) SumAmounts(ctx context.Context, db *gorm.DB, agencyID snowflake.ID) (int64, error) {
	var sum int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM credit_transactions WHERE agency_id = ?`,
		agencyID,
	).Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}
