package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists transactions and the agency balance snapshot.
// Balance mutations go through UpdateBalance, which is conditional on
// the previously observed balance.
type Repository interface {
	FindBalanceForUpdate(ctx context.Context, db *gorm.DB, agencyID snowflake.ID) (*Balance, error)
	UpdateBalance(ctx context.Context, db *gorm.DB, agencyID snowflake.ID, observed int64, next Balance) (bool, error)
	ReferenceExists(ctx context.Context, db *gorm.DB, agencyID snowflake.ID, referenceID string) (bool, error)
	Insert(ctx context.Context, db *gorm.DB, txn *Transaction) error
	FindByID(ctx context.Context, db *gorm.DB, agencyID, id snowflake.ID) (*Transaction, error)
	List(ctx context.Context, db *gorm.DB, agencyID snowflake.ID, req ListTransactionsRequest) ([]Transaction, error)
	SumAmounts(ctx context.Context, db *gorm.DB, agencyID snowflake.ID) (int64, error)
}
