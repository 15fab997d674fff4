package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type DeductRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ReferenceID string `json:"reference_id"`
}

type AddRequest struct {
	Amount      int64  `json:"amount"`
	Type        string `json:"type"`
	Description string `json:"description"`
	ReferenceID string `json:"reference_id"`
}

type ListTransactionsRequest struct {
	Types []string
	Limit int
}

// Service is the append-only credit ledger. The agency id is explicit
// so webhook reconciliation can act on behalf of any tenant.
type Service interface {
	Deduct(ctx context.Context, agencyID snowflake.ID, req DeductRequest) (Balance, error)
	Add(ctx context.Context, agencyID snowflake.ID, req AddRequest) (Balance, error)
	Balance(ctx context.Context, agencyID snowflake.ID) (Balance, error)
	Transactions(ctx context.Context, agencyID snowflake.ID, req ListTransactionsRequest) ([]Transaction, error)
	Transaction(ctx context.Context, agencyID snowflake.ID, id string) (Transaction, error)
	Reconcile(ctx context.Context, agencyID snowflake.ID) (ReconcileReport, error)
}

var (
	ErrInvalidAgency       = errors.New("invalid_agency")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidType         = errors.New("invalid_transaction_type")
	ErrInsufficientCredits = errors.New("insufficient_credits")
	ErrDuplicateReference  = errors.New("duplicate_reference")
	ErrNotFound            = errors.New("not_found")
	ErrConcurrentUpdate    = errors.New("concurrent_balance_update")
)
