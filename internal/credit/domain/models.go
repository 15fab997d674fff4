package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Transaction types. Amounts are signed: grants and purchases are
// positive, consumption is negative.
const (
	TypePurchase          = "purchase"
	TypeSubscriptionGrant = "subscription_grant"
	TypeConsumption       = "consumption"
)

// Transaction is one append-only ledger row. BalanceAfter snapshots the
// agency balance right after the mutation.
type Transaction struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	AgencyID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_credit_transactions_reference,priority:1" json:"agency_id"`
	Type         string       `gorm:"not null" json:"type"`
	Amount       int64        `gorm:"not null" json:"amount"`
	BalanceAfter int64        `gorm:"not null" json:"balance_after"`
	ReferenceID  string       `gorm:"type:text;uniqueIndex:ux_credit_transactions_reference,priority:2,where:reference_id IS NOT NULL AND reference_id != ''" json:"reference_id,omitempty"`
	Description  string       `gorm:"type:text" json:"description,omitempty"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "credit_transactions" }

// Balance is the agency's credit position.
type Balance struct {
	AgencyID        snowflake.ID `json:"agency_id"`
	CreditBalance   int64        `json:"credit_balance"`
	IncludedCredits int64        `json:"included_credits"`
	CreditsUsed     int64        `json:"credits_used"`
}

// ReconcileReport compares the balance snapshot against the summed
// ledger amounts.
type ReconcileReport struct {
	AgencyID  snowflake.ID `json:"agency_id"`
	Snapshot  int64        `json:"snapshot"`
	LedgerSum int64        `json:"ledger_sum"`
	Drift     int64        `json:"drift"`
}

// Consistent reports whether the snapshot matches the ledger.
func (r ReconcileReport) Consistent() bool { return r.Drift == 0 }
