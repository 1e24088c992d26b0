package models

import "time"

// Wallet holds a user's platform balance. All amounts are integer minor
// units (cents). The running counters are monotonically non-decreasing;
// only the ledger (wallet service) may mutate any of these fields.
type Wallet struct {
	Base
	UserID         string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Balance        int64  `gorm:"type:bigint;not null;default:0" json:"balance"`
	TotalDeposited int64  `gorm:"type:bigint;not null;default:0" json:"total_deposited"`
	TotalWithdrawn int64  `gorm:"type:bigint;not null;default:0" json:"total_withdrawn"`
	TotalReturns   int64  `gorm:"type:bigint;not null;default:0" json:"total_returns"`
	Currency       string `gorm:"not null;default:'KES'" json:"currency"`
}

// MutationKind classifies a wallet balance mutation.
type MutationKind string

const (
	MutationDeposit      MutationKind = "deposit"
	MutationWithdrawal   MutationKind = "withdrawal"
	MutationContribution MutationKind = "contribution"
	MutationReturn       MutationKind = "return"
	MutationRefund       MutationKind = "refund"
)

// Credits reports whether the mutation adds to the balance.
func (k MutationKind) Credits() bool {
	switch k {
	case MutationDeposit, MutationReturn, MutationRefund:
		return true
	}
	return false
}

// Valid reports whether the kind is one of the known mutation kinds.
func (k MutationKind) Valid() bool {
	switch k {
	case MutationDeposit, MutationWithdrawal, MutationContribution, MutationReturn, MutationRefund:
		return true
	}
	return false
}

// TransactionStatus is the lifecycle state of a wallet transaction.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// WalletTransaction is the immutable audit record of one balance mutation.
// Reference is a caller-supplied or deterministically derived idempotency
// key; creating a transaction with an existing reference returns the prior
// record unchanged.
type WalletTransaction struct {
	Base
	UserID           string            `gorm:"type:uuid;index;not null" json:"user_id"`
	WalletID         string            `gorm:"type:uuid;index;not null" json:"wallet_id"`
	Type             MutationKind      `gorm:"not null" json:"type"`
	Amount           int64             `gorm:"type:bigint;not null" json:"amount"`
	Status           TransactionStatus `gorm:"not null;default:'pending'" json:"status"`
	Reference        string            `gorm:"uniqueIndex;not null" json:"reference"`
	Description      string            `json:"description"`
	RoomID           *string           `gorm:"type:uuid;index" json:"room_id,omitempty"`
	RoomName         string            `json:"room_name,omitempty"`
	GatewayReference string            `json:"gateway_reference,omitempty"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
}
