package models

import "time"

// ContributionStatus is the lifecycle state of a contribution. Contributions
// are processed synchronously: pending is never a steady state. A completed
// contribution becomes refunded once its funds are returned to the wallet,
// which removes it from every stake and settlement sum.
type ContributionStatus string

const (
	ContributionPending   ContributionStatus = "pending"
	ContributionCompleted ContributionStatus = "completed"
	ContributionFailed    ContributionStatus = "failed"
	ContributionRefunded  ContributionStatus = "refunded"
)

// Contribution records one funding event from a member's wallet into a
// room's pool. TransactionID doubles as the ledger idempotency reference.
type Contribution struct {
	Base
	RoomID        string             `gorm:"type:uuid;index;not null" json:"room_id"`
	UserID        string             `gorm:"type:uuid;index;not null" json:"user_id"`
	Amount        int64              `gorm:"type:bigint;not null" json:"amount"`
	Status        ContributionStatus `gorm:"not null;default:'pending'" json:"status"`
	TransactionID string             `gorm:"uniqueIndex;not null" json:"transaction_id"`
	PaymentMethod string             `gorm:"not null;default:'wallet'" json:"payment_method"`
	FailureReason string             `json:"failure_reason,omitempty"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
}
