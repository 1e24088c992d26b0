package models

import "time"

// WithdrawalStatus is the lifecycle state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalCompleted  WithdrawalStatus = "completed"
	WithdrawalFailed     WithdrawalStatus = "failed"
	WithdrawalCancelled  WithdrawalStatus = "cancelled"
)

// Withdrawal is a request to move wallet funds out through the payment
// gateway. The wallet debit happens at processing time, not request time.
type Withdrawal struct {
	Base
	UserID           string           `gorm:"type:uuid;index;not null" json:"user_id"`
	Amount           int64            `gorm:"type:bigint;not null" json:"amount"`
	Status           WithdrawalStatus `gorm:"not null;default:'pending'" json:"status"`
	Reference        string           `gorm:"uniqueIndex;not null" json:"reference"`
	Reason           string           `json:"reason,omitempty"`
	GatewayReference string           `json:"gateway_reference,omitempty"`
	ProcessedAt      *time.Time       `json:"processed_at,omitempty"`
}
