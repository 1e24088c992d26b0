package models

import "time"

// RoomStatus is the lifecycle state of an investment room.
//
// open -> ready -> investing -> closed. "open" accepts contributions,
// "ready" means the goal was reached, "investing" means an execution is
// running, "closed" is terminal. Deletion is only possible from "open".
type RoomStatus string

const (
	RoomStatusOpen      RoomStatus = "open"
	RoomStatusReady     RoomStatus = "ready"
	RoomStatusInvesting RoomStatus = "investing"
	RoomStatusClosed    RoomStatus = "closed"
)

// RoomVisibility controls whether a room appears in public discovery.
type RoomVisibility string

const (
	RoomVisibilityPublic  RoomVisibility = "public"
	RoomVisibilityPrivate RoomVisibility = "private"
)

// InvestmentRoom is the aggregate root of the pooled-investment lifecycle.
// CollectedAmount only ever grows while the room is open; refunds restore
// member wallets without rewriting the pool's history. Amounts are minor
// units.
type InvestmentRoom struct {
	Base
	Name            string         `gorm:"not null" json:"name"`
	Description     string         `json:"description"`
	GoalAmount      int64          `gorm:"type:bigint;not null" json:"goal_amount"`
	CollectedAmount int64          `gorm:"type:bigint;not null;default:0" json:"collected_amount"`
	MaxMembers      int            `gorm:"not null" json:"max_members"`
	CurrentMembers  int            `gorm:"not null;default:0" json:"current_members"`
	RiskLevel       string         `gorm:"not null" json:"risk_level"`
	InvestmentType  string         `gorm:"not null" json:"investment_type"`
	Status          RoomStatus     `gorm:"not null;default:'open'" json:"status"`
	Visibility      RoomVisibility `gorm:"not null;default:'public'" json:"visibility"`
	RoomCode        string         `gorm:"uniqueIndex;not null" json:"room_code"`
	CreatorID       string         `gorm:"type:uuid;index;not null" json:"creator_id"`
	HasExecution    bool           `gorm:"not null;default:false" json:"has_execution"`

	InvestmentStartDate *time.Time `json:"investment_start_date,omitempty"`
	ClosedAt            *time.Time `json:"closed_at,omitempty"`

	// Snapshot written when the investment is ended.
	FinalInvestedAmount  int64 `gorm:"type:bigint;not null;default:0" json:"final_invested_amount"`
	FinalPortfolioValue  int64 `gorm:"type:bigint;not null;default:0" json:"final_portfolio_value"`
	FinalProfit          int64 `gorm:"type:bigint;not null;default:0" json:"final_profit"`
}

// MemberStatus is the membership state within a room.
type MemberStatus string

const (
	MemberStatusActive MemberStatus = "active"
	MemberStatusLeft   MemberStatus = "left"
)

// RoomMember joins a user to a room. ContributionAmount is the member's
// cumulative stake in minor units; exactly one row exists per (room, user).
type RoomMember struct {
	Base
	RoomID             string       `gorm:"type:uuid;not null;uniqueIndex:idx_room_user" json:"room_id"`
	UserID             string       `gorm:"type:uuid;not null;uniqueIndex:idx_room_user" json:"user_id"`
	ContributionAmount int64        `gorm:"type:bigint;not null;default:0" json:"contribution_amount"`
	IsCreator          bool         `gorm:"not null;default:false" json:"is_creator"`
	Status             MemberStatus `gorm:"not null;default:'active'" json:"status"`
	JoinedAt           time.Time    `json:"joined_at"`
}
