package services

import (
	"gorm.io/gorm"

	"chamapool/internal/identity"
	"chamapool/internal/models"
	"chamapool/internal/pagination"
)

// Transaction amount bounds in minor units (KES 100 to KSh 1,000,000).
const (
	MinTransactionAmount int64 = 100_00
	MaxTransactionAmount int64 = 1_000_000_00
)

// UserServicer defines the contract for user resolution and profile data.
type UserServicer interface {
	GetOrCreateBySubject(principal *identity.Principal) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	GetUserStats(userID string) (*UserStats, error)
}

// UserStats aggregates a user's activity for the profile surface.
type UserStats struct {
	WalletBalance    int64 `json:"wallet_balance"`
	TotalContributed int64 `json:"total_contributed"`
	ActiveRooms      int64 `json:"active_rooms"`
	CreatedRooms     int64 `json:"created_rooms"`
}

// TransactionParams describes one ledger transaction to record.
type TransactionParams struct {
	UserID           string
	WalletID         string
	Type             models.MutationKind
	Amount           int64
	Reference        string
	Description      string
	RoomID           *string
	RoomName         string
	GatewayReference string
}

// WalletServicer is the ledger: the only component allowed to mutate wallet
// balances and record wallet transactions.
type WalletServicer interface {
	GetOrCreateWallet(userID string) (*models.Wallet, error)
	GetWalletByUserID(tx *gorm.DB, userID string) (*models.Wallet, error)
	ApplyMutation(tx *gorm.DB, walletID string, amount int64, kind models.MutationKind) (*models.Wallet, error)
	CreateTransaction(tx *gorm.DB, params TransactionParams) (*models.WalletTransaction, error)
	CompleteTransaction(tx *gorm.DB, transactionID string) error
	FindTransactionByReference(tx *gorm.DB, reference string) (*models.WalletTransaction, error)
	RecordDeposit(userID string, amount int64, reference, description, gatewayRef string) (*models.WalletTransaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, kind *models.MutationKind) (*pagination.PageResponse[models.WalletTransaction], error)
}

// RoomCreateInput carries the caller-supplied fields for a new room.
type RoomCreateInput struct {
	Name           string
	Description    string
	GoalAmount     int64
	MaxMembers     int
	RiskLevel      string
	InvestmentType string
	Visibility     models.RoomVisibility
}

// RoomUpdateFields holds optional updates; nil means leave unchanged.
type RoomUpdateFields struct {
	Name           *string
	Description    *string
	GoalAmount     *int64
	MaxMembers     *int
	RiskLevel      *string
	InvestmentType *string
	Visibility     *models.RoomVisibility
}

// RoomWithMembers is the room detail payload.
type RoomWithMembers struct {
	models.InvestmentRoom
	Members              []models.RoomMember `json:"members"`
	IsCurrentUserCreator bool                `json:"is_current_user_creator"`
}

// RoomServicer defines the contract for the room lifecycle state machine.
type RoomServicer interface {
	CreateRoom(creatorID string, in RoomCreateInput) (*models.InvestmentRoom, error)
	GetRoomByID(roomID string) (*models.InvestmentRoom, error)
	GetRoomByCode(code string) (*models.InvestmentRoom, error)
	ResolveRoom(idOrCode string) (*models.InvestmentRoom, error)
	GetRoomDetail(roomID, userID string) (*RoomWithMembers, error)
	GetUserRooms(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.InvestmentRoom], error)
	GetPublicRooms(page pagination.PageRequest) (*pagination.PageResponse[models.InvestmentRoom], error)
	GetRoomMembers(roomID string) ([]models.RoomMember, error)
	GetActiveMember(roomID, userID string) (*models.RoomMember, error)
	UpdateRoom(userID, roomID string, fields RoomUpdateFields) (*models.InvestmentRoom, error)
	JoinRoom(userID, idOrCode string) (*models.RoomMember, error)
	LeaveRoom(userID, roomID string) (refunded int64, err error)
	DeleteRoom(userID, roomID string) (refundedMembers int, err error)
	AddCollectedAmount(tx *gorm.DB, roomID string, amount int64) (*models.InvestmentRoom, error)
}

// ContributionStats aggregates a user's contribution history.
type ContributionStats struct {
	TotalContributed int64            `json:"total_contributed"`
	StatusCounts     map[string]int64 `json:"status_counts"`
	UniqueRooms      int64            `json:"unique_rooms"`
}

// ContributionServicer defines the contract for the contribution processor.
type ContributionServicer interface {
	Contribute(userID, roomID string, amount int64) (*models.Contribution, error)
	GetUserContributions(userID string, page pagination.PageRequest, status *models.ContributionStatus) (*pagination.PageResponse[models.Contribution], error)
	GetRoomContributions(roomID string, page pagination.PageRequest) (*pagination.PageResponse[models.Contribution], error)
	GetContributionStats(userID string) (*ContributionStats, error)
}

// AllocationInput is one caller-supplied asset line for an execution.
type AllocationInput struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Allocation float64 `json:"allocation"`
}

// VoteAggregate is the tally for a room's recommendation votes. Total is the
// room's current member count, not the number of votes cast.
type VoteAggregate struct {
	RoomID           string `json:"room_id"`
	RecommendationID string `json:"recommendation_id,omitempty"`
	Approve          int64  `json:"approve"`
	Reject           int64  `json:"reject"`
	Total            int    `json:"total"`
}

// StopAggregate is the tally for stop votes against the quorum threshold.
type StopAggregate struct {
	Votes     int64 `json:"votes"`
	Threshold int   `json:"threshold"`
}

// MemberPayout is one member's outcome in a distribution batch.
type MemberPayout struct {
	UserID    string `json:"user_id"`
	Stake     int64  `json:"stake"`
	Share     int64  `json:"share"`
	Disbursed bool   `json:"disbursed"`
}

// StopResult reports a stop-vote cast and any distribution it triggered.
type StopResult struct {
	Stopped   bool           `json:"stopped"`
	Votes     int64          `json:"votes"`
	Threshold int            `json:"threshold"`
	Payouts   []MemberPayout `json:"payouts,omitempty"`
}

// MemberDistribution is one member's outcome when an investment ends.
type MemberDistribution struct {
	UserID       string `json:"user_id"`
	Contribution int64  `json:"contribution"`
	ProfitShare  int64  `json:"profit_share"`
	Payout       int64  `json:"total_return"`
	Disbursed    bool   `json:"disbursed"`
}

// EndSummary reports the final accounting of a closed investment.
type EndSummary struct {
	TotalInvested int64                `json:"total_invested"`
	FinalValue    int64                `json:"final_value"`
	TotalProfit   int64                `json:"total_profit"`
	MembersCount  int                  `json:"members_count"`
	Distribution  []MemberDistribution `json:"profit_distribution"`
}

// InvestmentServicer defines the contract for investment execution, voting,
// and profit distribution.
type InvestmentServicer interface {
	ExecuteInvestment(userID, roomID string, allocations []AllocationInput) (*models.InvestmentExecution, error)
	GetAnalytics(roomID string) (*models.InvestmentAnalytics, error)
	CastVote(userID, roomID, recommendationID string, vote models.VoteChoice) (*models.RecommendationVote, error)
	GetVoteAggregate(roomID, recommendationID string) (*VoteAggregate, error)
	StopInvestment(userID, roomID, recommendationID, assetName string) (*StopResult, error)
	GetStopAggregate(roomID, recommendationID string) (*StopAggregate, error)
	EndInvestment(userID, roomID string) (*EndSummary, error)
}

// WithdrawalServicer defines the contract for wallet withdrawals.
type WithdrawalServicer interface {
	RequestWithdrawal(userID string, amount int64, reason string) (*models.Withdrawal, error)
	GetWithdrawal(userID, withdrawalID string) (*models.Withdrawal, error)
	ProcessWithdrawal(withdrawalID, gatewayRef string) (*models.Withdrawal, error)
	CancelWithdrawal(userID, withdrawalID string) error
	GetUserWithdrawals(userID string, page pagination.PageRequest, status *models.WithdrawalStatus) (*pagination.PageResponse[models.Withdrawal], error)
}
