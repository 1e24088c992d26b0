package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"chamapool/internal/models"

	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a unique subject and email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	n := nextID()
	user := &models.User{
		Subject:     fmt.Sprintf("subject-%d", n),
		Email:       fmt.Sprintf("user%d@test.com", n),
		DisplayName: fmt.Sprintf("Test User %d", n),
		IsActive:    true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestWallet creates a wallet with zero balance.
func CreateTestWallet(t *testing.T, db *gorm.DB, userID string) *models.Wallet {
	t.Helper()
	return CreateTestWalletWithBalance(t, db, userID, 0)
}

// CreateTestWalletWithBalance creates a wallet with the given balance (in
// minor units).
func CreateTestWalletWithBalance(t *testing.T, db *gorm.DB, userID string, balance int64) *models.Wallet {
	t.Helper()

	wallet := &models.Wallet{
		UserID:   userID,
		Balance:  balance,
		Currency: "KES",
	}
	if err := db.Create(wallet).Error; err != nil {
		t.Fatalf("failed to create test wallet: %v", err)
	}
	return wallet
}

// CreateTestRoom creates an open room with the creator as its first active
// member.
func CreateTestRoom(t *testing.T, db *gorm.DB, creatorID string, goalAmount int64, maxMembers int) *models.InvestmentRoom {
	t.Helper()

	room := &models.InvestmentRoom{
		Name:           fmt.Sprintf("Test Room %d", nextID()),
		GoalAmount:     goalAmount,
		MaxMembers:     maxMembers,
		CurrentMembers: 1,
		RiskLevel:      "moderate",
		InvestmentType: "mixed",
		Status:         models.RoomStatusOpen,
		Visibility:     models.RoomVisibilityPublic,
		RoomCode:       fmt.Sprintf("ROOM-T%05d", nextID()),
		CreatorID:      creatorID,
	}
	if err := db.Create(room).Error; err != nil {
		t.Fatalf("failed to create test room: %v", err)
	}

	member := &models.RoomMember{
		RoomID:    room.ID,
		UserID:    creatorID,
		IsCreator: true,
		Status:    models.MemberStatusActive,
		JoinedAt:  time.Now(),
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create creator membership: %v", err)
	}

	return room
}

// AddTestMember adds an active member to a room and bumps the member count.
func AddTestMember(t *testing.T, db *gorm.DB, roomID, userID string) *models.RoomMember {
	t.Helper()

	member := &models.RoomMember{
		RoomID:   roomID,
		UserID:   userID,
		Status:   models.MemberStatusActive,
		JoinedAt: time.Now(),
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test member: %v", err)
	}
	if err := db.Model(&models.InvestmentRoom{}).
		Where("id = ?", roomID).
		Update("current_members", gorm.Expr("current_members + 1")).Error; err != nil {
		t.Fatalf("failed to bump member count: %v", err)
	}
	return member
}

// CreateTestContribution creates a completed contribution and mirrors it on
// the member's stake and the room's collected amount, the way the
// contribution processor would.
func CreateTestContribution(t *testing.T, db *gorm.DB, roomID, userID string, amount int64) *models.Contribution {
	t.Helper()

	now := time.Now()
	contribution := &models.Contribution{
		RoomID:        roomID,
		UserID:        userID,
		Amount:        amount,
		Status:        models.ContributionCompleted,
		TransactionID: fmt.Sprintf("CTB-TEST-%d", nextID()),
		PaymentMethod: "wallet",
		CompletedAt:   &now,
	}
	if err := db.Create(contribution).Error; err != nil {
		t.Fatalf("failed to create test contribution: %v", err)
	}

	if err := db.Model(&models.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("contribution_amount", gorm.Expr("contribution_amount + ?", amount)).Error; err != nil {
		t.Fatalf("failed to bump member stake: %v", err)
	}
	if err := db.Model(&models.InvestmentRoom{}).
		Where("id = ?", roomID).
		Update("collected_amount", gorm.Expr("collected_amount + ?", amount)).Error; err != nil {
		t.Fatalf("failed to bump collected amount: %v", err)
	}

	return contribution
}

// CreateTestAnalytics creates an analytics snapshot with a flat series ending
// at finalValue.
func CreateTestAnalytics(t *testing.T, db *gorm.DB, roomID string, invested, finalValue int64) *models.InvestmentAnalytics {
	t.Helper()

	analytics := &models.InvestmentAnalytics{
		RoomID:         roomID,
		InvestedAmount: invested,
		Series: models.PerformanceSeries{
			{Period: 0, Value: invested},
			{Period: 1, Value: finalValue},
		},
		Breakdown: models.AllocationBreakdown{
			{ID: "asset-1", Name: "Test Asset", Allocation: 100, Amount: invested, Color: "#0ea5e9"},
		},
	}
	if err := db.Create(analytics).Error; err != nil {
		t.Fatalf("failed to create test analytics: %v", err)
	}
	return analytics
}

// SetRoomStatus updates a room's lifecycle state directly.
func SetRoomStatus(t *testing.T, db *gorm.DB, roomID string, status models.RoomStatus) {
	t.Helper()

	if err := db.Model(&models.InvestmentRoom{}).
		Where("id = ?", roomID).
		Update("status", status).Error; err != nil {
		t.Fatalf("failed to set room status: %v", err)
	}
}
