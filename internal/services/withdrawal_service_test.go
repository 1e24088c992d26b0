package services

import (
	"testing"

	"chamapool/internal/models"
	"chamapool/internal/pagination"
	"chamapool/internal/testutil"
)

func TestRequestWithdrawal(t *testing.T) {
	t.Run("creates_pending_without_debiting", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		wallets := NewWalletService(db)
		svc := NewWithdrawalService(db, wallets)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestWalletWithBalance(t, db, user.ID, 100_000_00)

		withdrawal, err := svc.RequestWithdrawal(user.ID, 40_000_00, "school fees")
		testutil.AssertNoError(t, err)

		if withdrawal.Status != models.WithdrawalPending {
			t.Errorf("expected pending status, got %s", withdrawal.Status)
		}
		if withdrawal.Reference == "" {
			t.Error("expected a reference")
		}

		wallet, err := wallets.GetWalletByUserID(nil, user.ID)
		testutil.AssertNoError(t, err)
		if wallet.Balance != 100_000_00 {
			t.Errorf("expected balance untouched at request time, got %d", wallet.Balance)
		}
	})

	t.Run("back_to_back_requests_get_distinct_references", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		wallets := NewWalletService(db)
		svc := NewWithdrawalService(db, wallets)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestWalletWithBalance(t, db, user.ID, 500_000_00)

		first, err := svc.RequestWithdrawal(user.ID, 10_000_00, "")
		testutil.AssertNoError(t, err)
		second, err := svc.RequestWithdrawal(user.ID, 20_000_00, "")
		testutil.AssertNoError(t, err)

		if first.Reference == second.Reference {
			t.Errorf("expected distinct references, both got %s", first.Reference)
		}
	})

	t.Run("below_minimum", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWithdrawalService(db, NewWalletService(db))

		_, err := svc.RequestWithdrawal("any", 50_00, "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("insufficient_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWithdrawalService(db, NewWalletService(db))
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestWalletWithBalance(t, db, user.ID, 10_000_00)

		_, err := svc.RequestWithdrawal(user.ID, 40_000_00, "")
		testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")
	})
}

func TestProcessWithdrawal(t *testing.T) {
	t.Run("debits_and_completes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		wallets := NewWalletService(db)
		svc := NewWithdrawalService(db, wallets)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestWalletWithBalance(t, db, user.ID, 100_000_00)

		withdrawal, err := svc.RequestWithdrawal(user.ID, 40_000_00, "")
		testutil.AssertNoError(t, err)

		processed, err := svc.ProcessWithdrawal(withdrawal.ID, "TRF-123")
		testutil.AssertNoError(t, err)
		if processed.Status != models.WithdrawalCompleted {
			t.Errorf("expected completed status, got %s", processed.Status)
		}
		if processed.ProcessedAt == nil {
			t.Error("expected processed_at to be set")
		}
		if processed.GatewayReference != "TRF-123" {
			t.Errorf("expected gateway reference, got %s", processed.GatewayReference)
		}

		wallet, err := wallets.GetWalletByUserID(nil, user.ID)
		testutil.AssertNoError(t, err)
		if wallet.Balance != 60_000_00 {
			t.Errorf("expected balance 6000000, got %d", wallet.Balance)
		}
		if wallet.TotalWithdrawn != 40_000_00 {
			t.Errorf("expected total_withdrawn 4000000, got %d", wallet.TotalWithdrawn)
		}

		tx, err := wallets.FindTransactionByReference(db, withdrawal.Reference)
		testutil.AssertNoError(t, err)
		if tx.Type != models.MutationWithdrawal || tx.Status != models.TransactionCompleted {
			t.Errorf("expected completed withdrawal transaction, got %s/%s", tx.Type, tx.Status)
		}
	})

	t.Run("balance_drained_before_processing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		wallets := NewWalletService(db)
		svc := NewWithdrawalService(db, wallets)
		user := testutil.CreateTestUser(t, db)
		wallet := testutil.CreateTestWalletWithBalance(t, db, user.ID, 40_000_00)

		withdrawal, err := svc.RequestWithdrawal(user.ID, 40_000_00, "")
		testutil.AssertNoError(t, err)

		// Funds moved elsewhere between request and processing.
		_, err = wallets.ApplyMutation(db, wallet.ID, 30_000_00, models.MutationContribution)
		testutil.AssertNoError(t, err)

		_, err = svc.ProcessWithdrawal(withdrawal.ID, "TRF-456")
		testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")

		var reloaded models.Withdrawal
		testutil.AssertNoError(t, db.Where("id = ?", withdrawal.ID).First(&reloaded).Error)
		if reloaded.Status != models.WithdrawalFailed {
			t.Errorf("expected failed status, got %s", reloaded.Status)
		}

		current, err := wallets.GetWalletByUserID(nil, user.ID)
		testutil.AssertNoError(t, err)
		if current.Balance != 10_000_00 {
			t.Errorf("expected balance untouched by failed processing, got %d", current.Balance)
		}
	})

	t.Run("not_pending", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		wallets := NewWalletService(db)
		svc := NewWithdrawalService(db, wallets)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestWalletWithBalance(t, db, user.ID, 100_000_00)

		withdrawal, err := svc.RequestWithdrawal(user.ID, 40_000_00, "")
		testutil.AssertNoError(t, err)
		_, err = svc.ProcessWithdrawal(withdrawal.ID, "TRF-1")
		testutil.AssertNoError(t, err)

		_, err = svc.ProcessWithdrawal(withdrawal.ID, "TRF-2")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestCancelWithdrawal(t *testing.T) {
	t.Run("owner_cancels_pending", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		wallets := NewWalletService(db)
		svc := NewWithdrawalService(db, wallets)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestWalletWithBalance(t, db, user.ID, 100_000_00)

		withdrawal, err := svc.RequestWithdrawal(user.ID, 40_000_00, "")
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, svc.CancelWithdrawal(user.ID, withdrawal.ID))

		var reloaded models.Withdrawal
		testutil.AssertNoError(t, db.Where("id = ?", withdrawal.ID).First(&reloaded).Error)
		if reloaded.Status != models.WithdrawalCancelled {
			t.Errorf("expected cancelled status, got %s", reloaded.Status)
		}
	})

	t.Run("other_user_forbidden", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		wallets := NewWalletService(db)
		svc := NewWithdrawalService(db, wallets)
		owner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		testutil.CreateTestWalletWithBalance(t, db, owner.ID, 100_000_00)

		withdrawal, err := svc.RequestWithdrawal(owner.ID, 40_000_00, "")
		testutil.AssertNoError(t, err)

		err = svc.CancelWithdrawal(other.ID, withdrawal.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("completed_not_cancelable", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		wallets := NewWalletService(db)
		svc := NewWithdrawalService(db, wallets)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestWalletWithBalance(t, db, user.ID, 100_000_00)

		withdrawal, err := svc.RequestWithdrawal(user.ID, 40_000_00, "")
		testutil.AssertNoError(t, err)
		_, err = svc.ProcessWithdrawal(withdrawal.ID, "TRF-1")
		testutil.AssertNoError(t, err)

		err = svc.CancelWithdrawal(user.ID, withdrawal.ID)
		testutil.AssertAppError(t, err, "WITHDRAWAL_NOT_CANCELABLE")
	})
}

func TestGetUserWithdrawals(t *testing.T) {
	t.Run("filters_by_status", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		wallets := NewWalletService(db)
		svc := NewWithdrawalService(db, wallets)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestWalletWithBalance(t, db, user.ID, 500_000_00)

		first, err := svc.RequestWithdrawal(user.ID, 40_000_00, "")
		testutil.AssertNoError(t, err)
		_, err = svc.RequestWithdrawal(user.ID, 20_000_00, "")
		testutil.AssertNoError(t, err)
		_, err = svc.ProcessWithdrawal(first.ID, "TRF-1")
		testutil.AssertNoError(t, err)

		status := models.WithdrawalPending
		page, err := svc.GetUserWithdrawals(user.ID, pagination.PageRequest{}, &status)
		testutil.AssertNoError(t, err)
		if page.TotalItems != 1 {
			t.Errorf("expected 1 pending withdrawal, got %d", page.TotalItems)
		}

		all, err := svc.GetUserWithdrawals(user.ID, pagination.PageRequest{}, nil)
		testutil.AssertNoError(t, err)
		if all.TotalItems != 2 {
			t.Errorf("expected 2 withdrawals, got %d", all.TotalItems)
		}
	})
}
