package services

import (
	"testing"

	"chamapool/internal/models"
	"chamapool/internal/pagination"
	"chamapool/internal/testutil"
)

func TestGetOrCreateWallet(t *testing.T) {
	t.Run("creates_on_first_use", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)

		wallet, err := svc.GetOrCreateWallet(user.ID)
		testutil.AssertNoError(t, err)

		if wallet.Balance != 0 {
			t.Errorf("expected zero balance, got %d", wallet.Balance)
		}
		if wallet.Currency != "KES" {
			t.Errorf("expected KES currency, got %s", wallet.Currency)
		}
	})

	t.Run("returns_existing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)

		first, err := svc.GetOrCreateWallet(user.ID)
		testutil.AssertNoError(t, err)
		second, err := svc.GetOrCreateWallet(user.ID)
		testutil.AssertNoError(t, err)

		if first.ID != second.ID {
			t.Errorf("expected the same wallet, got %s and %s", first.ID, second.ID)
		}
	})

	t.Run("get_without_create", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.GetWalletByUserID(nil, user.ID)
		testutil.AssertAppError(t, err, "WALLET_NOT_FOUND")
	})
}

func TestApplyMutation(t *testing.T) {
	t.Run("deposit_credits_and_counts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		wallet := testutil.CreateTestWallet(t, db, user.ID)

		updated, err := svc.ApplyMutation(db, wallet.ID, 50_00, models.MutationDeposit)
		testutil.AssertNoError(t, err)

		if updated.Balance != 50_00 {
			t.Errorf("expected balance 5000, got %d", updated.Balance)
		}
		if updated.TotalDeposited != 50_00 {
			t.Errorf("expected total_deposited 5000, got %d", updated.TotalDeposited)
		}
	})

	t.Run("debit_below_zero_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		wallet := testutil.CreateTestWalletWithBalance(t, db, user.ID, 30_00)

		_, err := svc.ApplyMutation(db, wallet.ID, 50_00, models.MutationWithdrawal)
		testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")

		// Balance untouched.
		reloaded, err := svc.GetWalletByUserID(nil, user.ID)
		testutil.AssertNoError(t, err)
		if reloaded.Balance != 30_00 {
			t.Errorf("expected balance 3000, got %d", reloaded.Balance)
		}
	})

	t.Run("contribution_counts_as_withdrawn", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		wallet := testutil.CreateTestWalletWithBalance(t, db, user.ID, 100_00)

		updated, err := svc.ApplyMutation(db, wallet.ID, 40_00, models.MutationContribution)
		testutil.AssertNoError(t, err)

		if updated.Balance != 60_00 {
			t.Errorf("expected balance 6000, got %d", updated.Balance)
		}
		if updated.TotalWithdrawn != 40_00 {
			t.Errorf("expected total_withdrawn 4000, got %d", updated.TotalWithdrawn)
		}
	})

	t.Run("refund_restores_without_counters", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		wallet := testutil.CreateTestWallet(t, db, user.ID)

		updated, err := svc.ApplyMutation(db, wallet.ID, 25_00, models.MutationRefund)
		testutil.AssertNoError(t, err)

		if updated.Balance != 25_00 {
			t.Errorf("expected balance 2500, got %d", updated.Balance)
		}
		if updated.TotalDeposited != 0 || updated.TotalWithdrawn != 0 || updated.TotalReturns != 0 {
			t.Error("expected refund to leave all lifetime counters untouched")
		}
	})

	t.Run("return_counts_as_returns", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		wallet := testutil.CreateTestWallet(t, db, user.ID)

		updated, err := svc.ApplyMutation(db, wallet.ID, 10_00, models.MutationReturn)
		testutil.AssertNoError(t, err)

		if updated.TotalReturns != 10_00 {
			t.Errorf("expected total_returns 1000, got %d", updated.TotalReturns)
		}
	})

	t.Run("zero_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		wallet := testutil.CreateTestWallet(t, db, user.ID)

		_, err := svc.ApplyMutation(db, wallet.ID, 0, models.MutationDeposit)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("unknown_kind", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		wallet := testutil.CreateTestWallet(t, db, user.ID)

		_, err := svc.ApplyMutation(db, wallet.ID, 10_00, models.MutationKind("bonus"))
		testutil.AssertAppError(t, err, "INVALID_MUTATION_KIND")
	})
}

func TestCreateWalletTransaction(t *testing.T) {
	t.Run("records_pending", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		wallet := testutil.CreateTestWallet(t, db, user.ID)

		tx, err := svc.CreateTransaction(db, TransactionParams{
			UserID:    user.ID,
			WalletID:  wallet.ID,
			Type:      models.MutationDeposit,
			Amount:    50_00,
			Reference: "TOP-AAAA1111",
		})
		testutil.AssertNoError(t, err)

		if tx.Status != models.TransactionPending {
			t.Errorf("expected pending status, got %s", tx.Status)
		}
	})

	t.Run("duplicate_reference_returns_original", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		wallet := testutil.CreateTestWallet(t, db, user.ID)

		first, err := svc.CreateTransaction(db, TransactionParams{
			UserID: user.ID, WalletID: wallet.ID,
			Type: models.MutationDeposit, Amount: 50_00, Reference: "TOP-BBBB2222",
		})
		testutil.AssertNoError(t, err)

		// Replay with a different amount must not create a second record.
		second, err := svc.CreateTransaction(db, TransactionParams{
			UserID: user.ID, WalletID: wallet.ID,
			Type: models.MutationDeposit, Amount: 99_00, Reference: "TOP-BBBB2222",
		})
		testutil.AssertNoError(t, err)

		if second.ID != first.ID {
			t.Errorf("expected the original record, got %s and %s", first.ID, second.ID)
		}
		if second.Amount != 50_00 {
			t.Errorf("expected original amount 5000, got %d", second.Amount)
		}

		var count int64
		db.Model(&models.WalletTransaction{}).Where("reference = ?", "TOP-BBBB2222").Count(&count)
		if count != 1 {
			t.Errorf("expected 1 transaction row, got %d", count)
		}
	})

	t.Run("empty_reference", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		wallet := testutil.CreateTestWallet(t, db, user.ID)

		_, err := svc.CreateTransaction(db, TransactionParams{
			UserID: user.ID, WalletID: wallet.ID,
			Type: models.MutationDeposit, Amount: 50_00,
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("complete_stamps_time", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		wallet := testutil.CreateTestWallet(t, db, user.ID)

		tx, err := svc.CreateTransaction(db, TransactionParams{
			UserID: user.ID, WalletID: wallet.ID,
			Type: models.MutationDeposit, Amount: 50_00, Reference: "TOP-CCCC3333",
		})
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, svc.CompleteTransaction(db, tx.ID))

		reloaded, err := svc.FindTransactionByReference(db, "TOP-CCCC3333")
		testutil.AssertNoError(t, err)
		if reloaded.Status != models.TransactionCompleted {
			t.Errorf("expected completed status, got %s", reloaded.Status)
		}
		if reloaded.CompletedAt == nil {
			t.Error("expected completed_at to be set")
		}
	})
}

func TestRecordDeposit(t *testing.T) {
	t.Run("credits_wallet_once", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)

		tx, err := svc.RecordDeposit(user.ID, 200_00, "PSK-REF-1", "Wallet top-up", "PSK-REF-1")
		testutil.AssertNoError(t, err)
		if tx.Status != models.TransactionCompleted {
			t.Errorf("expected completed status, got %s", tx.Status)
		}

		// A duplicate webhook delivery settles nothing new.
		replay, err := svc.RecordDeposit(user.ID, 200_00, "PSK-REF-1", "Wallet top-up", "PSK-REF-1")
		testutil.AssertNoError(t, err)
		if replay.ID != tx.ID {
			t.Error("expected the original transaction on replay")
		}

		wallet, err := svc.GetWalletByUserID(nil, user.ID)
		testutil.AssertNoError(t, err)
		if wallet.Balance != 200_00 {
			t.Errorf("expected balance 20000, got %d", wallet.Balance)
		}
		if wallet.TotalDeposited != 200_00 {
			t.Errorf("expected total_deposited 20000, got %d", wallet.TotalDeposited)
		}
	})
}

func TestGetUserTransactions(t *testing.T) {
	t.Run("filters_by_kind", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewWalletService(db)
		user := testutil.CreateTestUser(t, db)
		wallet := testutil.CreateTestWallet(t, db, user.ID)

		for i, kind := range []models.MutationKind{models.MutationDeposit, models.MutationDeposit, models.MutationRefund} {
			_, err := svc.CreateTransaction(db, TransactionParams{
				UserID: user.ID, WalletID: wallet.ID,
				Type: kind, Amount: 10_00, Reference: "LST-" + string(rune('A'+i)),
			})
			testutil.AssertNoError(t, err)
		}

		kind := models.MutationDeposit
		page, err := svc.GetUserTransactions(user.ID, pagination.PageRequest{}, &kind)
		testutil.AssertNoError(t, err)
		if page.TotalItems != 2 {
			t.Errorf("expected 2 deposits, got %d", page.TotalItems)
		}

		all, err := svc.GetUserTransactions(user.ID, pagination.PageRequest{}, nil)
		testutil.AssertNoError(t, err)
		if all.TotalItems != 3 {
			t.Errorf("expected 3 transactions, got %d", all.TotalItems)
		}
	})
}
