package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "chamapool/internal/errors"
	"chamapool/internal/logger"
	"chamapool/internal/models"
	"chamapool/internal/pagination"
)

// walletService is the ledger. Every balance change in the system flows
// through ApplyMutation so the non-negative invariant and lifetime counters
// are enforced in one place.
type walletService struct {
	db *gorm.DB
}

// NewWalletService creates a new WalletServicer.
func NewWalletService(db *gorm.DB) WalletServicer {
	return &walletService{db: db}
}

// GetOrCreateWallet returns the user's wallet, creating it on first use.
func (s *walletService) GetOrCreateWallet(userID string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.Where("user_id = ?", userID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	wallet = models.Wallet{
		UserID:   userID,
		Balance:  0,
		Currency: "KES",
	}
	if err := s.db.Create(&wallet).Error; err != nil {
		// Lost a race against a concurrent first use; fetch the winner's row.
		var existing models.Wallet
		if ferr := s.db.Where("user_id = ?", userID).First(&existing).Error; ferr == nil {
			return &existing, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &wallet, nil
}

// GetWalletByUserID retrieves a wallet without creating one. A nil tx reads
// outside any transaction; callers holding a transaction must pass it so the
// read happens on the same connection.
func (s *walletService) GetWalletByUserID(tx *gorm.DB, userID string) (*models.Wallet, error) {
	if tx == nil {
		tx = s.db
	}
	var wallet models.Wallet
	if err := tx.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &wallet, nil
}

// ApplyMutation applies a single balance mutation of the given kind. Amount
// must be positive; the kind determines direction. Debits that would take the
// balance below zero fail with ErrInsufficientFunds and leave the wallet
// untouched. Lifetime counters move with the kind: deposits bump
// total_deposited, withdrawals and contributions bump total_withdrawn,
// returns bump total_returns. Refunds restore balance without touching any
// counter so lifetime totals stay meaningful.
func (s *walletService) ApplyMutation(tx *gorm.DB, walletID string, amount int64, kind models.MutationKind) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !kind.Valid() {
		return nil, apperrors.ErrInvalidMutationKind
	}

	var wallet models.Wallet
	if err := tx.Where("id = ?", walletID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if kind.Credits() {
		wallet.Balance += amount
		updates["balance"] = gorm.Expr("balance + ?", amount)
	} else {
		if wallet.Balance < amount {
			return nil, apperrors.ErrInsufficientFunds
		}
		wallet.Balance -= amount
		updates["balance"] = gorm.Expr("balance - ?", amount)
	}

	switch kind {
	case models.MutationDeposit:
		wallet.TotalDeposited += amount
		updates["total_deposited"] = gorm.Expr("total_deposited + ?", amount)
	case models.MutationWithdrawal, models.MutationContribution:
		wallet.TotalWithdrawn += amount
		updates["total_withdrawn"] = gorm.Expr("total_withdrawn + ?", amount)
	case models.MutationReturn:
		wallet.TotalReturns += amount
		updates["total_returns"] = gorm.Expr("total_returns + ?", amount)
	case models.MutationRefund:
		// Balance only.
	}

	q := tx.Model(&models.Wallet{}).Where("id = ?", walletID)
	if !kind.Credits() {
		// Guard against a concurrent debit racing past the loaded balance.
		q = q.Where("balance >= ?", amount)
	}
	result := q.Updates(updates)
	if result.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrInsufficientFunds
	}

	return &wallet, nil
}

// CreateTransaction records a pending ledger transaction. References are
// unique: replaying an already-recorded reference returns the original record
// unchanged, which makes retried disbursements and duplicate webhook
// deliveries safe.
func (s *walletService) CreateTransaction(tx *gorm.DB, params TransactionParams) (*models.WalletTransaction, error) {
	if params.Reference == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction reference is required")
	}
	if !params.Type.Valid() {
		return nil, apperrors.ErrInvalidMutationKind
	}

	existing, err := s.FindTransactionByReference(tx, params.Reference)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrTransactionNotFound) {
		return nil, err
	}

	transaction := &models.WalletTransaction{
		UserID:           params.UserID,
		WalletID:         params.WalletID,
		Type:             params.Type,
		Amount:           params.Amount,
		Status:           models.TransactionPending,
		Reference:        params.Reference,
		Description:      params.Description,
		RoomID:           params.RoomID,
		RoomName:         params.RoomName,
		GatewayReference: params.GatewayReference,
	}
	if err := tx.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

// CompleteTransaction marks a pending transaction completed and stamps the
// completion time.
func (s *walletService) CompleteTransaction(tx *gorm.DB, transactionID string) error {
	now := time.Now()
	result := tx.Model(&models.WalletTransaction{}).
		Where("id = ?", transactionID).
		Updates(map[string]interface{}{
			"status":       models.TransactionCompleted,
			"completed_at": &now,
		})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

// FindTransactionByReference looks up a ledger transaction by its unique
// reference.
func (s *walletService) FindTransactionByReference(tx *gorm.DB, reference string) (*models.WalletTransaction, error) {
	if tx == nil {
		tx = s.db
	}
	var transaction models.WalletTransaction
	if err := tx.Where("reference = ?", reference).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// RecordDeposit credits a settled gateway payment into the user's wallet.
// The gateway reference doubles as the ledger reference, so webhook retries
// and a verify racing the webhook settle the same deposit exactly once.
func (s *walletService) RecordDeposit(userID string, amount int64, reference, description, gatewayRef string) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	wallet, err := s.GetOrCreateWallet(userID)
	if err != nil {
		return nil, err
	}

	var transaction *models.WalletTransaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		existing, ferr := s.FindTransactionByReference(tx, reference)
		if ferr == nil {
			transaction = existing
			return nil
		}
		if !errors.Is(ferr, apperrors.ErrTransactionNotFound) {
			return ferr
		}

		if _, merr := s.ApplyMutation(tx, wallet.ID, amount, models.MutationDeposit); merr != nil {
			return merr
		}

		var cerr error
		transaction, cerr = s.CreateTransaction(tx, TransactionParams{
			UserID:           userID,
			WalletID:         wallet.ID,
			Type:             models.MutationDeposit,
			Amount:           amount,
			Reference:        reference,
			Description:      description,
			GatewayReference: gatewayRef,
		})
		if cerr != nil {
			return cerr
		}
		if derr := s.CompleteTransaction(tx, transaction.ID); derr != nil {
			return derr
		}
		now := time.Now()
		transaction.Status = models.TransactionCompleted
		transaction.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("deposit recorded",
		"user_id", userID,
		"amount", amount,
		"reference", reference,
	)
	return transaction, nil
}

// GetUserTransactions retrieves a paginated list of a user's ledger
// transactions, newest first, optionally filtered by mutation kind.
func (s *walletService) GetUserTransactions(userID string, page pagination.PageRequest, kind *models.MutationKind) (*pagination.PageResponse[models.WalletTransaction], error) {
	page.Defaults()

	base := s.db.Model(&models.WalletTransaction{}).Where("user_id = ?", userID)
	if kind != nil {
		base = base.Where("type = ?", *kind)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.WalletTransaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}
