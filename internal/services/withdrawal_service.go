package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "chamapool/internal/errors"
	"chamapool/internal/logger"
	"chamapool/internal/models"
	"chamapool/internal/pagination"
	"chamapool/internal/uuid"
)

// withdrawalService handles moving wallet funds out through the payment
// gateway. The wallet is only debited when processing starts; a pending
// request holds no funds.
type withdrawalService struct {
	db      *gorm.DB
	wallets WalletServicer
}

// NewWithdrawalService creates a new WithdrawalServicer.
func NewWithdrawalService(db *gorm.DB, wallets WalletServicer) WithdrawalServicer {
	return &withdrawalService{db: db, wallets: wallets}
}

// RequestWithdrawal creates a pending withdrawal after checking bounds and
// the current balance. The balance check is advisory; the authoritative
// check happens at processing time.
func (s *withdrawalService) RequestWithdrawal(userID string, amount int64, reason string) (*models.Withdrawal, error) {
	if amount < MinTransactionAmount || amount > MaxTransactionAmount {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
			fmt.Sprintf("amount must be between %d and %d", MinTransactionAmount, MaxTransactionAmount))
	}

	wallet, err := s.wallets.GetWalletByUserID(nil, userID)
	if err != nil {
		return nil, err
	}
	if wallet.Balance < amount {
		return nil, apperrors.ErrInsufficientFunds
	}

	withdrawal := &models.Withdrawal{
		UserID:    userID,
		Amount:    amount,
		Status:    models.WithdrawalPending,
		Reference: fmt.Sprintf("WDL-%s", uuid.Short(uuid.New())),
		Reason:    reason,
	}
	if err := s.db.Create(withdrawal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Get().Infow("withdrawal requested",
		"withdrawal_id", withdrawal.ID, "user_id", userID, "amount", amount)
	return withdrawal, nil
}

// GetWithdrawal retrieves the owner's withdrawal by ID.
func (s *withdrawalService) GetWithdrawal(userID, withdrawalID string) (*models.Withdrawal, error) {
	withdrawal, err := s.getWithdrawal(withdrawalID)
	if err != nil {
		return nil, err
	}
	if withdrawal.UserID != userID {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, "withdrawal belongs to another user")
	}
	return withdrawal, nil
}

// ProcessWithdrawal debits the wallet and completes a pending withdrawal.
// An insufficient balance at processing time marks the withdrawal failed
// without touching the wallet.
func (s *withdrawalService) ProcessWithdrawal(withdrawalID, gatewayRef string) (*models.Withdrawal, error) {
	withdrawal, err := s.getWithdrawal(withdrawalID)
	if err != nil {
		return nil, err
	}
	if withdrawal.Status != models.WithdrawalPending {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "withdrawal is not pending")
	}

	wallet, err := s.wallets.GetWalletByUserID(nil, withdrawal.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(withdrawal).Update("status", models.WithdrawalProcessing).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	withdrawal.Status = models.WithdrawalProcessing

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, merr := s.wallets.ApplyMutation(tx, wallet.ID, withdrawal.Amount, models.MutationWithdrawal); merr != nil {
			return merr
		}

		transaction, cerr := s.wallets.CreateTransaction(tx, TransactionParams{
			UserID:           withdrawal.UserID,
			WalletID:         wallet.ID,
			Type:             models.MutationWithdrawal,
			Amount:           withdrawal.Amount,
			Reference:        withdrawal.Reference,
			Description:      "Wallet withdrawal",
			GatewayReference: gatewayRef,
		})
		if cerr != nil {
			return cerr
		}
		if derr := s.wallets.CompleteTransaction(tx, transaction.ID); derr != nil {
			return derr
		}

		if uerr := tx.Model(withdrawal).Updates(map[string]interface{}{
			"status":            models.WithdrawalCompleted,
			"gateway_reference": gatewayRef,
			"processed_at":      &now,
		}).Error; uerr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, uerr)
		}
		return nil
	})
	if err != nil {
		reason := err.Error()
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			reason = appErr.Message
		}
		if uerr := s.db.Model(withdrawal).Update("status", models.WithdrawalFailed).Error; uerr != nil {
			logger.Get().Errorw("failed to mark withdrawal failed",
				"withdrawal_id", withdrawal.ID, "error", uerr.Error())
		} else {
			withdrawal.Status = models.WithdrawalFailed
		}
		logger.Get().Warnw("withdrawal failed",
			"withdrawal_id", withdrawal.ID, "reason", reason)
		return nil, err
	}

	withdrawal.Status = models.WithdrawalCompleted
	withdrawal.GatewayReference = gatewayRef
	withdrawal.ProcessedAt = &now

	logger.Get().Infow("withdrawal completed",
		"withdrawal_id", withdrawal.ID, "user_id", withdrawal.UserID, "amount", withdrawal.Amount)
	return withdrawal, nil
}

// CancelWithdrawal cancels the owner's pending withdrawal. Anything past
// pending has already touched the gateway and cannot be cancelled.
func (s *withdrawalService) CancelWithdrawal(userID, withdrawalID string) error {
	withdrawal, err := s.getWithdrawal(withdrawalID)
	if err != nil {
		return err
	}
	if withdrawal.UserID != userID {
		return apperrors.WithMessage(apperrors.ErrForbidden, "withdrawal belongs to another user")
	}
	if withdrawal.Status != models.WithdrawalPending {
		return apperrors.ErrWithdrawalNotCancelable
	}

	if err := s.db.Model(withdrawal).Update("status", models.WithdrawalCancelled).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetUserWithdrawals retrieves a paginated list of the user's withdrawals,
// newest first, optionally filtered by status.
func (s *withdrawalService) GetUserWithdrawals(userID string, page pagination.PageRequest, status *models.WithdrawalStatus) (*pagination.PageResponse[models.Withdrawal], error) {
	page.Defaults()

	base := s.db.Model(&models.Withdrawal{}).Where("user_id = ?", userID)
	if status != nil {
		base = base.Where("status = ?", *status)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var withdrawals []models.Withdrawal
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&withdrawals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(withdrawals, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func (s *withdrawalService) getWithdrawal(withdrawalID string) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	if err := s.db.Where("id = ?", withdrawalID).First(&withdrawal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWithdrawalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &withdrawal, nil
}
