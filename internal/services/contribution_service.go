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

// contributionService handles moving wallet funds into room pools.
type contributionService struct {
	db      *gorm.DB
	rooms   RoomServicer
	wallets WalletServicer
}

// NewContributionService creates a new ContributionServicer.
func NewContributionService(db *gorm.DB, rooms RoomServicer, wallets WalletServicer) ContributionServicer {
	return &contributionService{db: db, rooms: rooms, wallets: wallets}
}

// Contribute moves funds from the user's wallet into a room's pool. The
// debit, ledger record, pool increment, and member stake update commit in a
// single transaction; if any step fails the contribution is marked failed and
// the wallet is untouched.
func (s *contributionService) Contribute(userID, roomID string, amount int64) (*models.Contribution, error) {
	if amount < MinTransactionAmount || amount > MaxTransactionAmount {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
			fmt.Sprintf("amount must be between %d and %d", MinTransactionAmount, MaxTransactionAmount))
	}

	room, err := s.rooms.GetRoomByID(roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != models.RoomStatusOpen {
		return nil, apperrors.ErrRoomNotOpen
	}

	member, err := s.rooms.GetActiveMember(roomID, userID)
	if err != nil {
		return nil, err
	}

	wallet, err := s.wallets.GetWalletByUserID(nil, userID)
	if err != nil {
		return nil, err
	}
	if wallet.Balance < amount {
		return nil, apperrors.ErrInsufficientFunds
	}

	contribution := &models.Contribution{
		RoomID:        roomID,
		UserID:        userID,
		Amount:        amount,
		Status:        models.ContributionPending,
		TransactionID: fmt.Sprintf("CTB-%s", uuid.Short(uuid.New())),
		PaymentMethod: "wallet",
	}
	if err := s.db.Create(contribution).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, merr := s.wallets.ApplyMutation(tx, wallet.ID, amount, models.MutationContribution); merr != nil {
			return merr
		}

		transaction, cerr := s.wallets.CreateTransaction(tx, TransactionParams{
			UserID:      userID,
			WalletID:    wallet.ID,
			Type:        models.MutationContribution,
			Amount:      amount,
			Reference:   contribution.TransactionID,
			Description: fmt.Sprintf("Contribution to %s", room.Name),
			RoomID:      &roomID,
			RoomName:    room.Name,
		})
		if cerr != nil {
			return cerr
		}
		if derr := s.wallets.CompleteTransaction(tx, transaction.ID); derr != nil {
			return derr
		}

		if _, aerr := s.rooms.AddCollectedAmount(tx, roomID, amount); aerr != nil {
			return aerr
		}

		if uerr := tx.Model(member).
			Update("contribution_amount", gorm.Expr("contribution_amount + ?", amount)).Error; uerr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, uerr)
		}

		now := time.Now()
		if uerr := tx.Model(contribution).Updates(map[string]interface{}{
			"status":       models.ContributionCompleted,
			"completed_at": &now,
		}).Error; uerr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, uerr)
		}
		contribution.Status = models.ContributionCompleted
		contribution.CompletedAt = &now
		return nil
	})
	if err != nil {
		// Keep the failed attempt for auditability; the transaction above
		// rolled back every financial effect.
		reason := err.Error()
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			reason = appErr.Message
		}
		if uerr := s.db.Model(contribution).Updates(map[string]interface{}{
			"status":         models.ContributionFailed,
			"failure_reason": reason,
		}).Error; uerr != nil {
			logger.Get().Errorw("failed to mark contribution failed",
				"contribution_id", contribution.ID, "error", uerr.Error())
		}
		return nil, err
	}

	logger.Get().Infow("contribution completed",
		"contribution_id", contribution.ID,
		"room_id", roomID,
		"user_id", userID,
		"amount", amount,
	)
	return contribution, nil
}

// GetUserContributions retrieves a paginated list of the user's
// contributions, newest first, optionally filtered by status.
func (s *contributionService) GetUserContributions(userID string, page pagination.PageRequest, status *models.ContributionStatus) (*pagination.PageResponse[models.Contribution], error) {
	page.Defaults()

	base := s.db.Model(&models.Contribution{}).Where("user_id = ?", userID)
	if status != nil {
		base = base.Where("status = ?", *status)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var contributions []models.Contribution
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&contributions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(contributions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetRoomContributions retrieves a paginated list of a room's contributions.
func (s *contributionService) GetRoomContributions(roomID string, page pagination.PageRequest) (*pagination.PageResponse[models.Contribution], error) {
	if _, err := s.rooms.GetRoomByID(roomID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.Contribution{}).Where("room_id = ?", roomID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var contributions []models.Contribution
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&contributions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(contributions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetContributionStats aggregates the user's contribution history.
func (s *contributionService) GetContributionStats(userID string) (*ContributionStats, error) {
	stats := &ContributionStats{StatusCounts: make(map[string]int64)}

	var total *int64
	if err := s.db.Model(&models.Contribution{}).
		Where("user_id = ? AND status = ?", userID, models.ContributionCompleted).
		Select("SUM(amount)").Scan(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if total != nil {
		stats.TotalContributed = *total
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	if err := s.db.Model(&models.Contribution{}).
		Select("status, COUNT(*) as count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, c := range counts {
		stats.StatusCounts[c.Status] = c.Count
	}

	if err := s.db.Model(&models.Contribution{}).
		Where("user_id = ? AND status = ?", userID, models.ContributionCompleted).
		Distinct("room_id").
		Count(&stats.UniqueRooms).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return stats, nil
}
