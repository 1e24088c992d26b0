package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "chamapool/internal/errors"
	"chamapool/internal/identity"
	"chamapool/internal/logger"
	"chamapool/internal/models"
)

// userService handles user resolution and profile data.
type userService struct {
	db *gorm.DB
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB) UserServicer {
	return &userService{db: db}
}

// GetOrCreateBySubject resolves an identity-provider subject to an internal
// user, creating the record on first sight. Profile fields from the
// credential are refreshed on every resolution.
func (s *userService) GetOrCreateBySubject(principal *identity.Principal) (*models.User, error) {
	if principal == nil || principal.Subject == "" {
		return nil, apperrors.ErrInvalidCredential
	}

	var user models.User
	err := s.db.Where("subject = ?", principal.Subject).First(&user).Error
	if err == nil {
		updates := make(map[string]interface{})
		if principal.Email != "" && principal.Email != user.Email {
			updates["email"] = principal.Email
		}
		if principal.Name != "" && principal.Name != user.DisplayName {
			updates["display_name"] = principal.Name
		}
		if len(updates) > 0 {
			if uerr := s.db.Model(&user).Updates(updates).Error; uerr != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, uerr)
			}
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user = models.User{
		Subject:     principal.Subject,
		Email:       principal.Email,
		DisplayName: principal.Name,
		IsActive:    true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		// A concurrent first request may have created the row already.
		var existing models.User
		if ferr := s.db.Where("subject = ?", principal.Subject).First(&existing).Error; ferr == nil {
			return &existing, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Get().Infow("user provisioned", "user_id", user.ID, "subject", principal.Subject)
	return &user, nil
}

// GetUserByID retrieves a user by internal ID.
func (s *userService) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// GetUserStats aggregates wallet and room activity for the profile surface.
func (s *userService) GetUserStats(userID string) (*UserStats, error) {
	stats := &UserStats{}

	var wallet models.Wallet
	if err := s.db.Where("user_id = ?", userID).First(&wallet).Error; err == nil {
		stats.WalletBalance = wallet.Balance
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var contributed *int64
	if err := s.db.Model(&models.Contribution{}).
		Where("user_id = ? AND status = ?", userID, models.ContributionCompleted).
		Select("SUM(amount)").Scan(&contributed).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if contributed != nil {
		stats.TotalContributed = *contributed
	}

	if err := s.db.Model(&models.RoomMember{}).
		Where("user_id = ? AND status = ?", userID, models.MemberStatusActive).
		Count(&stats.ActiveRooms).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.Model(&models.InvestmentRoom{}).
		Where("creator_id = ?", userID).
		Count(&stats.CreatedRooms).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return stats, nil
}
