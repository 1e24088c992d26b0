package services

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"

	apperrors "chamapool/internal/errors"
	"chamapool/internal/logger"
	"chamapool/internal/models"
	"chamapool/internal/pagination"
	"chamapool/internal/uuid"
)

const roomCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// roomService handles the room lifecycle state machine.
type roomService struct {
	db      *gorm.DB
	wallets WalletServicer
}

// NewRoomService creates a new RoomServicer.
func NewRoomService(db *gorm.DB, wallets WalletServicer) RoomServicer {
	return &roomService{db: db, wallets: wallets}
}

// CreateRoom creates a room in the open state with the creator as its first
// active member.
func (s *roomService) CreateRoom(creatorID string, in RoomCreateInput) (*models.InvestmentRoom, error) {
	if in.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "room name is required")
	}
	if in.GoalAmount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal amount must be greater than zero")
	}
	if in.MaxMembers <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "max members must be greater than zero")
	}
	if in.Visibility == "" {
		in.Visibility = models.RoomVisibilityPrivate
	}

	code, err := s.generateRoomCode()
	if err != nil {
		return nil, err
	}

	room := &models.InvestmentRoom{
		Name:           in.Name,
		Description:    in.Description,
		GoalAmount:     in.GoalAmount,
		MaxMembers:     in.MaxMembers,
		CurrentMembers: 1,
		RiskLevel:      in.RiskLevel,
		InvestmentType: in.InvestmentType,
		Status:         models.RoomStatusOpen,
		Visibility:     in.Visibility,
		RoomCode:       code,
		CreatorID:      creatorID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		member := &models.RoomMember{
			RoomID:    room.ID,
			UserID:    creatorID,
			IsCreator: true,
			Status:    models.MemberStatusActive,
			JoinedAt:  time.Now(),
		}
		if err := tx.Create(member).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("room created", "room_id", room.ID, "room_code", room.RoomCode, "creator_id", creatorID)
	return room, nil
}

// generateRoomCode produces a unique shareable code of the form ROOM-XXXXXX.
func (s *roomService) generateRoomCode() (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		suffix := make([]byte, 6)
		for i := range suffix {
			suffix[i] = roomCodeCharset[rand.Intn(len(roomCodeCharset))]
		}
		code := "ROOM-" + string(suffix)

		var count int64
		if err := s.db.Model(&models.InvestmentRoom{}).Where("room_code = ?", code).Count(&count).Error; err != nil {
			return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", apperrors.WithMessage(apperrors.ErrInternalServer, "could not generate a unique room code")
}

// GetRoomByID retrieves a room by ID.
func (s *roomService) GetRoomByID(roomID string) (*models.InvestmentRoom, error) {
	var room models.InvestmentRoom
	if err := s.db.Where("id = ?", roomID).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRoomNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &room, nil
}

// GetRoomByCode retrieves a room by its shareable code.
func (s *roomService) GetRoomByCode(code string) (*models.InvestmentRoom, error) {
	var room models.InvestmentRoom
	if err := s.db.Where("room_code = ?", code).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRoomNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &room, nil
}

// ResolveRoom accepts either a room ID or a shareable code.
func (s *roomService) ResolveRoom(idOrCode string) (*models.InvestmentRoom, error) {
	if uuid.IsValid(idOrCode) {
		return s.GetRoomByID(idOrCode)
	}
	return s.GetRoomByCode(idOrCode)
}

// GetRoomDetail returns a room with its active members and a flag telling the
// caller whether they created it.
func (s *roomService) GetRoomDetail(roomID, userID string) (*RoomWithMembers, error) {
	room, err := s.GetRoomByID(roomID)
	if err != nil {
		return nil, err
	}

	members, err := s.GetRoomMembers(roomID)
	if err != nil {
		return nil, err
	}

	return &RoomWithMembers{
		InvestmentRoom:       *room,
		Members:              members,
		IsCurrentUserCreator: room.CreatorID == userID,
	}, nil
}

// GetUserRooms retrieves a paginated list of rooms where the user is an
// active member.
func (s *roomService) GetUserRooms(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.InvestmentRoom], error) {
	page.Defaults()

	base := s.db.Model(&models.InvestmentRoom{}).
		Joins("JOIN room_members ON room_members.room_id = investment_rooms.id").
		Where("room_members.user_id = ? AND room_members.status = ?", userID, models.MemberStatusActive)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var rooms []models.InvestmentRoom
	if err := base.Scopes(pagination.Paginate(page)).
		Order("investment_rooms.created_at DESC").
		Find(&rooms).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(rooms, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetPublicRooms retrieves a paginated list of public rooms still accepting
// contributions.
func (s *roomService) GetPublicRooms(page pagination.PageRequest) (*pagination.PageResponse[models.InvestmentRoom], error) {
	page.Defaults()

	base := s.db.Model(&models.InvestmentRoom{}).
		Where("visibility = ? AND status = ?", models.RoomVisibilityPublic, models.RoomStatusOpen)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var rooms []models.InvestmentRoom
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&rooms).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(rooms, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetRoomMembers retrieves the active members of a room.
func (s *roomService) GetRoomMembers(roomID string) ([]models.RoomMember, error) {
	var members []models.RoomMember
	if err := s.db.Where("room_id = ? AND status = ?", roomID, models.MemberStatusActive).
		Order("joined_at ASC").
		Find(&members).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return members, nil
}

// GetActiveMember retrieves the active membership row for a user in a room.
func (s *roomService) GetActiveMember(roomID, userID string) (*models.RoomMember, error) {
	var member models.RoomMember
	if err := s.db.Where("room_id = ? AND user_id = ? AND status = ?", roomID, userID, models.MemberStatusActive).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotRoomMember
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &member, nil
}

// UpdateRoom updates mutable room settings. Only the creator may update, and
// only while the room is still open.
func (s *roomService) UpdateRoom(userID, roomID string, fields RoomUpdateFields) (*models.InvestmentRoom, error) {
	room, err := s.GetRoomByID(roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatorID != userID {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, "only the room creator can update the room")
	}
	if room.Status != models.RoomStatusOpen {
		return nil, apperrors.WithMessage(apperrors.ErrRoomNotOpen, "room settings are locked once funding closes")
	}

	updates := make(map[string]interface{})
	if fields.Name != nil && *fields.Name != "" {
		updates["name"] = *fields.Name
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.GoalAmount != nil && *fields.GoalAmount > 0 {
		updates["goal_amount"] = *fields.GoalAmount
	}
	if fields.MaxMembers != nil && *fields.MaxMembers >= room.CurrentMembers {
		updates["max_members"] = *fields.MaxMembers
	}
	if fields.RiskLevel != nil {
		updates["risk_level"] = *fields.RiskLevel
	}
	if fields.InvestmentType != nil {
		updates["investment_type"] = *fields.InvestmentType
	}
	if fields.Visibility != nil {
		updates["visibility"] = *fields.Visibility
	}

	if len(updates) > 0 {
		if err := s.db.Model(room).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.Where("id = ?", room.ID).First(room).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return room, nil
}

// JoinRoom adds the user as an active member of a room identified by ID or
// shareable code. Rooms only admit members while open and below capacity. A
// member who previously left is reactivated rather than duplicated.
func (s *roomService) JoinRoom(userID, idOrCode string) (*models.RoomMember, error) {
	room, err := s.ResolveRoom(idOrCode)
	if err != nil {
		return nil, err
	}
	if room.Status != models.RoomStatusOpen {
		return nil, apperrors.WithMessage(apperrors.ErrRoomNotOpen, "room is no longer open to new members")
	}
	if room.CurrentMembers >= room.MaxMembers {
		return nil, apperrors.ErrRoomFull
	}

	var member models.RoomMember
	err = s.db.Transaction(func(tx *gorm.DB) error {
		ferr := tx.Where("room_id = ? AND user_id = ?", room.ID, userID).First(&member).Error
		switch {
		case ferr == nil:
			if member.Status == models.MemberStatusActive {
				return apperrors.ErrAlreadyMember
			}
			if uerr := tx.Model(&member).Updates(map[string]interface{}{
				"status":    models.MemberStatusActive,
				"joined_at": time.Now(),
			}).Error; uerr != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, uerr)
			}
			member.Status = models.MemberStatusActive
		case errors.Is(ferr, gorm.ErrRecordNotFound):
			member = models.RoomMember{
				RoomID:   room.ID,
				UserID:   userID,
				Status:   models.MemberStatusActive,
				JoinedAt: time.Now(),
			}
			if cerr := tx.Create(&member).Error; cerr != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, cerr)
			}
		default:
			return apperrors.Wrap(apperrors.ErrInternalServer, ferr)
		}

		if uerr := tx.Model(&models.InvestmentRoom{}).
			Where("id = ?", room.ID).
			Update("current_members", gorm.Expr("current_members + 1")).Error; uerr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, uerr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("member joined room", "room_id", room.ID, "user_id", userID)
	return &member, nil
}

// LeaveRoom removes the user from a room. The creator cannot leave. If the
// room is still open, the member's completed contributions are refunded to
// their wallet and marked refunded in the same transaction that marks them
// left, so a later settlement or rejoin never pays them out again.
func (s *roomService) LeaveRoom(userID, roomID string) (int64, error) {
	room, err := s.GetRoomByID(roomID)
	if err != nil {
		return 0, err
	}
	if room.CreatorID == userID {
		return 0, apperrors.ErrCreatorCannotLeave
	}

	member, err := s.GetActiveMember(roomID, userID)
	if err != nil {
		return 0, err
	}

	var refunded int64
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if room.Status == models.RoomStatusOpen {
			total, serr := sumCompletedContributions(tx, roomID, userID)
			if serr != nil {
				return serr
			}
			if total > 0 {
				wallet, werr := s.wallets.GetWalletByUserID(tx, userID)
				if werr != nil {
					return werr
				}
				if _, merr := s.wallets.ApplyMutation(tx, wallet.ID, total, models.MutationRefund); merr != nil {
					return merr
				}
				reference := fmt.Sprintf("REF-LEAVE-%s", uuid.Short(uuid.New()))
				transaction, cerr := s.wallets.CreateTransaction(tx, TransactionParams{
					UserID:      userID,
					WalletID:    wallet.ID,
					Type:        models.MutationRefund,
					Amount:      total,
					Reference:   reference,
					Description: fmt.Sprintf("Refund for leaving room %s", room.Name),
					RoomID:      &roomID,
					RoomName:    room.Name,
				})
				if cerr != nil {
					return cerr
				}
				if derr := s.wallets.CompleteTransaction(tx, transaction.ID); derr != nil {
					return derr
				}

				// Refunded contributions leave every sum from here on; a
				// rejoining member starts from a clean stake.
				if uerr := tx.Model(&models.Contribution{}).
					Where("room_id = ? AND user_id = ? AND status = ?", roomID, userID, models.ContributionCompleted).
					Update("status", models.ContributionRefunded).Error; uerr != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, uerr)
				}
				refunded = total
			}
		}

		memberUpdates := map[string]interface{}{"status": models.MemberStatusLeft}
		if refunded > 0 {
			memberUpdates["contribution_amount"] = 0
		}
		if uerr := tx.Model(member).Updates(memberUpdates).Error; uerr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, uerr)
		}
		if uerr := tx.Model(&models.InvestmentRoom{}).
			Where("id = ? AND current_members > 0", roomID).
			Update("current_members", gorm.Expr("current_members - 1")).Error; uerr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, uerr)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Get().Infow("member left room", "room_id", roomID, "user_id", userID, "refunded", refunded)
	return refunded, nil
}

// DeleteRoom destroys a room before any investment has run. Only the creator
// may delete, and only while the room is open with no execution. Every
// member's completed contributions are refunded, then the room and its
// membership rows are removed for good.
func (s *roomService) DeleteRoom(userID, roomID string) (int, error) {
	room, err := s.GetRoomByID(roomID)
	if err != nil {
		return 0, err
	}
	if room.CreatorID != userID {
		return 0, apperrors.WithMessage(apperrors.ErrForbidden, "only the room creator can delete the room")
	}
	if room.Status != models.RoomStatusOpen || room.HasExecution {
		return 0, apperrors.ErrRoomNotDeletable
	}

	members, err := s.GetRoomMembers(roomID)
	if err != nil {
		return 0, err
	}

	var refundedMembers int
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, member := range members {
			total, serr := sumCompletedContributions(tx, roomID, member.UserID)
			if serr != nil {
				return serr
			}
			if total <= 0 {
				continue
			}

			wallet, werr := s.wallets.GetWalletByUserID(tx, member.UserID)
			if werr != nil {
				if errors.Is(werr, apperrors.ErrWalletNotFound) {
					logger.Get().Warnw("skipping refund, wallet missing",
						"room_id", roomID, "user_id", member.UserID, "amount", total)
					continue
				}
				return werr
			}

			if _, merr := s.wallets.ApplyMutation(tx, wallet.ID, total, models.MutationRefund); merr != nil {
				return merr
			}
			reference := deleteRefundReference(roomID, member.UserID)
			transaction, cerr := s.wallets.CreateTransaction(tx, TransactionParams{
				UserID:      member.UserID,
				WalletID:    wallet.ID,
				Type:        models.MutationRefund,
				Amount:      total,
				Reference:   reference,
				Description: fmt.Sprintf("Refund from deleted room %s", room.Name),
				RoomID:      &roomID,
				RoomName:    room.Name,
			})
			if cerr != nil {
				return cerr
			}
			if derr := s.wallets.CompleteTransaction(tx, transaction.ID); derr != nil {
				return derr
			}
			refundedMembers++
		}

		if derr := tx.Where("room_id = ?", roomID).Delete(&models.RoomMember{}).Error; derr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, derr)
		}
		if derr := tx.Where("room_id = ?", roomID).Delete(&models.Contribution{}).Error; derr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, derr)
		}
		if derr := tx.Delete(&models.InvestmentRoom{}, "id = ?", roomID).Error; derr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, derr)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Get().Infow("room deleted", "room_id", roomID, "refunded_members", refundedMembers)
	return refundedMembers, nil
}

// AddCollectedAmount increments a room's collected total inside the caller's
// transaction and fires the open to ready transition once the goal is met.
func (s *roomService) AddCollectedAmount(tx *gorm.DB, roomID string, amount int64) (*models.InvestmentRoom, error) {
	if err := tx.Model(&models.InvestmentRoom{}).
		Where("id = ?", roomID).
		Update("collected_amount", gorm.Expr("collected_amount + ?", amount)).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var room models.InvestmentRoom
	if err := tx.Where("id = ?", roomID).First(&room).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if room.Status == models.RoomStatusOpen && room.GoalAmount > 0 && room.CollectedAmount >= room.GoalAmount {
		if err := tx.Model(&room).Update("status", models.RoomStatusReady).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		room.Status = models.RoomStatusReady
		logger.Get().Infow("room goal reached", "room_id", room.ID, "collected", room.CollectedAmount)
	}

	return &room, nil
}

// deleteRefundReference derives the deterministic ledger reference for a
// member's refund when a room is deleted. A room is only ever deleted once,
// so the full ID pair is unique per member.
func deleteRefundReference(roomID, userID string) string {
	return fmt.Sprintf("REF-%s-%s", roomID, userID)
}

// sumCompletedContributions totals a member's completed contributions to a room.
func sumCompletedContributions(tx *gorm.DB, roomID, userID string) (int64, error) {
	var total *int64
	if err := tx.Model(&models.Contribution{}).
		Where("room_id = ? AND user_id = ? AND status = ?", roomID, userID, models.ContributionCompleted).
		Select("SUM(amount)").Scan(&total).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
