package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "chamapool/internal/errors"
	"chamapool/internal/models"
	"chamapool/internal/pagination"
	"chamapool/internal/services"
)

// RoomHandler handles room lifecycle requests.
type RoomHandler struct {
	roomService services.RoomServicer
}

// NewRoomHandler creates a new RoomHandler.
func NewRoomHandler(roomService services.RoomServicer) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

// CreateRoomRequest represents the request payload for creating a room.
type CreateRoomRequest struct {
	Name           string `json:"name" binding:"required,min=1,max=100"`
	Description    string `json:"description" binding:"max=500"`
	GoalAmount     int64  `json:"goal_amount" binding:"required,gt=0"`
	MaxMembers     int    `json:"max_members" binding:"required,gt=0,lte=100"`
	RiskLevel      string `json:"risk_level" binding:"required,risk_level"`
	InvestmentType string `json:"investment_type" binding:"required,investment_type"`
	Visibility     string `json:"visibility" binding:"omitempty,room_visibility"`
}

// UpdateRoomRequest represents the request payload for updating a room.
type UpdateRoomRequest struct {
	Name           *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description    *string `json:"description" binding:"omitempty,max=500"`
	GoalAmount     *int64  `json:"goal_amount" binding:"omitempty,gt=0"`
	MaxMembers     *int    `json:"max_members" binding:"omitempty,gt=0,lte=100"`
	RiskLevel      *string `json:"risk_level" binding:"omitempty,risk_level"`
	InvestmentType *string `json:"investment_type" binding:"omitempty,investment_type"`
	Visibility     *string `json:"visibility" binding:"omitempty,room_visibility"`
}

// JoinRoomRequest represents the request payload for joining a room by ID or
// shareable code.
type JoinRoomRequest struct {
	Room string `json:"room" binding:"required"`
}

// CreateRoom handles the creation of a new investment room
// @Summary     Create an investment room
// @Description Create a new room with the caller as creator and first member
// @Tags        rooms
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateRoomRequest true "Room details"
// @Success     201 {object} models.InvestmentRoom "Room created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /rooms [post]
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	room, err := h.roomService.CreateRoom(userID, services.RoomCreateInput{
		Name:           req.Name,
		Description:    req.Description,
		GoalAmount:     req.GoalAmount,
		MaxMembers:     req.MaxMembers,
		RiskLevel:      req.RiskLevel,
		InvestmentType: req.InvestmentType,
		Visibility:     models.RoomVisibility(req.Visibility),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"room": room})
}

// GetUserRooms lists the caller's rooms
// @Summary     List my rooms
// @Tags        rooms
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.InvestmentRoom]
// @Router      /rooms [get]
func (h *RoomHandler) GetUserRooms(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	rooms, err := h.roomService.GetUserRooms(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, rooms)
}

// GetPublicRooms lists open public rooms for discovery
// @Summary     Discover public rooms
// @Tags        rooms
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.InvestmentRoom]
// @Router      /rooms/public [get]
func (h *RoomHandler) GetPublicRooms(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	rooms, err := h.roomService.GetPublicRooms(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, rooms)
}

// GetRoom returns a room with its members
// @Summary     Get room detail
// @Tags        rooms
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Room ID"
// @Success     200 {object} services.RoomWithMembers
// @Failure     404 {object} ErrorResponse "Room not found"
// @Router      /rooms/{id} [get]
func (h *RoomHandler) GetRoom(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	detail, err := h.roomService.GetRoomDetail(c.Param("id"), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": detail})
}

// UpdateRoom updates room settings
// @Summary     Update a room
// @Description Creator-only; rooms are only editable while open
// @Tags        rooms
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Room ID"
// @Param       request body UpdateRoomRequest true "Fields to update"
// @Success     200 {object} models.InvestmentRoom
// @Failure     403 {object} ErrorResponse "Not the creator"
// @Router      /rooms/{id} [put]
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	fields := services.RoomUpdateFields{
		Name:           req.Name,
		Description:    req.Description,
		GoalAmount:     req.GoalAmount,
		MaxMembers:     req.MaxMembers,
		RiskLevel:      req.RiskLevel,
		InvestmentType: req.InvestmentType,
	}
	if req.Visibility != nil {
		visibility := models.RoomVisibility(*req.Visibility)
		fields.Visibility = &visibility
	}

	room, err := h.roomService.UpdateRoom(userID, c.Param("id"), fields)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room})
}

// JoinRoom joins a room by ID or shareable code
// @Summary     Join a room
// @Tags        rooms
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body JoinRoomRequest true "Room ID or code"
// @Success     200 {object} models.RoomMember
// @Failure     409 {object} ErrorResponse "Room full or already joined"
// @Router      /rooms/join [post]
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	member, err := h.roomService.JoinRoom(userID, req.Room)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"member": member})
}

// LeaveRoom leaves a room, refunding contributions while the room is open
// @Summary     Leave a room
// @Tags        rooms
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Room ID"
// @Success     200 {object} map[string]int64 "Refunded amount"
// @Failure     400 {object} ErrorResponse "Creator cannot leave"
// @Router      /rooms/{id}/leave [post]
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	refunded, err := h.roomService.LeaveRoom(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"refunded": refunded})
}

// DeleteRoom deletes an open room and refunds every member
// @Summary     Delete a room
// @Description Creator-only; only open rooms without an execution can be deleted
// @Tags        rooms
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Room ID"
// @Success     200 {object} map[string]int "Refunded member count"
// @Failure     409 {object} ErrorResponse "Room not deletable"
// @Router      /rooms/{id} [delete]
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	refundedMembers, err := h.roomService.DeleteRoom(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"refunded_members": refundedMembers})
}

// GetRoomMembers lists a room's active members
// @Summary     List room members
// @Tags        rooms
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Room ID"
// @Success     200 {array} models.RoomMember
// @Router      /rooms/{id}/members [get]
func (h *RoomHandler) GetRoomMembers(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}

	members, err := h.roomService.GetRoomMembers(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}
