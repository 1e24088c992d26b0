package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "chamapool/internal/errors"
	"chamapool/internal/models"
	"chamapool/internal/pagination"
	"chamapool/internal/services"
)

// ContributionHandler handles contribution requests.
type ContributionHandler struct {
	contributionService services.ContributionServicer
}

// NewContributionHandler creates a new ContributionHandler.
func NewContributionHandler(contributionService services.ContributionServicer) *ContributionHandler {
	return &ContributionHandler{contributionService: contributionService}
}

// ContributeRequest represents the request payload for contributing to a room.
// Amount is in minor units.
type ContributeRequest struct {
	RoomID string `json:"room_id" binding:"required,uuid"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
}

// Contribute moves wallet funds into a room's pool
// @Summary     Contribute to a room
// @Tags        contributions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ContributeRequest true "Contribution details"
// @Success     201 {object} models.Contribution
// @Failure     400 {object} ErrorResponse "Insufficient funds or invalid amount"
// @Failure     409 {object} ErrorResponse "Room not accepting contributions"
// @Router      /contributions [post]
func (h *ContributionHandler) Contribute(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	contribution, err := h.contributionService.Contribute(userID, req.RoomID, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"contribution": contribution})
}

// GetUserContributions lists the caller's contributions
// @Summary     List my contributions
// @Tags        contributions
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Param       status query string false "Filter by status"
// @Success     200 {object} pagination.PageResponse[models.Contribution]
// @Router      /contributions [get]
func (h *ContributionHandler) GetUserContributions(c *gin.Context) {
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

	var status *models.ContributionStatus
	if raw := c.Query("status"); raw != "" {
		s := models.ContributionStatus(raw)
		status = &s
	}

	contributions, err := h.contributionService.GetUserContributions(userID, page, status)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, contributions)
}

// GetRoomContributions lists a room's contributions
// @Summary     List room contributions
// @Tags        contributions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Room ID"
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.Contribution]
// @Router      /rooms/{id}/contributions [get]
func (h *ContributionHandler) GetRoomContributions(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	contributions, err := h.contributionService.GetRoomContributions(c.Param("id"), page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, contributions)
}

// GetContributionStats aggregates the caller's contribution history
// @Summary     My contribution stats
// @Tags        contributions
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.ContributionStats
// @Router      /contributions/stats [get]
func (h *ContributionHandler) GetContributionStats(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	stats, err := h.contributionService.GetContributionStats(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
