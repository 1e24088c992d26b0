package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "chamapool/internal/errors"
	"chamapool/internal/models"
	"chamapool/internal/services"
)

// InvestmentHandler handles investment execution, voting, and settlement.
type InvestmentHandler struct {
	investmentService services.InvestmentServicer
}

// NewInvestmentHandler creates a new InvestmentHandler.
func NewInvestmentHandler(investmentService services.InvestmentServicer) *InvestmentHandler {
	return &InvestmentHandler{investmentService: investmentService}
}

// ExecuteInvestmentRequest represents the request payload for executing a
// room's investment. Allocations are percentages and must sum to 100.
type ExecuteInvestmentRequest struct {
	Allocations []services.AllocationInput `json:"allocations" binding:"required,min=1,dive"`
}

// CastVoteRequest represents the request payload for voting on a
// recommendation.
type CastVoteRequest struct {
	RecommendationID string `json:"recommendation_id" binding:"required"`
	Vote             string `json:"vote" binding:"required,vote_choice"`
}

// StopInvestmentRequest represents the request payload for a stop vote.
type StopInvestmentRequest struct {
	RecommendationID string `json:"recommendation_id" binding:"required"`
	AssetName        string `json:"asset_name"`
}

// ExecuteInvestment commits a ready room's pool to an allocation
// @Summary     Execute a room investment
// @Tags        investments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Room ID"
// @Param       request body ExecuteInvestmentRequest true "Asset allocations"
// @Success     201 {object} models.InvestmentExecution
// @Failure     409 {object} ErrorResponse "Room not ready or already running"
// @Router      /rooms/{id}/invest [post]
func (h *InvestmentHandler) ExecuteInvestment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ExecuteInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	execution, err := h.investmentService.ExecuteInvestment(userID, c.Param("id"), req.Allocations)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"execution": execution})
}

// GetAnalytics returns the live valuation snapshot for a room
// @Summary     Get room analytics
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Room ID"
// @Success     200 {object} models.InvestmentAnalytics
// @Failure     404 {object} ErrorResponse "No analytics for room"
// @Router      /rooms/{id}/analytics [get]
func (h *InvestmentHandler) GetAnalytics(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}

	analytics, err := h.investmentService.GetAnalytics(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"analytics": analytics})
}

// CastVote records a member's vote on a recommendation
// @Summary     Vote on a recommendation
// @Tags        investments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Room ID"
// @Param       request body CastVoteRequest true "Vote"
// @Success     200 {object} models.RecommendationVote
// @Router      /rooms/{id}/votes [post]
func (h *InvestmentHandler) CastVote(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	vote, err := h.investmentService.CastVote(userID, c.Param("id"), req.RecommendationID, models.VoteChoice(req.Vote))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vote": vote})
}

// GetVoteAggregate tallies votes for a recommendation or the whole room
// @Summary     Get vote tally
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Room ID"
// @Param       recommendation_id query string false "Recommendation ID"
// @Success     200 {object} services.VoteAggregate
// @Router      /rooms/{id}/votes [get]
func (h *InvestmentHandler) GetVoteAggregate(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}

	agg, err := h.investmentService.GetVoteAggregate(c.Param("id"), c.Query("recommendation_id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"votes": agg})
}

// StopInvestment casts a stop vote and distributes on quorum
// @Summary     Vote to stop an asset
// @Tags        investments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Room ID"
// @Param       request body StopInvestmentRequest true "Asset to stop"
// @Success     200 {object} services.StopResult
// @Failure     409 {object} ErrorResponse "Room not investing"
// @Router      /rooms/{id}/stop [post]
func (h *InvestmentHandler) StopInvestment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req StopInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.investmentService.StopInvestment(userID, c.Param("id"), req.RecommendationID, req.AssetName)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// GetStopAggregate tallies stop votes against the quorum
// @Summary     Get stop-vote tally
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Room ID"
// @Param       recommendation_id query string false "Recommendation ID"
// @Success     200 {object} services.StopAggregate
// @Router      /rooms/{id}/stop [get]
func (h *InvestmentHandler) GetStopAggregate(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}

	agg, err := h.investmentService.GetStopAggregate(c.Param("id"), c.Query("recommendation_id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stop_votes": agg})
}

// EndInvestment settles a running investment and closes the room
// @Summary     End a room investment
// @Description Creator-only; pays out principal and profit shares
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Room ID"
// @Success     200 {object} services.EndSummary
// @Failure     403 {object} ErrorResponse "Not the creator"
// @Failure     409 {object} ErrorResponse "Room not investing"
// @Router      /rooms/{id}/end [post]
func (h *InvestmentHandler) EndInvestment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.investmentService.EndInvestment(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
