package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "chamapool/internal/errors"
	"chamapool/internal/models"
	"chamapool/internal/pagination"
	"chamapool/internal/services"
)

// WalletHandler handles wallet and withdrawal requests.
type WalletHandler struct {
	walletService     services.WalletServicer
	withdrawalService services.WithdrawalServicer
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletService services.WalletServicer, withdrawalService services.WithdrawalServicer) *WalletHandler {
	return &WalletHandler{
		walletService:     walletService,
		withdrawalService: withdrawalService,
	}
}

// RequestWithdrawalRequest represents the request payload for a withdrawal.
// Amount is in minor units.
type RequestWithdrawalRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"max=255"`
}

// GetWallet returns the caller's wallet, creating it on first access
// @Summary     Get my wallet
// @Tags        wallet
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.Wallet
// @Router      /wallet [get]
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	wallet, err := h.walletService.GetOrCreateWallet(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// GetTransactions lists the caller's ledger transactions
// @Summary     List my wallet transactions
// @Tags        wallet
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Param       type query string false "Filter by mutation kind"
// @Success     200 {object} pagination.PageResponse[models.WalletTransaction]
// @Router      /wallet/transactions [get]
func (h *WalletHandler) GetTransactions(c *gin.Context) {
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

	var kind *models.MutationKind
	if raw := c.Query("type"); raw != "" {
		k := models.MutationKind(raw)
		kind = &k
	}

	transactions, err := h.walletService.GetUserTransactions(userID, page, kind)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// RequestWithdrawal creates a pending withdrawal
// @Summary     Request a withdrawal
// @Tags        wallet
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body RequestWithdrawalRequest true "Withdrawal details"
// @Success     201 {object} models.Withdrawal
// @Failure     400 {object} ErrorResponse "Insufficient funds or invalid amount"
// @Router      /wallet/withdrawals [post]
func (h *WalletHandler) RequestWithdrawal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RequestWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	withdrawal, err := h.withdrawalService.RequestWithdrawal(userID, req.Amount, req.Reason)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"withdrawal": withdrawal})
}

// CancelWithdrawal cancels a pending withdrawal
// @Summary     Cancel a withdrawal
// @Tags        wallet
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Withdrawal ID"
// @Success     200 {object} map[string]string
// @Failure     409 {object} ErrorResponse "Withdrawal not cancelable"
// @Router      /wallet/withdrawals/{id} [delete]
func (h *WalletHandler) CancelWithdrawal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.withdrawalService.CancelWithdrawal(userID, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// GetWithdrawals lists the caller's withdrawals
// @Summary     List my withdrawals
// @Tags        wallet
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Param       status query string false "Filter by status"
// @Success     200 {object} pagination.PageResponse[models.Withdrawal]
// @Router      /wallet/withdrawals [get]
func (h *WalletHandler) GetWithdrawals(c *gin.Context) {
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

	var status *models.WithdrawalStatus
	if raw := c.Query("status"); raw != "" {
		s := models.WithdrawalStatus(raw)
		status = &s
	}

	withdrawals, err := h.withdrawalService.GetUserWithdrawals(userID, page, status)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, withdrawals)
}
