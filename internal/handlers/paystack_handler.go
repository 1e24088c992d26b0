package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "chamapool/internal/errors"
	"chamapool/internal/logger"
	"chamapool/internal/paystack"
	"chamapool/internal/services"
	"chamapool/internal/uuid"
)

// PaystackHandler handles wallet top-ups and withdrawal transfers through the
// Paystack gateway. Gateway calls never mutate wallet state directly; every
// credit and debit goes through the ledger so replayed webhooks and repeated
// verifications stay idempotent.
type PaystackHandler struct {
	gateway           *paystack.Client
	userService       services.UserServicer
	walletService     services.WalletServicer
	withdrawalService services.WithdrawalServicer
	frontendURL       string
}

// NewPaystackHandler creates a new PaystackHandler.
func NewPaystackHandler(
	gateway *paystack.Client,
	userService services.UserServicer,
	walletService services.WalletServicer,
	withdrawalService services.WithdrawalServicer,
	frontendURL string,
) *PaystackHandler {
	return &PaystackHandler{
		gateway:           gateway,
		userService:       userService,
		walletService:     walletService,
		withdrawalService: withdrawalService,
		frontendURL:       frontendURL,
	}
}

// InitializeTopUpRequest represents the request payload for starting a wallet
// top-up. Amount is in minor units.
type InitializeTopUpRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// TransferWithdrawalRequest represents the bank destination for a withdrawal
// payout.
type TransferWithdrawalRequest struct {
	AccountName   string `json:"account_name" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
	BankCode      string `json:"bank_code" binding:"required"`
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Status    string `json:"status"`
		Metadata  struct {
			UserID string `json:"user_id"`
		} `json:"metadata"`
	} `json:"data"`
}

// InitializeTopUp starts a gateway charge to fund the caller's wallet
// @Summary     Start a wallet top-up
// @Tags        payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body InitializeTopUpRequest true "Top-up amount"
// @Success     200 {object} paystack.Charge
// @Failure     400 {object} ErrorResponse "Invalid amount"
// @Failure     502 {object} ErrorResponse "Gateway unavailable"
// @Router      /payments/topup [post]
func (h *PaystackHandler) InitializeTopUp(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req InitializeTopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if req.Amount < services.MinTransactionAmount || req.Amount > services.MaxTransactionAmount {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount is outside the allowed range"))
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	reference := "TOP-" + uuid.Short(uuid.New())
	charge, err := h.gateway.InitializeCharge(c.Request.Context(), user.Email, req.Amount,
		reference, h.frontendURL+"/wallet", map[string]string{"user_id": userID})
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrUpstreamGateway, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"charge": charge})
}

// VerifyTopUp confirms a charge and credits the wallet
// @Summary     Verify a wallet top-up
// @Description Idempotent; re-verifying a settled charge returns the original transaction
// @Tags        payments
// @Produce     json
// @Security    BearerAuth
// @Param       reference path string true "Charge reference"
// @Success     200 {object} models.WalletTransaction
// @Failure     400 {object} ErrorResponse "Charge not settled"
// @Failure     502 {object} ErrorResponse "Gateway unavailable"
// @Router      /payments/verify/{reference} [get]
func (h *PaystackHandler) VerifyTopUp(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	reference := c.Param("reference")
	status, err := h.gateway.VerifyCharge(c.Request.Context(), reference)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrUpstreamGateway, err))
		return
	}
	if status.Status != "success" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "payment has not been completed"))
		return
	}

	transaction, err := h.walletService.RecordDeposit(userID, status.Amount, status.Reference,
		"Wallet top-up via Paystack", status.Reference)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// Webhook ingests gateway events. It is the settlement path of record: even
// when a payer never returns to the verify endpoint, a charge.success event
// still credits the wallet.
// @Summary     Paystack webhook
// @Tags        payments
// @Accept      json
// @Produce     json
// @Param       X-Paystack-Signature header string true "HMAC-SHA512 signature"
// @Success     200 {object} map[string]string
// @Failure     401 {object} ErrorResponse "Bad signature"
// @Router      /payments/webhook [post]
func (h *PaystackHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "unable to read payload"))
		return
	}

	if !h.gateway.VerifyWebhookSignature(payload, c.GetHeader("X-Paystack-Signature")) {
		logger.Get().Warnw("webhook signature mismatch", "path", c.Request.URL.Path)
		respondWithError(c, apperrors.ErrUnauthorized)
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "malformed event payload"))
		return
	}

	if event.Event != "charge.success" {
		// Acknowledge everything else so the gateway stops retrying.
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if event.Data.Metadata.UserID == "" {
		logger.Get().Warnw("charge.success without user metadata", "reference", event.Data.Reference)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if _, err := h.walletService.RecordDeposit(event.Data.Metadata.UserID, event.Data.Amount,
		event.Data.Reference, "Wallet top-up via Paystack", event.Data.Reference); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

// TransferWithdrawal pays out a pending withdrawal to a bank account
// @Summary     Pay out a withdrawal
// @Description Registers the bank destination with the gateway, initiates the transfer, then debits the wallet
// @Tags        payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Withdrawal ID"
// @Param       request body TransferWithdrawalRequest true "Bank destination"
// @Success     200 {object} models.Withdrawal
// @Failure     502 {object} ErrorResponse "Gateway unavailable"
// @Router      /payments/withdrawals/{id}/transfer [post]
func (h *PaystackHandler) TransferWithdrawal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransferWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	withdrawal, err := h.withdrawalService.GetWithdrawal(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	recipient, err := h.gateway.CreateTransferRecipient(ctx, req.AccountName, req.AccountNumber, req.BankCode, "KES")
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrUpstreamGateway, err))
		return
	}

	transfer, err := h.gateway.InitiateTransfer(ctx, recipient.RecipientCode, withdrawal.Amount,
		withdrawal.Reference, "Wallet withdrawal")
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrUpstreamGateway, err))
		return
	}

	processed, err := h.withdrawalService.ProcessWithdrawal(withdrawal.ID, transfer.TransferCode)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"withdrawal": processed})
}
