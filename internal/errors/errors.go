// Package errors provides custom error types for the Chamapool API.
// All service-layer errors should use AppError so that clients always
// receive a stable error code and a message that leaks no internals.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized      = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredential = &AppError{Code: "INVALID_CREDENTIAL", Message: "Invalid or expired credential", StatusCode: http.StatusUnauthorized}
	ErrForbidden         = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
	ErrUpstreamGateway = &AppError{Code: "UPSTREAM_FAILURE", Message: "Payment gateway is unavailable", StatusCode: http.StatusBadGateway}
)

// User errors.
var (
	ErrUserNotFound = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
)

// Wallet & ledger errors.
var (
	ErrWalletNotFound      = &AppError{Code: "WALLET_NOT_FOUND", Message: "Wallet not found", StatusCode: http.StatusNotFound}
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInsufficientFunds   = &AppError{Code: "INSUFFICIENT_FUNDS", Message: "Insufficient wallet balance", StatusCode: http.StatusBadRequest}
	ErrInvalidMutationKind = &AppError{Code: "INVALID_MUTATION_KIND", Message: "Unsupported wallet mutation kind", StatusCode: http.StatusBadRequest}
)

// Room errors.
var (
	ErrRoomNotFound     = &AppError{Code: "ROOM_NOT_FOUND", Message: "Room not found", StatusCode: http.StatusNotFound}
	ErrRoomFull         = &AppError{Code: "ROOM_FULL", Message: "Room has reached its member limit", StatusCode: http.StatusConflict}
	ErrAlreadyMember    = &AppError{Code: "ALREADY_MEMBER", Message: "User is already a member of this room", StatusCode: http.StatusConflict}
	ErrNotRoomMember    = &AppError{Code: "NOT_ROOM_MEMBER", Message: "User is not an active member of this room", StatusCode: http.StatusForbidden}
	ErrCreatorCannotLeave = &AppError{Code: "CREATOR_CANNOT_LEAVE", Message: "Room creator cannot leave their own room. Delete the room instead", StatusCode: http.StatusBadRequest}
	ErrRoomNotOpen      = &AppError{Code: "ROOM_NOT_ACCEPTING_FUNDS", Message: "Room is no longer accepting contributions", StatusCode: http.StatusConflict}
	ErrRoomNotReady     = &AppError{Code: "ROOM_NOT_READY", Message: "Room has not reached its funding goal", StatusCode: http.StatusConflict}
	ErrRoomNotInvesting = &AppError{Code: "ROOM_NOT_INVESTING", Message: "Room has no running investment", StatusCode: http.StatusConflict}
	ErrRoomNotDeletable = &AppError{Code: "ROOM_NOT_DELETABLE", Message: "Only open rooms without an execution can be deleted", StatusCode: http.StatusConflict}
)

// Contribution errors.
var (
	ErrContributionNotFound = &AppError{Code: "CONTRIBUTION_NOT_FOUND", Message: "Contribution not found", StatusCode: http.StatusNotFound}
	ErrNoContributions      = &AppError{Code: "NO_CONTRIBUTIONS", Message: "No completed contributions found for this room", StatusCode: http.StatusBadRequest}
)

// Investment errors.
var (
	ErrAnalyticsNotFound = &AppError{Code: "ANALYTICS_NOT_FOUND", Message: "No investment analytics found for this room", StatusCode: http.StatusNotFound}
	ErrExecutionExists   = &AppError{Code: "EXECUTION_EXISTS", Message: "Room already has a running execution", StatusCode: http.StatusConflict}
)

// Withdrawal errors.
var (
	ErrWithdrawalNotFound      = &AppError{Code: "WITHDRAWAL_NOT_FOUND", Message: "Withdrawal not found", StatusCode: http.StatusNotFound}
	ErrWithdrawalNotCancelable = &AppError{Code: "WITHDRAWAL_NOT_CANCELABLE", Message: "Only pending withdrawals can be cancelled", StatusCode: http.StatusConflict}
)
