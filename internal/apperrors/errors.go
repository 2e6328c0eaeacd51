package apperrors

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidInput      ErrorCode = "invalid_input"
	InvalidAmount     ErrorCode = "invalid_amount"
	AccountNotFound   ErrorCode = "account_not_found"
	InsufficientFunds ErrorCode = "insufficient_funds"
	TransferConflict  ErrorCode = "transfer_conflict"
	InternalError     ErrorCode = "internal_error"
)

// AppError is the closed set of failures the service surfaces. Handlers map
// the code to an HTTP status at the boundary; nothing below the handler layer
// knows about transport codes.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *AppError) WithDetails(details string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// HTTPStatus returns the transport status class for the error code.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidInput, InvalidAmount:
		return http.StatusBadRequest
	case AccountNotFound:
		return http.StatusNotFound
	case InsufficientFunds, TransferConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for common cases
var (
	ErrAccountNotFound     = NewAppError(AccountNotFound, "account not found")
	ErrInvalidAccountID    = NewAppError(InvalidInput, "invalid account id")
	ErrInvalidAmount       = NewAppError(InvalidAmount, "amount must be positive")
	ErrInsufficientFunds   = NewAppError(InsufficientFunds, "insufficient funds")
	ErrSameAccountTransfer = NewAppError(InvalidInput, "cannot transfer to the same account")
	ErrTransferContention  = NewAppError(TransferConflict, "transfer could not acquire account locks, retry")
)
