package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Is reports whether err is (or wraps) an AppError carrying the given code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Error codes.
const (
	CodeInsufficientFunds  = "LEDGER_001"
	CodeInvalidAmount      = "LEDGER_002"
	CodeDuplicateEntry     = "LEDGER_003"
	CodeNotFound           = "LEDGER_004"
	CodeVaultLocked        = "LEDGER_005"
	CodeConcurrentConflict = "LEDGER_006"
	CodeDuplicateVouch     = "LEDGER_007"
	CodeSelfTransfer       = "LEDGER_008"

	CodeUnauthorized        = "SEC_001"
	CodeNonceUsed           = "SEC_002"
	CodeSessionLocked       = "SEC_003"
	CodeInvalidToken        = "SEC_004"
	CodeForbidden           = "SEC_005"
	CodeInvalidAuthorityKey = "SEC_006"

	CodeOrderNotFound    = "BRIDGE_001"
	CodeInvalidState     = "BRIDGE_002"
	CodeRedemptionClosed = "BRIDGE_003"

	CodeRateLimitExceeded = "RATE_001"

	CodeInternal   = "SYS_001"
	CodeEncryption = "SYS_002"
)

// ---- Ledger (LEDGER) ----

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Invalid amount", http.StatusBadRequest)
}

func ErrDuplicateEntry() *AppError {
	return New(CodeDuplicateEntry, "Ledger entry already exists", http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrVaultLocked() *AppError {
	return New(CodeVaultLocked, "Vault is locked", http.StatusLocked)
}

func ErrConcurrentConflict(err error) *AppError {
	return Wrap(CodeConcurrentConflict, "Concurrent update conflict, retry later", http.StatusConflict, err)
}

func ErrDuplicateVouch() *AppError {
	return New(CodeDuplicateVouch, "Vouch already recorded for this pair", http.StatusConflict)
}

func ErrSelfTransfer() *AppError {
	return New(CodeSelfTransfer, "Sender and receiver must differ", http.StatusBadRequest)
}

// ---- Security (SEC) ----

func ErrUnauthorized() *AppError {
	return New(CodeUnauthorized, "Signature verification failed", http.StatusUnauthorized)
}

func ErrNonceUsed() *AppError {
	return New(CodeNonceUsed, "Nonce has already been used", http.StatusForbidden)
}

func ErrSessionLocked() *AppError {
	return New(CodeSessionLocked, "Signing session is locked or expired", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New(CodeForbidden, "Operation not permitted for this account", http.StatusForbidden)
}

func ErrInvalidAuthorityKey() *AppError {
	return New(CodeInvalidAuthorityKey, "Invalid authority key", http.StatusUnauthorized)
}

// ---- Bridge settlement (BRIDGE) ----

func ErrOrderNotFound() *AppError {
	return New(CodeOrderNotFound, "Bridge order not found", http.StatusNotFound)
}

func ErrInvalidState(from, action string) *AppError {
	return New(CodeInvalidState, fmt.Sprintf("cannot %s order in state %s", action, from), http.StatusConflict)
}

func ErrRedemptionClosed() *AppError {
	return New(CodeRedemptionClosed, "Redemption window is closed", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrEncryptionFailure(err error) *AppError {
	return Wrap(CodeEncryption, "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a LEDGER_002-style validation error.
func Validation(message string) *AppError {
	return New(CodeInvalidAmount, message, http.StatusBadRequest)
}
