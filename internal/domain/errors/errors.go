package errors

import (
	"errors"
	"net/http"
)

// Domain errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrTokenExpired = errors.New("token expired")

	// ErrDataUnavailable marks a chain read that has not resolved or failed transiently.
	ErrDataUnavailable = errors.New("chain data unavailable")
	// ErrUnknownTransactionKind marks a record whose kind tag is not ETH, ERC20 or CUSTOM.
	ErrUnknownTransactionKind = errors.New("unknown transaction kind")
	// ErrExternalActionFailure marks a rejected, declined or reverted broadcast.
	ErrExternalActionFailure = errors.New("external action failed")

	ErrIllegalAction     = errors.New("illegal action")
	ErrAlreadyExecuted   = &reasonError{reason: "ALREADY_EXECUTED", msg: "transaction already executed"}
	ErrAlreadyConfirmed  = &reasonError{reason: "ALREADY_CONFIRMED", msg: "transaction already confirmed by owner"}
	ErrNotAnOwner        = &reasonError{reason: "NOT_AN_OWNER", msg: "account is not a wallet owner"}
	ErrQuorumNotReached  = &reasonError{reason: "QUORUM_NOT_REACHED", msg: "quorum not reached"}
	ErrSignerMismatch    = errors.New("configured signer does not match the authenticated owner")
	ErrSignerUnavailable = errors.New("no signer configured")
)

// reasonError is an IllegalAction with a specific, stable reason code.
type reasonError struct {
	reason string
	msg    string
}

func (e *reasonError) Error() string { return e.msg }

// Is makes every reason error match ErrIllegalAction.
func (e *reasonError) Is(target error) bool { return target == ErrIllegalAction }

// Reason returns the stable code of the denial.
func (e *reasonError) Reason() string { return e.reason }

// IllegalReason extracts the reason code from an IllegalAction error.
func IllegalReason(err error) (string, bool) {
	var re *reasonError
	if errors.As(err, &re) {
		return re.reason, true
	}
	return "", false
}

// Error codes
const (
	CodeBadRequest        = "BAD_REQUEST"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeDataUnavailable   = "DATA_UNAVAILABLE"
	CodeIllegalAction     = "ILLEGAL_ACTION"
	CodeUnknownKind       = "UNKNOWN_TRANSACTION_KIND"
	CodeExternalFailure   = "EXTERNAL_ACTION_FAILURE"
	CodeSignerUnavailable = "SIGNER_UNAVAILABLE"
)

// AppError represents application error with HTTP status
type AppError struct {
	Status    int               `json:"-"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Reason    string            `json:"reason,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
	Err       error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, ErrIllegalAction)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, ErrForbidden)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

// InvalidInput reports field-level validation failures.
func InvalidInput(fields map[string]string, err error) *AppError {
	e := NewAppError(http.StatusBadRequest, CodeInvalidInput, "invalid input", errors.Join(ErrInvalidInput, err))
	e.Fields = fields
	return e
}

// DataUnavailable is rendered as a loading state; clients retry on their next refresh.
func DataUnavailable(err error) *AppError {
	e := NewAppError(http.StatusServiceUnavailable, CodeDataUnavailable, "chain data is loading", err)
	e.Retryable = true
	return e
}

// IllegalAction carries the specific reason a confirm/execute was refused.
func IllegalAction(err error) *AppError {
	e := NewAppError(http.StatusConflict, CodeIllegalAction, err.Error(), err)
	if reason, ok := IllegalReason(err); ok {
		e.Reason = reason
	}
	return e
}

// ExternalFailure reports a signer or broadcast failure.
func ExternalFailure(err error) *AppError {
	return NewAppError(http.StatusBadGateway, CodeExternalFailure, "action could not be broadcast", errors.Join(ErrExternalActionFailure, err))
}

// FromError maps a domain error to its AppError rendering.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, ErrIllegalAction):
		return IllegalAction(err)
	case errors.Is(err, ErrDataUnavailable):
		return DataUnavailable(err)
	case errors.Is(err, ErrInvalidInput):
		return NewAppError(http.StatusBadRequest, CodeInvalidInput, err.Error(), err)
	case errors.Is(err, ErrUnknownTransactionKind):
		return NewAppError(http.StatusUnprocessableEntity, CodeUnknownKind, err.Error(), err)
	case errors.Is(err, ErrExternalActionFailure):
		return NewAppError(http.StatusBadGateway, CodeExternalFailure, err.Error(), err)
	case errors.Is(err, ErrSignerUnavailable):
		return NewAppError(http.StatusServiceUnavailable, CodeSignerUnavailable, err.Error(), err)
	case errors.Is(err, ErrSignerMismatch), errors.Is(err, ErrForbidden):
		return NewAppError(http.StatusForbidden, CodeForbidden, err.Error(), err)
	case errors.Is(err, ErrNotFound):
		return NewAppError(http.StatusNotFound, CodeNotFound, err.Error(), err)
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrTokenExpired):
		return NewAppError(http.StatusUnauthorized, CodeUnauthorized, err.Error(), err)
	default:
		return InternalError(err)
	}
}
