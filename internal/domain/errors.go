package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountInactive   = errors.New("account inactive")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrExternalService   = errors.New("external service error")
	ErrTimeout           = errors.New("timeout")
)

// Code is the stable, client-facing identifier of a failure class.
type Code string

const (
	CodeInvalidAmount     Code = "INVALID_AMOUNT"
	CodeInvalidRequest    Code = "INVALID_REQUEST"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeAccountInactive   Code = "ACCOUNT_INACTIVE"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodePermissionDenied  Code = "PERMISSION_DENIED"
	CodeExternalService   Code = "EXTERNAL_SERVICE_ERROR"
	CodeTimeout           Code = "TIMEOUT"
	CodeInternal          Code = "INTERNAL"
)

// CodeOf classifies err. ExternalService wins over Timeout so a slow rate
// provider is reported as the upstream failure it is.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, ErrAccountInactive):
		return CodeAccountInactive
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrPermissionDenied):
		return CodePermissionDenied
	case errors.Is(err, ErrExternalService):
		return CodeExternalService
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	default:
		return CodeInternal
	}
}

// Retryable reports whether repeating the whole operation may succeed.
func (c Code) Retryable() bool {
	switch c {
	case CodeExternalService, CodeTimeout, CodeInternal:
		return true
	default:
		return false
	}
}
