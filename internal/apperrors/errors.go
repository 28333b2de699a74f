package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindDomainRule
	KindUpstream
)

// Machine-readable codes written to the "error" field of a response.
const (
	CodeInvalidPayload        = "invalid_payload"
	CodeMissingCredentials    = "missing_credentials"
	CodeForbidden             = "forbidden"
	CodeNotFound              = "not_found"
	CodeDuplicateCoupon       = "duplicate_coupon"
	CodeInsufficientInventory = "insufficient_inventory"
	CodeInvalidTier           = "invalid_tier"
	CodeInsufficientBalance   = "insufficient_balance"
	CodeAlreadyProcessed      = "already_processed"
	CodeNotPaid               = "not_paid"
	CodeAlreadyCheckedIn      = "already_checked_in"
	CodeUpdateFailed          = "update_failed"
	CodePaymentGateway        = "payment_gateway_error"
	CodeInvalidSignature      = "invalid_signature"
	CodePersistence           = "persistence_error"
)

// Error is the error type services hand back to the HTTP layer.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Code so callers can compare against the sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation, KindDomainRule:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound              = &Error{Kind: KindNotFound, Code: CodeNotFound}
	ErrForbidden             = &Error{Kind: KindForbidden, Code: CodeForbidden}
	ErrInsufficientInventory = &Error{Kind: KindDomainRule, Code: CodeInsufficientInventory}
	ErrInvalidTier           = &Error{Kind: KindDomainRule, Code: CodeInvalidTier}
	ErrInsufficientBalance   = &Error{Kind: KindDomainRule, Code: CodeInsufficientBalance}
	ErrAlreadyProcessed      = &Error{Kind: KindDomainRule, Code: CodeAlreadyProcessed}
	ErrNotPaid               = &Error{Kind: KindDomainRule, Code: CodeNotPaid}
	ErrAlreadyCheckedIn      = &Error{Kind: KindDomainRule, Code: CodeAlreadyCheckedIn}
	ErrUpdateFailed          = &Error{Kind: KindUpstream, Code: CodeUpdateFailed}
	ErrDuplicateCoupon       = &Error{Kind: KindConflict, Code: CodeDuplicateCoupon}
	ErrInvalidSignature      = &Error{Kind: KindUnauthorized, Code: CodeInvalidSignature}
	ErrPaymentGateway        = &Error{Kind: KindUpstream, Code: CodePaymentGateway}
)

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidPayload, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: CodeMissingCredentials, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func DomainRule(code, message string) *Error {
	return &Error{Kind: KindDomainRule, Code: code, Message: message}
}

func Upstream(code, message string, err error) *Error {
	return &Error{Kind: KindUpstream, Code: code, Message: message, Err: err}
}

// Persistence wraps a storage failure.
func Persistence(message string, err error) *Error {
	return Upstream(CodePersistence, message, err)
}

// From converts any error to *Error, treating unknown errors as persistence failures.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Persistence("internal server error", err)
}
