package errors

import (
	"errors"
	"fmt"
)

// Categories. Specific errors below wrap one of these so callers can
// branch on the category with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)

var (
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrShopNotFound        = fmt.Errorf("shop %w", ErrNotFound)
	ErrOrderNotFound       = fmt.Errorf("order %w", ErrNotFound)
	ErrSessionNotFound     = fmt.Errorf("session %w", ErrNotFound)
	ErrUsernameExists      = fmt.Errorf("%w: username already exists", ErrConflict)
	ErrOrderAlreadyBilled  = fmt.Errorf("%w: order already has a purchase transaction", ErrConflict)
	ErrConcurrentUpdate    = fmt.Errorf("%w: order status changed concurrently", ErrConflict)
	ErrNilUser             = fmt.Errorf("%w: user is nil", ErrValidation)
	ErrNilOrder            = fmt.Errorf("%w: order is nil", ErrValidation)
	ErrNilTransaction      = fmt.Errorf("%w: transaction is nil", ErrValidation)
	ErrNilProduct          = fmt.Errorf("%w: product is nil", ErrValidation)
	ErrEmptyOrder          = fmt.Errorf("%w: order has no items", ErrValidation)
	ErrInvalidStatus       = fmt.Errorf("%w: unknown order status", ErrValidation)
	ErrInvalidRole         = fmt.Errorf("%w: unknown role", ErrValidation)
	ErrInvalidAmount       = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInvalidTxType       = fmt.Errorf("%w: invalid transaction type", ErrValidation)
	ErrInvalidCredentials  = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrInvalidToken        = fmt.Errorf("%w: invalid or revoked token", ErrUnauthorized)
	ErrNotShopOwner        = fmt.Errorf("%w: not the owner of this shop", ErrForbidden)
	ErrNotCustomer         = fmt.Errorf("%w: only customers can place orders", ErrForbidden)
	// ErrTransitionFromFinal is both an invalid transition and a conflict:
	// a losing concurrent completion sees it.
	ErrTransitionFromFinal = fmt.Errorf("%w: %w: order is already in a final state", ErrInvalidTransition, ErrConflict)
)

// Validationf builds a validation error carrying the offending detail.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
