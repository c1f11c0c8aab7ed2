package service

import (
	"errors"
	"fmt"

	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/repository"
)

// Expected, user-facing outcomes. Operations wrap them with detail via %w,
// so callers match with errors.Is.
var (
	ErrNotFound                 = errors.New("not found")
	ErrUnauthenticated          = errors.New("authentication required")
	ErrForbidden                = errors.New("forbidden")
	ErrClosed                   = errors.New("registration for this event has closed")
	ErrInvalidQuantity          = fmt.Errorf("ticket quantity must be between 1 and %d", model.MaxTicketsPerUser)
	ErrCapExceeded              = errors.New("ticket limit per user exceeded")
	ErrSoldOut                  = errors.New("not enough seats remaining")
	ErrDuplicateTransaction     = errors.New("transaction id has already been used")
	ErrInvalidTransition        = errors.New("registration is not pending")
	ErrValidation               = errors.New("invalid input")
	ErrPaymentMethodUnavailable = errors.New("payment method is not accepting payments")
	ErrDuplicatePaymentMethod   = errors.New("payment method already configured")
	ErrSeatsBelowBooked         = errors.New("total seats cannot be lower than seats already booked")
)

var domainErrors = []error{
	ErrNotFound, ErrUnauthenticated, ErrForbidden, ErrClosed, ErrInvalidQuantity,
	ErrCapExceeded, ErrSoldOut, ErrDuplicateTransaction, ErrInvalidTransition,
	ErrValidation, ErrPaymentMethodUnavailable, ErrDuplicatePaymentMethod,
	ErrSeatsBelowBooked,
}

// StorageError reports an unexpected persistence failure. It is never an
// expected outcome and is surfaced to clients as an internal error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// translate maps repository errors onto service errors. Domain errors pass
// through untouched; anything unrecognised becomes a StorageError.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range domainErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicateTransaction):
		return ErrDuplicateTransaction
	case errors.Is(err, repository.ErrDuplicatePaymentMethod):
		return ErrDuplicatePaymentMethod
	}
	return &StorageError{Op: op, Err: err}
}

// requireUser rejects anonymous actors.
func requireUser(actor model.Actor) error {
	if actor.Anonymous() {
		return ErrUnauthenticated
	}
	return nil
}

// requireStaff is the single role gate for every staff-only operation.
func requireStaff(actor model.Actor) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if !actor.Superuser {
		return fmt.Errorf("%w: staff only", ErrForbidden)
	}
	return nil
}
