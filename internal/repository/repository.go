// Package repository defines the storage contracts for the ticketing
// system. The postgres and sqlite subpackages implement them.
//
// The ledger of registrations is the single source of truth for seat usage:
// no store keeps a booked-seat counter. Every capacity decision is made
// inside WithEventLock, which serialises all writers for one event.
package repository

import (
	"context"
	"errors"

	"github.com/nfps-events/ticketing/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateTransaction is returned when a payment reference is reused.
var ErrDuplicateTransaction = errors.New("transaction id already used")

// ErrDuplicateTrackingCode is returned when a generated tracking code collides.
var ErrDuplicateTrackingCode = errors.New("tracking code already issued")

// ErrDuplicatePaymentMethod is returned when a provider is configured twice.
var ErrDuplicatePaymentMethod = errors.New("payment method already configured")

// EventStore persists events.
type EventStore interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	// ListEvents returns every event ordered by start time with its derived
	// seat and approval figures.
	ListEvents(ctx context.Context) ([]model.EventSummary, error)
	// SummarizeEvent returns one event with its derived figures.
	SummarizeEvent(ctx context.Context, id string) (*model.EventSummary, error)
	// DeleteEvent removes the event and all of its registrations.
	DeleteEvent(ctx context.Context, id string) error
}

// RegistrationStore reads the ledger and performs status transitions.
type RegistrationStore interface {
	GetRegistration(ctx context.Context, id string) (*model.Registration, error)
	GetRegistrationByTrackingCode(ctx context.Context, code string) (*model.Registration, error)
	ListRegistrationsByUser(ctx context.Context, userID string) ([]model.Registration, error)
	ListRegistrationsByStatus(ctx context.Context, status model.Status) ([]model.Registration, error)
	ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
	// TransitionStatus moves a registration from one status to another as a
	// single compare-and-set. It reports false when the row exists but is
	// not in the from state, and ErrNotFound when it does not exist.
	TransitionStatus(ctx context.Context, id string, from, to model.Status) (bool, error)
}

// PaymentMethodStore persists payment-method reference data.
type PaymentMethodStore interface {
	CreatePaymentMethod(ctx context.Context, pm *model.PaymentMethod) error
	GetPaymentMethod(ctx context.Context, id string) (*model.PaymentMethod, error)
	UpdatePaymentMethod(ctx context.Context, pm *model.PaymentMethod) error
	ListPaymentMethods(ctx context.Context, activeOnly bool) ([]model.PaymentMethod, error)
}

// Store is the full persistence surface used by the services.
type Store interface {
	EventStore
	RegistrationStore
	PaymentMethodStore

	// WithEventLock runs fn inside a transaction that holds an exclusive
	// lock on the event. Concurrent callers for the same event are
	// serialised; if fn returns an error nothing it wrote is committed.
	// ErrNotFound is returned when the event does not exist.
	WithEventLock(ctx context.Context, eventID string, fn func(tx EventTx) error) error

	// ReadLedger runs fn inside a read-only transaction without locking the
	// event, so the figures fn sees are consistent with each other but may
	// be stale by the time a writer takes the lock.
	// ErrNotFound is returned when the event does not exist.
	ReadLedger(ctx context.Context, eventID string, fn func(view LedgerView) error) error
}

// LedgerView exposes the seat and per-user sums for one event.
type LedgerView interface {
	// Event is the event row as read when the transaction began.
	Event() *model.Event
	// BookedSeats sums tickets over the event's seat-holding registrations.
	BookedSeats(ctx context.Context) (int, error)
	// UserTickets sums tickets over one user's seat-holding registrations
	// for the event.
	UserTickets(ctx context.Context, userID string) (int, error)
}

// EventTx is the view of the ledger available while an event is locked.
type EventTx interface {
	LedgerView
	TransactionExists(ctx context.Context, transactionID string) (bool, error)
	TrackingCodeExists(ctx context.Context, code string) (bool, error)
	InsertRegistration(ctx context.Context, reg *model.Registration) error
	UpdateEvent(ctx context.Context, e *model.Event) error
}
