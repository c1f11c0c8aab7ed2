// Package model defines the core domain types for the event ticketing system.
package model

import (
	"fmt"
	"strings"
	"time"
)

// MaxTicketsPerUser is the cumulative number of tickets a single user may
// hold for one event, summed over all of their non-rejected registrations.
const MaxTicketsPerUser = 4

// Status is the approval state of a registration.
type Status string

const (
	StatusPending  Status = "pending"
	StatusComplete Status = "complete"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusComplete, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown registration status %q", s)
}

// Holds reports whether a registration in this state occupies seats and
// counts toward the per-user cap.
func (s Status) Holds() bool {
	return s == StatusPending || s == StatusComplete
}

// PaymentMethodKind is one of the closed set of mobile payment providers.
type PaymentMethodKind string

const (
	PaymentBkash  PaymentMethodKind = "bkash"
	PaymentNagad  PaymentMethodKind = "nagad"
	PaymentRocket PaymentMethodKind = "rocket"
)

// PaymentMethodKinds lists every accepted provider in display order.
var PaymentMethodKinds = []PaymentMethodKind{PaymentBkash, PaymentNagad, PaymentRocket}

// Valid reports whether k belongs to the closed provider set.
func (k PaymentMethodKind) Valid() bool {
	for _, known := range PaymentMethodKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Event represents a ticketed event managed by staff.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"`
	StartsAt    time.Time `json:"starts_at"`
	TotalSeats  int       `json:"total_seats"`
	TicketPrice Money     `json:"ticket_price"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasStarted reports whether the registration window has closed at now.
func (e *Event) HasStarted(now time.Time) bool {
	return !now.Before(e.StartsAt)
}

// EventSummary is an event annotated with figures derived from the ledger.
// None of the counts are stored; they are recomputed from registrations.
type EventSummary struct {
	Event
	BookedSeats           int `json:"booked_seats"`
	RemainingSeats        int `json:"remaining_seats"`
	ApprovedRegistrations int `json:"approved_registrations"`
	ApprovedTickets       int `json:"approved_tickets"`
}

// NewEventSummary derives the remaining seat count from the booked total.
func NewEventSummary(e Event, booked, approvedRegs, approvedTickets int) EventSummary {
	return EventSummary{
		Event:                 e,
		BookedSeats:           booked,
		RemainingSeats:        e.TotalSeats - booked,
		ApprovedRegistrations: approvedRegs,
		ApprovedTickets:       approvedTickets,
	}
}

// EventDetail is the public view of a single event.
type EventDetail struct {
	EventSummary
	Past bool `json:"event_past"`
}

// Registration is one ticket submission. A user may hold several rows for
// the same event; caps are enforced by summing them.
type Registration struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	EventID       string            `json:"event_id"`
	Name          string            `json:"name"`
	StudentID     string            `json:"student_id"`
	Phone         string            `json:"phone"`
	TransactionID string            `json:"transaction_id"`
	PaymentMethod PaymentMethodKind `json:"payment_method"`
	TicketsBooked int               `json:"tickets_booked"`
	TotalPrice    Money             `json:"total_price"`
	Status        Status            `json:"status"`
	RegisteredAt  time.Time         `json:"registered_at"`
	TrackingCode  string            `json:"tracking_code"`

	// Virtual field (filled via join when listing).
	EventTitle string `json:"event_title,omitempty"`
}

// PaymentMethod is staff-managed reference data describing where payers
// should send money for a given provider.
type PaymentMethod struct {
	ID       string            `json:"id"`
	Method   PaymentMethodKind `json:"method"`
	Number   string            `json:"number"`
	IsActive bool              `json:"is_active"`
}

// Actor is the caller of a service operation as established by the
// identity provider. The zero value is the anonymous visitor.
type Actor struct {
	UserID    string `json:"user_id"`
	Superuser bool   `json:"superuser"`
}

// Anonymous reports whether the actor carries no identity.
func (a Actor) Anonymous() bool {
	return a.UserID == ""
}

// Quote is the price breakdown for a prospective booking.
type Quote struct {
	EventID    string `json:"event_id"`
	Tickets    int    `json:"tickets"`
	UnitPrice  Money  `json:"unit_price"`
	TotalPrice Money  `json:"total_price"`
}

// Intent is what a visitor sees after choosing a quantity: the quote plus
// the payment methods currently accepting transfers.
type Intent struct {
	Quote
	PaymentMethods []PaymentMethod `json:"payment_methods"`
}

// Ticket is a registration resolved by tracking code together with its
// event. Ready is true once staff have approved it.
type Ticket struct {
	Registration Registration `json:"registration"`
	Event        Event        `json:"event"`
	Ready        bool         `json:"ready"`
}

// EventInput is the payload for creating or editing an event.
type EventInput struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=10000"`
	Venue       string    `json:"venue" validate:"required,max=200"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	TotalSeats  int       `json:"total_seats" validate:"gte=0,lte=100000"`
	TicketPrice Money     `json:"ticket_price" validate:"gte=0,lte=1000000000"`
}

// SubmitterDetails are supplied with every submission rather than drawn
// from the user profile.
type SubmitterDetails struct {
	Name      string `json:"name" validate:"required,max=100"`
	StudentID string `json:"student_id" validate:"required,max=50"`
	Phone     string `json:"phone" validate:"required,phone"`
}

// IntentRequest is the payload for the quantity-only booking step.
type IntentRequest struct {
	Tickets int `json:"tickets"`
}

// SubmitRequest is the payload that finalises a booking.
type SubmitRequest struct {
	EventID       string            `json:"-"`
	Tickets       int               `json:"tickets"`
	Details       SubmitterDetails  `json:"details"`
	TransactionID string            `json:"transaction_id" validate:"required,max=100"`
	PaymentMethod PaymentMethodKind `json:"payment_method" validate:"required,paymentmethod"`
}

// PaymentMethodInput is the payload for creating or editing a payment method.
// Method is ignored on edit.
type PaymentMethodInput struct {
	Method   PaymentMethodKind `json:"method" validate:"omitempty,paymentmethod"`
	Number   string            `json:"number" validate:"required,max=50"`
	IsActive *bool             `json:"is_active"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
