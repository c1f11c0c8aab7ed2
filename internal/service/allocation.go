package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/repository"
)

// trackingAttempts bounds how many fresh codes are drawn before giving up.
const trackingAttempts = 5

// Allocator is the ticket allocation engine. It enforces the per-user cap
// and the per-event capacity by summing the ledger on every call; nothing
// is cached between requests.
type Allocator struct {
	store  repository.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewAllocator constructs an Allocator.
func NewAllocator(store repository.Store, opts Options) *Allocator {
	return &Allocator{store: store, logger: opts.logger(), now: opts.clock()}
}

// Quote prices a prospective booking. It has no side effects.
func (a *Allocator) Quote(ctx context.Context, eventID string, tickets int) (*model.Quote, error) {
	event, err := a.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, translate("get event", err)
	}
	if !validQuantity(tickets) {
		return nil, ErrInvalidQuantity
	}
	return quote(event, tickets)
}

// Intent is the quantity-only booking step: it runs every guard that can
// be checked before payer details exist and returns the quote together with
// the payment methods currently accepting transfers. Nothing is persisted
// and no seats are held.
func (a *Allocator) Intent(ctx context.Context, actor model.Actor, eventID string, tickets int) (*model.Intent, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	event, err := a.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, translate("get event", err)
	}
	if err := a.precheck(event, actor, tickets); err != nil {
		return nil, err
	}

	err = a.store.ReadLedger(ctx, eventID, func(view repository.LedgerView) error {
		return checkLedger(ctx, view, actor, tickets)
	})
	if err != nil {
		return nil, translate("check ledger", err)
	}

	q, err := quote(event, tickets)
	if err != nil {
		return nil, err
	}
	methods, err := a.store.ListPaymentMethods(ctx, true)
	if err != nil {
		return nil, translate("list payment methods", err)
	}
	return &model.Intent{Quote: *q, PaymentMethods: methods}, nil
}

// Submit finalises a booking. Guards run in a fixed order, each a hard
// stop: event exists, event not started, actor not staff, quantity in
// range, then (under the event lock) the cumulative per-user cap, remaining
// capacity and transaction-id uniqueness. Every accepted submission becomes
// a new pending ledger row; earlier rows are never merged or modified.
func (a *Allocator) Submit(ctx context.Context, actor model.Actor, req model.SubmitRequest) (*model.Registration, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	event, err := a.store.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, translate("get event", err)
	}
	if err := a.precheck(event, actor, req.Tickets); err != nil {
		return nil, err
	}

	req = normalizeSubmitRequest(req)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := a.checkPaymentMethod(ctx, req.PaymentMethod); err != nil {
		return nil, err
	}

	var reg *model.Registration
	err = a.store.WithEventLock(ctx, req.EventID, func(tx repository.EventTx) error {
		locked := tx.Event()
		// The event may have been edited between the precheck and the lock.
		if locked.HasStarted(a.now()) {
			return ErrClosed
		}
		if err := checkLedger(ctx, tx, actor, req.Tickets); err != nil {
			return err
		}
		total, err := orderTotal(locked.TicketPrice, req.Tickets)
		if err != nil {
			return err
		}
		used, err := tx.TransactionExists(ctx, req.TransactionID)
		if err != nil {
			return err
		}
		if used {
			return ErrDuplicateTransaction
		}

		code, err := mintTrackingCode(ctx, tx, locked.ID)
		if err != nil {
			return err
		}
		reg = &model.Registration{
			ID:            uuid.New().String(),
			UserID:        actor.UserID,
			EventID:       locked.ID,
			Name:          req.Details.Name,
			StudentID:     req.Details.StudentID,
			Phone:         req.Details.Phone,
			TransactionID: req.TransactionID,
			PaymentMethod: req.PaymentMethod,
			TicketsBooked: req.Tickets,
			TotalPrice:    total,
			Status:        model.StatusPending,
			RegisteredAt:  a.now().UTC(),
			TrackingCode:  code,
			EventTitle:    locked.Title,
		}
		return tx.InsertRegistration(ctx, reg)
	})
	if err != nil {
		err = translate("submit registration", err)
		var storageErr *StorageError
		if errors.As(err, &storageErr) {
			a.logger.Error("submission failed", "event_id", req.EventID, "user_id", actor.UserID, "error", err)
		} else {
			a.logger.Debug("submission rejected", "event_id", req.EventID, "user_id", actor.UserID, "reason", err)
		}
		return nil, err
	}

	a.logger.Info("registration submitted",
		"registration_id", reg.ID,
		"event_id", reg.EventID,
		"user_id", reg.UserID,
		"tickets", reg.TicketsBooked,
		"tracking_code", reg.TrackingCode,
	)
	return reg, nil
}

// precheck runs the guards that need only the event row and the actor.
func (a *Allocator) precheck(event *model.Event, actor model.Actor, tickets int) error {
	if event.HasStarted(a.now()) {
		return ErrClosed
	}
	if actor.Superuser {
		return fmt.Errorf("%w: staff accounts cannot book tickets", ErrForbidden)
	}
	if !validQuantity(tickets) {
		return ErrInvalidQuantity
	}
	return nil
}

func (a *Allocator) checkPaymentMethod(ctx context.Context, kind model.PaymentMethodKind) error {
	methods, err := a.store.ListPaymentMethods(ctx, true)
	if err != nil {
		return translate("list payment methods", err)
	}
	for _, pm := range methods {
		if pm.Method == kind {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrPaymentMethodUnavailable, kind)
}

// checkLedger enforces the cumulative cap and the remaining capacity. Its
// verdict is binding only while the event is locked.
func checkLedger(ctx context.Context, view repository.LedgerView, actor model.Actor, tickets int) error {
	prior, err := view.UserTickets(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if prior+tickets > model.MaxTicketsPerUser {
		return fmt.Errorf("%w: you already hold %d of %d tickets for this event",
			ErrCapExceeded, prior, model.MaxTicketsPerUser)
	}

	booked, err := view.BookedSeats(ctx)
	if err != nil {
		return err
	}
	if remaining := view.Event().TotalSeats - booked; remaining < tickets {
		return fmt.Errorf("%w: %d remaining", ErrSoldOut, max(remaining, 0))
	}
	return nil
}

func mintTrackingCode(ctx context.Context, tx repository.EventTx, eventID string) (string, error) {
	for range trackingAttempts {
		code, err := NewTrackingCode(eventID)
		if err != nil {
			return "", err
		}
		taken, err := tx.TrackingCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free tracking code after %d attempts", trackingAttempts)
}

func quote(event *model.Event, tickets int) (*model.Quote, error) {
	total, err := orderTotal(event.TicketPrice, tickets)
	if err != nil {
		return nil, err
	}
	return &model.Quote{
		EventID:    event.ID,
		Tickets:    tickets,
		UnitPrice:  event.TicketPrice,
		TotalPrice: total,
	}, nil
}

func orderTotal(price model.Money, tickets int) (model.Money, error) {
	total, ok := price.Times(tickets)
	if !ok {
		return 0, fmt.Errorf("%w: order total is out of range", ErrValidation)
	}
	return total, nil
}

func validQuantity(n int) bool {
	return n >= 1 && n <= model.MaxTicketsPerUser
}

func normalizeSubmitRequest(req model.SubmitRequest) model.SubmitRequest {
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	req.PaymentMethod = model.PaymentMethodKind(strings.ToLower(strings.TrimSpace(string(req.PaymentMethod))))
	req.Details.Name = strings.TrimSpace(req.Details.Name)
	req.Details.StudentID = strings.TrimSpace(req.Details.StudentID)
	req.Details.Phone = strings.TrimSpace(req.Details.Phone)
	return req
}
