package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/repository"
)

// Approvals drives the registration state machine:
//
//	pending --approve--> complete
//	pending --reject---> rejected
//
// Both targets are terminal. Rejected rows are kept for audit but no longer
// hold seats or count toward the per-user cap.
type Approvals struct {
	store  repository.Store
	logger *slog.Logger
}

// NewApprovals constructs an Approvals service.
func NewApprovals(store repository.Store, opts Options) *Approvals {
	return &Approvals{store: store, logger: opts.logger()}
}

// Approve marks a pending registration complete. Approving a registration
// that is already complete is a no-op.
func (a *Approvals) Approve(ctx context.Context, actor model.Actor, id string) (*model.Registration, error) {
	return a.transition(ctx, actor, id, model.StatusComplete)
}

// Reject marks a pending registration rejected, releasing its seats.
// Rejecting an already rejected registration is a no-op.
func (a *Approvals) Reject(ctx context.Context, actor model.Actor, id string) (*model.Registration, error) {
	return a.transition(ctx, actor, id, model.StatusRejected)
}

func (a *Approvals) transition(ctx context.Context, actor model.Actor, id string, to model.Status) (*model.Registration, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrNotFound
	}

	moved, err := a.store.TransitionStatus(ctx, id, model.StatusPending, to)
	if err != nil {
		return nil, translate("transition registration", err)
	}
	reg, err := a.store.GetRegistration(ctx, id)
	if err != nil {
		return nil, translate("get registration", err)
	}
	if !moved && reg.Status != to {
		return nil, fmt.Errorf("%w: registration is %s", ErrInvalidTransition, reg.Status)
	}
	if moved {
		a.logger.Info("registration "+string(to),
			"registration_id", reg.ID,
			"event_id", reg.EventID,
			"tickets", reg.TicketsBooked,
			"staff_id", actor.UserID,
		)
	}
	return reg, nil
}

// List returns the registrations in one state, oldest first. Staff only.
// An empty status defaults to pending, the approval queue.
func (a *Approvals) List(ctx context.Context, actor model.Actor, status string) ([]model.Registration, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	st := model.StatusPending
	if strings.TrimSpace(status) != "" {
		parsed, err := model.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		st = parsed
	}
	regs, err := a.store.ListRegistrationsByStatus(ctx, st)
	if err != nil {
		return nil, translate("list registrations", err)
	}
	return regs, nil
}

// Mine returns the caller's own registrations, newest first.
func (a *Approvals) Mine(ctx context.Context, actor model.Actor) ([]model.Registration, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	regs, err := a.store.ListRegistrationsByUser(ctx, actor.UserID)
	if err != nil {
		return nil, translate("list registrations", err)
	}
	return regs, nil
}

// Ticket resolves a tracking code. Only the owner and staff may see it;
// everyone else gets ErrNotFound so codes cannot be probed.
func (a *Approvals) Ticket(ctx context.Context, actor model.Actor, code string) (*model.Ticket, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrNotFound
	}
	reg, err := a.store.GetRegistrationByTrackingCode(ctx, code)
	if err != nil {
		return nil, translate("get registration", err)
	}
	if reg.UserID != actor.UserID && !actor.Superuser {
		return nil, ErrNotFound
	}
	event, err := a.store.GetEvent(ctx, reg.EventID)
	if err != nil {
		return nil, translate("get event", err)
	}
	return &model.Ticket{
		Registration: *reg,
		Event:        *event,
		Ready:        reg.Status == model.StatusComplete,
	}, nil
}
