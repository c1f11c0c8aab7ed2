package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/repository"
)

// Catalog manages event definitions. Reads are public; mutations are
// staff-only. Seat figures are always derived from the ledger.
type Catalog struct {
	store  repository.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewCatalog constructs a Catalog.
func NewCatalog(store repository.Store, opts Options) *Catalog {
	return &Catalog{store: store, logger: opts.logger(), now: opts.clock()}
}

// Create validates the input and stores a new event.
func (c *Catalog) Create(ctx context.Context, actor model.Actor, in model.EventInput) (*model.Event, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	in = normalizeEventInput(in)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	event := &model.Event{
		ID:          uuid.New().String(),
		Title:       in.Title,
		Description: in.Description,
		Venue:       in.Venue,
		StartsAt:    in.StartsAt.UTC(),
		TotalSeats:  in.TotalSeats,
		TicketPrice: in.TicketPrice,
		CreatedAt:   c.now().UTC(),
	}
	if err := c.store.CreateEvent(ctx, event); err != nil {
		return nil, translate("create event", err)
	}
	c.logger.Info("event created", "event_id", event.ID, "title", event.Title, "seats", event.TotalSeats)
	return event, nil
}

// Update rewrites an event. It runs under the event lock so that lowering
// the capacity cannot race with an allocation.
func (c *Catalog) Update(ctx context.Context, actor model.Actor, id string, in model.EventInput) (*model.Event, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	in = normalizeEventInput(in)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var updated *model.Event
	err := c.store.WithEventLock(ctx, id, func(tx repository.EventTx) error {
		booked, err := tx.BookedSeats(ctx)
		if err != nil {
			return err
		}
		if in.TotalSeats < booked {
			return fmt.Errorf("%w: %d seats already booked", ErrSeatsBelowBooked, booked)
		}
		event := *tx.Event()
		event.Title = in.Title
		event.Description = in.Description
		event.Venue = in.Venue
		event.StartsAt = in.StartsAt.UTC()
		event.TotalSeats = in.TotalSeats
		event.TicketPrice = in.TicketPrice
		if err := tx.UpdateEvent(ctx, &event); err != nil {
			return err
		}
		updated = &event
		return nil
	})
	if err != nil {
		return nil, translate("update event", err)
	}
	c.logger.Info("event updated", "event_id", id)
	return updated, nil
}

// Delete removes an event together with all of its registrations.
func (c *Catalog) Delete(ctx context.Context, actor model.Actor, id string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if err := c.store.DeleteEvent(ctx, id); err != nil {
		return translate("delete event", err)
	}
	c.logger.Info("event deleted", "event_id", id)
	return nil
}

// List returns every event with booked and remaining seats.
func (c *Catalog) List(ctx context.Context) ([]model.EventSummary, error) {
	events, err := c.store.ListEvents(ctx)
	if err != nil {
		return nil, translate("list events", err)
	}
	return events, nil
}

// Get returns one event, flagging whether it has already started.
func (c *Catalog) Get(ctx context.Context, id string) (*model.EventDetail, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	summary, err := c.store.SummarizeEvent(ctx, id)
	if err != nil {
		return nil, translate("get event", err)
	}
	return &model.EventDetail{
		EventSummary: *summary,
		Past:         summary.HasStarted(c.now()),
	}, nil
}

// Dashboard is the staff view of all events with their approval counts.
func (c *Catalog) Dashboard(ctx context.Context, actor model.Actor) ([]model.EventSummary, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return c.List(ctx)
}

// Registrations lists every registration for one event (staff only).
func (c *Catalog) Registrations(ctx context.Context, actor model.Actor, eventID string) ([]model.Registration, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if _, err := c.store.GetEvent(ctx, eventID); err != nil {
		return nil, translate("get event", err)
	}
	regs, err := c.store.ListRegistrationsByEvent(ctx, eventID)
	if err != nil {
		return nil, translate("list registrations", err)
	}
	return regs, nil
}

func normalizeEventInput(in model.EventInput) model.EventInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Venue = strings.TrimSpace(in.Venue)
	in.Description = strings.TrimSpace(in.Description)
	return in
}
