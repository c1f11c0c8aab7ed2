package service_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nfps-events/ticketing/internal/database"
	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/repository"
	"github.com/nfps-events/ticketing/internal/repository/sqlite"
	"github.com/nfps-events/ticketing/internal/service"
)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

var (
	staff  = model.Actor{UserID: "staff-1", Superuser: true}
	alice  = model.Actor{UserID: "alice"}
	bob    = model.Actor{UserID: "bob"}
	nobody = model.Actor{}
)

// The clock advances a millisecond per reading so that ledger rows sort in
// submission order.
var (
	ticks   atomic.Int64
	options = service.Options{Now: func() time.Time {
		return testNow.Add(time.Duration(ticks.Add(1)) * time.Millisecond)
	}}
)

// fixture wires every service over a fresh SQLite database.
type fixture struct {
	store     repository.Store
	catalog   *service.Catalog
	allocator *service.Allocator
	approvals *service.Approvals
	methods   *service.PaymentMethods
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pool, err := database.OpenSQLite(database.SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "ticketing.db"),
	})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	store := sqlite.NewStore(pool)
	f := &fixture{
		store:     store,
		catalog:   service.NewCatalog(store, options),
		allocator: service.NewAllocator(store, options),
		approvals: service.NewApprovals(store, options),
		methods:   service.NewPaymentMethods(store, options),
	}
	f.addMethod(t, model.PaymentBkash, true)
	return f
}

func (f *fixture) addMethod(t *testing.T, kind model.PaymentMethodKind, active bool) *model.PaymentMethod {
	t.Helper()
	pm, err := f.methods.Create(context.Background(), staff, model.PaymentMethodInput{
		Method:   kind,
		Number:   "01700000000",
		IsActive: &active,
	})
	if err != nil {
		t.Fatalf("create payment method %s: %v", kind, err)
	}
	return pm
}

// addEvent creates an event starting one week after testNow.
func (f *fixture) addEvent(t *testing.T, seats int, price model.Money) *model.Event {
	t.Helper()
	event, err := f.catalog.Create(context.Background(), staff, model.EventInput{
		Title:       "Spring Gala",
		Venue:       "Main Hall",
		StartsAt:    testNow.Add(7 * 24 * time.Hour),
		TotalSeats:  seats,
		TicketPrice: price,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

func (f *fixture) summary(t *testing.T, eventID string) *model.EventDetail {
	t.Helper()
	detail, err := f.catalog.Get(context.Background(), eventID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	return detail
}

func (f *fixture) registrations(t *testing.T, eventID string) []model.Registration {
	t.Helper()
	regs, err := f.catalog.Registrations(context.Background(), staff, eventID)
	if err != nil {
		t.Fatalf("list registrations: %v", err)
	}
	return regs
}

func submission(eventID string, tickets int, txID string) model.SubmitRequest {
	return model.SubmitRequest{
		EventID: eventID,
		Tickets: tickets,
		Details: model.SubmitterDetails{
			Name:      "Test Payer",
			StudentID: "NFPS-0042",
			Phone:     "+8801712345678",
		},
		TransactionID: txID,
		PaymentMethod: model.PaymentBkash,
	}
}

var txCounter atomic.Int64

func nextTx() string {
	return fmt.Sprintf("tx-%04d", txCounter.Add(1))
}
