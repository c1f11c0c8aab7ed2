package seed

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nfps-events/ticketing/internal/database"
	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/repository/sqlite"
	"github.com/nfps-events/ticketing/internal/service"
)

const fixture = `
payment_methods:
  - method: bkash
    number: "01700000000"
  - method: nagad
    number: "01800000000"
    active: false
events:
  - title: Cultural Night
    venue: School Auditorium
    starts_at: 2030-12-01T18:00:00+06:00
    total_seats: 150
    ticket_price: 250
  - title: Science Fair
    venue: Lab Block
    description: Student projects.
    starts_at: 2030-11-15T10:00:00+06:00
    total_seats: 80
    ticket_price: "99.50"
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(fixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.PaymentMethods) != 2 || len(f.Events) != 2 {
		t.Fatalf("parsed %d methods and %d events", len(f.PaymentMethods), len(f.Events))
	}
	if f.PaymentMethods[1].Active == nil || *f.PaymentMethods[1].Active {
		t.Error("nagad should be inactive")
	}
	if f.Events[0].TicketPrice != 25000 {
		t.Errorf("ticket price = %s, want 250.00", f.Events[0].TicketPrice)
	}
	if f.Events[1].TicketPrice != 9950 {
		t.Errorf("ticket price = %s, want 99.50", f.Events[1].TicketPrice)
	}
	want := time.Date(2030, time.December, 1, 12, 0, 0, 0, time.UTC)
	if !f.Events[0].StartsAt.Equal(want) {
		t.Errorf("starts at = %v, want %v", f.Events[0].StartsAt, want)
	}

	if _, err := Parse([]byte("events: [")); err == nil {
		t.Error("Parse of malformed YAML succeeded")
	}
}

func TestApplyIsRepeatable(t *testing.T) {
	pool, err := database.OpenSQLite(database.SQLiteConfig{Path: filepath.Join(t.TempDir(), "seed.db")})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	store := sqlite.NewStore(pool)
	catalog := service.NewCatalog(store, service.Options{})
	methods := service.NewPaymentMethods(store, service.Options{})

	f, err := Parse([]byte(fixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ctx := context.Background()
	for range 2 {
		if err := Apply(ctx, f, catalog, methods, nil); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}

	events, err := catalog.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Title != "Science Fair" {
		t.Errorf("first event = %q, want the earlier Science Fair", events[0].Title)
	}

	active, err := methods.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 || active[0].Method != model.PaymentBkash {
		t.Errorf("active methods = %+v, want only bkash", active)
	}
}

func TestApplyReportsInvalidEntries(t *testing.T) {
	pool, err := database.OpenSQLite(database.SQLiteConfig{Path: filepath.Join(t.TempDir(), "seed.db")})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	store := sqlite.NewStore(pool)

	f := &File{Events: []Event{{Title: "No Venue", StartsAt: time.Now()}}}
	err = Apply(context.Background(), f, service.NewCatalog(store, service.Options{}), service.NewPaymentMethods(store, service.Options{}), nil)
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("Apply error = %v, want ErrValidation", err)
	}
}
