// Package seed loads events and payment methods from a YAML fixture file
// into an empty or partially populated store.
//
// Applying the same file twice is harmless: providers that already exist
// and events with the same title and start time are skipped.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/service"
)

// File is the fixture document.
type File struct {
	PaymentMethods []PaymentMethod `yaml:"payment_methods"`
	Events         []Event         `yaml:"events"`
}

// PaymentMethod is one provider entry.
type PaymentMethod struct {
	Method model.PaymentMethodKind `yaml:"method"`
	Number string                  `yaml:"number"`
	Active *bool                   `yaml:"active"`
}

// Event is one event entry. Prices are written in major units, e.g. 250 or
// "99.50".
type Event struct {
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	Venue       string      `yaml:"venue"`
	StartsAt    time.Time   `yaml:"starts_at"`
	TotalSeats  int         `yaml:"total_seats"`
	TicketPrice model.Money `yaml:"ticket_price"`
}

// Actor is the identity seeded records are created under.
var Actor = model.Actor{UserID: "seed", Superuser: true}

// LoadFile reads and parses a fixture file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a fixture document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

// Apply creates every payment method and event in f that is not already
// present.
func Apply(ctx context.Context, f *File, catalog *service.Catalog, methods *service.PaymentMethods, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var created, skipped int
	for _, pm := range f.PaymentMethods {
		_, err := methods.Create(ctx, Actor, model.PaymentMethodInput{
			Method:   pm.Method,
			Number:   pm.Number,
			IsActive: pm.Active,
		})
		switch {
		case errors.Is(err, service.ErrDuplicatePaymentMethod):
			skipped++
		case err != nil:
			return fmt.Errorf("seed payment method %s: %w", pm.Method, err)
		default:
			created++
		}
	}

	existing, err := catalog.List(ctx)
	if err != nil {
		return fmt.Errorf("seed: list events: %w", err)
	}
	type key struct {
		title string
		start int64
	}
	have := make(map[key]bool, len(existing))
	for _, e := range existing {
		have[key{e.Title, e.StartsAt.Unix()}] = true
	}

	for _, e := range f.Events {
		if have[key{e.Title, e.StartsAt.Unix()}] {
			skipped++
			continue
		}
		_, err := catalog.Create(ctx, Actor, model.EventInput{
			Title:       e.Title,
			Description: e.Description,
			Venue:       e.Venue,
			StartsAt:    e.StartsAt,
			TotalSeats:  e.TotalSeats,
			TicketPrice: e.TicketPrice,
		})
		if err != nil {
			return fmt.Errorf("seed event %q: %w", e.Title, err)
		}
		have[key{e.Title, e.StartsAt.Unix()}] = true
		created++
	}

	logger.Info("seed applied", "created", created, "skipped", skipped)
	return nil
}
