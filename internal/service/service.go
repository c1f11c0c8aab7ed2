// Package service implements the business rules of the ticketing system:
// the event catalog, the ticket allocation engine, the approval state
// machine and payment-method management. Every operation takes the calling
// actor explicitly and performs its role check once, up front.
package service

import (
	"log/slog"
	"time"
)

// Options carries the ambient dependencies shared by all services.
type Options struct {
	Logger *slog.Logger
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

func (o Options) clock() func() time.Time {
	if o.Now == nil {
		return time.Now
	}
	return o.Now
}
