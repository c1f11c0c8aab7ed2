package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/repository"
)

const eventColumns = `id, title, description, venue, starts_at, total_seats, ticket_price, created_at`

// summaryQuery annotates events with figures derived from the ledger.
const summaryQuery = `
	SELECT e.id, e.title, e.description, e.venue, e.starts_at, e.total_seats,
	       e.ticket_price, e.created_at,
	       COALESCE(SUM(r.tickets_booked) FILTER (WHERE r.status <> 'rejected'), 0),
	       COUNT(r.id) FILTER (WHERE r.status = 'complete'),
	       COALESCE(SUM(r.tickets_booked) FILTER (WHERE r.status = 'complete'), 0)
	FROM events e
	LEFT JOIN registrations r ON r.event_id = e.id`

// CreateEvent inserts a new event.
func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Title, e.Description, e.Venue, e.StartsAt, e.TotalSeats,
		int64(e.TicketPrice), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvent returns a single event or ErrNotFound.
func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return scanEvent(s.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`,
		id,
	))
}

// ListEvents returns all events ordered by start time ascending.
func (s *Store) ListEvents(ctx context.Context) ([]model.EventSummary, error) {
	rows, err := s.db.Query(ctx, summaryQuery+`
		GROUP BY e.id
		ORDER BY e.starts_at ASC, e.created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var summaries []model.EventSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, rows.Err()
}

// SummarizeEvent returns one event with its derived figures or ErrNotFound.
func (s *Store) SummarizeEvent(ctx context.Context, id string) (*model.EventSummary, error) {
	return scanSummary(s.db.QueryRow(ctx, summaryQuery+`
		WHERE e.id = $1
		GROUP BY e.id`,
		id,
	))
}

// DeleteEvent removes the event; registrations go with it via ON DELETE CASCADE.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func updateEvent(ctx context.Context, q querier, e *model.Event) error {
	tag, err := q.Exec(ctx,
		`UPDATE events
		 SET title = $2, description = $3, venue = $4, starts_at = $5,
		     total_seats = $6, ticket_price = $7
		 WHERE id = $1`,
		e.ID, e.Title, e.Description, e.Venue, e.StartsAt, e.TotalSeats, int64(e.TicketPrice),
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		e     model.Event
		price int64
	)
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Venue, &e.StartsAt,
		&e.TotalSeats, &price, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	e.TicketPrice = model.Money(price)
	return &e, nil
}

func scanSummary(row pgx.Row) (*model.EventSummary, error) {
	var (
		e                                   model.Event
		price                               int64
		startsAt, createdAt                 time.Time
		booked, approvedRegs, approvedTicks int
	)
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Venue, &startsAt,
		&e.TotalSeats, &price, &createdAt, &booked, &approvedRegs, &approvedTicks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan event summary: %w", err)
	}
	e.StartsAt, e.CreatedAt = startsAt, createdAt
	e.TicketPrice = model.Money(price)
	summary := model.NewEventSummary(e, booked, approvedRegs, approvedTicks)
	return &summary, nil
}
