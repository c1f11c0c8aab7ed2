package sqlite

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/repository"
)

const eventColumns = `id, title, description, venue, starts_at, total_seats, ticket_price, created_at`

const summaryQuery = `
	SELECT e.id, e.title, e.description, e.venue, e.starts_at, e.total_seats,
	       e.ticket_price, e.created_at,
	       COALESCE(SUM(CASE WHEN r.status <> 'rejected' THEN r.tickets_booked END), 0),
	       COUNT(CASE WHEN r.status = 'complete' THEN 1 END),
	       COALESCE(SUM(CASE WHEN r.status = 'complete' THEN r.tickets_booked END), 0)
	FROM events e
	LEFT JOIN registrations r ON r.event_id = e.id`

// CreateEvent inserts a new event.
func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			e.ID, e.Title, e.Description, e.Venue, e.StartsAt.UnixNano(),
			int64(e.TotalSeats), int64(e.TicketPrice), e.CreatedAt.UnixNano(),
		}})
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvent returns a single event or ErrNotFound.
func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)
	return getEvent(conn, id)
}

// ListEvents returns all events ordered by start time ascending.
func (s *Store) ListEvents(ctx context.Context) ([]model.EventSummary, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var summaries []model.EventSummary
	err = sqlitex.Execute(conn, summaryQuery+`
		GROUP BY e.id
		ORDER BY e.starts_at ASC, e.created_at ASC`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				summaries = append(summaries, readSummary(stmt))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return summaries, nil
}

// SummarizeEvent returns one event with its derived figures or ErrNotFound.
func (s *Store) SummarizeEvent(ctx context.Context, id string) (*model.EventSummary, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var summary *model.EventSummary
	err = sqlitex.Execute(conn, summaryQuery+`
		WHERE e.id = ?
		GROUP BY e.id`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				row := readSummary(stmt)
				summary = &row
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("summarize event: %w", err)
	}
	if summary == nil {
		return nil, repository.ErrNotFound
	}
	return summary, nil
}

// DeleteEvent removes the event and its registrations in one transaction.
func (s *Store) DeleteEvent(ctx context.Context, id string) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, `DELETE FROM registrations WHERE event_id = ?`,
		&sqlitex.ExecOptions{Args: []any{id}})
	if err != nil {
		return fmt.Errorf("delete registrations: %w", err)
	}
	err = sqlitex.Execute(conn, `DELETE FROM events WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{id}})
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if conn.Changes() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func getEvent(conn *sqlite.Conn, id string) (*model.Event, error) {
	var event *model.Event
	err := sqlitex.Execute(conn,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				e := readEvent(stmt)
				event = &e
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event == nil {
		return nil, repository.ErrNotFound
	}
	return event, nil
}

func updateEvent(conn *sqlite.Conn, e *model.Event) error {
	err := sqlitex.Execute(conn,
		`UPDATE events
		 SET title = ?, description = ?, venue = ?, starts_at = ?,
		     total_seats = ?, ticket_price = ?
		 WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{
			e.Title, e.Description, e.Venue, e.StartsAt.UnixNano(),
			int64(e.TotalSeats), int64(e.TicketPrice), e.ID,
		}})
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if conn.Changes() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func readEvent(stmt *sqlite.Stmt) model.Event {
	return model.Event{
		ID:          stmt.ColumnText(0),
		Title:       stmt.ColumnText(1),
		Description: stmt.ColumnText(2),
		Venue:       stmt.ColumnText(3),
		StartsAt:    fromNanos(stmt.ColumnInt64(4)),
		TotalSeats:  int(stmt.ColumnInt64(5)),
		TicketPrice: model.Money(stmt.ColumnInt64(6)),
		CreatedAt:   fromNanos(stmt.ColumnInt64(7)),
	}
}

func readSummary(stmt *sqlite.Stmt) model.EventSummary {
	return model.NewEventSummary(readEvent(stmt),
		int(stmt.ColumnInt64(8)),
		int(stmt.ColumnInt64(9)),
		int(stmt.ColumnInt64(10)),
	)
}
