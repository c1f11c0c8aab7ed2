package sqlite

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/repository"
)

const registrationSelect = `
	SELECT r.id, r.user_id, r.event_id, r.name, r.student_id, r.phone,
	       r.transaction_id, r.payment_method, r.tickets_booked, r.total_price,
	       r.status, r.registered_at, r.tracking_code, e.title
	FROM registrations r
	JOIN events e ON e.id = r.event_id`

// GetRegistration returns a single registration or ErrNotFound.
func (s *Store) GetRegistration(ctx context.Context, id string) (*model.Registration, error) {
	return s.getRegistration(ctx, registrationSelect+` WHERE r.id = ?`, id)
}

// GetRegistrationByTrackingCode resolves a tracking code or returns ErrNotFound.
func (s *Store) GetRegistrationByTrackingCode(ctx context.Context, code string) (*model.Registration, error) {
	return s.getRegistration(ctx, registrationSelect+` WHERE r.tracking_code = ?`, code)
}

// ListRegistrationsByUser returns a user's registrations, newest first.
func (s *Store) ListRegistrationsByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	return s.listRegistrations(ctx,
		registrationSelect+` WHERE r.user_id = ? ORDER BY r.registered_at DESC`, userID)
}

// ListRegistrationsByStatus returns registrations in one state, oldest first.
func (s *Store) ListRegistrationsByStatus(ctx context.Context, status model.Status) ([]model.Registration, error) {
	return s.listRegistrations(ctx,
		registrationSelect+` WHERE r.status = ? ORDER BY r.registered_at ASC`, string(status))
}

// ListRegistrationsByEvent returns all registrations for an event, oldest first.
func (s *Store) ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	return s.listRegistrations(ctx,
		registrationSelect+` WHERE r.event_id = ? ORDER BY r.registered_at ASC`, eventID)
}

// TransitionStatus is a compare-and-set on the status column.
func (s *Store) TransitionStatus(ctx context.Context, id string, from, to model.Status) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`UPDATE registrations SET status = ? WHERE id = ? AND status = ?`,
		&sqlitex.ExecOptions{Args: []any{string(to), id, string(from)}})
	if err != nil {
		return false, fmt.Errorf("transition registration: %w", err)
	}
	if conn.Changes() == 1 {
		return true, nil
	}

	exists, err := queryInt(conn, `SELECT EXISTS (SELECT 1 FROM registrations WHERE id = ?)`, id)
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	if exists == 0 {
		return false, repository.ErrNotFound
	}
	return false, nil
}

func (s *Store) getRegistration(ctx context.Context, query string, args ...any) (*model.Registration, error) {
	regs, err := s.listRegistrations(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(regs) == 0 {
		return nil, repository.ErrNotFound
	}
	return &regs[0], nil
}

func (s *Store) listRegistrations(ctx context.Context, query string, args ...any) ([]model.Registration, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var regs []model.Registration
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			regs = append(regs, readRegistration(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

func readRegistration(stmt *sqlite.Stmt) model.Registration {
	return model.Registration{
		ID:            stmt.ColumnText(0),
		UserID:        stmt.ColumnText(1),
		EventID:       stmt.ColumnText(2),
		Name:          stmt.ColumnText(3),
		StudentID:     stmt.ColumnText(4),
		Phone:         stmt.ColumnText(5),
		TransactionID: stmt.ColumnText(6),
		PaymentMethod: model.PaymentMethodKind(stmt.ColumnText(7)),
		TicketsBooked: int(stmt.ColumnInt64(8)),
		TotalPrice:    model.Money(stmt.ColumnInt64(9)),
		Status:        model.Status(stmt.ColumnText(10)),
		RegisteredAt:  fromNanos(stmt.ColumnInt64(11)),
		TrackingCode:  stmt.ColumnText(12),
		EventTitle:    stmt.ColumnText(13),
	}
}
