package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

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
	return scanRegistration(s.db.QueryRow(ctx, registrationSelect+` WHERE r.id = $1`, id))
}

// GetRegistrationByTrackingCode resolves a tracking code or returns ErrNotFound.
func (s *Store) GetRegistrationByTrackingCode(ctx context.Context, code string) (*model.Registration, error) {
	return scanRegistration(s.db.QueryRow(ctx, registrationSelect+` WHERE r.tracking_code = $1`, code))
}

// ListRegistrationsByUser returns a user's registrations, newest first.
func (s *Store) ListRegistrationsByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	return s.listRegistrations(ctx,
		registrationSelect+` WHERE r.user_id = $1 ORDER BY r.registered_at DESC`, userID)
}

// ListRegistrationsByStatus returns registrations in one state, oldest first.
func (s *Store) ListRegistrationsByStatus(ctx context.Context, status model.Status) ([]model.Registration, error) {
	return s.listRegistrations(ctx,
		registrationSelect+` WHERE r.status = $1 ORDER BY r.registered_at ASC`, string(status))
}

// ListRegistrationsByEvent returns all registrations for an event, oldest first.
func (s *Store) ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	return s.listRegistrations(ctx,
		registrationSelect+` WHERE r.event_id = $1 ORDER BY r.registered_at ASC`, eventID)
}

// TransitionStatus is a compare-and-set on the status column: the UPDATE
// only matches while the row is still in the from state, so two staff
// members acting on the same registration cannot both win.
func (s *Store) TransitionStatus(ctx context.Context, id string, from, to model.Status) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE registrations SET status = $3 WHERE id = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return false, fmt.Errorf("transition registration: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	if !exists {
		return false, repository.ErrNotFound
	}
	return false, nil
}

func (s *Store) listRegistrations(ctx context.Context, query string, args ...any) ([]model.Registration, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var (
		reg    model.Registration
		method string
		status string
		price  int64
	)
	err := row.Scan(&reg.ID, &reg.UserID, &reg.EventID, &reg.Name, &reg.StudentID,
		&reg.Phone, &reg.TransactionID, &method, &reg.TicketsBooked, &price,
		&status, &reg.RegisteredAt, &reg.TrackingCode, &reg.EventTitle)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	reg.PaymentMethod = model.PaymentMethodKind(method)
	reg.Status = model.Status(status)
	reg.TotalPrice = model.Money(price)
	return &reg, nil
}
