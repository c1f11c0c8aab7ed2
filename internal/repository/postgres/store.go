// Package postgres implements repository.Store on PostgreSQL using pgx
// directly (no ORM).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/repository"
)

// Store handles persistence for events, registrations and payment methods.
type Store struct {
	db *pgxpool.Pool
}

var _ repository.Store = (*Store)(nil)

// NewStore constructs a Store over an open pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WithEventLock performs fn inside a transaction holding a row lock on the
// event.
//
// SELECT … FOR UPDATE acquires an exclusive row-level lock on the event row.
// Any other transaction attempting the same SELECT … FOR UPDATE blocks until
// this one commits or rolls back, so the cap and capacity checks done by fn
// always see every registration committed before them. Without the lock two
// submissions can both read the same remaining-seat figure and jointly
// overbook.
//
// The transaction runs at READ COMMITTED on purpose: each statement after
// the lock takes a fresh snapshot, which includes rows committed by the
// transaction we waited on. A REPEATABLE READ snapshot would be taken before
// the wait and miss them.
func (s *Store) WithEventLock(ctx context.Context, eventID string, fn func(tx repository.EventTx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	event, err := scanEvent(tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`,
		eventID,
	))
	if err != nil {
		return err
	}

	if err = fn(&eventTx{tx: tx, event: event}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ReadLedger runs fn inside a read-only REPEATABLE READ transaction so the
// event row and both sums come from one snapshot. No row lock is taken.
func (s *Store) ReadLedger(ctx context.Context, eventID string, fn func(view repository.LedgerView) error) (err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	event, err := scanEvent(tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`,
		eventID,
	))
	if err != nil {
		return err
	}
	return fn(&eventTx{tx: tx, event: event})
}

type eventTx struct {
	tx    pgx.Tx
	event *model.Event
}

func (t *eventTx) Event() *model.Event {
	return t.event
}

func (t *eventTx) BookedSeats(ctx context.Context) (int, error) {
	var booked int
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(tickets_booked), 0)
		 FROM registrations
		 WHERE event_id = $1 AND status <> $2`,
		t.event.ID, string(model.StatusRejected),
	).Scan(&booked)
	if err != nil {
		return 0, fmt.Errorf("sum booked seats: %w", err)
	}
	return booked, nil
}

func (t *eventTx) UserTickets(ctx context.Context, userID string) (int, error) {
	var held int
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(tickets_booked), 0)
		 FROM registrations
		 WHERE event_id = $1 AND user_id = $2 AND status <> $3`,
		t.event.ID, userID, string(model.StatusRejected),
	).Scan(&held)
	if err != nil {
		return 0, fmt.Errorf("sum user tickets: %w", err)
	}
	return held, nil
}

func (t *eventTx) TransactionExists(ctx context.Context, transactionID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE transaction_id = $1)`,
		transactionID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check transaction id: %w", err)
	}
	return exists, nil
}

func (t *eventTx) TrackingCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE tracking_code = $1)`,
		code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check tracking code: %w", err)
	}
	return exists, nil
}

func (t *eventTx) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO registrations (id, user_id, event_id, name, student_id, phone,
		     transaction_id, payment_method, tickets_booked, total_price, status,
		     registered_at, tracking_code)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		reg.ID, reg.UserID, reg.EventID, reg.Name, reg.StudentID, reg.Phone,
		reg.TransactionID, string(reg.PaymentMethod), reg.TicketsBooked, int64(reg.TotalPrice),
		string(reg.Status), reg.RegisteredAt, reg.TrackingCode,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if strings.Contains(constraint, "tracking_code") {
				return repository.ErrDuplicateTrackingCode
			}
			return repository.ErrDuplicateTransaction
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (t *eventTx) UpdateEvent(ctx context.Context, e *model.Event) error {
	if err := updateEvent(ctx, t.tx, e); err != nil {
		return err
	}
	t.event = e
	return nil
}

// uniqueViolation reports whether err is a unique-constraint violation and
// which constraint fired.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}
