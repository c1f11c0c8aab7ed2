// Package sqlite implements repository.Store on an embedded SQLite file.
// It backs single-node deployments and the service test suites.
package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/nfps-events/ticketing/internal/database"
	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/repository"
)

// Store handles persistence for events, registrations and payment methods.
type Store struct {
	pool *database.SQLitePool
}

var _ repository.Store = (*Store)(nil)

// NewStore constructs a Store over an open pool.
func NewStore(pool *database.SQLitePool) *Store {
	return &Store{pool: pool}
}

// WithEventLock runs fn inside a BEGIN IMMEDIATE transaction. SQLite allows
// a single writer per database, so taking the write lock up front
// serialises every allocation, including those for this event, before any
// ledger sum is read. The connection is interrupted once ctx is done, which
// also ends a wait for the write lock.
func (s *Store) WithEventLock(ctx context.Context, eventID string, fn func(tx repository.EventTx) error) (err error) {
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

	event, err := getEvent(conn, eventID)
	if err != nil {
		return err
	}
	return fn(&eventTx{conn: conn, event: event})
}

// ReadLedger runs fn inside a deferred transaction. Under WAL the first read
// fixes a snapshot and no write lock is taken, so readers never queue
// behind WithEventLock.
func (s *Store) ReadLedger(ctx context.Context, eventID string, fn func(view repository.LedgerView) error) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	endTransaction := sqlitex.Transaction(conn)
	defer endTransaction(&err)

	event, err := getEvent(conn, eventID)
	if err != nil {
		return err
	}
	return fn(&eventTx{conn: conn, event: event})
}

type eventTx struct {
	conn  *sqlite.Conn
	event *model.Event
}

func (t *eventTx) Event() *model.Event {
	return t.event
}

func (t *eventTx) BookedSeats(ctx context.Context) (int, error) {
	booked, err := queryInt(t.conn,
		`SELECT COALESCE(SUM(tickets_booked), 0)
		 FROM registrations
		 WHERE event_id = ? AND status <> ?`,
		t.event.ID, string(model.StatusRejected))
	if err != nil {
		return 0, fmt.Errorf("sum booked seats: %w", err)
	}
	return booked, nil
}

func (t *eventTx) UserTickets(ctx context.Context, userID string) (int, error) {
	held, err := queryInt(t.conn,
		`SELECT COALESCE(SUM(tickets_booked), 0)
		 FROM registrations
		 WHERE event_id = ? AND user_id = ? AND status <> ?`,
		t.event.ID, userID, string(model.StatusRejected))
	if err != nil {
		return 0, fmt.Errorf("sum user tickets: %w", err)
	}
	return held, nil
}

func (t *eventTx) TransactionExists(ctx context.Context, transactionID string) (bool, error) {
	n, err := queryInt(t.conn,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE transaction_id = ?)`, transactionID)
	if err != nil {
		return false, fmt.Errorf("check transaction id: %w", err)
	}
	return n == 1, nil
}

func (t *eventTx) TrackingCodeExists(ctx context.Context, code string) (bool, error) {
	n, err := queryInt(t.conn,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE tracking_code = ?)`, code)
	if err != nil {
		return false, fmt.Errorf("check tracking code: %w", err)
	}
	return n == 1, nil
}

func (t *eventTx) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	err := sqlitex.Execute(t.conn,
		`INSERT INTO registrations (id, user_id, event_id, name, student_id, phone,
		     transaction_id, payment_method, tickets_booked, total_price, status,
		     registered_at, tracking_code)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			reg.ID, reg.UserID, reg.EventID, reg.Name, reg.StudentID, reg.Phone,
			reg.TransactionID, string(reg.PaymentMethod), int64(reg.TicketsBooked),
			int64(reg.TotalPrice), string(reg.Status), reg.RegisteredAt.UnixNano(),
			reg.TrackingCode,
		}})
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "tracking_code") {
				return repository.ErrDuplicateTrackingCode
			}
			return repository.ErrDuplicateTransaction
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (t *eventTx) UpdateEvent(ctx context.Context, e *model.Event) error {
	if err := updateEvent(t.conn, e); err != nil {
		return err
	}
	t.event = e
	return nil
}

// queryInt runs a single-column integer query and returns its value.
func queryInt(conn *sqlite.Conn, query string, args ...any) (int, error) {
	var n int64
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			n = stmt.ColumnInt64(0)
			return nil
		},
	})
	return int(n), err
}

func isUniqueViolation(err error) bool {
	return sqlite.ErrCode(err) == sqlite.ResultConstraintUnique
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
