package sqlite

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/repository"
)

// CreatePaymentMethod inserts a provider; each provider may appear once.
func (s *Store) CreatePaymentMethod(ctx context.Context, pm *model.PaymentMethod) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO payment_methods (id, method, number, is_active) VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{pm.ID, string(pm.Method), pm.Number, pm.IsActive}})
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicatePaymentMethod
		}
		return fmt.Errorf("insert payment method: %w", err)
	}
	return nil
}

// GetPaymentMethod returns one payment method or ErrNotFound.
func (s *Store) GetPaymentMethod(ctx context.Context, id string) (*model.PaymentMethod, error) {
	methods, err := s.queryPaymentMethods(ctx,
		`SELECT id, method, number, is_active FROM payment_methods WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		return nil, repository.ErrNotFound
	}
	return &methods[0], nil
}

// UpdatePaymentMethod rewrites the display number and active flag.
func (s *Store) UpdatePaymentMethod(ctx context.Context, pm *model.PaymentMethod) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`UPDATE payment_methods SET number = ?, is_active = ? WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{pm.Number, pm.IsActive, pm.ID}})
	if err != nil {
		return fmt.Errorf("update payment method: %w", err)
	}
	if conn.Changes() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListPaymentMethods returns payment methods ordered by provider name.
func (s *Store) ListPaymentMethods(ctx context.Context, activeOnly bool) ([]model.PaymentMethod, error) {
	return s.queryPaymentMethods(ctx,
		`SELECT id, method, number, is_active
		 FROM payment_methods
		 WHERE is_active = 1 OR ? = 0
		 ORDER BY method ASC`, activeOnly)
}

func (s *Store) queryPaymentMethods(ctx context.Context, query string, args ...any) ([]model.PaymentMethod, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var methods []model.PaymentMethod
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			methods = append(methods, model.PaymentMethod{
				ID:       stmt.ColumnText(0),
				Method:   model.PaymentMethodKind(stmt.ColumnText(1)),
				Number:   stmt.ColumnText(2),
				IsActive: stmt.ColumnInt64(3) != 0,
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	return methods, nil
}
