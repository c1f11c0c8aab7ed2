package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/repository"
)

// CreatePaymentMethod inserts a provider; each provider may appear once.
func (s *Store) CreatePaymentMethod(ctx context.Context, pm *model.PaymentMethod) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO payment_methods (id, method, number, is_active) VALUES ($1, $2, $3, $4)`,
		pm.ID, string(pm.Method), pm.Number, pm.IsActive,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return repository.ErrDuplicatePaymentMethod
		}
		return fmt.Errorf("insert payment method: %w", err)
	}
	return nil
}

// GetPaymentMethod returns one payment method or ErrNotFound.
func (s *Store) GetPaymentMethod(ctx context.Context, id string) (*model.PaymentMethod, error) {
	var (
		pm     model.PaymentMethod
		method string
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, method, number, is_active FROM payment_methods WHERE id = $1`, id,
	).Scan(&pm.ID, &method, &pm.Number, &pm.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get payment method: %w", err)
	}
	pm.Method = model.PaymentMethodKind(method)
	return &pm, nil
}

// UpdatePaymentMethod rewrites the display number and active flag.
func (s *Store) UpdatePaymentMethod(ctx context.Context, pm *model.PaymentMethod) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE payment_methods SET number = $2, is_active = $3 WHERE id = $1`,
		pm.ID, pm.Number, pm.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update payment method: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListPaymentMethods returns payment methods ordered by provider name.
func (s *Store) ListPaymentMethods(ctx context.Context, activeOnly bool) ([]model.PaymentMethod, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, method, number, is_active
		 FROM payment_methods
		 WHERE is_active OR NOT $1
		 ORDER BY method ASC`,
		activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()

	var methods []model.PaymentMethod
	for rows.Next() {
		var (
			pm     model.PaymentMethod
			method string
		)
		if err := rows.Scan(&pm.ID, &method, &pm.Number, &pm.IsActive); err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		pm.Method = model.PaymentMethodKind(method)
		methods = append(methods, pm)
	}
	return methods, rows.Err()
}
