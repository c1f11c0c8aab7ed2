package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/repository"
)

// PaymentMethods manages the provider reference data shown to payers.
type PaymentMethods struct {
	store  repository.Store
	logger *slog.Logger
}

// NewPaymentMethods constructs a PaymentMethods service.
func NewPaymentMethods(store repository.Store, opts Options) *PaymentMethods {
	return &PaymentMethods{store: store, logger: opts.logger()}
}

// ListActive returns the providers currently accepting transfers. Public.
func (p *PaymentMethods) ListActive(ctx context.Context) ([]model.PaymentMethod, error) {
	methods, err := p.store.ListPaymentMethods(ctx, true)
	if err != nil {
		return nil, translate("list payment methods", err)
	}
	return methods, nil
}

// List returns every configured provider, active or not. Staff only.
func (p *PaymentMethods) List(ctx context.Context, actor model.Actor) ([]model.PaymentMethod, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	methods, err := p.store.ListPaymentMethods(ctx, false)
	if err != nil {
		return nil, translate("list payment methods", err)
	}
	return methods, nil
}

// Create configures a provider. New providers are active unless the input
// says otherwise.
func (p *PaymentMethods) Create(ctx context.Context, actor model.Actor, in model.PaymentMethodInput) (*model.PaymentMethod, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	in = normalizePaymentMethodInput(in)
	if in.Method == "" {
		return nil, fmt.Errorf("%w: method is required", ErrValidation)
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	pm := &model.PaymentMethod{
		ID:       uuid.New().String(),
		Method:   in.Method,
		Number:   in.Number,
		IsActive: in.IsActive == nil || *in.IsActive,
	}
	if err := p.store.CreatePaymentMethod(ctx, pm); err != nil {
		return nil, translate("create payment method", err)
	}
	p.logger.Info("payment method created", "method", pm.Method, "active", pm.IsActive)
	return pm, nil
}

// Update edits the number and active flag. The provider itself is fixed.
func (p *PaymentMethods) Update(ctx context.Context, actor model.Actor, id string, in model.PaymentMethodInput) (*model.PaymentMethod, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	in = normalizePaymentMethodInput(in)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	pm, err := p.store.GetPaymentMethod(ctx, id)
	if err != nil {
		return nil, translate("get payment method", err)
	}
	pm.Number = in.Number
	if in.IsActive != nil {
		pm.IsActive = *in.IsActive
	}
	if err := p.store.UpdatePaymentMethod(ctx, pm); err != nil {
		return nil, translate("update payment method", err)
	}
	p.logger.Info("payment method updated", "method", pm.Method, "active", pm.IsActive)
	return pm, nil
}

func normalizePaymentMethodInput(in model.PaymentMethodInput) model.PaymentMethodInput {
	in.Method = model.PaymentMethodKind(strings.ToLower(strings.TrimSpace(string(in.Method))))
	in.Number = strings.TrimSpace(in.Number)
	return in
}
