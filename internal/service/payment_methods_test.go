package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/service"
)

func TestPaymentMethodCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		actor model.Actor
		in    model.PaymentMethodInput
		want  error
	}{
		{name: "nagad", actor: staff, in: model.PaymentMethodInput{Method: " Nagad ", Number: "01811111111"}},
		{name: "duplicate bkash", actor: staff, in: model.PaymentMethodInput{Method: model.PaymentBkash, Number: "0"}, want: service.ErrDuplicatePaymentMethod},
		{name: "unknown provider", actor: staff, in: model.PaymentMethodInput{Method: "upay", Number: "0"}, want: service.ErrValidation},
		{name: "missing provider", actor: staff, in: model.PaymentMethodInput{Number: "0"}, want: service.ErrValidation},
		{name: "missing number", actor: staff, in: model.PaymentMethodInput{Method: model.PaymentRocket}, want: service.ErrValidation},
		{name: "regular user", actor: alice, in: model.PaymentMethodInput{Method: model.PaymentRocket, Number: "0"}, want: service.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm, err := f.methods.Create(ctx, tt.actor, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Create error = %v, want %v", err, tt.want)
			}
			if err == nil && !pm.IsActive {
				t.Error("new payment method is inactive by default")
			}
		})
	}
}

func TestPaymentMethodUpdateAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rocket := f.addMethod(t, model.PaymentRocket, true)

	active, err := f.methods.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("active = %+v, want bkash and rocket", active)
	}

	off := false
	updated, err := f.methods.Update(ctx, staff, rocket.ID, model.PaymentMethodInput{
		Method:   model.PaymentNagad,
		Number:   " 01999999999 ",
		IsActive: &off,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Method != model.PaymentRocket {
		t.Errorf("method changed to %s on edit", updated.Method)
	}
	if updated.Number != "01999999999" || updated.IsActive {
		t.Errorf("updated = %+v", updated)
	}

	active, err = f.methods.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 || active[0].Method != model.PaymentBkash {
		t.Errorf("active after deactivation = %+v, want only bkash", active)
	}
	all, err := f.methods.List(ctx, staff)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all = %+v, want 2 methods", all)
	}

	// Omitting is_active leaves the flag unchanged.
	updated, err = f.methods.Update(ctx, staff, rocket.ID, model.PaymentMethodInput{Number: "0"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.IsActive {
		t.Error("Update without is_active re-enabled the method")
	}

	if _, err := f.methods.Update(ctx, staff, "missing", model.PaymentMethodInput{Number: "0"}); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := f.methods.List(ctx, bob); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("List(user) error = %v, want ErrForbidden", err)
	}
}
