package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/service"
)

func TestApproveIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.addEvent(t, 10, 100)
	reg, err := f.allocator.Submit(ctx, alice, submission(event.ID, 2, nextTx()))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	for i := range 2 {
		got, err := f.approvals.Approve(ctx, staff, reg.ID)
		if err != nil {
			t.Fatalf("Approve #%d: %v", i+1, err)
		}
		if got.Status != model.StatusComplete {
			t.Errorf("Approve #%d status = %s, want complete", i+1, got.Status)
		}
	}
}

func TestApprovalTransitions(t *testing.T) {
	tests := []struct {
		name    string
		first   func(*service.Approvals, context.Context, model.Actor, string) (*model.Registration, error)
		second  func(*service.Approvals, context.Context, model.Actor, string) (*model.Registration, error)
		wantErr error
		want    model.Status
	}{
		{name: "reject then reject", first: (*service.Approvals).Reject, second: (*service.Approvals).Reject, want: model.StatusRejected},
		{name: "approve then reject", first: (*service.Approvals).Approve, second: (*service.Approvals).Reject, wantErr: service.ErrInvalidTransition, want: model.StatusComplete},
		{name: "reject then approve", first: (*service.Approvals).Reject, second: (*service.Approvals).Approve, wantErr: service.ErrInvalidTransition, want: model.StatusRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			event := f.addEvent(t, 10, 100)
			reg, err := f.allocator.Submit(ctx, alice, submission(event.ID, 1, nextTx()))
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if _, err := tt.first(f.approvals, ctx, staff, reg.ID); err != nil {
				t.Fatalf("first transition: %v", err)
			}
			_, err = tt.second(f.approvals, ctx, staff, reg.ID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("second transition error = %v, want %v", err, tt.wantErr)
			}
			stored, err := f.store.GetRegistration(ctx, reg.ID)
			if err != nil {
				t.Fatalf("GetRegistration: %v", err)
			}
			if stored.Status != tt.want {
				t.Errorf("status = %s, want %s", stored.Status, tt.want)
			}
		})
	}
}

func TestApprovalMissingRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.addEvent(t, 10, 100)
	reg, err := f.allocator.Submit(ctx, alice, submission(event.ID, 1, nextTx()))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := f.approvals.Approve(ctx, staff, "missing"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Approve(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := f.approvals.Reject(ctx, staff, "missing"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Reject(missing) error = %v, want ErrNotFound", err)
	}

	pending, err := f.approvals.List(ctx, staff, "pending")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != reg.ID {
		t.Errorf("pending = %+v, want only %s", pending, reg.ID)
	}
}

func TestApprovalRequiresStaff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.addEvent(t, 10, 100)
	reg, err := f.allocator.Submit(ctx, alice, submission(event.ID, 1, nextTx()))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := f.approvals.Approve(ctx, alice, reg.ID); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("Approve(user) error = %v, want ErrForbidden", err)
	}
	if _, err := f.approvals.Reject(ctx, nobody, reg.ID); !errors.Is(err, service.ErrUnauthenticated) {
		t.Errorf("Reject(anonymous) error = %v, want ErrUnauthenticated", err)
	}
	if _, err := f.approvals.List(ctx, bob, ""); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("List(user) error = %v, want ErrForbidden", err)
	}

	stored, err := f.store.GetRegistration(ctx, reg.ID)
	if err != nil {
		t.Fatalf("GetRegistration: %v", err)
	}
	if stored.Status != model.StatusPending {
		t.Errorf("status = %s after unauthorised calls, want pending", stored.Status)
	}
}

func TestRejectReleasesSeatsAndCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.addEvent(t, 4, 100)

	reg, err := f.allocator.Submit(ctx, alice, submission(event.ID, 4, nextTx()))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.allocator.Submit(ctx, bob, submission(event.ID, 1, nextTx())); !errors.Is(err, service.ErrSoldOut) {
		t.Fatalf("Submit(bob) error = %v, want ErrSoldOut", err)
	}

	if _, err := f.approvals.Reject(ctx, staff, reg.ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if detail := f.summary(t, event.ID); detail.BookedSeats != 0 || detail.RemainingSeats != 4 {
		t.Errorf("booked/remaining after reject = %d/%d, want 0/4", detail.BookedSeats, detail.RemainingSeats)
	}

	// Alice may book the full cap again; the rejected row stays for audit.
	if _, err := f.allocator.Submit(ctx, alice, submission(event.ID, 4, nextTx())); err != nil {
		t.Fatalf("Submit after reject: %v", err)
	}
	regs := f.registrations(t, event.ID)
	if len(regs) != 2 {
		t.Fatalf("ledger has %d rows, want 2", len(regs))
	}
	for _, r := range regs {
		if r.ID == reg.ID && r.Status != model.StatusRejected {
			t.Errorf("rejected row status = %s, want rejected", r.Status)
		}
	}
}

func TestListByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.addEvent(t, 10, 100)

	var ids []string
	for range 3 {
		reg, err := f.allocator.Submit(ctx, bob, submission(event.ID, 1, nextTx()))
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, reg.ID)
	}
	if _, err := f.approvals.Approve(ctx, staff, ids[0]); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := f.approvals.Reject(ctx, staff, ids[1]); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	tests := []struct {
		status string
		want   []string
	}{
		{status: "", want: ids[2:]},
		{status: "pending", want: ids[2:]},
		{status: "COMPLETE", want: ids[:1]},
		{status: "rejected", want: ids[1:2]},
	}
	for _, tt := range tests {
		regs, err := f.approvals.List(ctx, staff, tt.status)
		if err != nil {
			t.Fatalf("List(%q): %v", tt.status, err)
		}
		var got []string
		for _, reg := range regs {
			got = append(got, reg.ID)
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("List(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}

	if _, err := f.approvals.List(ctx, staff, "archived"); !errors.Is(err, service.ErrValidation) {
		t.Errorf("List(archived) error = %v, want ErrValidation", err)
	}
}

func TestMineAndTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.addEvent(t, 10, 100)

	reg, err := f.allocator.Submit(ctx, alice, submission(event.ID, 2, nextTx()))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.allocator.Submit(ctx, bob, submission(event.ID, 1, nextTx())); err != nil {
		t.Fatalf("Submit(bob): %v", err)
	}

	mine, err := f.approvals.Mine(ctx, alice)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != reg.ID || mine[0].EventTitle != event.Title {
		t.Errorf("Mine = %+v, want alice's registration with event title", mine)
	}
	if _, err := f.approvals.Mine(ctx, nobody); !errors.Is(err, service.ErrUnauthenticated) {
		t.Errorf("Mine(anonymous) error = %v, want ErrUnauthenticated", err)
	}

	ticket, err := f.approvals.Ticket(ctx, alice, strings.ToLower(reg.TrackingCode))
	if err != nil {
		t.Fatalf("Ticket: %v", err)
	}
	if ticket.Ready {
		t.Error("pending ticket reported ready")
	}
	if ticket.Event.ID != event.ID {
		t.Errorf("ticket event = %s, want %s", ticket.Event.ID, event.ID)
	}

	if _, err := f.approvals.Ticket(ctx, bob, reg.TrackingCode); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Ticket(other user) error = %v, want ErrNotFound", err)
	}

	if _, err := f.approvals.Approve(ctx, staff, reg.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	ticket, err = f.approvals.Ticket(ctx, staff, reg.TrackingCode)
	if err != nil {
		t.Fatalf("Ticket(staff): %v", err)
	}
	if !ticket.Ready {
		t.Error("approved ticket not ready")
	}
}
