package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nfps-events/ticketing/internal/auth"
	"github.com/nfps-events/ticketing/internal/database"
	"github.com/nfps-events/ticketing/internal/handler"
	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/repository/sqlite"
	"github.com/nfps-events/ticketing/internal/service"
)

type testServer struct {
	t      *testing.T
	router http.Handler
	issuer *auth.Issuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	pool, err := database.OpenSQLite(database.SQLiteConfig{Path: filepath.Join(t.TempDir(), "api.db")})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	store := sqlite.NewStore(pool)
	opts := service.Options{}
	h := handler.New(handler.Services{
		Catalog:        service.NewCatalog(store, opts),
		Allocator:      service.NewAllocator(store, opts),
		Approvals:      service.NewApprovals(store, opts),
		PaymentMethods: service.NewPaymentMethods(store, opts),
	}, nil, time.FixedZone("BST", 6*60*60))

	issuer := auth.NewIssuer("0123456789abcdef0123", "test")
	return &testServer{t: t, router: handler.NewRouter(h, issuer, nil), issuer: issuer}
}

func (s *testServer) token(userID string, superuser bool) string {
	s.t.Helper()
	token, err := s.issuer.Issue(userID, superuser, time.Hour)
	if err != nil {
		s.t.Fatalf("Issue: %v", err)
	}
	return token
}

// do sends a request and decodes the JSON response into out when non-nil.
func (s *testServer) do(method, path, token string, body any, out any) int {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			s.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

func submitBody(tickets int, tx string) map[string]any {
	return map[string]any{
		"tickets": tickets,
		"details": map[string]string{
			"name":       "Rahim",
			"student_id": "NFPS-7",
			"phone":      "01712345678",
		},
		"transaction_id": tx,
		"payment_method": "bkash",
	}
}

func TestBookingFlow(t *testing.T) {
	s := newTestServer(t)
	staff := s.token("staff", true)
	alice := s.token("alice", false)
	bob := s.token("bob", false)

	var pm model.PaymentMethod
	if code := s.do(http.MethodPost, "/admin/payment-methods", staff,
		map[string]any{"method": "bkash", "number": "01700000000"}, &pm); code != http.StatusCreated {
		t.Fatalf("create payment method status = %d", code)
	}

	var event model.Event
	code := s.do(http.MethodPost, "/admin/events", staff, map[string]any{
		"title":        "Gala",
		"venue":        "Hall",
		"starts_at":    time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		"total_seats":  2,
		"ticket_price": "100",
	}, &event)
	if code != http.StatusCreated {
		t.Fatalf("create event status = %d", code)
	}
	if _, offset := event.StartsAt.Zone(); offset != 6*60*60 {
		t.Errorf("starts_at offset = %d, want +06:00", offset)
	}

	var quote model.Quote
	if code := s.do(http.MethodGet, "/events/"+event.ID+"/quote?tickets=2", "", nil, &quote); code != http.StatusOK {
		t.Fatalf("quote status = %d", code)
	}
	if quote.TotalPrice.String() != "200.00" {
		t.Errorf("quote total = %s, want 200.00", quote.TotalPrice)
	}

	var intent model.Intent
	if code := s.do(http.MethodPost, "/events/"+event.ID+"/intent", alice, map[string]int{"tickets": 2}, &intent); code != http.StatusOK {
		t.Fatalf("intent status = %d", code)
	}
	if len(intent.PaymentMethods) != 1 {
		t.Errorf("intent payment methods = %+v", intent.PaymentMethods)
	}

	var reg model.Registration
	if code := s.do(http.MethodPost, "/events/"+event.ID+"/registrations", alice, submitBody(2, "tx1"), &reg); code != http.StatusCreated {
		t.Fatalf("submit status = %d", code)
	}
	if reg.Status != model.StatusPending || reg.TotalPrice.String() != "200.00" {
		t.Errorf("registration = %s %s, want pending 200.00", reg.Status, reg.TotalPrice)
	}

	var errResp model.ErrorResponse
	if code := s.do(http.MethodPost, "/events/"+event.ID+"/registrations", bob, submitBody(1, "tx2"), &errResp); code != http.StatusConflict {
		t.Fatalf("second submit status = %d, want 409", code)
	}
	if errResp.Code != "sold_out" {
		t.Errorf("error code = %q, want sold_out", errResp.Code)
	}

	if code := s.do(http.MethodPost, "/admin/registrations/"+reg.ID+"/approve", alice, nil, nil); code != http.StatusForbidden {
		t.Errorf("approve by user status = %d, want 403", code)
	}
	var approved model.Registration
	if code := s.do(http.MethodPost, "/admin/registrations/"+reg.ID+"/approve", staff, nil, &approved); code != http.StatusOK {
		t.Fatalf("approve status = %d", code)
	}
	if approved.Status != model.StatusComplete {
		t.Errorf("approved status = %s", approved.Status)
	}

	var detail model.EventDetail
	if code := s.do(http.MethodGet, "/events/"+event.ID, "", nil, &detail); code != http.StatusOK {
		t.Fatalf("get event status = %d", code)
	}
	if detail.RemainingSeats != 0 || detail.Past {
		t.Errorf("detail remaining=%d past=%v, want 0 false", detail.RemainingSeats, detail.Past)
	}

	var ticket model.Ticket
	if code := s.do(http.MethodGet, "/tickets/"+reg.TrackingCode, alice, nil, &ticket); code != http.StatusOK {
		t.Fatalf("ticket status = %d", code)
	}
	if !ticket.Ready {
		t.Error("approved ticket not ready")
	}
	if code := s.do(http.MethodGet, "/tickets/"+reg.TrackingCode, bob, nil, nil); code != http.StatusNotFound {
		t.Errorf("ticket for other user status = %d, want 404", code)
	}

	var mine []model.Registration
	if code := s.do(http.MethodGet, "/me/registrations", alice, nil, &mine); code != http.StatusOK {
		t.Fatalf("mine status = %d", code)
	}
	if len(mine) != 1 || mine[0].EventTitle != "Gala" {
		t.Errorf("mine = %+v", mine)
	}

	var dashboard []model.EventSummary
	if code := s.do(http.MethodGet, "/admin/events", staff, nil, &dashboard); code != http.StatusOK {
		t.Fatalf("dashboard status = %d", code)
	}
	if len(dashboard) != 1 || dashboard[0].ApprovedRegistrations != 1 || dashboard[0].ApprovedTickets != 2 {
		t.Errorf("dashboard = %+v", dashboard)
	}
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	staff := s.token("staff", true)
	alice := s.token("alice", false)

	var event model.Event
	if code := s.do(http.MethodPost, "/admin/events", staff, map[string]any{
		"title":       "Past",
		"venue":       "Hall",
		"starts_at":   time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
		"total_seats": 10,
	}, &event); code != http.StatusCreated {
		t.Fatalf("create event status = %d", code)
	}

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		body     any
		wantCode int
		wantErr  string
	}{
		{name: "unknown event", method: http.MethodGet, path: "/events/nope", wantCode: http.StatusNotFound, wantErr: "not_found"},
		{name: "anonymous submit", method: http.MethodPost, path: "/events/" + event.ID + "/registrations", body: submitBody(1, "a"), wantCode: http.StatusUnauthorized, wantErr: "unauthenticated"},
		{name: "closed", method: http.MethodPost, path: "/events/" + event.ID + "/registrations", token: alice, body: submitBody(1, "b"), wantCode: http.StatusConflict, wantErr: "closed"},
		{name: "bad quote quantity", method: http.MethodGet, path: "/events/" + event.ID + "/quote?tickets=x", wantCode: http.StatusBadRequest, wantErr: "invalid_quantity"},
		{name: "unknown field", method: http.MethodPost, path: "/admin/events", token: staff, body: map[string]any{"name": "x"}, wantCode: http.StatusBadRequest, wantErr: "bad_request"},
		{name: "invalid event", method: http.MethodPost, path: "/admin/events", token: staff, body: map[string]any{"title": ""}, wantCode: http.StatusBadRequest, wantErr: "validation"},
		{name: "dashboard as user", method: http.MethodGet, path: "/admin/events", token: alice, wantCode: http.StatusForbidden, wantErr: "forbidden"},
		{name: "bad token", method: http.MethodGet, path: "/me/registrations", token: "garbage", wantCode: http.StatusUnauthorized, wantErr: "unauthenticated"},
		{name: "bad status filter", method: http.MethodGet, path: "/admin/registrations?status=lost", token: staff, wantCode: http.StatusBadRequest, wantErr: "validation"},
		{name: "approve missing", method: http.MethodPost, path: "/admin/registrations/nope/approve", token: staff, wantCode: http.StatusNotFound, wantErr: "not_found"},
		{name: "no such route", method: http.MethodGet, path: "/nowhere", wantCode: http.StatusNotFound, wantErr: "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp model.ErrorResponse
			code := s.do(tt.method, tt.path, tt.token, tt.body, &resp)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%+v)", code, tt.wantCode, resp)
			}
			if resp.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantErr)
			}
			if strings.TrimSpace(resp.Error) == "" {
				t.Error("empty error message")
			}
		})
	}
}

func TestHealthAndCORS(t *testing.T) {
	s := newTestServer(t)

	var body map[string]string
	if code := s.do(http.MethodGet, "/health", "", nil, &body); code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health = %d %v", code, body)
	}

	req := httptest.NewRequest(http.MethodOptions, "/events", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}

	var events []model.EventSummary
	if code := s.do(http.MethodGet, "/events", "", nil, &events); code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	if events == nil || len(events) != 0 {
		t.Errorf("events = %#v, want empty array", events)
	}
}
