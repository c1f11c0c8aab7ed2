// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nfps-events/ticketing/internal/auth"
	"github.com/nfps-events/ticketing/internal/model"
	"github.com/nfps-events/ticketing/internal/service"
)

// Services groups the domain services the handlers call into.
type Services struct {
	Catalog        *service.Catalog
	Allocator      *service.Allocator
	Approvals      *service.Approvals
	PaymentMethods *service.PaymentMethods
}

// Handler holds all HTTP handlers for the ticketing API.
type Handler struct {
	svc    Services
	logger *slog.Logger
	// loc is the zone event times are rendered in.
	loc *time.Location
}

// New constructs a Handler. A nil location renders times in UTC.
func New(svc Services, logger *slog.Logger, loc *time.Location) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{svc: svc, logger: logger, loc: loc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// errorStatus lists each domain error kind with its status and stable code.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},
	{service.ErrValidation, http.StatusBadRequest, "validation"},
	{service.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{service.ErrClosed, http.StatusConflict, "closed"},
	{service.ErrCapExceeded, http.StatusConflict, "cap_exceeded"},
	{service.ErrSoldOut, http.StatusConflict, "sold_out"},
	{service.ErrDuplicateTransaction, http.StatusConflict, "duplicate_transaction"},
	{service.ErrDuplicatePaymentMethod, http.StatusConflict, "duplicate_payment_method"},
	{service.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{service.ErrSeatsBelowBooked, http.StatusConflict, "seats_below_booked"},
	{service.ErrPaymentMethodUnavailable, http.StatusUnprocessableEntity, "payment_method_unavailable"},
}

// writeServiceError maps a service error onto an HTTP response. Expected
// outcomes carry their message to the client; anything else is logged and
// reported as an opaque 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			writeError(w, e.status, e.code, err.Error())
			return
		}
	}
	var storageErr *service.StorageError
	if errors.As(err, &storageErr) {
		h.logger.Error("storage failure",
			"op", storageErr.Op,
			"error", storageErr.Err,
			"request_id", middleware.GetReqID(r.Context()),
		)
	} else {
		h.logger.Error("unhandled error", "error", err, "request_id", middleware.GetReqID(r.Context()))
	}
	writeError(w, http.StatusInternalServerError, "internal", "internal server error")
}

func badRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
}

func (h *Handler) localEvent(e model.Event) model.Event {
	e.StartsAt = e.StartsAt.In(h.loc)
	e.CreatedAt = e.CreatedAt.In(h.loc)
	return e
}

func (h *Handler) localSummaries(events []model.EventSummary) []model.EventSummary {
	out := make([]model.EventSummary, len(events))
	for i, e := range events {
		e.Event = h.localEvent(e.Event)
		out[i] = e
	}
	return out
}

func (h *Handler) localRegistrations(regs []model.Registration) []model.Registration {
	out := make([]model.Registration, len(regs))
	for i, reg := range regs {
		reg.RegisteredAt = reg.RegisteredAt.In(h.loc)
		out[i] = reg
	}
	return out
}

// ─── Public event handlers ────────────────────────────────────────────────────

// ListEvents handles GET /events
// Returns every event with its booked and remaining seats.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.Catalog.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.localSummaries(events))
}

// GetEvent handles GET /events/{id}
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	detail.Event = h.localEvent(detail.Event)
	writeJSON(w, http.StatusOK, detail)
}

// QuoteEvent handles GET /events/{id}/quote?tickets=n
func (h *Handler) QuoteEvent(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.URL.Query().Get("tickets"))
	if err != nil {
		h.writeServiceError(w, r, service.ErrInvalidQuantity)
		return
	}
	quote, err := h.svc.Allocator.Quote(r.Context(), chi.URLParam(r, "id"), n)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// Intent handles POST /events/{id}/intent
// Checks a quantity against the caller's cap and the remaining seats and
// returns the price with the payment methods to pay through.
func (h *Handler) Intent(w http.ResponseWriter, r *http.Request) {
	var req model.IntentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	intent, err := h.svc.Allocator.Intent(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id"), req.Tickets)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

// Submit handles POST /events/{id}/registrations
// Records a pending registration against a payment reference.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	req.EventID = chi.URLParam(r, "id")

	reg, err := h.svc.Allocator.Submit(r.Context(), auth.ActorFrom(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	reg.RegisteredAt = reg.RegisteredAt.In(h.loc)
	writeJSON(w, http.StatusCreated, reg)
}

// ─── Registrant handlers ──────────────────────────────────────────────────────

// MyRegistrations handles GET /me/registrations
func (h *Handler) MyRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.Approvals.Mine(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.localRegistrations(regs))
}

// GetTicket handles GET /tickets/{code}
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.svc.Approvals.Ticket(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "code"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	ticket.Event = h.localEvent(ticket.Event)
	ticket.Registration.RegisteredAt = ticket.Registration.RegisteredAt.In(h.loc)
	writeJSON(w, http.StatusOK, ticket)
}

// ListActivePaymentMethods handles GET /payment-methods
func (h *Handler) ListActivePaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.svc.PaymentMethods.ListActive(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if methods == nil {
		methods = []model.PaymentMethod{}
	}
	writeJSON(w, http.StatusOK, methods)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
