package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nfps-events/ticketing/internal/auth"
	"github.com/nfps-events/ticketing/internal/model"
)

// Dashboard handles GET /admin/events
// Lists events with approved registration and ticket counts.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.Catalog.Dashboard(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.localSummaries(events))
}

// CreateEvent handles POST /admin/events
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err)
		return
	}
	event, err := h.svc.Catalog.Create(r.Context(), auth.ActorFrom(r.Context()), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.localEvent(*event))
}

// UpdateEvent handles PUT /admin/events/{id}
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err)
		return
	}
	event, err := h.svc.Catalog.Update(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.localEvent(*event))
}

// DeleteEvent handles DELETE /admin/events/{id}
// Registrations for the event are deleted with it.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Catalog.Delete(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EventRegistrations handles GET /admin/events/{id}/registrations
func (h *Handler) EventRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.Catalog.Registrations(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.localRegistrations(regs))
}

// ListRegistrations handles GET /admin/registrations?status=pending
func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.Approvals.List(r.Context(), auth.ActorFrom(r.Context()), r.URL.Query().Get("status"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.localRegistrations(regs))
}

// Approve handles POST /admin/registrations/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	reg, err := h.svc.Approvals.Approve(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	reg.RegisteredAt = reg.RegisteredAt.In(h.loc)
	writeJSON(w, http.StatusOK, reg)
}

// Reject handles POST /admin/registrations/{id}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	reg, err := h.svc.Approvals.Reject(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	reg.RegisteredAt = reg.RegisteredAt.In(h.loc)
	writeJSON(w, http.StatusOK, reg)
}

// ListPaymentMethods handles GET /admin/payment-methods
func (h *Handler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.svc.PaymentMethods.List(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if methods == nil {
		methods = []model.PaymentMethod{}
	}
	writeJSON(w, http.StatusOK, methods)
}

// CreatePaymentMethod handles POST /admin/payment-methods
func (h *Handler) CreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var in model.PaymentMethodInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err)
		return
	}
	pm, err := h.svc.PaymentMethods.Create(r.Context(), auth.ActorFrom(r.Context()), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pm)
}

// UpdatePaymentMethod handles PUT /admin/payment-methods/{id}
func (h *Handler) UpdatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var in model.PaymentMethodInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err)
		return
	}
	pm, err := h.svc.PaymentMethods.Update(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pm)
}
