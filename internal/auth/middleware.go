package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nfps-events/ticketing/internal/model"
)

// Middleware resolves the bearer token, if any, into the request actor.
// A missing Authorization header yields the anonymous actor; a present but
// invalid one is rejected with 401 so that a client never silently loses
// its identity.
func Middleware(issuer *Issuer, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				unauthorized(w, "authorization header must be a bearer token")
				return
			}
			actor, err := issuer.Parse(strings.TrimSpace(token))
			if err != nil {
				logger.Debug("rejected bearer token", "error", err)
				unauthorized(w, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="ticketing"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{Error: msg, Code: "unauthenticated"})
}
