package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventbook-backend/internal/auth"
	"eventbook-backend/internal/models"
	"eventbook-backend/internal/web"
)

type contextKey string

const eventKey contextKey = "eventbook_event"

// RequireOrganizer is the owner-or-admin gate shared by every event mutation
// route. It loads the target event once, decides, and attaches the event to
// the request context so the handler does not re-fetch it.
func (h *Handler) RequireOrganizer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			web.Error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}

		event, err := h.store.GetEventByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			log.Printf("Error loading event for authorization: %v", err)
			web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		if event == nil {
			web.Error(w, http.StatusNotFound, "not_found", "event not found")
			return
		}

		if !principal.IsAdmin() && principal.ID != event.OrganizerID {
			web.Error(w, http.StatusForbidden, "forbidden", "only the organizer may modify this event")
			return
		}

		ctx := context.WithValue(r.Context(), eventKey, event)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// EventFromContext returns the event loaded by RequireOrganizer.
func EventFromContext(ctx context.Context) (*models.Event, bool) {
	event, ok := ctx.Value(eventKey).(*models.Event)
	return event, ok
}
