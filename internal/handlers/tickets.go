package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"eventbook-backend/internal/auth"
	"eventbook-backend/internal/models"
	"eventbook-backend/internal/storage"
	"eventbook-backend/internal/web"
)

func (h *Handler) BookTicket(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	event, err := h.store.GetEventByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Printf("Error loading event: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	if event == nil {
		web.Error(w, http.StatusNotFound, "not_found", "event not found")
		return
	}
	if event.Status != models.EventStatusPublished {
		web.Error(w, http.StatusBadRequest, "validation_error", "event is not open for booking")
		return
	}

	ticket := &models.Ticket{
		ID:      uuid.New().String(),
		EventID: event.ID,
		UserID:  principal.ID,
	}

	if err := h.store.CreateTicket(r.Context(), ticket); err != nil {
		if errors.Is(err, storage.ErrDuplicateTicket) {
			web.Error(w, http.StatusBadRequest, "validation_error", "you already hold a ticket for this event")
			return
		}
		log.Printf("Error booking ticket: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	h.publish(event, principal.ID, "ticket.booked")
	web.JSON(w, http.StatusCreated, ticket)
}

// CancelTicket runs behind the organizer gate: cancelling someone's booking
// is an event mutation, not a self-service operation.
func (h *Handler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	event, ok := EventFromContext(r.Context())
	if !ok {
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	ticketID := chi.URLParam(r, "ticketID")
	if err := h.store.DeleteTicket(r.Context(), event.ID, ticketID); err != nil {
		if errors.Is(err, storage.ErrTicketNotFound) {
			web.Error(w, http.StatusNotFound, "not_found", "ticket not found")
			return
		}
		log.Printf("Error cancelling ticket: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	h.publish(event, "", "ticket.cancelled")
	web.JSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handler) MyBookedEvents(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	events, err := h.store.ListBookedEvents(r.Context(), principal.ID)
	if err != nil {
		log.Printf("Error listing booked events: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	web.JSON(w, http.StatusOK, map[string][]models.Event{"events": events})
}
