package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"eventbook-backend/internal/auth"
	"eventbook-backend/internal/models"
	"eventbook-backend/internal/natsbus"
	"eventbook-backend/internal/web"
)

// EventStore is the resource store the event routes run against.
type EventStore interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	ListPublishedEvents(ctx context.Context) ([]models.Event, error)
	ListEventsByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event) error
	UpdateEventPhoto(ctx context.Context, id, photo string) error
	SetEventStatus(ctx context.Context, id, status string) error
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	DeleteTicket(ctx context.Context, eventID, ticketID string) error
	ListBookedEvents(ctx context.Context, userID string) ([]models.Event, error)
}

// Bus carries event lifecycle notices to downstream consumers.
type Bus interface {
	Publish(subject string, payload interface{}) error
}

type Handler struct {
	store    EventStore
	bus      Bus
	photoDir string
}

func New(store EventStore, bus Bus, photoDir string) *Handler {
	return &Handler{
		store:    store,
		bus:      bus,
		photoDir: photoDir,
	}
}

// RegisterRoutes wires the event routes. requireAuth is the session-token
// middleware; the organizer gate sits inside it on the mutation routes.
func (h *Handler) RegisterRoutes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Get("/v1/events", h.ListEvents)
	r.Get("/v1/events/{id}", h.GetEvent)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/v1/events", h.CreateEvent)
		r.Get("/v1/events/me", h.MyEvents)
		r.Get("/v1/events/me/booked", h.MyBookedEvents)
		r.Post("/v1/events/{id}/tickets", h.BookTicket)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireOrganizer)

			r.Put("/v1/events/{id}", h.UpdateEvent)
			r.Patch("/v1/events/{id}/photo", h.UploadEventPhoto)
			r.Delete("/v1/events/{id}", h.CancelEvent)
			r.Put("/v1/events/{id}/publish", h.PublishEvent)
			r.Delete("/v1/events/{id}/tickets/{ticketID}", h.CancelTicket)
		})
	})
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.ListPublishedEvents(r.Context())
	if err != nil {
		log.Printf("Error listing events: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	web.JSON(w, http.StatusOK, map[string][]models.Event{"events": events})
}

// MyEvents lists the caller's own events regardless of status, so organizers
// can find their drafts before publishing.
func (h *Handler) MyEvents(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	events, err := h.store.ListEventsByOrganizer(r.Context(), principal.ID)
	if err != nil {
		log.Printf("Error listing organizer events: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	web.JSON(w, http.StatusOK, map[string][]models.Event{"events": events})
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
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

	web.JSON(w, http.StatusOK, event)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var input models.CreateEventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		web.Error(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	if input.Name == "" {
		web.Error(w, http.StatusBadRequest, "validation_error", "name is required")
		return
	}
	if input.StartsAt.IsZero() {
		web.Error(w, http.StatusBadRequest, "validation_error", "starts_at is required")
		return
	}

	event := &models.Event{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: input.Description,
		Location:    input.Location,
		StartsAt:    input.StartsAt,
		Capacity:    input.Capacity,
		Photo:       "default.jpg",
		Status:      models.EventStatusDraft,
		OrganizerID: principal.ID,
	}

	if err := h.store.CreateEvent(r.Context(), event); err != nil {
		log.Printf("Error creating event: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	h.publish(event, "", "created")
	web.JSON(w, http.StatusCreated, event)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := EventFromContext(r.Context())
	if !ok {
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	var input models.UpdateEventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		web.Error(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	if input.Name != nil {
		event.Name = *input.Name
	}
	if input.Description != nil {
		event.Description = *input.Description
	}
	if input.Location != nil {
		event.Location = *input.Location
	}
	if input.StartsAt != nil {
		event.StartsAt = *input.StartsAt
	}
	if input.Capacity != nil {
		event.Capacity = *input.Capacity
	}

	if err := h.store.UpdateEvent(r.Context(), event); err != nil {
		log.Printf("Error updating event: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	h.publish(event, "", "updated")
	web.JSON(w, http.StatusOK, event)
}

func (h *Handler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := EventFromContext(r.Context())
	if !ok {
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	if event.Status == models.EventStatusCancelled {
		web.Error(w, http.StatusBadRequest, "validation_error", "a cancelled event cannot be published")
		return
	}

	if err := h.store.SetEventStatus(r.Context(), event.ID, models.EventStatusPublished); err != nil {
		log.Printf("Error publishing event: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	event.Status = models.EventStatusPublished
	h.publish(event, "", "published")
	web.JSON(w, http.StatusOK, event)
}

func (h *Handler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := EventFromContext(r.Context())
	if !ok {
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	if err := h.store.SetEventStatus(r.Context(), event.ID, models.EventStatusCancelled); err != nil {
		log.Printf("Error cancelling event: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	event.Status = models.EventStatusCancelled
	h.publish(event, "", "cancelled")
	web.JSON(w, http.StatusOK, event)
}

// publish is best-effort: a bus outage never fails the request.
func (h *Handler) publish(event *models.Event, userID, action string) {
	if h.bus == nil {
		return
	}

	notice := natsbus.EventNotice{
		EventID:     event.ID,
		OrganizerID: event.OrganizerID,
		UserID:      userID,
		Action:      action,
		At:          time.Now().UTC(),
	}

	subject := "events." + event.ID + "." + action
	if err := h.bus.Publish(subject, notice); err != nil {
		log.Printf("Error publishing %s: %v", subject, err)
	}
}
