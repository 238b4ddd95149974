package storage

import (
	"context"
	"database/sql"
	"errors"

	"eventbook-backend/internal/models"
)

const eventColumns = `id, name, description, location, starts_at, capacity,
	photo, status, organizer_id, created_at`

func (s *Storage) CreateEvent(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (id, name, description, location, starts_at, capacity, photo, status, organizer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	return s.db.QueryRowContext(ctx, query,
		event.ID, event.Name, event.Description, event.Location,
		event.StartsAt, event.Capacity, event.Photo, event.Status, event.OrganizerID,
	).Scan(&event.CreatedAt)
}

func (s *Storage) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	if err := s.db.GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (s *Storage) ListPublishedEvents(ctx context.Context) ([]models.Event, error) {
	events := make([]models.Event, 0)
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE status = $1
		ORDER BY starts_at ASC
	`
	err := s.db.SelectContext(ctx, &events, query, models.EventStatusPublished)
	return events, err
}

// ListEventsByOrganizer returns every event the organizer owns, drafts and
// cancelled ones included.
func (s *Storage) ListEventsByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error) {
	events := make([]models.Event, 0)
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE organizer_id = $1
		ORDER BY starts_at ASC
	`
	err := s.db.SelectContext(ctx, &events, query, organizerID)
	return events, err
}

func (s *Storage) UpdateEvent(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events
		SET name = $1, description = $2, location = $3, starts_at = $4, capacity = $5
		WHERE id = $6
	`
	res, err := s.db.ExecContext(ctx, query,
		event.Name, event.Description, event.Location, event.StartsAt, event.Capacity, event.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (s *Storage) UpdateEventPhoto(ctx context.Context, id, photo string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE events SET photo = $1 WHERE id = $2`, photo, id)
	return err
}

func (s *Storage) SetEventStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE events SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (s *Storage) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	query := `
		INSERT INTO tickets (id, event_id, user_id)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, query, ticket.ID, ticket.EventID, ticket.UserID).
		Scan(&ticket.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTicket
		}
		return err
	}
	return nil
}

func (s *Storage) DeleteTicket(ctx context.Context, eventID, ticketID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tickets WHERE id = $1 AND event_id = $2`, ticketID, eventID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// ListBookedEvents returns the events the user holds a ticket for.
func (s *Storage) ListBookedEvents(ctx context.Context, userID string) ([]models.Event, error) {
	events := make([]models.Event, 0)
	query := `
		SELECT e.id, e.name, e.description, e.location, e.starts_at, e.capacity,
			e.photo, e.status, e.organizer_id, e.created_at
		FROM events e
		JOIN tickets t ON t.event_id = e.id
		WHERE t.user_id = $1
		ORDER BY e.starts_at ASC
	`
	err := s.db.SelectContext(ctx, &events, query, userID)
	return events, err
}
