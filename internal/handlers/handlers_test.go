package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"eventbook-backend/internal/auth"
	"eventbook-backend/internal/models"
	"eventbook-backend/internal/storage"
)

type fakeEventStore struct {
	events  map[string]*models.Event
	tickets map[string]*models.Ticket
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{
		events:  make(map[string]*models.Event),
		tickets: make(map[string]*models.Ticket),
	}
}

func (f *fakeEventStore) CreateEvent(ctx context.Context, event *models.Event) error {
	event.CreatedAt = time.Now()
	copied := *event
	f.events[event.ID] = &copied
	return nil
}

func (f *fakeEventStore) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	if e, ok := f.events[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeEventStore) ListPublishedEvents(ctx context.Context) ([]models.Event, error) {
	var out []models.Event
	for _, e := range f.events {
		if e.Status == models.EventStatusPublished {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEventStore) ListEventsByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error) {
	var out []models.Event
	for _, e := range f.events {
		if e.OrganizerID == organizerID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEventStore) UpdateEvent(ctx context.Context, event *models.Event) error {
	if _, ok := f.events[event.ID]; !ok {
		return storage.ErrEventNotFound
	}
	copied := *event
	f.events[event.ID] = &copied
	return nil
}

func (f *fakeEventStore) UpdateEventPhoto(ctx context.Context, id, photo string) error {
	e, ok := f.events[id]
	if !ok {
		return storage.ErrEventNotFound
	}
	e.Photo = photo
	return nil
}

func (f *fakeEventStore) SetEventStatus(ctx context.Context, id, status string) error {
	e, ok := f.events[id]
	if !ok {
		return storage.ErrEventNotFound
	}
	e.Status = status
	return nil
}

func (f *fakeEventStore) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	for _, t := range f.tickets {
		if t.EventID == ticket.EventID && t.UserID == ticket.UserID {
			return storage.ErrDuplicateTicket
		}
	}
	ticket.CreatedAt = time.Now()
	copied := *ticket
	f.tickets[ticket.ID] = &copied
	return nil
}

func (f *fakeEventStore) DeleteTicket(ctx context.Context, eventID, ticketID string) error {
	t, ok := f.tickets[ticketID]
	if !ok || t.EventID != eventID {
		return storage.ErrTicketNotFound
	}
	delete(f.tickets, ticketID)
	return nil
}

func (f *fakeEventStore) ListBookedEvents(ctx context.Context, userID string) ([]models.Event, error) {
	var out []models.Event
	for _, t := range f.tickets {
		if t.UserID != userID {
			continue
		}
		if e, ok := f.events[t.EventID]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

type fakeDirectory struct {
	users map[string]*models.User
}

func (f *fakeDirectory) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, nil
}

type fakeBus struct {
	subjects []string
}

func (f *fakeBus) Publish(subject string, payload interface{}) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

type eventEnv struct {
	store    *fakeEventStore
	dir      *fakeDirectory
	bus      *fakeBus
	issuer   *auth.Issuer
	router   chi.Router
	photoDir string
}

func newEventEnv(t *testing.T) *eventEnv {
	t.Helper()

	store := newFakeEventStore()
	dir := &fakeDirectory{users: make(map[string]*models.User)}
	bus := &fakeBus{}
	issuer := auth.NewIssuer([]byte("events-test-secret"), time.Hour)
	photoDir := t.TempDir()

	r := chi.NewRouter()
	New(store, bus, photoDir).RegisterRoutes(r, auth.Authenticate(issuer, dir))

	return &eventEnv{store: store, dir: dir, bus: bus, issuer: issuer, router: r, photoDir: photoDir}
}

// user registers a user in the directory and returns a session token for it.
func (e *eventEnv) user(t *testing.T, role string) (*models.User, string) {
	t.Helper()

	u := &models.User{
		ID:     uuid.New().String(),
		Name:   "Test User",
		Email:  uuid.New().String() + "@example.com",
		Role:   role,
		Active: true,
	}
	e.dir.users[u.ID] = u

	token, err := e.issuer.Generate(u.ID)
	require.NoError(t, err)
	return u, token
}

func (e *eventEnv) seedEvent(organizerID, status string) *models.Event {
	event := &models.Event{
		ID:          uuid.New().String(),
		Name:        "Launch Party",
		StartsAt:    time.Now().Add(48 * time.Hour),
		Capacity:    100,
		Photo:       "default.jpg",
		Status:      status,
		OrganizerID: organizerID,
	}
	e.store.events[event.ID] = event
	return event
}

func (e *eventEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func TestCreateEvent_StartsAsDraftOwnedByCaller(t *testing.T) {
	env := newEventEnv(t)
	organizer, token := env.user(t, models.RoleUser)

	resp := env.request(t, http.MethodPost, "/v1/events", token, map[string]interface{}{
		"name":      "Launch Party",
		"starts_at": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"capacity":  50,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var event models.Event
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &event))
	require.Equal(t, models.EventStatusDraft, event.Status)
	require.Equal(t, organizer.ID, event.OrganizerID)
	require.Contains(t, env.bus.subjects, "events."+event.ID+".created")
}

func TestCreateEvent_RequiresToken(t *testing.T) {
	env := newEventEnv(t)

	resp := env.request(t, http.MethodPost, "/v1/events", "", map[string]interface{}{
		"name":      "Launch Party",
		"starts_at": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestOrganizerGate(t *testing.T) {
	env := newEventEnv(t)
	organizer, organizerToken := env.user(t, models.RoleUser)
	_, strangerToken := env.user(t, models.RoleUser)
	_, adminToken := env.user(t, models.RoleAdmin)

	event := env.seedEvent(organizer.ID, models.EventStatusDraft)
	update := map[string]string{"name": "Renamed"}

	tests := []struct {
		name  string
		token string
		path  string
		want  int
	}{
		{"organizer may update", organizerToken, "/v1/events/" + event.ID, http.StatusOK},
		{"stranger is refused", strangerToken, "/v1/events/" + event.ID, http.StatusForbidden},
		{"admin may update any event", adminToken, "/v1/events/" + event.ID, http.StatusOK},
		{"unknown event", organizerToken, "/v1/events/" + uuid.New().String(), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.request(t, http.MethodPut, tt.path, tt.token, update)
			require.Equal(t, tt.want, resp.Code, resp.Body.String())
		})
	}
}

func TestOrganizerGate_CoversCancelAndPublish(t *testing.T) {
	env := newEventEnv(t)
	organizer, _ := env.user(t, models.RoleUser)
	_, strangerToken := env.user(t, models.RoleUser)

	event := env.seedEvent(organizer.ID, models.EventStatusDraft)

	resp := env.request(t, http.MethodPut, "/v1/events/"+event.ID+"/publish", strangerToken, nil)
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.request(t, http.MethodDelete, "/v1/events/"+event.ID, strangerToken, nil)
	require.Equal(t, http.StatusForbidden, resp.Code)

	require.Equal(t, models.EventStatusDraft, env.store.events[event.ID].Status)
}

func TestPublishEvent(t *testing.T) {
	env := newEventEnv(t)
	organizer, token := env.user(t, models.RoleUser)

	event := env.seedEvent(organizer.ID, models.EventStatusDraft)
	resp := env.request(t, http.MethodPut, "/v1/events/"+event.ID+"/publish", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, models.EventStatusPublished, env.store.events[event.ID].Status)

	cancelled := env.seedEvent(organizer.ID, models.EventStatusCancelled)
	resp = env.request(t, http.MethodPut, "/v1/events/"+cancelled.ID+"/publish", token, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, models.EventStatusCancelled, env.store.events[cancelled.ID].Status)
}

func TestUpdateEvent_PartialFields(t *testing.T) {
	env := newEventEnv(t)
	organizer, token := env.user(t, models.RoleUser)
	event := env.seedEvent(organizer.ID, models.EventStatusPublished)

	resp := env.request(t, http.MethodPut, "/v1/events/"+event.ID, token, map[string]interface{}{
		"capacity": 250,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	stored := env.store.events[event.ID]
	require.Equal(t, 250, stored.Capacity)
	require.Equal(t, "Launch Party", stored.Name)
}

func TestBookTicket(t *testing.T) {
	env := newEventEnv(t)
	organizer, _ := env.user(t, models.RoleUser)
	attendee, attendeeToken := env.user(t, models.RoleUser)

	published := env.seedEvent(organizer.ID, models.EventStatusPublished)
	draft := env.seedEvent(organizer.ID, models.EventStatusDraft)

	resp := env.request(t, http.MethodPost, "/v1/events/"+published.ID+"/tickets", attendeeToken, nil)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var ticket models.Ticket
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &ticket))
	require.Equal(t, attendee.ID, ticket.UserID)
	require.Contains(t, env.bus.subjects, "events."+published.ID+".ticket.booked")

	// one ticket per user per event
	resp = env.request(t, http.MethodPost, "/v1/events/"+published.ID+"/tickets", attendeeToken, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	// draft events are not bookable
	resp = env.request(t, http.MethodPost, "/v1/events/"+draft.ID+"/tickets", attendeeToken, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCancelTicket_OrganizerOnly(t *testing.T) {
	env := newEventEnv(t)
	organizer, organizerToken := env.user(t, models.RoleUser)
	_, attendeeToken := env.user(t, models.RoleUser)

	event := env.seedEvent(organizer.ID, models.EventStatusPublished)

	resp := env.request(t, http.MethodPost, "/v1/events/"+event.ID+"/tickets", attendeeToken, nil)
	require.Equal(t, http.StatusCreated, resp.Code)

	var ticket models.Ticket
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &ticket))

	// the ticket holder cannot cancel through the organizer route
	resp = env.request(t, http.MethodDelete, "/v1/events/"+event.ID+"/tickets/"+ticket.ID, attendeeToken, nil)
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.request(t, http.MethodDelete, "/v1/events/"+event.ID+"/tickets/"+ticket.ID, organizerToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = env.request(t, http.MethodDelete, "/v1/events/"+event.ID+"/tickets/"+ticket.ID, organizerToken, nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListEvents_OnlyPublished(t *testing.T) {
	env := newEventEnv(t)
	organizer, _ := env.user(t, models.RoleUser)

	published := env.seedEvent(organizer.ID, models.EventStatusPublished)
	env.seedEvent(organizer.ID, models.EventStatusDraft)

	resp := env.request(t, http.MethodGet, "/v1/events", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Events []models.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	require.Equal(t, published.ID, body.Events[0].ID)
}

func TestMyEvents_IncludesDrafts(t *testing.T) {
	env := newEventEnv(t)
	organizer, organizerToken := env.user(t, models.RoleUser)
	other, _ := env.user(t, models.RoleUser)

	draft := env.seedEvent(organizer.ID, models.EventStatusDraft)
	env.seedEvent(other.ID, models.EventStatusPublished)

	// the public listing hides the draft
	resp := env.request(t, http.MethodGet, "/v1/events", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var public struct {
		Events []models.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &public))
	for _, e := range public.Events {
		require.NotEqual(t, draft.ID, e.ID)
	}

	// the own listing shows it, and nothing belonging to other organizers
	resp = env.request(t, http.MethodGet, "/v1/events/me", organizerToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var own struct {
		Events []models.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &own))
	require.Len(t, own.Events, 1)
	require.Equal(t, draft.ID, own.Events[0].ID)
	require.Equal(t, models.EventStatusDraft, own.Events[0].Status)
}

func TestMyEvents_RequiresToken(t *testing.T) {
	env := newEventEnv(t)

	resp := env.request(t, http.MethodGet, "/v1/events/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func (e *eventEnv) uploadPhoto(t *testing.T, eventID, token, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPatch, "/v1/events/"+eventID+"/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

// pngBytes is a valid PNG signature, enough for content sniffing.
var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}

func TestUploadEventPhoto(t *testing.T) {
	env := newEventEnv(t)
	organizer, token := env.user(t, models.RoleUser)
	event := env.seedEvent(organizer.ID, models.EventStatusPublished)

	resp := env.uploadPhoto(t, event.ID, token, "party.png", pngBytes)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	want := event.ID + ".jpg"
	require.Equal(t, want, env.store.events[event.ID].Photo)

	stored, err := os.ReadFile(filepath.Join(env.photoDir, want))
	require.NoError(t, err)
	require.Equal(t, pngBytes, stored)
	require.Contains(t, env.bus.subjects, "events."+event.ID+".updated")
}

func TestUploadEventPhoto_RejectsNonImage(t *testing.T) {
	env := newEventEnv(t)
	organizer, token := env.user(t, models.RoleUser)
	event := env.seedEvent(organizer.ID, models.EventStatusPublished)

	resp := env.uploadPhoto(t, event.ID, token, "notes.txt", []byte("plain text, not a picture"))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "validation_error")

	require.Equal(t, "default.jpg", env.store.events[event.ID].Photo)
	_, err := os.Stat(filepath.Join(env.photoDir, event.ID+".jpg"))
	require.True(t, os.IsNotExist(err))
}

func TestUploadEventPhoto_GateApplies(t *testing.T) {
	env := newEventEnv(t)
	organizer, _ := env.user(t, models.RoleUser)
	_, strangerToken := env.user(t, models.RoleUser)
	event := env.seedEvent(organizer.ID, models.EventStatusPublished)

	resp := env.uploadPhoto(t, event.ID, strangerToken, "party.png", pngBytes)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestMyBookedEvents(t *testing.T) {
	env := newEventEnv(t)
	organizer, _ := env.user(t, models.RoleUser)
	_, attendeeToken := env.user(t, models.RoleUser)

	event := env.seedEvent(organizer.ID, models.EventStatusPublished)
	env.seedEvent(organizer.ID, models.EventStatusPublished)

	resp := env.request(t, http.MethodPost, "/v1/events/"+event.ID+"/tickets", attendeeToken, nil)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = env.request(t, http.MethodGet, "/v1/events/me/booked", attendeeToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Events []models.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	require.Equal(t, event.ID, body.Events[0].ID)
}
