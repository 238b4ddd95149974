package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const baseURL = "http://localhost:8080"

type session struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
}

type event struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

func main() {
	fmt.Println("=== Eventbook Backend Integration Test ===")

	suffix := time.Now().UnixNano()

	// 1. Sign up an organizer and an attendee
	fmt.Println("1. Signing up organizer and attendee...")
	organizer := signup(fmt.Sprintf("organizer-%d@example.com", suffix))
	attendee := signup(fmt.Sprintf("attendee-%d@example.com", suffix))

	// 2. Organizer creates and publishes an event
	fmt.Println("2. Creating and publishing event...")
	ev := createEvent(organizer.Token)
	status := do("PUT", "/v1/events/"+ev.ID+"/publish", organizer.Token, nil)
	if status != http.StatusOK {
		log.Fatalf("publish: expected 200, got %d", status)
	}

	// 3. Attendee books a ticket
	fmt.Println("3. Booking ticket as attendee...")
	if status := do("POST", "/v1/events/"+ev.ID+"/tickets", attendee.Token, nil); status != http.StatusCreated {
		log.Fatalf("book ticket: expected 201, got %d", status)
	}

	// 4. Attendee must not be able to mutate the organizer's event
	fmt.Println("4. Verifying ownership gate...")
	if status := do("DELETE", "/v1/events/"+ev.ID, attendee.Token, nil); status != http.StatusForbidden {
		log.Fatalf("gate: expected 403 for non-organizer delete, got %d", status)
	}

	// 5. Organizer cancels the event
	if status := do("DELETE", "/v1/events/"+ev.ID, organizer.Token, nil); status != http.StatusOK {
		log.Fatalf("cancel: expected 200 for organizer delete, got %d", status)
	}

	fmt.Println("=== All integration checks passed ===")
}

func signup(email string) session {
	body := map[string]string{
		"name":            "Integration Runner",
		"email":           email,
		"password":        "integration-pass",
		"passwordConfirm": "integration-pass",
	}

	var s session
	postJSON("/v1/auth/signup", "", body, http.StatusCreated, &s)
	if s.Token == "" {
		log.Fatal("signup returned no token")
	}
	return s
}

func createEvent(token string) event {
	body := map[string]interface{}{
		"name":      "Integration Meetup",
		"location":  "Test Hall",
		"starts_at": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"capacity":  10,
	}

	var ev event
	postJSON("/v1/events", token, body, http.StatusCreated, &ev)
	if ev.ID == "" {
		log.Fatal("create event returned no id")
	}
	return ev
}

func postJSON(path, token string, body interface{}, wantStatus int, out interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("marshal %s body: %v", path, err)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(data))
	if err != nil {
		log.Fatalf("build %s request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		log.Fatalf("%s: expected %d, got %d", path, wantStatus, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("decode %s response: %v", path, err)
		}
	}
}

func do(method, path, token string, body []byte) int {
	req, err := http.NewRequest(method, baseURL+path, bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build %s %s: %v", method, path, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode
}
