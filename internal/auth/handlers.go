package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"eventbook-backend/internal/mailer"
	"eventbook-backend/internal/models"
	"eventbook-backend/internal/storage"
	"eventbook-backend/internal/web"
)

// UserStore is the credential store the auth flows run against.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string) (*models.User, error)
}

type Handler struct {
	store      UserStore
	issuer     *Issuer
	mail       mailer.Mailer
	bcryptCost int
	resetTTL   time.Duration
	baseURL    string
	dummyHash  []byte
}

func NewHandler(store UserStore, issuer *Issuer, mail mailer.Mailer, bcryptCost int, resetTTL time.Duration, baseURL string) *Handler {
	if bcryptCost == 0 {
		bcryptCost = DefaultBcryptCost
	}

	// The dummy hash must carry the same cost as real user hashes, otherwise
	// an unknown-email login would complete measurably faster than a
	// wrong-password one.
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcryptCost)
	if err != nil {
		log.Fatalf("Error deriving dummy hash: %v", err)
	}

	return &Handler{
		store:      store,
		issuer:     issuer,
		mail:       mail,
		bcryptCost: bcryptCost,
		resetTTL:   resetTTL,
		baseURL:    baseURL,
		dummyHash:  dummyHash,
	}
}

type signupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	if req.Name == "" {
		web.Error(w, http.StatusBadRequest, "validation_error", "name is required")
		return
	}

	email, err := NormalizeEmail(req.Email)
	if err != nil {
		web.Error(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	if req.PasswordConfirm == "" {
		web.Error(w, http.StatusBadRequest, "validation_error", "passwordConfirm is required")
		return
	}
	if err := ValidatePassword(req.Password, req.PasswordConfirm); err != nil {
		web.Error(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	hash, err := HashPassword(req.Password, h.bcryptCost)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		Active:       true,
		Photo:        "default.jpg",
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			web.Error(w, http.StatusBadRequest, "validation_error", "email already registered")
			return
		}
		log.Printf("Error creating user: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	h.respondWithToken(w, http.StatusCreated, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		web.Error(w, http.StatusBadRequest, "validation_error", "email and password are required")
		return
	}

	email, err := NormalizeEmail(req.Email)
	if err != nil {
		web.Error(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		log.Printf("Error loading user by email: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	if user == nil {
		// Burn a bcrypt comparison so unknown emails cost the same.
		_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(req.Password))
		web.Error(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}

	if !CheckPassword(req.Password, user.PasswordHash) {
		web.Error(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}

	if !user.Active {
		web.Error(w, http.StatusUnauthorized, "user_deactivated", "this account has been deactivated")
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	// The response is identical whether or not the account exists.
	accepted := func() {
		web.JSON(w, http.StatusOK, map[string]string{
			"message": "if that account exists, a reset link has been sent",
		})
	}

	email, err := NormalizeEmail(req.Email)
	if err != nil {
		accepted()
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		log.Printf("Error loading user by email: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	if user == nil || !user.Active {
		accepted()
		return
	}

	token, tokenHash, err := GenerateResetToken()
	if err != nil {
		log.Printf("Error generating reset token: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	expiresAt := time.Now().Add(h.resetTTL)
	if err := h.store.SetResetToken(r.Context(), user.ID, tokenHash, expiresAt); err != nil {
		log.Printf("Error storing reset token: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	resetURL := fmt.Sprintf("%s/v1/auth/reset-password/%s", h.baseURL, token)
	if err := h.mail.SendPasswordReset(user.Email, resetURL); err != nil {
		log.Printf("Error sending reset email to %s: %v", user.Email, err)
		if clearErr := h.store.ClearResetToken(r.Context(), user.ID); clearErr != nil {
			log.Printf("Error clearing reset token after failed send: %v", clearErr)
		}
		web.Error(w, http.StatusInternalServerError, "internal_error", "failed to send reset email")
		return
	}

	accepted()
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req struct {
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	if err := ValidatePassword(req.Password, req.PasswordConfirm); err != nil {
		web.Error(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	newHash, err := HashPassword(req.Password, h.bcryptCost)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	user, err := h.store.ConsumeResetToken(r.Context(), HashResetToken(token), newHash)
	if err != nil {
		if errors.Is(err, storage.ErrResetTokenInvalid) {
			web.Error(w, http.StatusBadRequest, "invalid_reset_token", "reset token is invalid or has expired")
			return
		}
		log.Printf("Error consuming reset token: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	if !CheckPassword(req.CurrentPassword, principal.PasswordHash) {
		web.Error(w, http.StatusUnauthorized, "invalid_credentials", "current password is incorrect")
		return
	}

	if err := ValidatePassword(req.Password, req.PasswordConfirm); err != nil {
		web.Error(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	hash, err := HashPassword(req.Password, h.bcryptCost)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	if err := h.store.UpdatePassword(r.Context(), principal.ID, hash); err != nil {
		log.Printf("Error updating password: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	h.respondWithToken(w, http.StatusOK, principal)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	web.JSON(w, http.StatusOK, map[string]*models.User{"user": principal})
}

func (h *Handler) respondWithToken(w http.ResponseWriter, status int, user *models.User) {
	token, err := h.issuer.Generate(user.ID)
	if err != nil {
		log.Printf("Error generating token: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "failed to generate token")
		return
	}

	web.JSON(w, status, sessionResponse{Token: token, User: user})
}
