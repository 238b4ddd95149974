package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"eventbook-backend/internal/auth"
	"eventbook-backend/internal/cache"
	"eventbook-backend/internal/config"
	"eventbook-backend/internal/handlers"
	"eventbook-backend/internal/mailer"
	mw "eventbook-backend/internal/middleware"
	"eventbook-backend/internal/natsbus"
	"eventbook-backend/internal/storage"
	"eventbook-backend/internal/workers"
)

func main() {
	cfg := config.Load()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Database connection (with retries)
	var db *sqlx.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sqlx.Connect("postgres", cfg.DSN())
		if err == nil {
			break
		}
		log.Printf("DB connection attempt %d failed: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := storage.RunMigrations(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Redis (rate-limit counters)
	redisClient, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// NATS (event bus)
	busClient, err := natsbus.Connect(cfg.NATSURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer busClient.Close()

	// Storage
	store := storage.NewStorage(db)

	// Reset-secret delivery
	var mail mailer.Mailer
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		log.Println("WARN SMTP_HOST not set; reset secrets will be logged, not emailed")
		mail = mailer.LogMailer{}
	}

	issuer := auth.NewIssuer([]byte(cfg.JWTSecret), cfg.JWTTTL)
	requireAuth := auth.Authenticate(issuer, store)

	authHandler := auth.NewHandler(store, issuer, mail, cfg.BcryptCost, cfg.ResetTokenTTL, cfg.BaseURL)
	eventHandler := handlers.New(store, busClient, cfg.PhotoDir)

	workers.StartResetTokenReaper(ctx, store)

	// Router
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimitSignup(redisClient))
		r.Post("/v1/auth/signup", authHandler.Signup)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimitLogin(redisClient))
		r.Post("/v1/auth/login", authHandler.Login)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimitPasswordReset(redisClient))
		r.Post("/v1/auth/forgot-password", authHandler.ForgotPassword)
		r.Patch("/v1/auth/reset-password/{token}", authHandler.ResetPassword)
	})
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/v1/auth/me", authHandler.Me)
		r.Patch("/v1/auth/update-password", authHandler.UpdatePassword)
	})

	eventHandler.RegisterRoutes(r, requireAuth)

	// Event photos
	fileServer := http.FileServer(http.Dir(cfg.PhotoDir))
	r.Handle("/img/events/*", http.StripPrefix("/img/events/", fileServer))

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("Server starting on :%s", cfg.Port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}
