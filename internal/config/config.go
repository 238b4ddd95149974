package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all process configuration. It is loaded once at startup and
// injected into the components that need it; nothing reads the environment
// after Load returns.
type Config struct {
	Port string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string

	JWTSecret     string
	JWTTTL        time.Duration
	BcryptCost    int
	ResetTokenTTL time.Duration

	RedisURL string
	NATSURL  string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	PhotoDir string
	BaseURL  string
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "eventbook_user"),
		DBPassword: getEnv("DB_PASSWORD", "eventbook_pass"),
		DBName:     getEnv("DB_NAME", "eventbook"),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTTTL:        readDuration("JWT_TTL", 7*24*time.Hour),
		BcryptCost:    readInt("BCRYPT_COST", 12),
		ResetTokenTTL: readDuration("RESET_TOKEN_TTL", 10*time.Minute),

		RedisURL: os.Getenv("REDIS_URL"),
		NATSURL:  os.Getenv("NATS_URL"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     readInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),

		PhotoDir: getEnv("PHOTO_DIR", "static/img/events"),
		BaseURL:  getEnv("BASE_URL", "http://localhost:8080"),
	}
}

// DSN builds the postgres connection string from the DB_* parts.
func (c Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" sslmode=disable"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
