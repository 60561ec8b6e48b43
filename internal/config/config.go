package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultBackendURL is used when neither backend variable is set.
const DefaultBackendURL = "http://spapperi-backend:8000"

type Config struct {
	App      AppConfig
	Backend  BackendConfig
	Database DatabaseConfig
	Events   EventsConfig
	Mail     MailConfig
	Client   ClientConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	RedisURL           string
	PublicURL          string // Base for report links in lead emails
}

type BackendConfig struct {
	Timeout time.Duration
}

type DatabaseConfig struct {
	Connection string // Empty disables funnel event persistence
}

type EventsConfig struct {
	NatsURL string // Empty keeps events in-process
	Topic   string
}

// MailConfig drives the lead notifier. An empty Host or Recipient disables it.
type MailConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Sender    string
	Recipient string
}

type ClientConfig struct {
	RelayURL    string
	StoreKind   string // "file" | "redis" | "memory"
	StorePath   string
	VisitorID   string
	LogFilePath string
	TurnTimeout time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/relay.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, http://spapperi-frontend:3000"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			PublicURL:          getEnv("RELAY_PUBLIC_URL", "http://localhost:3000"),
		},
		Backend: BackendConfig{
			Timeout: getEnvAsDuration("RELAY_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Events: EventsConfig{
			NatsURL: getEnv("NATS_URL", ""),
			Topic:   getEnv("FUNNEL_EVENTS_TOPIC", "funnel"),
		},
		Mail: MailConfig{
			Host:      getEnv("SMTP_HOST", ""),
			Port:      getEnvAsInt("SMTP_PORT", 587),
			Username:  getEnv("SMTP_USER", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			Sender:    getEnv("SMTP_SENDER", "configuratore@spapperi.it"),
			Recipient: getEnv("LEAD_NOTIFY_EMAIL", ""),
		},
		Client: ClientConfig{
			RelayURL:    getEnv("CONFIGURATOR_RELAY_URL", "http://localhost:3000"),
			StoreKind:   getEnv("CONFIGURATOR_STORE", "file"),
			StorePath:   getEnv("CONFIGURATOR_STORE_PATH", defaultStorePath()),
			VisitorID:   getEnv("CONFIGURATOR_VISITOR_ID", ""),
			LogFilePath: getEnv("CONFIGURATOR_LOG_FILE", "logs/configurator.log"),
			TurnTimeout: getEnvAsDuration("CONFIGURATOR_TURN_TIMEOUT", 90*time.Second),
		},
	}
}

// ResolveBackendURL picks the backend address on every call so a changed
// environment takes effect without a restart: the internal network address wins
// over the public one, which wins over the default.
func ResolveBackendURL() string {
	if v := os.Getenv("BACKEND_INTERNAL_URL"); v != "" {
		return v
	}
	if v := os.Getenv("NEXT_PUBLIC_API_URL"); v != "" {
		return v
	}
	return DefaultBackendURL
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".spapperi", "session.json")
	}
	return filepath.Join(dir, "spapperi", "session.json")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("45s") or plain seconds ("45").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs := getEnvAsInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
