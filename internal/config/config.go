// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

const (
	defaultTimezone        = "America/Santiago"
	defaultGraphAPIBaseURL = "https://graph.facebook.com/v20.0"
	defaultPort            = 8080
	defaultSQLitePath      = "egresos.db"
	defaultDedupTTL        = 24 * time.Hour
)

// FirebaseConfig holds the service-account material for the Firestore backend.
type FirebaseConfig struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string
}

// Config holds all configuration for the application.
type Config struct {
	MetaToken       string
	PhoneNumberID   string
	VerifyToken     string
	GraphAPIBaseURL string
	AllowedPhones   []string
	DisplayNames    map[string]string

	StoreBackend string
	DatabaseURL  string
	SQLitePath   string
	Firebase     FirebaseConfig

	Timezone string
	Port     int
	DedupTTL time.Duration

	LogLevel     string
	LogFormat    string
	LogHashSalt  string
	OTelExporter string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		MetaToken:       os.Getenv("META_TOKEN"),
		PhoneNumberID:   strings.TrimSpace(os.Getenv("PHONE_NUMBER_ID")),
		VerifyToken:     os.Getenv("VERIFY_TOKEN"),
		GraphAPIBaseURL: defaultGraphAPIBaseURL,
		StoreBackend:    BackendPostgres,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SQLitePath:      defaultSQLitePath,
		Timezone:        defaultTimezone,
		Port:            defaultPort,
		DedupTTL:        defaultDedupTTL,
		LogLevel:        os.Getenv("LOG_LEVEL"),
		LogFormat:       os.Getenv("LOG_FORMAT"),
		LogHashSalt:     os.Getenv("LOG_HASH_SALT"),
		OTelExporter:    "none",
		Firebase: FirebaseConfig{
			ProjectID:   os.Getenv("FIREBASE_PROJECT_ID"),
			ClientEmail: os.Getenv("FIREBASE_CLIENT_EMAIL"),
			// Restore newlines escaped as \n in single-line env values.
			PrivateKey: strings.ReplaceAll(os.Getenv("FIREBASE_PRIVATE_KEY"), `\n`, "\n"),
		},
	}

	if base := strings.TrimRight(strings.TrimSpace(os.Getenv("GRAPH_API_BASE_URL")), "/"); base != "" {
		cfg.GraphAPIBaseURL = base
	}
	if backend := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND"))); backend != "" {
		cfg.StoreBackend = backend
	}
	if path := strings.TrimSpace(os.Getenv("SQLITE_PATH")); path != "" {
		cfg.SQLitePath = path
	}
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		if _, err := time.LoadLocation(tz); err == nil {
			cfg.Timezone = tz
		}
	}
	if portStr := os.Getenv("PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil && p > 0 && p <= 65535 {
			cfg.Port = p
		}
	}
	if ttlStr := os.Getenv("DEDUP_TTL"); ttlStr != "" {
		if ttl, err := time.ParseDuration(ttlStr); err == nil && ttl > 0 {
			cfg.DedupTTL = ttl
		}
	}
	if exporter := strings.ToLower(strings.TrimSpace(os.Getenv("OTEL_EXPORTER"))); exporter != "" {
		cfg.OTelExporter = exporter
	}

	for phone := range strings.SplitSeq(os.Getenv("ALLOWED_PHONES"), ",") {
		phone = normalizePhone(phone)
		if phone == "" {
			continue
		}
		cfg.AllowedPhones = append(cfg.AllowedPhones, phone)
	}

	cfg.DisplayNames = parseDisplayNames(os.Getenv("DISPLAY_NAMES"))

	// Validate required configuration.
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseDisplayNames parses "56911111111:Ana,56922222222:Luis" into a lookup map.
func parseDisplayNames(raw string) map[string]string {
	names := make(map[string]string)
	for pair := range strings.SplitSeq(raw, ",") {
		phone, name, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		phone = normalizePhone(phone)
		name = strings.TrimSpace(name)
		if phone == "" || name == "" {
			continue
		}
		names[phone] = name
	}
	return names
}

// normalizePhone trims whitespace and a leading plus sign. WhatsApp reports
// senders without the plus prefix.
func normalizePhone(phone string) string {
	return strings.TrimPrefix(strings.TrimSpace(phone), "+")
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.MetaToken == "" {
		errs = append(errs, "META_TOKEN is required")
	}
	if c.PhoneNumberID == "" {
		errs = append(errs, "PHONE_NUMBER_ID is required")
	} else if _, err := strconv.ParseUint(c.PhoneNumberID, 10, 64); err != nil {
		errs = append(errs, "PHONE_NUMBER_ID must be numeric")
	}
	if c.VerifyToken == "" {
		errs = append(errs, "VERIFY_TOKEN is required")
	}
	if len(c.AllowedPhones) == 0 {
		errs = append(errs, "at least one allowed phone (ALLOWED_PHONES) is required")
	}

	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required for the postgres backend")
		}
	case BackendSQLite:
	case BackendFirestore:
		if c.Firebase.ProjectID == "" || c.Firebase.ClientEmail == "" || c.Firebase.PrivateKey == "" {
			errs = append(errs, "FIREBASE_PROJECT_ID, FIREBASE_CLIENT_EMAIL and FIREBASE_PRIVATE_KEY are required for the firestore backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	switch c.OTelExporter {
	case "none", "stdout", "otlp-http", "otlp-grpc":
	default:
		errs = append(errs, fmt.Sprintf("unknown OTEL_EXPORTER %q", c.OTelExporter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsPhoneAllowed checks if a sender phone is in the allow-list.
func (c *Config) IsPhoneAllowed(phone string) bool {
	phone = normalizePhone(phone)
	if phone == "" {
		return false
	}
	return slices.Contains(c.AllowedPhones, phone)
}

// DisplayName returns the configured name for a phone, or "" if unknown.
func (c *Config) DisplayName(phone string) string {
	return c.DisplayNames[normalizePhone(phone)]
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
