package app

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	StoreMode    string // Snapshot mode: file, sqlite, or memory (default: file)
	DataFile     string // Path to the JSON snapshot file (default: ./invitations.json)
	DatabaseFile string // Path to the SQLite database file (default: ./events.db)

	Subject   string        // Subject line for outbound invitation mails
	SendDelay time.Duration // Pause between two batch sends (default: 1s)

	FromAddress     string            // Default organisational sender address
	SenderAddresses map[string]string // identity=address overrides per contact

	MailAPIKey string // Mail API key; empty means dry-run (log-only) delivery
	MailAPIURL string // Optional: mail API base URL override

	Actor string // Actor stamped into createdBy/modifiedBy (default: system)

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
}

func LoadConfig() Config {
	return Config{
		StoreMode:    getEnvOrDefault("EVENTS_STORE", "file"),
		DataFile:     getEnvOrDefault("EVENTS_DATA_FILE", "invitations.json"),
		DatabaseFile: getEnvOrDefault("EVENTS_DATABASE_FILE", "events.db"),

		Subject:   getEnvOrDefault("EVENTS_SUBJECT", "Einladung zum Launch Event"),
		SendDelay: getEnvDurationOrDefault("EVENTS_SEND_DELAY", time.Second),

		FromAddress:     getEnvOrDefault("EVENTS_FROM_ADDRESS", "info@opentdc.org"),
		SenderAddresses: parseAddressList(os.Getenv("EVENTS_SENDER_ADDRESSES")),

		MailAPIKey: os.Getenv("EVENTS_MAIL_API_KEY"),
		MailAPIURL: os.Getenv("EVENTS_MAIL_API_URL"),

		Actor: getEnvOrDefault("EVENTS_ACTOR", "system"),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}

// parseAddressList parses "identity=address,identity=address" pairs.
// Malformed pairs are skipped rather than rejected; the address book
// validates whatever survives.
func parseAddressList(value string) map[string]string {
	if value == "" {
		return nil
	}

	out := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		identity, address, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		identity = strings.TrimSpace(identity)
		address = strings.TrimSpace(address)
		if identity == "" || address == "" {
			continue
		}
		out[identity] = address
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
