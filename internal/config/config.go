package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port           string
	RequestTimeout time.Duration
	RateLimit      int // requests per minute per client IP

	LogLevel string

	// Telegram
	TelegramToken string

	// Language services
	GeminiAPIKey          string
	GeminiModel           string
	TranscriptionLanguage string
	FFmpegPath            string

	// Ledger routing
	PartitionsFile string
	Partitions     string // inline "MM-YYYY=id,..." entries, override the file
	LexiconFile    string
	Timezone       string

	// Backend selection
	DataBackend string

	// Notion
	NotionToken string

	// Database
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AMQP
	AMQPURL         string
	AMQPExchange    string
	AMQPIngestQueue string
	AMQPReplyQueue  string
	AMQPPrefetch    int
}

var validBackends = []string{"notion", "sheets", "sqlite", "memory"}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
		RateLimit:      getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		TelegramToken: getEnv("TG_TOKEN", ""),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		TranscriptionLanguage: getEnv("TRANSCRIPTION_LANGUAGE", "it"),
		FFmpegPath:            getEnv("FFMPEG_PATH", "ffmpeg"),

		PartitionsFile: getEnv("PARTITIONS_FILE", "./config/partitions.yaml"),
		Partitions:     getEnv("PARTITIONS", ""),
		LexiconFile:    getEnv("LEXICON_FILE", ""),
		Timezone:       getEnv("TIMEZONE", "Europe/Rome"),

		DataBackend: getEnv("DATA_BACKEND", "notion"),
		NotionToken: getEnv("NOTION_TOKEN", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/botspese.db"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "botspese"),
		AMQPIngestQueue: getEnv("AMQP_INGEST_QUEUE", "ingest_expenses"),
		AMQPReplyQueue:  getEnv("AMQP_REPLY_QUEUE", "ingest_replies"),
		AMQPPrefetch:    getEnvInt("AMQP_PREFETCH", 4),
	}
}

// Location resolves Timezone; callers validate first.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Validate checks the settings every binary shares. Binary specific
// requirements are checked by RequireTelegram and RequireAMQP.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RequestTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at least 1 second", c.RequestTimeout))
	}
	if c.RateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimit))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil || c.Timezone == "" {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s'", c.Timezone))
	}

	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		errors = append(errors, "GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(c.TranscriptionLanguage) == "" {
		errors = append(errors, "transcription language cannot be empty")
	}

	if c.PartitionsFile == "" && c.Partitions == "" {
		errors = append(errors, "no ledger partitions configured: set PARTITIONS_FILE or PARTITIONS")
	}
	if c.LexiconFile != "" {
		if _, err := os.Stat(c.LexiconFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("lexicon file does not exist: %s", c.LexiconFile))
		}
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "notion":
		if strings.TrimSpace(c.NotionToken) == "" {
			errors = append(errors, "NOTION_TOKEN is required when using notion backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.AMQPURL != "" {
		errors = append(errors, c.amqpErrors()...)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// RequireTelegram reports a missing bot token.
func (c *Config) RequireTelegram() error {
	if strings.TrimSpace(c.TelegramToken) == "" {
		return fmt.Errorf("TG_TOKEN is required")
	}
	return nil
}

// RequireAMQP reports a missing or malformed broker configuration.
func (c *Config) RequireAMQP() error {
	if c.AMQPURL == "" {
		return fmt.Errorf("AMQP_URL is required")
	}
	if errs := c.amqpErrors(); len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func (c *Config) amqpErrors() []string {
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPIngestQueue == "" || c.AMQPReplyQueue == "" {
		errors = append(errors, "AMQP ingest and reply queue names cannot be empty when AMQP URL is provided")
	}
	if c.AMQPPrefetch < 1 {
		errors = append(errors, fmt.Sprintf("invalid AMQP prefetch %d: must be at least 1", c.AMQPPrefetch))
	}
	return errors
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
