package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Browser  BrowserConfig
	Renderer RendererConfig
	LLM      LLMConfig
	Airtable AirtableConfig
	Telegram TelegramConfig
	Digest   DigestConfig
	Ops      OpsConfig
	Log      LogConfig
}

// BrowserConfig controls the Rod browser instances the renderer launches.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// Bin overrides the Chromium binary path.
	Bin string

	// BlockedResourceTypes lists resource types to block during renders.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string
}

// RendererConfig controls the escalation ladder.
type RendererConfig struct {
	// RungTimeouts are the per-rung deadlines, fast to slow.
	RungTimeouts [4]time.Duration // default: 15s, 20s, 25s, 30s

	// MinAcceptLength is the markup length below which a rung's output
	// is treated as "no content".
	MinAcceptLength int // default: 1000
}

// LLMConfig points at an OpenAI-compatible structured-extraction endpoint.
type LLMConfig struct {
	APIKey  string
	Model   string // default: "gpt-4o"
	BaseURL string // default: "https://api.openai.com/v1"
}

// AirtableConfig identifies the two record tables.
type AirtableConfig struct {
	APIKey  string
	BaseID  string
	BaseURL string // default: "https://api.airtable.com/v0"

	EventsTable   string
	EventsViewID  string
	EventsTableID string

	UpdatesTable   string
	UpdatesViewID  string
	UpdatesTableID string

	// RequestsPerSecond bounds outbound Airtable calls.
	RequestsPerSecond float64 // default: 5
}

// TelegramConfig controls the bot surface.
type TelegramConfig struct {
	Token string

	// ChatID is the chat the scheduled digest is posted to.
	ChatID int64
}

// DigestConfig controls the scheduled weekly digest.
type DigestConfig struct {
	// Schedule is a cron expression; empty disables the scheduler.
	Schedule string // default: "0 9 * * MON"
}

// OpsConfig controls the in-process health endpoint.
type OpsConfig struct {
	Enabled bool   // default: false
	Addr    string // default: ":8090"
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:  envBoolOr("WEAVE_HEADLESS", true),
			NoSandbox: envBoolOr("WEAVE_NO_SANDBOX", false),
			Bin:       os.Getenv("WEAVE_BROWSER_BIN"),
			BlockedResourceTypes: envSliceOr("WEAVE_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Renderer: RendererConfig{
			RungTimeouts: [4]time.Duration{
				envDurationOr("WEAVE_RUNG1_TIMEOUT", 15*time.Second),
				envDurationOr("WEAVE_RUNG2_TIMEOUT", 20*time.Second),
				envDurationOr("WEAVE_RUNG3_TIMEOUT", 25*time.Second),
				envDurationOr("WEAVE_RUNG4_TIMEOUT", 30*time.Second),
			},
			MinAcceptLength: envIntOr("WEAVE_MIN_ACCEPT_LENGTH", 1000),
		},
		LLM: LLMConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   envOr("WEAVE_LLM_MODEL", "gpt-4o"),
			BaseURL: envOr("WEAVE_LLM_BASE_URL", "https://api.openai.com/v1"),
		},
		Airtable: AirtableConfig{
			APIKey:            os.Getenv("AIRTABLE_API_KEY"),
			BaseID:            os.Getenv("AIRTABLE_BASE_ID"),
			BaseURL:           envOr("AIRTABLE_BASE_URL", "https://api.airtable.com/v0"),
			EventsTable:       envOr("AIRTABLE_TABLE_NAME", "Events"),
			EventsTableID:     os.Getenv("AIRTABLE_TABLE_ID"),
			EventsViewID:      os.Getenv("AIRTABLE_VIEW_ID"),
			UpdatesTable:      envOr("AIRTABLE_UPDATES_TABLE_NAME", "Updates"),
			UpdatesTableID:    os.Getenv("AIRTABLE_UPDATES_TABLE_ID"),
			UpdatesViewID:     os.Getenv("AIRTABLE_UPDATES_VIEW_ID"),
			RequestsPerSecond: envFloatOr("AIRTABLE_RATE_RPS", 5.0),
		},
		Telegram: TelegramConfig{
			Token:  os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatID: envInt64Or("TELEGRAM_CHAT_ID", 0),
		},
		Digest: DigestConfig{
			Schedule: envOr("WEAVE_DIGEST_SCHEDULE", "0 9 * * MON"),
		},
		Ops: OpsConfig{
			Enabled: envBoolOr("WEAVE_OPS_ENABLED", false),
			Addr:    envOr("WEAVE_OPS_ADDR", ":8090"),
		},
		Log: LogConfig{
			Level:  envOr("WEAVE_LOG_LEVEL", "info"),
			Format: envOr("WEAVE_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
