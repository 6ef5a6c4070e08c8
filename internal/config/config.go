package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/taskboard/internal/storage"
	"github.com/joho/godotenv"
	"github.com/ulule/limiter/v3"
)

// Config holds application configuration
type Config struct {
	ServerPort  string
	BaseURL     string
	FrontendURL string
	EnableHSTS  bool

	StorageDriver string
	StorageDSN    string
	StoragePrefix string

	RedisURL    string
	RabbitMQURL string

	// AIBackendURL is where the suggestion client posts. Empty disables AI unless the
	// server hosts the backend itself (OpenAIKey set), in which case BaseURL is used.
	AIBackendURL        string
	AIOAuthTokenURL     string
	AIOAuthClientID     string
	AIOAuthClientSecret string
	AIOAuthScopes       []string
	AICacheTTL          time.Duration
	AITimeout           time.Duration

	OpenAIKey string
	AIModel   string
	AIBaseURL string

	SaveDebounce     time.Duration
	AutosaveInterval time.Duration
	ResetCountdown   int

	PriorityKeywordsFile string

	RateLimit   string
	AIRateLimit string

	JWKSURL     string
	JWTIssuer   string
	JWTAudience string

	ServerDebugMode bool
	OTELEnabled     bool
	OTELEndpoint    string
	ServiceName     string
}

// LoadDotEnv loads variables from the given .env files (default ".env") without
// overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return loadFrom(os.Getenv)
}

func loadFrom(lookup func(string) string) (*Config, error) {
	env := envReader{lookup: lookup}
	cfg := &Config{
		ServerPort:  env.str("SERVER_PORT", "8080"),
		BaseURL:     env.str("BASE_URL", "http://localhost:8080"),
		FrontendURL: env.str("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:  env.boolean("ENABLE_HSTS", false),

		StorageDriver: strings.ToLower(env.str("STORAGE_DRIVER", storage.DriverSQLite)),
		StorageDSN:    env.str("STORAGE_DSN", ""),
		StoragePrefix: env.str("STORAGE_PREFIX", storage.DefaultKeyPrefix),

		RedisURL:    env.str("REDIS_URL", ""),
		RabbitMQURL: env.str("RABBITMQ_URL", ""),

		AIBackendURL:        env.str("AI_BACKEND_URL", ""),
		AIOAuthTokenURL:     env.str("AI_OAUTH_TOKEN_URL", ""),
		AIOAuthClientID:     env.str("AI_OAUTH_CLIENT_ID", ""),
		AIOAuthClientSecret: env.str("AI_OAUTH_CLIENT_SECRET", ""),
		AIOAuthScopes:       env.list("AI_OAUTH_SCOPES"),
		AICacheTTL:          env.duration("AI_CACHE_TTL", 5*time.Minute),
		AITimeout:           env.duration("AI_TIMEOUT", 30*time.Second),

		OpenAIKey: env.str("OPENAI_API_KEY", ""),
		AIModel:   env.str("AI_MODEL", ""),
		AIBaseURL: env.str("AI_BASE_URL", ""),

		SaveDebounce:     env.duration("SAVE_DEBOUNCE", time.Second),
		AutosaveInterval: env.duration("AUTOSAVE_INTERVAL", 30*time.Second),
		ResetCountdown:   env.integer("RESET_COUNTDOWN", 5),

		PriorityKeywordsFile: env.str("PRIORITY_KEYWORDS_FILE", ""),

		RateLimit:   env.str("RATE_LIMIT", "100-M"),
		AIRateLimit: env.str("AI_RATE_LIMIT", "10-M"),

		JWKSURL:     env.str("JWKS_URL", ""),
		JWTIssuer:   env.str("JWT_ISSUER", ""),
		JWTAudience: env.str("JWT_AUDIENCE", ""),

		ServerDebugMode: env.boolean("SERVER_DEBUG_MODE", false),
		OTELEnabled:     env.boolean("OTEL_ENABLED", false),
		OTELEndpoint:    env.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:     env.str("OTEL_SERVICE_NAME", "taskboard"),
	}

	if cfg.StorageDriver == storage.DriverSQLite && cfg.StorageDSN == "" {
		cfg.StorageDSN = "taskboard.db"
	}
	if cfg.StorageDriver == storage.DriverRedis && cfg.StorageDSN == "" {
		cfg.StorageDSN = cfg.RedisURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case storage.DriverMemory, storage.DriverSQLite:
	case storage.DriverRedis:
		if c.StorageDSN == "" {
			errs = append(errs, errors.New("STORAGE_DSN or REDIS_URL is required for the redis storage driver"))
		}
	case storage.DriverPostgres:
		if c.StorageDSN == "" {
			errs = append(errs, errors.New("STORAGE_DSN is required for the postgres storage driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	for name, d := range map[string]time.Duration{
		"SAVE_DEBOUNCE":     c.SaveDebounce,
		"AUTOSAVE_INTERVAL": c.AutosaveInterval,
		"AI_CACHE_TTL":      c.AICacheTTL,
		"AI_TIMEOUT":        c.AITimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	if c.ResetCountdown <= 0 {
		errs = append(errs, errors.New("RESET_COUNTDOWN must be positive"))
	}

	for name, rate := range map[string]string{"RATE_LIMIT": c.RateLimit, "AI_RATE_LIMIT": c.AIRateLimit} {
		if _, err := limiter.NewRateFromFormatted(rate); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s %q: %w", name, rate, err))
		}
	}

	if c.AIOAuthTokenURL != "" && c.AIOAuthClientID == "" {
		errs = append(errs, errors.New("AI_OAUTH_CLIENT_ID is required when AI_OAUTH_TOKEN_URL is set"))
	}

	return errors.Join(errs...)
}

// SuggestionURL returns the AI backend the client should call, or "" when AI is disabled
func (c *Config) SuggestionURL() string {
	if c.AIBackendURL != "" {
		return c.AIBackendURL
	}
	if c.OpenAIKey != "" {
		return c.BaseURL
	}
	return ""
}

// AllowedOrigins returns the comma-separated FRONTEND_URL as a list
func (c *Config) AllowedOrigins() []string {
	return splitList(c.FrontendURL)
}

type envReader struct {
	lookup func(string) string
}

func (e envReader) str(key, defaultValue string) string {
	if value := e.lookup(key); value != "" {
		return value
	}
	return defaultValue
}

func (e envReader) boolean(key string, defaultValue bool) bool {
	if value := e.lookup(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func (e envReader) integer(key string, defaultValue int) int {
	if value := e.lookup(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// duration accepts Go duration strings ("1s", "5m") or a bare number of milliseconds
func (e envReader) duration(key string, defaultValue time.Duration) time.Duration {
	value := e.lookup(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func (e envReader) list(key string) []string {
	return splitList(e.lookup(key))
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
