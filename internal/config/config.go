package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Similarity SimilarityConfig `yaml:"similarity"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Rewrite    RewriteConfig    `yaml:"rewrite"`
	Automation AutomationConfig `yaml:"automation"`
	Narration  NarrationConfig  `yaml:"narration"`
	Auth       AuthConfig       `yaml:"auth"`
	CORS       CORSConfig       `yaml:"cors"`
	Worker     WorkerConfig     `yaml:"worker"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64    `yaml:"max_body_bytes"`
}

// DatabaseConfig selects and locates the transformation store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite | postgres
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // env-only, never in YAML
	SSLMode  string `yaml:"sslmode"`
}

// DSN builds the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

// SimilarityConfig controls cache lookups.
type SimilarityConfig struct {
	Threshold  float64 `yaml:"threshold"`
	Vectorizer string  `yaml:"vectorizer"` // tfidf | embedding
}

// EmbeddingConfig contains embedding service settings.
type EmbeddingConfig struct {
	APIKey  string `yaml:"-"` // env-only, never in YAML
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// FetchConfig controls page retrieval.
type FetchConfig struct {
	Mode       string   `yaml:"mode"` // browser | http
	Timeout    Duration `yaml:"timeout"`
	BrowserURL string   `yaml:"browser_url"`
}

// RewriteConfig selects the model that modifies pages.
type RewriteConfig struct {
	Provider  string `yaml:"provider"` // mistral | openai | anthropic
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"-"` // env-only, never in YAML
	MaxTokens int64  `yaml:"max_tokens"`
}

// AutomationConfig controls browser automation sessions.
type AutomationConfig struct {
	Headless       bool     `yaml:"headless"`
	BrowserURL     string   `yaml:"browser_url"`
	SessionTimeout Duration `yaml:"session_timeout"`
}

// NarrationConfig contains text-to-speech settings.
type NarrationConfig struct {
	APIKey        string `yaml:"-"` // env-only, never in YAML
	VoiceID       string `yaml:"voice_id"`
	PlayerCommand string `yaml:"player_command"`
	AudioDir      string `yaml:"audio_dir"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WorkerConfig contains background worker settings.
type WorkerConfig struct {
	EmbeddingInterval    Duration `yaml:"embedding_interval"`
	EmbeddingMaxAttempts int      `yaml:"embedding_max_attempts"`
	EmbeddingBatchSize   int      `yaml:"embedding_batch_size"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("PAGESMITH_CONFIG_PATH", "config/pagesmith.yaml")

	// Load YAML file if it exists (missing file is not an error)
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from path, then applies environment overrides.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase resolves only the database section, with the same precedence as
// Load. Offline commands use it so they run without service credentials.
func LoadDatabase() (*DatabaseConfig, error) {
	cfg := newDefaults()

	if err := loadYAMLFile(cfg, getEnv("PAGESMITH_CONFIG_PATH", "config/pagesmith.yaml")); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := oneOf("database.driver", cfg.Database.Driver, "sqlite", "postgres"); err != nil {
		return nil, err
	}
	return &cfg.Database, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(5 * time.Minute),
			ShutdownTimeout: Duration(15 * time.Second),
			MaxBodyBytes:    1 << 20,
		},
		Database: DatabaseConfig{
			Driver:  "sqlite",
			Path:    "data/pagesmith.db",
			Host:    "localhost",
			Port:    5432,
			Name:    "pagesmith",
			User:    "pagesmith",
			SSLMode: "disable",
		},
		Similarity: SimilarityConfig{
			Threshold:  0.8,
			Vectorizer: "tfidf",
		},
		Embedding: EmbeddingConfig{
			Model: "text-embedding-3-small",
		},
		Fetch: FetchConfig{
			Mode:    "browser",
			Timeout: Duration(60 * time.Second),
		},
		Rewrite: RewriteConfig{
			Provider:  "mistral",
			MaxTokens: 8192,
		},
		Automation: AutomationConfig{
			Headless:       false,
			SessionTimeout: Duration(6 * time.Minute),
		},
		Narration: NarrationConfig{
			AudioDir: "data/audio",
		},
		Worker: WorkerConfig{
			EmbeddingInterval:    Duration(1 * time.Minute),
			EmbeddingMaxAttempts: 10,
			EmbeddingBatchSize:   50,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values; unparsable values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Server
	envInt("PAGESMITH_PORT", &cfg.Server.Port)
	envDuration("PAGESMITH_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("PAGESMITH_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("PAGESMITH_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Database
	envString("PAGESMITH_DB_DRIVER", &cfg.Database.Driver)
	envString("PAGESMITH_DB_PATH", &cfg.Database.Path)
	envString("PAGESMITH_DB_HOST", &cfg.Database.Host)
	envInt("PAGESMITH_DB_PORT", &cfg.Database.Port)
	envString("PAGESMITH_DB_NAME", &cfg.Database.Name)
	envString("PAGESMITH_DB_USER", &cfg.Database.User)
	envString("PAGESMITH_DB_PASSWORD", &cfg.Database.Password)

	// Similarity
	if v := os.Getenv("PAGESMITH_SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Similarity.Threshold = f
		}
	}
	envString("PAGESMITH_VECTORIZER", &cfg.Similarity.Vectorizer)

	// Embedding (OPENAI_API_KEY is industry convention)
	envString("OPENAI_API_KEY", &cfg.Embedding.APIKey)
	envString("PAGESMITH_EMBEDDING_MODEL", &cfg.Embedding.Model)

	// Fetch
	envString("PAGESMITH_FETCH_MODE", &cfg.Fetch.Mode)
	envDuration("PAGESMITH_FETCH_TIMEOUT", &cfg.Fetch.Timeout)
	envString("PAGESMITH_BROWSER_URL", &cfg.Fetch.BrowserURL)

	// Rewrite
	envString("PAGESMITH_REWRITE_PROVIDER", &cfg.Rewrite.Provider)
	envString("PAGESMITH_REWRITE_MODEL", &cfg.Rewrite.Model)
	envString("PAGESMITH_REWRITE_BASE_URL", &cfg.Rewrite.BaseURL)
	envString("PAGESMITH_REWRITE_API_KEY", &cfg.Rewrite.APIKey)

	// Automation
	if v := os.Getenv("PAGESMITH_AUTOMATION_HEADLESS"); v != "" {
		cfg.Automation.Headless = v == "true" || v == "1"
	}
	envDuration("PAGESMITH_AUTOMATION_SESSION_TIMEOUT", &cfg.Automation.SessionTimeout)

	// Narration
	envString("ELEVENLABS_API_KEY", &cfg.Narration.APIKey)
	envString("PAGESMITH_VOICE_ID", &cfg.Narration.VoiceID)
	envString("PAGESMITH_PLAYER_COMMAND", &cfg.Narration.PlayerCommand)
	envString("PAGESMITH_AUDIO_DIR", &cfg.Narration.AudioDir)

	// Auth
	envString("PAGESMITH_API_KEY", &cfg.Auth.APIKey)

	// CORS
	if v := os.Getenv("PAGESMITH_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORS.AllowedOrigins = origins
	}

	// Log
	envString("PAGESMITH_LOG_LEVEL", &cfg.Log.Level)
	envString("PAGESMITH_LOG_FORMAT", &cfg.Log.Format)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

// validate checks enum fields and ranges, then required secrets.
// In dev mode (PAGESMITH_DEV_MODE=true), secret validation is skipped.
func (c *Config) validate() error {
	if err := oneOf("database.driver", c.Database.Driver, "sqlite", "postgres"); err != nil {
		return err
	}
	if err := oneOf("similarity.vectorizer", c.Similarity.Vectorizer, "tfidf", "embedding"); err != nil {
		return err
	}
	if err := oneOf("fetch.mode", c.Fetch.Mode, "browser", "http"); err != nil {
		return err
	}
	if err := oneOf("rewrite.provider", c.Rewrite.Provider, "mistral", "openai", "anthropic"); err != nil {
		return err
	}
	if err := oneOf("log.format", c.Log.Format, "json", "text"); err != nil {
		return err
	}
	if c.Similarity.Threshold <= 0 || c.Similarity.Threshold >= 1 {
		return fmt.Errorf("similarity.threshold must be between 0 and 1 exclusive, got %v", c.Similarity.Threshold)
	}

	if os.Getenv("PAGESMITH_DEV_MODE") == "true" {
		return nil
	}

	if c.Rewrite.APIKey == "" {
		return errors.New("PAGESMITH_REWRITE_API_KEY is required")
	}
	if c.Similarity.Vectorizer == "embedding" && c.Embedding.APIKey == "" {
		return errors.New("OPENAI_API_KEY is required when similarity.vectorizer is embedding")
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", field, strings.Join(allowed, ", "), value)
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
