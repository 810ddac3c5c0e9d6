package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/giyikalim/smart-notes/internal/api"
)

// Store drivers.
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverHTTP   = "http"
)

var httpURL = regexp.MustCompile(`^https?://[^\s/]+`)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Store     StoreConfig       `yaml:"store"`
	AI        AIConfig          `yaml:"ai"`
	Auth      AuthConfig        `yaml:"auth"`
	Analyzer  AnalyzerConfig    `yaml:"analyzer"`
	Retention RetentionConfig   `yaml:"retention"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.AI.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Analyzer.Validate(); err != nil {
		return err
	}
	return c.Retention.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `yaml:"cors_origins"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Driver string            `yaml:"driver"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	HTTP   RemoteStoreConfig `yaml:"http"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(StoreDriverSQLite, StoreDriverHTTP)),
	); err != nil {
		return err
	}
	if c.Driver == StoreDriverHTTP {
		return c.HTTP.Validate()
	}
	return c.SQLite.Validate()
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// RemoteStoreConfig points at the search proxy.
type RemoteStoreConfig struct {
	BaseURL string        `yaml:"base_url"`
	Index   string        `yaml:"index"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the remote store configuration.
func (c *RemoteStoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.Match(httpURL).Error("must be an http(s) URL")),
		validation.Field(&c.Index, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// AIConfig configures the suggestion endpoint.
type AIConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker around the suggestion endpoint.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// Validate validates the AI configuration.
func (c *AIConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.Match(httpURL).Error("must be an http(s) URL")),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how the caller is identified:
//   - "disabled" (default): X-User-ID header or DefaultUser, suitable for local dev.
//   - "jwt": HS256 Bearer tokens; JWTSecret must be non-empty.
type AuthConfig struct {
	Mode        string `yaml:"mode"`
	JWTSecret   string `yaml:"jwt_secret"`
	DefaultUser string `yaml:"default_user"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = api.AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(api.AuthModeDisabled, api.AuthModeJWT)),
	); err != nil {
		return err
	}
	if c.Mode == api.AuthModeJWT && c.JWTSecret == "" {
		return fmt.Errorf("auth: mode is %q but jwt_secret is empty", api.AuthModeJWT)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == api.AuthModeJWT
}

// Middleware returns the API auth settings.
func (c *AuthConfig) Middleware() api.AuthConfig {
	return api.AuthConfig{Mode: c.Mode, Secret: c.JWTSecret, DefaultUser: c.DefaultUser}
}

// AnalyzerConfig tunes the text analyzer.
type AnalyzerConfig struct {
	// LexiconPath, if set, replaces the built-in lexicon and is hot-reloaded.
	LexiconPath     string  `yaml:"lexicon_path"`
	SentimentStep   float64 `yaml:"sentiment_step"`
	DefaultLanguage string  `yaml:"default_language"`
}

// Validate validates the analyzer configuration.
func (c *AnalyzerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SentimentStep, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.DefaultLanguage, validation.RuneLength(2, 8)),
	)
}

// RetentionConfig controls note expiry.
type RetentionConfig struct {
	Months int `yaml:"months"`
	// SweepInterval is how often overdue notes are flagged. Zero disables the sweeper.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Validate validates the retention configuration.
func (c *RetentionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Months, validation.Required, validation.Min(1), validation.Max(120)),
		validation.Field(&c.SweepInterval, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:        8080,
				CORSOrigins: []string{"http://localhost:3000"},
			},
		},
		Store: StoreConfig{
			Driver: StoreDriverSQLite,
			SQLite: SQLiteConfig{Path: "./smart-notes.db"},
			HTTP: RemoteStoreConfig{
				Index:   "notes",
				Timeout: 10 * time.Second,
			},
		},
		AI: AIConfig{
			Timeout: 15 * time.Second,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				OpenTimeout: 30 * time.Second,
			},
		},
		Auth: AuthConfig{
			Mode:        api.AuthModeDisabled,
			DefaultUser: "local",
		},
		Analyzer: AnalyzerConfig{
			SentimentStep:   0.1,
			DefaultLanguage: "tr",
		},
		Retention: RetentionConfig{
			Months:        3,
			SweepInterval: time.Hour,
		},
	}
}
