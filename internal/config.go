package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/gaceta/internal/upload"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Upload modes.
const (
	UploadModeHTTP = "http"
	UploadModeS3   = "s3"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Backend BackendConfig     `yaml:"backend"`
	Editor  EditorConfig      `yaml:"editor"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Uploads UploadsConfig     `yaml:"uploads"`
	Inbox   InboxConfig       `yaml:"inbox"`
	SSE     SSEConfig         `yaml:"sse"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Backend, &c.Editor, &c.SQLite, &c.Auth, &c.Uploads, &c.Inbox} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
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

// BackendConfig points at the newspaper backend that owns articles,
// profiles and image storage.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the backend configuration.
func (c *BackendConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// EditorConfig tunes editing sessions.
type EditorConfig struct {
	// PasteSettleDelay is how long pasted blocks keep their inherited
	// styling before the canonical typography is forced onto them.
	PasteSettleDelay time.Duration `yaml:"paste_settle_delay"`
	SessionTTL       time.Duration `yaml:"session_ttl"`
	MaxSessions      int           `yaml:"max_sessions"`
	// PrincipalTTL is how long a token's worker profile is trusted before
	// the backend is asked again. Zero checks every request.
	PrincipalTTL     time.Duration `yaml:"principal_ttl"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PasteSettleDelay, validation.Min(time.Duration(0)), validation.Max(5*time.Second)),
		validation.Field(&c.SessionTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxSessions, validation.Min(0)),
		validation.Field(&c.PrincipalTTL, validation.Min(time.Duration(0)), validation.Max(10*time.Minute)),
	)
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

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): every request acts with the backend token, suitable for local dev.
//   - "token": requests carry their own Bearer token, which is forwarded to the backend.
type AuthConfig struct {
	Mode string `yaml:"mode"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	)
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// UploadsConfig selects where images go.
//   - "http" (default): the backend's image endpoint.
//   - "s3": an S3-compatible bucket.
type UploadsConfig struct {
	Mode     string   `yaml:"mode"`
	MaxBytes int64    `yaml:"max_bytes"`
	S3       S3Config `yaml:"s3"`
}

// Validate validates the uploads configuration.
func (c *UploadsConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = UploadModeHTTP
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.In(UploadModeHTTP, UploadModeS3)),
		validation.Field(&c.MaxBytes, validation.Min(int64(0))),
	); err != nil {
		return err
	}
	if c.Mode == UploadModeS3 {
		if err := c.S3.Validate(); err != nil {
			return fmt.Errorf("uploads: s3: %w", err)
		}
	}
	return nil
}

// S3Config holds the bucket used in s3 upload mode.
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix"`
	PublicBaseURL   string `yaml:"public_base_url"`
}

// Validate validates the S3 configuration.
func (c *S3Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Bucket, validation.Required),
		validation.Field(&c.AccessKeyID, validation.Required),
		validation.Field(&c.SecretAccessKey, validation.Required),
		validation.Field(&c.PublicBaseURL, validation.Required, is.URL),
		validation.Field(&c.Endpoint, is.URL),
	)
}

// Uploader returns the uploader settings in the form the upload package takes.
func (c *S3Config) Uploader() upload.S3Config {
	return upload.S3Config{
		Endpoint:        c.Endpoint,
		Region:          c.Region,
		Bucket:          c.Bucket,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		Prefix:          c.Prefix,
		PublicBaseURL:   c.PublicBaseURL,
	}
}

// InboxConfig holds the legacy draft inbox. An empty Path disables it.
type InboxConfig struct {
	Path    string `yaml:"path"`
	Pattern string `yaml:"pattern"`
}

// Validate validates the inbox configuration.
func (c *InboxConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Pattern, validation.When(c.Path == "", validation.Empty)),
	)
}

// Enabled reports whether the inbox is configured.
func (c *InboxConfig) Enabled() bool {
	return c.Path != ""
}

// SSEConfig tunes the event stream.
type SSEConfig struct {
	LedgerThrottle time.Duration `yaml:"ledger_throttle"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 15 * time.Second,
		},
		Editor: EditorConfig{
			PasteSettleDelay: 50 * time.Millisecond,
			SessionTTL:       2 * time.Hour,
			MaxSessions:      256,
			PrincipalTTL:     30 * time.Second,
		},
		SQLite: SQLiteConfig{
			Path: "./gaceta.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Uploads: UploadsConfig{
			Mode:     UploadModeHTTP,
			MaxBytes: 20 << 20,
		},
		SSE: SSEConfig{
			LedgerThrottle: 2 * time.Second,
		},
	}
}
