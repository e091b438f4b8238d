package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/gaceta/pkg/config"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled || cfg.AuthEnabled() {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenMode(t *testing.T) {
	cfg := AuthConfig{Mode: "token"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestBackendConfig_RequiresURL(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Backend.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing backend URL should fail")
	}
	cfg.Backend.BaseURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Fatal("malformed backend URL should fail")
	}
}

func TestEditorConfig_SettleDelayBounds(t *testing.T) {
	cfg := EditorConfig{PasteSettleDelay: time.Minute}
	if err := cfg.Validate(); err == nil {
		t.Error("a one-minute settle delay should fail")
	}
	cfg.PasteSettleDelay = -time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Error("a negative settle delay should fail")
	}
	cfg = EditorConfig{PrincipalTTL: time.Hour}
	if err := cfg.Validate(); err == nil {
		t.Error("an hour-long principal cache should fail")
	}
}

func TestUploadsConfig_S3RequiresBucket(t *testing.T) {
	cfg := UploadsConfig{Mode: UploadModeS3}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("s3 mode without bucket should fail")
	}
	if !strings.Contains(err.Error(), "s3") {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.S3 = S3Config{
		Bucket:          "imagenes",
		AccessKeyID:     "id",
		SecretAccessKey: "secret",
		PublicBaseURL:   "https://cdn.example",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("complete s3 config should pass: %v", err)
	}
	if got := cfg.S3.Uploader(); got.Bucket != "imagenes" || got.PublicBaseURL != "https://cdn.example" {
		t.Errorf("uploader config = %+v", got)
	}
}

func TestUploadsConfig_EmptyModeDefaultsHTTP(t *testing.T) {
	cfg := UploadsConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != UploadModeHTTP {
		t.Errorf("mode = %q", cfg.Mode)
	}
}

func TestInboxConfig_PatternNeedsPath(t *testing.T) {
	cfg := InboxConfig{Pattern: "**/*.html"}
	if err := cfg.Validate(); err == nil {
		t.Error("pattern without path should fail")
	}
	cfg.Path = "./inbox"
	if err := cfg.Validate(); err != nil || !cfg.Enabled() {
		t.Errorf("inbox with path: err = %v, enabled = %v", err, cfg.Enabled())
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("GACETA_BACKEND_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
backend:
  base_url: https://cms.example
  token: ${GACETA_BACKEND_TOKEN}
  timeout: 5s
editor:
  paste_settle_delay: 100ms
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.Token != "s3cret" || cfg.Backend.Timeout != 5*time.Second {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.Editor.PasteSettleDelay != 100*time.Millisecond || cfg.Editor.MaxSessions != 256 {
		t.Errorf("editor = %+v", cfg.Editor)
	}
}
