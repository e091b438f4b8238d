package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("GACETA_SET", "valor")
	t.Setenv("GACETA_EMPTY", "")
	cases := map[string]string{
		"$GACETA_SET":                  "valor",
		"${GACETA_SET}":                "valor",
		"${GACETA_SET:-otro}":          "valor",
		"${GACETA_EMPTY:-otro}":        "otro",
		"${GACETA_UNSET_XYZ:-8080}":    "8080",
		"${GACETA_UNSET_XYZ}":          "",
		"http://${GACETA_SET}:${P:-1}": "http://valor:1",
	}
	for in, want := range cases {
		if got := ExpandEnv(in); got != want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("GACETA_NAME", "gaceta")
	path := writeFile(t, "name: ${GACETA_NAME}\nport: ${GACETA_PORT_XYZ:-9090}\n")

	var cfg sample
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "gaceta" || cfg.Port != 9090 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_ValidationFails(t *testing.T) {
	path := writeFile(t, "port: 1\n")
	var cfg sample
	err := Load(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err == nil {
		t.Fatal("missing file should fail")
	}
}
