package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func boolPtr(v bool) *bool { return &v }

func TestParse_FullDocument(t *testing.T) {
	t.Setenv("SCHOOL_DB", "/tmp/school.db")
	cfg, err := Parse([]byte(`
catalog: school.yaml
database:
  driver: sqlite3
  dsn: ${SCHOOL_DB}
logging:
  level: debug
  format: json
server:
  listen: :9090
forms:
  exclude_pk: false
  hierarchy_lookup: false
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := Config{
		Catalog:  "school.yaml",
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "/tmp/school.db"},
		Logging:  LoggingConfig{Level: "debug", Format: "json"},
		Server:   ServerConfig{Listen: ":9090"},
		Forms:    FormsConfig{ExcludePK: boolPtr(false), HierarchyLookup: boolPtr(false)},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Level() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", cfg.Level())
	}
	if got := len(cfg.FormOptions(zerolog.Nop())); got != 3 {
		t.Fatalf("expected logger + 2 form options, got %d", got)
	}
}

func TestParse_DefaultsAndOverrides(t *testing.T) {
	t.Setenv(EnvListen, ":7000")
	t.Setenv(EnvCatalog, "env.toml")

	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Catalog != "env.toml" || cfg.Server.Listen != ":7000" {
		t.Fatalf("expected environment overrides, got %+v", cfg)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Fatalf("expected logging defaults, got %+v", cfg.Logging)
	}
	if got := len(cfg.FormOptions(zerolog.Nop())); got != 1 {
		t.Fatalf("expected only the logger option, got %d", got)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown key":        "catalgo: school.yaml\n",
		"bad level":          "logging:\n  level: loud\n",
		"bad format":         "logging:\n  format: xml\n",
		"bad driver":         "database:\n  driver: oracle\n  dsn: x\n",
		"driver without dsn": "database:\n  driver: postgres\n",
		"dsn without driver": "database:\n  dsn: file.db\n",
		"malformed yaml":     "catalog: [\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatalf("expected error for %q", doc)
			}
		})
	}
}

func TestLoad_Files(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ormform.yaml")
	if err := os.WriteFile(path, []byte("catalog: models.toml\ndatabase:\n  driver: postgresql\n  dsn: postgres://localhost/school\npresets:\n  Student: presets/student.yaml\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "postgres" || cfg.Catalog != filepath.Join(dir, "models.toml") {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if got := cfg.Presets["Student"]; got != filepath.Join(dir, "presets", "student.yaml") {
		t.Fatalf("expected resolved preset path, got %q", got)
	}
	if err := cfg.RequireCatalog(); err != nil {
		t.Fatalf("RequireCatalog: %v", err)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	fallback, err := LoadOptional(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if diff := cmp.Diff(Default(), fallback); diff != "" {
		t.Fatalf("fallback mismatch (-want +got):\n%s", diff)
	}
	if err := fallback.RequireCatalog(); !errors.Is(err, ErrNoCatalog) {
		t.Fatalf("expected ErrNoCatalog, got %v", err)
	}
}
