package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolateEnv clears overrides so tests only see what they configure.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		configDirEnvKey,
		trustProjectConfigEnvKey,
		"QBANK_BACKEND",
		"QBANK_MANIFEST",
		"QBANK_MONGO_URI",
		"QBANK_MONGO_DB",
		"QBANK_MONGO_COLLECTION",
		"QBANK_DB",
	} {
		t.Setenv(key, "")
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Backend != BackendMongo {
		t.Fatalf("expected mongo backend, got %q", cfg.Backend)
	}
	if cfg.Manifest != "Q_bank.json" {
		t.Fatalf("expected default manifest, got %q", cfg.Manifest)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Mongo.URI != "mongodb://localhost:27017" || cfg.Mongo.Database != "ywt_db" || cfg.Mongo.Collection != "qbank" {
		t.Fatalf("unexpected mongo defaults: %#v", cfg.Mongo)
	}
	if cfg.MongoTimeout() != 10*time.Second {
		t.Fatalf("expected 10s timeout, got %v", cfg.MongoTimeout())
	}
	if cfg.Import.Workers != 1 || cfg.Import.VerifyImages {
		t.Fatalf("unexpected import defaults: %#v", cfg.Import)
	}
	if cfg.Target() != "qbank" {
		t.Fatalf("expected target qbank, got %q", cfg.Target())
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".qbank.toml")
	if err := os.WriteFile(path, []byte(`backend = "sqlite"
log_level = "warn"

[mongo]
collection = "images"

[sqlite]
path = "/var/lib/qbank.db"

[import]
workers = 4
verify_images = true
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != BackendSQLite {
		t.Fatalf("expected sqlite backend, got %q", cfg.Backend)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected log_level 'warn', got %q", cfg.LogLevel)
	}
	if cfg.Mongo.Collection != "images" || cfg.Mongo.Database != "ywt_db" {
		t.Fatalf("expected partial mongo override, got %#v", cfg.Mongo)
	}
	if cfg.SQLite.Path != "/var/lib/qbank.db" {
		t.Fatalf("expected sqlite path, got %q", cfg.SQLite.Path)
	}
	if cfg.Import.Workers != 4 || !cfg.Import.VerifyImages {
		t.Fatalf("unexpected import config: %#v", cfg.Import)
	}
	if cfg.Target() != "images" {
		t.Fatalf("expected sqlite target, got %q", cfg.Target())
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/.qbank.toml", &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Mongo.Collection != DefaultMongoCollection {
		t.Fatalf("defaults should be preserved")
	}
}

func TestLoadFileInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".qbank.toml")
	if err := os.WriteFile(path, []byte("backend = \n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := Default()
	err := loadFile(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range []string{
		"backend",
		"manifest",
		"log_level",
		"mongo.uri",
		"mongo.database",
		"mongo.collection",
		"mongo.timeout_seconds",
		"sqlite.path",
		"import.workers",
		"import.verify_images",
		"import.base_dir",
	} {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q to be allowed", key)
		}
	}
	if IsAllowedKey("invalid") {
		t.Fatal("expected 'invalid' to not be allowed")
	}
}

func TestGetKey(t *testing.T) {
	cfg := Default()
	cfg.SQLite.Path = "/tmp/test.db"
	cfg.Import.BaseDir = "/data/images"

	tests := map[string]string{
		"backend":               "mongo",
		"manifest":              "Q_bank.json",
		"log_level":             "info",
		"mongo.uri":             "mongodb://localhost:27017",
		"mongo.database":        "ywt_db",
		"mongo.collection":      "qbank",
		"mongo.timeout_seconds": "10",
		"sqlite.path":           "/tmp/test.db",
		"import.workers":        "1",
		"import.verify_images":  "false",
		"import.base_dir":       "/data/images",
	}
	for key, want := range tests {
		got, err := cfg.Get(key)
		if err != nil || got != want {
			t.Fatalf("%s: expected %q, got %q (err: %v)", key, want, got, err)
		}
	}

	if _, err := cfg.Get("nope"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestSetKeyCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ".qbank.toml")
	if err := SetKey(path, "mongo.collection", "images"); err != nil {
		t.Fatalf("set key: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mongo.Collection != "images" {
		t.Fatalf("expected collection 'images', got %q", cfg.Mongo.Collection)
	}
}

func TestSetKeyUpdatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".qbank.toml")
	if err := os.WriteFile(path, []byte("log_level = \"warn\"\n[mongo]\ndatabase = \"other\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := SetKey(path, "mongo.uri", "mongodb://db:27017"); err != nil {
		t.Fatalf("set key: %v", err)
	}
	if err := SetKey(path, "import.workers", "8"); err != nil {
		t.Fatalf("set workers: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "warn" || cfg.Mongo.Database != "other" {
		t.Fatalf("expected existing keys preserved, got %#v", cfg)
	}
	if cfg.Mongo.URI != "mongodb://db:27017" || cfg.Import.Workers != 8 {
		t.Fatalf("expected updated keys, got uri=%q workers=%d", cfg.Mongo.URI, cfg.Import.Workers)
	}
}

func TestSetKeyValidatesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".qbank.toml")
	for key, value := range map[string]string{
		"backend":               "postgres",
		"import.workers":        "0",
		"mongo.timeout_seconds": "soon",
		"import.verify_images":  "maybe",
		"mongo.uri":             " ",
		"log_level":             "bogus",
	} {
		if err := SetKey(path, key, value); err == nil {
			t.Fatalf("expected error for %s=%q", key, value)
		}
	}
	if err := SetKey(path, "invalid", "x"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestSetKeyLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".qbank.toml")
	if err := SetKey(path, "log_level", "Warning"); err != nil {
		t.Fatalf("set log_level: %v", err)
	}
	if err := SetKey(path, "log_level", ""); err == nil {
		t.Fatal("expected error for empty log_level")
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "Warning" {
		t.Fatalf("expected stored level, got %q", cfg.LogLevel)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    slog.Level
		wantErr bool
	}{
		{name: "default info", raw: "", want: slog.LevelInfo},
		{name: "debug", raw: "debug", want: slog.LevelDebug},
		{name: "info", raw: "info", want: slog.LevelInfo},
		{name: "warn", raw: "warn", want: slog.LevelWarn},
		{name: "warning alias", raw: "warning", want: slog.LevelWarn},
		{name: "error", raw: "ERROR", want: slog.LevelError},
		{name: "numeric", raw: "-4", want: slog.LevelDebug},
		{name: "invalid", raw: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLogLevel(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse level: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestConfigDirOverridePaths(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	t.Setenv(configDirEnvKey, dir)

	globalPath, err := GlobalPath()
	if err != nil {
		t.Fatalf("global path: %v", err)
	}
	if globalPath != filepath.Join(dir, ".qbank.toml") {
		t.Fatalf("unexpected global path: %s", globalPath)
	}

	projectPath, err := ProjectPath()
	if err != nil {
		t.Fatalf("project path: %v", err)
	}
	if projectPath != filepath.Join(dir, ".qbank.toml") {
		t.Fatalf("unexpected project path: %s", projectPath)
	}
}

func TestLoadConfigDirOverride(t *testing.T) {
	isolateEnv(t)
	configDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(configDir, ".qbank.toml"), []byte("[mongo]\ndatabase = \"override\"\n"), 0o644); err != nil {
		t.Fatalf("write override config: %v", err)
	}

	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, ".qbank.toml"), []byte("[mongo]\ndatabase = \"workspace\"\n"), 0o644); err != nil {
		t.Fatalf("write workspace config: %v", err)
	}
	chdir(t, workspace)

	t.Setenv(configDirEnvKey, configDir)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mongo.Database != "override" {
		t.Fatalf("expected config-dir database, got %q", cfg.Mongo.Database)
	}
	if cfg.SQLite.Path != filepath.Join(workspace, DefaultDBFileName) {
		t.Fatalf("expected default workspace db path, got %q", cfg.SQLite.Path)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv(configDirEnvKey, t.TempDir())
	t.Setenv("QBANK_BACKEND", "SQLite")
	t.Setenv("QBANK_MANIFEST", "other.json")
	t.Setenv("QBANK_MONGO_URI", "mongodb://example.com:27018")
	t.Setenv("QBANK_MONGO_DB", "db2")
	t.Setenv("QBANK_MONGO_COLLECTION", "coll2")
	t.Setenv("QBANK_DB", "/tmp/override.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != BackendSQLite {
		t.Fatalf("expected normalized sqlite backend, got %q", cfg.Backend)
	}
	if cfg.Manifest != "other.json" {
		t.Fatalf("expected manifest override, got %q", cfg.Manifest)
	}
	if cfg.Mongo.URI != "mongodb://example.com:27018" || cfg.Mongo.Database != "db2" || cfg.Mongo.Collection != "coll2" {
		t.Fatalf("expected mongo overrides, got %#v", cfg.Mongo)
	}
	if cfg.SQLite.Path != "/tmp/override.db" {
		t.Fatalf("expected env override for DB path, got %q", cfg.SQLite.Path)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	isolateEnv(t)
	t.Setenv(configDirEnvKey, t.TempDir())
	t.Setenv("QBANK_BACKEND", "postgres")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoadFallsBackToDefaultsWhenConfiguredEmpty(t *testing.T) {
	isolateEnv(t)
	homeDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(homeDir, ".qbank.toml"), []byte("log_level = \"\"\n[import]\nworkers = 0\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}
	chdir(t, t.TempDir())
	t.Setenv("HOME", homeDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Import.Workers != DefaultImportWorkers {
		t.Fatalf("expected default workers, got %d", cfg.Import.Workers)
	}
}

func TestLoadIgnoresProjectConfigByDefault(t *testing.T) {
	isolateEnv(t)
	homeDir := t.TempDir()
	workspace := t.TempDir()

	if err := os.WriteFile(filepath.Join(homeDir, ".qbank.toml"), []byte("[mongo]\ncollection = \"home\"\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, ".qbank.toml"), []byte("[mongo]\ncollection = \"project\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}
	chdir(t, workspace)
	t.Setenv("HOME", homeDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mongo.Collection != "home" {
		t.Fatalf("expected global config collection 'home', got %q", cfg.Mongo.Collection)
	}
	if cfg.TrustedProjectConfigPath != "" {
		t.Fatalf("expected no trusted project config path, got %q", cfg.TrustedProjectConfigPath)
	}
}

func TestLoadAppliesProjectConfigWhenTrusted(t *testing.T) {
	isolateEnv(t)
	homeDir := t.TempDir()
	workspace := t.TempDir()

	if err := os.WriteFile(filepath.Join(homeDir, ".qbank.toml"), []byte("[mongo]\ncollection = \"home\"\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, ".qbank.toml"), []byte("[mongo]\ncollection = \"project\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}
	chdir(t, workspace)
	t.Setenv("HOME", homeDir)
	t.Setenv(trustProjectConfigEnvKey, "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mongo.Collection != "project" {
		t.Fatalf("expected trusted project collection 'project', got %q", cfg.Mongo.Collection)
	}
	expectedPath := filepath.Join(workspace, ".qbank.toml")
	if cfg.TrustedProjectConfigPath != expectedPath {
		t.Fatalf("expected trusted project config path %q, got %q", expectedPath, cfg.TrustedProjectConfigPath)
	}
}

func TestLoadDoesNotTrustProjectConfigOnInvalidEnvValue(t *testing.T) {
	isolateEnv(t)
	homeDir := t.TempDir()
	workspace := t.TempDir()

	if err := os.WriteFile(filepath.Join(workspace, ".qbank.toml"), []byte("[mongo]\ncollection = \"project\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}
	chdir(t, workspace)
	t.Setenv("HOME", homeDir)
	t.Setenv(trustProjectConfigEnvKey, "definitely-not-bool")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mongo.Collection != DefaultMongoCollection {
		t.Fatalf("expected default collection with invalid trust env, got %q", cfg.Mongo.Collection)
	}
	if cfg.TrustedProjectConfigPath != "" {
		t.Fatalf("expected no trusted project config path, got %q", cfg.TrustedProjectConfigPath)
	}
}
