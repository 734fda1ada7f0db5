package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"

	DefaultBackend         = BackendMongo
	DefaultManifest        = "Q_bank.json"
	DefaultLogLevel        = "info"
	DefaultMongoURI        = "mongodb://localhost:27017"
	DefaultMongoDatabase   = "ywt_db"
	DefaultMongoCollection = "qbank"
	DefaultMongoTimeout    = 10
	DefaultDBFileName      = ".qbank.db"
	DefaultImportWorkers   = 1

	configFileName           = ".qbank.toml"
	configDirEnvKey          = "QBANK_CONFIG_DIR"
	trustProjectConfigEnvKey = "QBANK_TRUST_PROJECT_CONFIG"
)

// MongoConfig defines the MongoDB target.
type MongoConfig struct {
	URI            string `toml:"uri"`
	Database       string `toml:"database"`
	Collection     string `toml:"collection"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// SQLiteConfig defines the local SQLite target.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// ImportConfig defines defaults for import runs.
type ImportConfig struct {
	Workers      int    `toml:"workers"`
	VerifyImages bool   `toml:"verify_images"`
	BaseDir      string `toml:"base_dir"`
}

// Config defines runtime configuration for qbank.
type Config struct {
	Backend                  string       `toml:"backend"`
	Manifest                 string       `toml:"manifest"`
	LogLevel                 string       `toml:"log_level"`
	Mongo                    MongoConfig  `toml:"mongo"`
	SQLite                   SQLiteConfig `toml:"sqlite"`
	Import                   ImportConfig `toml:"import"`
	TrustedProjectConfigPath string       `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		Backend:  DefaultBackend,
		Manifest: DefaultManifest,
		LogLevel: DefaultLogLevel,
		Mongo: MongoConfig{
			URI:            DefaultMongoURI,
			Database:       DefaultMongoDatabase,
			Collection:     DefaultMongoCollection,
			TimeoutSeconds: DefaultMongoTimeout,
		},
		Import: ImportConfig{
			Workers: DefaultImportWorkers,
		},
	}
}

// MongoTimeout returns the connection timeout as a duration.
func (c *Config) MongoTimeout() time.Duration {
	return time.Duration(c.Mongo.TimeoutSeconds) * time.Second
}

// Target names the destination collection or table for progress output.
func (c *Config) Target() string {
	if c.Backend == BackendSQLite {
		return "images"
	}
	return c.Mongo.Collection
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
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
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "backend":
		return c.Backend, nil
	case "manifest":
		return c.Manifest, nil
	case "log_level":
		return c.LogLevel, nil
	case "mongo.uri":
		return c.Mongo.URI, nil
	case "mongo.database":
		return c.Mongo.Database, nil
	case "mongo.collection":
		return c.Mongo.Collection, nil
	case "mongo.timeout_seconds":
		return strconv.Itoa(c.Mongo.TimeoutSeconds), nil
	case "sqlite.path":
		return c.SQLite.Path, nil
	case "import.workers":
		return strconv.Itoa(c.Import.Workers), nil
	case "import.verify_images":
		return strconv.FormatBool(c.Import.VerifyImages), nil
	case "import.base_dir":
		return c.Import.BaseDir, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.SQLite.Path == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.SQLite.Path = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	if backend := os.Getenv("QBANK_BACKEND"); backend != "" {
		cfg.Backend = backend
	}
	if manifest := os.Getenv("QBANK_MANIFEST"); manifest != "" {
		cfg.Manifest = manifest
	}
	if uri := os.Getenv("QBANK_MONGO_URI"); uri != "" {
		cfg.Mongo.URI = uri
	}
	if database := os.Getenv("QBANK_MONGO_DB"); database != "" {
		cfg.Mongo.Database = database
	}
	if collection := os.Getenv("QBANK_MONGO_COLLECTION"); collection != "" {
		cfg.Mongo.Collection = collection
	}
	if dbPath := os.Getenv("QBANK_DB"); dbPath != "" {
		cfg.SQLite.Path = dbPath
	}

	cfg.normalizeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations no command can run with.
func (c *Config) Validate() error {
	if _, err := ParseBackend(c.Backend); err != nil {
		return err
	}
	return nil
}

// ParseBackend normalizes a backend name.
func ParseBackend(raw string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case BackendMongo, "mongodb":
		return BackendMongo, nil
	case BackendSQLite:
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("unknown backend %q (allowed: %s, %s)", raw, BackendMongo, BackendSQLite)
	}
}

// ParseLogLevel parses a slog level name or number. Empty means info.
func ParseLogLevel(raw string) (slog.Level, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return slog.LevelInfo, nil
	}
	if strings.EqualFold(value, "warning") {
		value = "warn"
	}

	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "backend":
		return ParseBackend(value)
	case "mongo.timeout_seconds", "import.workers":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "import.verify_images":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "log_level":
		if _, err := ParseLogLevel(value); err != nil || value == "" {
			return nil, fmt.Errorf("%s must be one of debug, info, warn, error or a numeric level", key)
		}
		return value, nil
	case "manifest", "mongo.uri", "mongo.database", "mongo.collection", "sqlite.path":
		if value == "" {
			return nil, fmt.Errorf("%s must not be empty", key)
		}
		return value, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func (c *Config) normalizeDefaults() {
	if backend, err := ParseBackend(c.Backend); err == nil {
		c.Backend = backend
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if strings.TrimSpace(c.Manifest) == "" {
		c.Manifest = DefaultManifest
	}
	if strings.TrimSpace(c.Mongo.URI) == "" {
		c.Mongo.URI = DefaultMongoURI
	}
	if strings.TrimSpace(c.Mongo.Database) == "" {
		c.Mongo.Database = DefaultMongoDatabase
	}
	if strings.TrimSpace(c.Mongo.Collection) == "" {
		c.Mongo.Collection = DefaultMongoCollection
	}
	if c.Mongo.TimeoutSeconds <= 0 {
		c.Mongo.TimeoutSeconds = DefaultMongoTimeout
	}
	if c.Import.Workers <= 0 {
		c.Import.Workers = DefaultImportWorkers
	}
}
