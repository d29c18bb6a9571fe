// Package config loads kvledger configuration.
//
// A config file (CUE, JSON or YAML) is unified with the embedded CUE schema,
// which supplies defaults and rejects unknown or mistyped fields. Environment
// variables then override individual settings.
package config

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Environment overrides.
const (
	EnvStoreDriver = "KVLEDGER_STORE_DRIVER"
	EnvDBPath      = "KVLEDGER_DB_PATH"
	EnvPGDSN       = "KVLEDGER_PG_DSN"
	EnvLogLevel    = "KVLEDGER_LOG_LEVEL"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the resolved configuration.
type Config struct {
	Store    StoreConfig    `json:"store"`
	Log      LogConfig      `json:"log"`
	Stamps   StampsConfig   `json:"stamps"`
	Sessions SessionsConfig `json:"sessions"`
}

// StoreConfig selects the KeyedStore backend.
type StoreConfig struct {
	Driver string `json:"driver"`
	Path   string `json:"path"`
	DSN    string `json:"dsn"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// StampsConfig configures the inspection registry.
type StampsConfig struct {
	RejectDuplicates bool     `json:"reject_duplicates"`
	Inspectors       []string `json:"inspectors"`
}

// SessionsConfig configures the tutoring registry.
type SessionsConfig struct {
	SelfWithdrawOnly bool `json:"self_withdraw_only"`
}

// Load reads the config file at path, or only defaults when path is empty,
// then applies environment overrides.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse validates data against the schema and decodes it. name selects the
// format by extension (.yaml/.yml, otherwise CUE, which accepts JSON) and
// labels error positions.
func Parse(name string, data []byte) (*Config, error) {
	cuectx := cuecontext.New()

	schema := cuectx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))

	if len(data) > 0 {
		user, err := compileUser(cuectx, name, data)
		if err != nil {
			return nil, err
		}
		v = v.Unify(user)
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", name, err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func compileUser(cuectx *cue.Context, name string, data []byte) (cue.Value, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cue.Value{}, fmt.Errorf("parse config %s: %w", name, err)
		}
		v := cuectx.Encode(raw)
		if err := v.Err(); err != nil {
			return cue.Value{}, fmt.Errorf("parse config %s: %w", name, err)
		}
		return v, nil
	default:
		v := cuectx.CompileBytes(data, cue.Filename(name))
		if err := v.Err(); err != nil {
			return cue.Value{}, fmt.Errorf("parse config %s: %w", name, err)
		}
		return v, nil
	}
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvStoreDriver); ok {
		switch v {
		case DriverMemory, DriverSQLite, DriverPostgres:
			c.Store.Driver = v
		default:
			return fmt.Errorf("%s has invalid driver %q", EnvStoreDriver, v)
		}
	}
	if v, ok := os.LookupEnv(EnvDBPath); ok {
		c.Store.Path = v
	}
	if v, ok := os.LookupEnv(EnvPGDSN); ok {
		c.Store.DSN = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		if _, err := parseLevel(v); err != nil {
			return fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		c.Log.Level = v
	}
	return nil
}

// Validate checks constraints spanning several fields.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver (or set %s)", EnvPGDSN)
		}
	}
	return nil
}

// NewLogger builds the slog logger described by c, writing to w.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
