package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allEnvKeys = []string{EnvStoreDriver, EnvDBPath, EnvPGDSN, EnvLogLevel}

// isolateEnv unsets every KVLEDGER_ variable Load reads so tests don't
// inherit values from the host environment.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "kvledger.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Stamps.RejectDuplicates)
	assert.Empty(t, cfg.Stamps.Inspectors)
	assert.False(t, cfg.Sessions.SelfWithdrawOnly)
}

func TestLoad_CUEFile(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, "kvledger.cue", `
store: driver: "memory"
log: {level: "debug", format: "json"}
stamps: {
	reject_duplicates: true
	inspectors: ["acme", "bureau_veritas"]
}
sessions: self_withdraw_only: true
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Stamps.RejectDuplicates)
	assert.Equal(t, []string{"acme", "bureau_veritas"}, cfg.Stamps.Inspectors)
	assert.True(t, cfg.Sessions.SelfWithdrawOnly)
}

func TestLoad_JSONFile(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, "kvledger.json", `{"store": {"path": "/var/lib/kvledger/ledger.db"}}`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/var/lib/kvledger/ledger.db", cfg.Store.Path)
}

func TestLoad_YAMLFile(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, "kvledger.yaml", "store:\n  driver: postgres\n  dsn: postgres://localhost/kvledger\n")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/kvledger", cfg.Store.DSN)
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, "kvledger.cue", `store: drvier: "memory"`)

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoad_RejectsBadDriver(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, "kvledger.cue", `store: driver: "mysql"`)

	_, err := Load(path)

	require.Error(t, err)
}

func TestLoad_PostgresNeedsDSN(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, "kvledger.cue", `store: driver: "postgres"`)

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvPGDSN)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, "kvledger.cue", `store: driver: "memory"`)
	t.Setenv(EnvStoreDriver, "postgres")
	t.Setenv(EnvPGDSN, "postgres://db/ledger")
	t.Setenv(EnvDBPath, "/tmp/other.db")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://db/ledger", cfg.Store.DSN)
	assert.Equal(t, "/tmp/other.db", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_EnvInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"driver", EnvStoreDriver, "oracle"},
		{"log level", EnvLogLevel, "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	isolateEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.cue"))

	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("dropped")
	logger.Warn("kept", "k", "v")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}
