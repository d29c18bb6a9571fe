package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvledger/internal/host"
	"github.com/roach88/kvledger/internal/testutil"
)

// runCLI runs one command against a fresh root with a fixed clock.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{
		Clock: host.FixedClock(500),
		IDs:   testutil.NewSequentialIDs("cli"),
	}
	cmd := newRootCommand(opts)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeData(t *testing.T, out string) map[string]any {
	t.Helper()
	var resp struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status, out)
	return resp.Data
}

func decodeError(t *testing.T, out string) *CLIError {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "error", resp.Status, out)
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestSessionCommands_PayoutFlow(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")
	j := []string{"--db", db, "--format", "json"}

	out, err := runCLI(t, append(j, "session", "record", "--tutor", "T", "--student", "S", "--duration", "30")...)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"session_id": "1"}, decodeData(t, out))

	out, err = runCLI(t, append(j, "--as", "S", "session", "confirm", "1")...)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", decodeData(t, out)["status"])

	_, err = runCLI(t, append(j, "session", "pay", "1", "--rate", "3")...)
	require.NoError(t, err)

	out, err = runCLI(t, append(j, "session", "view", "1")...)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":               "1",
		"tutor":            "T",
		"student":          "S",
		"timestamp":        "500",
		"duration_minutes": float64(30),
		"confirmed":        true,
		"paid":             true,
		"status":           "paid",
	}, decodeData(t, out))

	out, err = runCLI(t, append(j, "session", "balance", "T")...)
	require.NoError(t, err)
	assert.Equal(t, "90", decodeData(t, out)["amount"])

	out, err = runCLI(t, append(j, "--as", "T", "session", "withdraw", "T")...)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"identity": "T", "amount": "90"}, decodeData(t, out))

	out, err = runCLI(t, append(j, "session", "balance", "T")...)
	require.NoError(t, err)
	assert.Equal(t, "0", decodeData(t, out)["amount"])

	out, err = runCLI(t, append(j, "session", "count")...)
	require.NoError(t, err)
	assert.Equal(t, "1", decodeData(t, out)["count"])
}

func TestSessionCommands_Faults(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")
	j := []string{"--db", db, "--format", "json"}

	_, err := runCLI(t, append(j, "session", "record", "--tutor", "T", "--student", "S", "--duration", "60")...)
	require.NoError(t, err)

	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{"confirm by tutor", []string{"--as", "T", "session", "confirm", "1"}, "UNAUTHORIZED"},
		{"pay unconfirmed", []string{"session", "pay", "1", "--rate", "2"}, "INVALID_STATE"},
		{"confirm missing", []string{"--as", "S", "session", "confirm", "9"}, "NOT_FOUND"},
		{"view missing", []string{"session", "view", "9"}, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, append(j, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Equal(t, tt.wantCode, decodeError(t, out).Code)
		})
	}

	// The refused operations left the session untouched.
	out, err := runCLI(t, append(j, "session", "view", "1")...)
	require.NoError(t, err)
	assert.Equal(t, "created", decodeData(t, out)["status"])
}

func TestSessionCommands_BadArguments(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"non-numeric id", []string{"session", "view", "one"}, `invalid session id "one"`},
		{"bad rate", []string{"session", "pay", "1", "--rate", "lots"}, "invalid --rate"},
		{"negative duration", []string{"session", "record", "--tutor", "T", "--student", "S", "--duration", "-1"}, "invalid argument"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, append([]string{"--db", db}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStampCommands_Lifecycle(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	out, err := runCLI(t, "--db", db, "stamp", "create", "7",
		"--asset", "PUMP-3", "--inspector", "ACME", "--passed", "--notes", "ok", "--evidence", "ab12")
	require.NoError(t, err)
	assert.Equal(t, "stamp_id: 7\n", out)

	out, err = runCLI(t, "--db", db, "stamp", "valid", "7")
	require.NoError(t, err)
	assert.Equal(t, "stamp_id: 7\nvalid: true\n", out)

	out, err = runCLI(t, "--db", db, "--format", "json", "stamp", "get", "7")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"stamp_id":      "7",
		"asset_id":      "PUMP-3",
		"inspector":     "ACME",
		"passed":        true,
		"notes":         "ok",
		"evidence_hash": "ab12",
		"inspected_at":  "500",
		"revoked":       false,
		"valid":         true,
	}, decodeData(t, out))

	_, err = runCLI(t, "--db", db, "stamp", "revoke", "7")
	require.NoError(t, err)

	out, err = runCLI(t, "--db", db, "stamp", "valid", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "valid: false")

	// Unknown stamps are not valid, and not an error.
	out, err = runCLI(t, "--db", db, "stamp", "valid", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "valid: false")

	out, err = runCLI(t, "--db", db, "stamp", "get", "8")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [NOT_FOUND]: stamp 8 not found")

	out, err = runCLI(t, "--db", db, "stamp", "revoke", "8")
	require.Error(t, err)
	assert.Contains(t, out, "Error [NOT_FOUND]")
}

func TestStampCommands_BadInput(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	_, err := runCLI(t, "--db", db, "stamp", "create", "1", "--inspector", "ACME", "--evidence", "zz")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err := runCLI(t, "--db", db, "--format", "json", "stamp", "create", "1", "--inspector", "bad symbol")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "INVALID_ARGUMENT", decodeError(t, out).Code)
}

func TestCommands_ConfigFileGuards(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "kvledger.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
stamps:
  reject_duplicates: true
  inspectors: [acme]
sessions:
  self_withdraw_only: true
`), 0o644))
	j := []string{"--config", cfgPath, "--db", filepath.Join(dir, "ledger.db"), "--format", "json"}

	out, err := runCLI(t, append(j, "--as", "mallory", "stamp", "create", "1", "--inspector", "ACME")...)
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, out).Code)

	_, err = runCLI(t, append(j, "--as", "acme", "stamp", "create", "1", "--inspector", "ACME")...)
	require.NoError(t, err)

	out, err = runCLI(t, append(j, "--as", "acme", "stamp", "create", "1", "--inspector", "ACME")...)
	require.Error(t, err)
	assert.Equal(t, "ALREADY_EXISTS", decodeError(t, out).Code)

	out, err = runCLI(t, append(j, "--as", "S", "session", "withdraw", "T")...)
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, out).Code)

	out, err = runCLI(t, append(j, "--as", "T", "session", "withdraw", "T")...)
	require.NoError(t, err)
	assert.Equal(t, "0", decodeData(t, out)["amount"])
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("KVLEDGER_LOG_LEVEL", "warn")

	out, err := runCLI(t, "--db", "/tmp/other.db", "--format", "json", "config")
	require.NoError(t, err)

	data := decodeData(t, out)
	assert.Equal(t, map[string]any{"driver": "sqlite", "path": "/tmp/other.db", "dsn": ""}, data["store"])
	assert.Equal(t, map[string]any{"level": "warn", "format": "text"}, data["log"])
	assert.Equal(t, map[string]any{"self_withdraw_only": false}, data["sessions"])
}

func TestConfigCommand_InvalidFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store:\n  driver: oracle\n"), 0o644))

	out, err := runCLI(t, "--config", cfgPath, "config")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E_CONFIG]")
}
