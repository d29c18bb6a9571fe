package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvledger/internal/fault"
	"github.com/roach88/kvledger/internal/ir"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("NOT_FOUND", "session not found", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "session not found", resp.Error.Message)
	assert.Nil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("stamp 1 created")
	require.NoError(t, err)
	assert.Equal(t, "stamp 1 created\n", buf.String())
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			require.NoError(t, formatter.Error("INVALID_STATE", "already paid", map[string]string{"key": "k"}))
			assert.Contains(t, buf.String(), "Error [INVALID_STATE]: already paid")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details:")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_ObjectText(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Object(ir.Object{
		"paid":      ir.Bool(false),
		"id":        ir.String("1"),
		"timestamp": ir.String("99"),
	})
	require.NoError(t, err)
	assert.Equal(t, "id: 1\npaid: false\ntimestamp: 99\n", buf.String())
}

func TestOutputFormatter_ObjectJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Object(ir.Object{"amount": ir.String("90")}))
	assert.JSONEq(t, `{"status":"ok","data":{"amount":"90"}}`, buf.String())
}

func TestOutputFormatter_Refusal(t *testing.T) {
	t.Run("fault", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}

		err := formatter.Refusal("pay", fault.InvalidState("session 1 is not confirmed").WithKey(`["tutoring","session",1]`))
		assert.Equal(t, ExitFailure, GetExitCode(err))

		var exitErr *ExitError
		require.True(t, errors.As(err, &exitErr))
		assert.True(t, exitErr.Reported)
		assert.ErrorIs(t, err, fault.ErrInvalidState)

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "INVALID_STATE", resp.Error.Code)
		assert.Equal(t, "session 1 is not confirmed", resp.Error.Message)
		assert.Equal(t, map[string]any{"key": `["tutoring","session",1]`}, resp.Error.Details)
	})

	t.Run("store failure", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}

		err := formatter.Refusal("withdraw", errors.New("database is locked"))
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, buf.String(), "Error [E_STORE]: database is locked")
	})
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			errBuf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    buf,
				ErrWriter: errBuf,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("opening %s", "kvledger.db")

			assert.Empty(t, buf.String())
			if tt.wantLog {
				assert.Contains(t, errBuf.String(), "opening kvledger.db")
			} else {
				assert.Empty(t, errBuf.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}
