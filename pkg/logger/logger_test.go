package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	log.Error(ctx, "boom", errors.New("boom"))

	entry := decodeEntry(t, buf)
	require.Equal(t, "req-123", entry["request_id"])
	require.Equal(t, "boom", entry["error"])
	require.Contains(t, entry, "stack")
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	require.Contains(t, decodeEntry(t, buf), "stack")

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})
	quiet.Warn(context.Background(), "warny")
	require.NotContains(t, decodeEntry(t, buf), "stack")
}

func TestLoggerTenantAndStepFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	ctx := log.WithTenant(context.Background(), "clinic", "c-1")
	ctx = log.WithStep(ctx, "activate_subscription")
	log.Info(ctx, "step done")

	entry := decodeEntry(t, buf)
	require.Equal(t, "clinic", entry["tenant_kind"])
	require.Equal(t, "c-1", entry["tenant_id"])
	require.Equal(t, "activate_subscription", entry["step"])
	require.Equal(t, "test", entry["service"])
}

func TestLoggerErrorTagsTypedErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, Instance: "api-1"})

	err := pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("conn reset"), "approve failed").
		WithStep("update_payment")
	log.Error(context.Background(), "approve failed", err)

	entry := decodeEntry(t, buf)
	require.Equal(t, string(pkgerrors.CodeDependency), entry["error_code"])
	require.Equal(t, "update_payment", entry["failed_step"])
	require.Equal(t, "api-1", entry["instance"])
	require.Contains(t, entry["error"], "conn reset")
}

func TestLoggerConsoleFormatIsNotJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, Format: " Console "})
	log.Info(context.Background(), "hello")

	require.Contains(t, buf.String(), "hello")
	var entry map[string]any
	require.Error(t, json.Unmarshal(buf.Bytes(), &entry))
}

func TestParseLevelDefaults(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	require.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}
