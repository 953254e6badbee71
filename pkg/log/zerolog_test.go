package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ftrlerrors "github.com/YuminosukeSato/ftrl/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestZerologLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo)

	logger.Debug("hidden")
	logger.Info("shown", EpochKey, 3, LossKey, 0.25)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, 3.0, lines[0][EpochKey])
	assert.Equal(t, 0.25, lines[0][LossKey])

	assert.False(t, logger.Enabled(context.Background(), LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), LevelError))
}

func TestZerologLogger_WithAndOddFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug).With(ModelNameKey, "FTRLProximal")

	logger.Debug("odd", OperationKey, OperationFit, "dangling")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "FTRLProximal", lines[0][ModelNameKey])
	assert.Equal(t, OperationFit, lines[0][OperationKey])
	_, hasDangling := lines[0]["dangling"]
	assert.False(t, hasDangling)
}

func TestZerologLogger_ErrorFirstField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug)

	err := ftrlerrors.NewFeatureIndexError("Fit", 7, 5, 0)
	logger.Error("fit failed", err, OperationKey, OperationFit)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0]["error"], "feature index out of range")
	detail, ok := lines[0]["error_detail"].(map[string]interface{})
	require.True(t, ok, "typed errors should be marshalled as objects")
	assert.Equal(t, "FeatureIndexError", detail["type"])
	assert.Equal(t, OperationFit, lines[0][OperationKey])
}

func TestProvider_SetLevelAffectsExistingLoggers(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelWarn)
	logger := p.GetLoggerWithName("ftrl.batch")

	logger.Info("dropped")
	p.SetLevel(LevelDebug)
	logger.Info("kept")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["message"])
	assert.Equal(t, "ftrl.batch", lines[0][ComponentKey])
}

func TestSetProvider_RoutesWarnings(t *testing.T) {
	prov, tl := NewTestLoggerProvider(LevelDebug)
	SetProvider(prov)
	t.Cleanup(func() { SetProvider(NewZerologProvider(&bytes.Buffer{}, LevelInfo)) })

	ftrlerrors.Warn(ftrlerrors.NewConvergenceWarning("FTRLProximal", 3, "loss increased"))

	assert.True(t, tl.ContainsMessage("FTRLProximal failed to converge"))
	assert.True(t, tl.ContainsField(ComponentKey, "warnings"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTestLogger_Capture(t *testing.T) {
	tl, _ := NewTestLogger(LevelInfo)
	child := tl.With(EstimatorIDKey, "est-1")

	child.Debug("skipped")
	child.Info("captured", SamplesKey, 10)

	entries, err := tl.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "est-1", entries[0][EstimatorIDKey])
	assert.True(t, tl.ContainsField(SamplesKey, 10.0))

	tl.Clear()
	assert.False(t, tl.ContainsMessage("captured"))
}

func TestSetOutput_KeepsLevel(t *testing.T) {
	t.Cleanup(func() { SetProvider(NewZerologProvider(&bytes.Buffer{}, LevelInfo)) })
	SetProvider(NewZerologProvider(&bytes.Buffer{}, LevelWarn))

	var buf bytes.Buffer
	SetOutput(&buf)
	GetLoggerWithName("cli").Info("dropped")
	GetLoggerWithName("cli").Warn("kept")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["message"])
}
