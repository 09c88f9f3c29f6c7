package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfencode/dfencode/pkg/errors"
)

func TestTestLoggerCapturesLevelsAndFields(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationFit)
	testLogger.Warn("warning message", ErrorCodeKey, ErrorUnseenCategory)
	testLogger.Error("error message", fmt.Errorf("boom"), ErrorCodeKey, ErrorSchemaMismatch)

	require.NotEmpty(t, buffer.String())
	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		assert.True(t, testLogger.ContainsMessage(msg), msg)
	}
	assert.True(t, testLogger.ContainsField("key1", "value1"))
	assert.True(t, testLogger.ContainsField("number", 42.0))
	assert.True(t, testLogger.ContainsField("error", "boom"))
	assert.Equal(t, 1, testLogger.CountLevel(LevelWarn))
}

func TestTestLoggerLevelFiltering(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelWarn)

	testLogger.Debug("hidden")
	testLogger.Info("hidden too")
	testLogger.Warn("shown")

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "WARN", entries[0]["level"])

	assert.False(t, testLogger.Enabled(context.Background(), LevelInfo))
	assert.True(t, testLogger.Enabled(context.Background(), LevelError))
}

func TestTestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)

	contextLogger := testLogger.With(ModelNameKey, "CategoricalEncoder", ComponentKey, "preprocessing")
	contextLogger.Info("contextual message", OperationKey, OperationTransform)

	assert.True(t, testLogger.ContainsField(ModelNameKey, "CategoricalEncoder"))
	assert.True(t, testLogger.ContainsField(ComponentKey, "preprocessing"))
	assert.True(t, testLogger.ContainsField(OperationKey, OperationTransform))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"", LevelInfo, false},
		{"INFO", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				var valErr *errors.ValidationError
				assert.True(t, errors.As(err, &valErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestZerologProvider(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelInfo)

	logger := p.GetLoggerWithName("preprocessing.categorical")
	logger.Debug("not written")
	logger.Info("Encoder fitted", SamplesKey, 3, FeaturesKey, 2)
	logger.Error("Transform failed", errors.NewNotFittedError("CategoricalEncoder", "Transform"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "Encoder fitted", first["message"])
	assert.Equal(t, "preprocessing.categorical", first[ComponentKey])
	assert.Equal(t, 3.0, first[SamplesKey])

	assert.Contains(t, lines[1], "not fitted yet")

	assert.False(t, logger.Enabled(context.Background(), LevelDebug))
	p.SetLevel(LevelDebug)
	assert.True(t, p.GetLogger().Enabled(context.Background(), LevelDebug))
}

func TestGlobalProviderSwap(t *testing.T) {
	testProvider, buffer := NewTestLoggerProvider(LevelDebug)

	providerMu.RLock()
	previous := provider
	providerMu.RUnlock()
	SetProvider(testProvider)
	defer SetProvider(previous)

	GetLoggerWithName("cli").Info("hello")
	assert.Contains(t, buffer.String(), `"ml.component":"cli"`)
}

func TestInstallWarningSink(t *testing.T) {
	var buf bytes.Buffer
	InstallWarningSink(zerolog.New(&buf))
	defer errors.SetZerologWarnFunc(nil)

	errors.Warn(errors.NewUnseenCategoryWarning("status", "pending", 0))

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"column":"status"`)
	assert.Contains(t, out, `"type":"UnseenCategoryWarning"`)
}

func TestSetupLoggerAddsStacktrace(t *testing.T) {
	previous := slog.Default()
	defer slog.SetDefault(previous)

	var buf bytes.Buffer
	require.NoError(t, SetupLoggerTo(&buf, "debug"))

	slog.Error("transform failed", ErrAttr(errors.NewSchemaMismatchError("Transform", "color", "missing")))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "transform failed", entry["message"])
	assert.Equal(t, "ERROR", entry["severity"])
	assert.Contains(t, entry[ErrAttrKey], "schema mismatch")

	assert.Error(t, SetupLoggerTo(&buf, "loud"))
}
