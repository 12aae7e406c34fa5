package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leandrodaf/midirack/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestToZapLevel(t *testing.T) {
	tests := map[contracts.LogLevel]zapcore.Level{
		contracts.InfoLevel:  zapcore.InfoLevel,
		contracts.DebugLevel: zapcore.DebugLevel,
		contracts.WarnLevel:  zapcore.WarnLevel,
		contracts.ErrorLevel: zapcore.ErrorLevel,
		contracts.FatalLevel: zapcore.FatalLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, toZapLevel(in), in.String())
	}
}

func TestSetLevelGatesMessages(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))

	l.Debug("visible at debug")
	l.SetLevel(contracts.WarnLevel)
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("kept")
	l.Error("kept")

	assert.Equal(t, 3, logs.Len())
	assert.Equal(t, 0, logs.FilterMessage("hidden").Len())
	assert.True(t, l.Enabled(contracts.ErrorLevel))
	assert.False(t, l.Enabled(contracts.InfoLevel))
}

func TestStructuredFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))

	f := l.Field()
	l.Info("event",
		f.String("port", "midi.input"),
		f.Uint8("channel", 10),
		f.Int("count", 3),
		f.Bool("ok", true),
		f.Error("error", errors.New("boom")),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "midi.input", ctx["port"])
	assert.EqualValues(t, 10, ctx["channel"])
	assert.EqualValues(t, 3, ctx["count"])
	assert.Equal(t, true, ctx["ok"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestFieldBuilderWithoutValueIsSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))

	l.Info("bare", l.Field())
	require.Equal(t, 1, logs.Len())
	assert.Empty(t, logs.All()[0].Context)
}

func TestFileDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rack.log")
	l := newZapLogger(zap.NewProductionEncoderConfig(), false)

	require.NoError(t, l.SetDestination(contracts.FileLog, path))
	l.Info("to file", l.Field().String("k", "v"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
	assert.Contains(t, string(data), `"k":"v"`)

	require.NoError(t, l.SetDestination(contracts.ConsoleLog))
	assert.NoError(t, l.Sync())
}

func TestConsoleDestinationKeepsDevelopmentEncoding(t *testing.T) {
	buf := &zaptest.Buffer{}
	prev := stderr
	stderr = buf
	t.Cleanup(func() { stderr = prev })

	path := filepath.Join(t.TempDir(), "dev.log")
	l := newZapLogger(zap.NewDevelopmentEncoderConfig(), true)

	require.NoError(t, l.SetDestination(contracts.FileLog, path))
	l.Info("to file")
	require.NoError(t, l.SetDestination(contracts.ConsoleLog))
	l.Info("back on console")

	out := buf.String()
	assert.Contains(t, out, "back on console")
	assert.Contains(t, out, "\x1b[")
	assert.NotContains(t, out, "{")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"to file"`)
	assert.NotContains(t, string(data), "\x1b[")
}

func TestSetDestinationErrors(t *testing.T) {
	l := newZapLogger(zap.NewProductionEncoderConfig(), false)

	assert.Error(t, l.SetDestination(contracts.FileLog))
	assert.Error(t, l.SetDestination("syslog"))
	assert.Error(t, l.SetDestination(contracts.FileLog, filepath.Join(t.TempDir(), "missing", "rack.log")))
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Info("nothing")
		l.Error("nothing", l.Field().Any("v", 1))
	})
	assert.NoError(t, l.Sync())
}
