package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leandrodaf/midirack/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
device: 2
channel: 10
discriminant_key: kind
buffer: 32
log:
  level: debug
  file: /tmp/midirack.log
metrics:
  addr: ":9108"
`))
	require.NoError(t, err)

	want := &Config{
		Device:          2,
		Channel:         10,
		DiscriminantKey: "kind",
		Buffer:          32,
		Log:             LogConfig{Level: "debug", File: "/tmp/midirack.log"},
		Metrics:         MetricsConfig{Addr: ":9108"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, contracts.DebugLevel, cfg.LogLevel())
}

func TestParseOmniAndDefaults(t *testing.T) {
	cfg, err := Parse([]byte("channel: omni\n"))
	require.NoError(t, err)
	assert.Equal(t, contracts.Omni, cfg.Channel)
	assert.Equal(t, "type", cfg.DiscriminantKey)
	assert.Equal(t, 100, cfg.Buffer)
	assert.Equal(t, contracts.InfoLevel, cfg.LogLevel())
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"channel out of range": "channel: 17\n",
		"negative device":      "device: -1\n",
		"negative buffer":      "buffer: -5\n",
		"unknown level":        "log:\n  level: loud\n",
		"not yaml":             "device: [\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "midirack.yaml")
	cfg := Default()
	cfg.Channel = 4
	cfg.Metrics.Addr = "127.0.0.1:9108"

	require.NoError(t, Save(path, cfg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "discriminant_key: type")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.Channel = 3
	cfg.Buffer = 8
	cfg.Log.Level = "warn"
	cfg.Log.File = "out.log"

	var got contracts.ClientOptions
	for _, opt := range cfg.Options() {
		opt(&got)
	}
	assert.Equal(t, contracts.ChannelFilter(3), got.Channel)
	assert.Equal(t, 8, got.BufferSize)
	assert.Equal(t, contracts.WarnLevel, got.LogLevel)
	assert.Equal(t, "out.log", got.LogFilePath)
}
