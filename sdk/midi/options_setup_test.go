package midi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leandrodaf/midirack/internal/logger"
	"github.com/leandrodaf/midirack/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaultOptions(t *testing.T) {
	opts, err := applyDefaultOptions()
	require.NoError(t, err)

	assert.NotNil(t, opts.Logger)
	require.NotNil(t, opts.CoreMIDIConfig)
	assert.Equal(t, "GO MIDI Client", opts.CoreMIDIConfig.ClientName)
	assert.Equal(t, defaultBufferSize, opts.BufferSize)
	assert.Equal(t, contracts.Omni, opts.Channel)
	assert.Nil(t, opts.MIDIEventFilter)
	assert.Nil(t, opts.Metrics)
}

func TestApplyDefaultOptionsKeepsExplicitValues(t *testing.T) {
	log := logger.NewNopLogger()
	opts, err := applyDefaultOptions(
		contracts.WithLogger(log),
		contracts.WithCoreMIDIConfig(contracts.CoreMIDIConfig{ClientName: "rack"}),
		contracts.WithBufferSize(16),
		contracts.WithChannel(12),
		contracts.WithMIDIEventFilter(contracts.MIDIEventFilter{Commands: []contracts.MIDICommand{contracts.NoteOnCommand}}),
	)
	require.NoError(t, err)

	assert.Same(t, log, opts.Logger)
	assert.Equal(t, "rack", opts.CoreMIDIConfig.ClientName)
	assert.Equal(t, 16, opts.BufferSize)
	assert.Equal(t, contracts.ChannelFilter(12), opts.Channel)
	assert.True(t, opts.MIDIEventFilter.Allows(0x90))
	assert.False(t, opts.MIDIEventFilter.Allows(0xB0))
}

func TestApplyDefaultOptionsRejectsInvalidChannel(t *testing.T) {
	_, err := applyDefaultOptions(contracts.WithLogger(logger.NewNopLogger()), contracts.WithChannel(99))
	assert.ErrorIs(t, err, contracts.ErrInvalidChannel)
}

func TestApplyDefaultOptionsLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "midi.log")
	opts, err := applyDefaultOptions(contracts.WithLogFile(path))
	require.NoError(t, err)

	opts.Logger.Info("written")
	require.NoError(t, opts.Logger.Sync())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written")
}

func TestNewClientForUnsupportedOS(t *testing.T) {
	opts, err := applyDefaultOptions(contracts.WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)

	client, err := newClientFor("plan9", &opts)
	assert.ErrorIs(t, err, ErrUnsupportedOS)
	assert.Nil(t, client)
}

func TestClientInitializersCoverDesktopPlatforms(t *testing.T) {
	for _, goos := range []string{"darwin", "windows", "linux"} {
		assert.Contains(t, clientInitializers, goos)
	}
}
