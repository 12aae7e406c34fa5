//go:build linux && cgo
// +build linux,cgo

package midilinux

import (
	"testing"
	"time"

	"github.com/leandrodaf/midirack/internal/logger"
	"github.com/leandrodaf/midirack/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestDriverTimestamp(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).UnixNano()

	assert.Equal(t, uint64(start), driverTimestamp(start, 0))
	assert.Equal(t, uint64(start)+uint64(1500*time.Millisecond), driverTimestamp(start, 1500))
}

func TestHandleMessageUsesDriverTimestamp(t *testing.T) {
	m := &ClientMid{
		logger:          logger.NewNopLogger(),
		midiEventFilter: &contracts.MIDIEventFilter{Commands: []contracts.MIDICommand{contracts.NoteOnCommand}},
	}
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).UnixNano()
	m.listenStart.Store(start)

	events := make(chan contracts.MIDI, 2)
	m.StartCapture(events)

	m.handleMessage(gomidi.NoteOn(0, 60, 100), 250)
	m.handleMessage(gomidi.ControlChange(0, 7, 1), 260)

	require.Len(t, events, 1)
	msg := <-events
	assert.Equal(t, []byte{0x90, 60, 100}, msg.Data)
	assert.Equal(t, uint64(start)+uint64(250*time.Millisecond), msg.Timestamp)
}
