//go:build linux && cgo
// +build linux,cgo

package midilinux

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/midirack/sdk/contracts"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // registers the ALSA driver
)

var (
	ErrNoMIDIDevices     = errors.New("no MIDI devices found")
	ErrInvalidMIDIDevice = errors.New("invalid MIDI device")
	ErrListen            = errors.New("error listening to MIDI device")
)

// ClientMid reads raw messages from an ALSA sequencer port through rtmidi.
type ClientMid struct {
	logger          contracts.Logger
	eventChannel    atomic.Value // chan contracts.MIDI
	listenStart     atomic.Int64 // unix ns when the listener started; driver timestamps count from here
	midiEventFilter *contracts.MIDIEventFilter

	mu       sync.Mutex
	inPort   drivers.In
	stopFunc func()
	stopOnce sync.Once
}

// NewMIDIClient creates a MIDI client backed by the registered gomidi driver.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	options.Logger.Info("MIDI client created for Linux")
	return &ClientMid{
		logger:          options.Logger,
		midiEventFilter: options.MIDIEventFilter,
	}, nil
}

func (m *ClientMid) ListDevices() ([]contracts.DeviceInfo, error) {
	ins := gomidi.GetInPorts()
	if len(ins) == 0 {
		m.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, len(ins))
	for i, in := range ins {
		devices[i] = contracts.DeviceInfo{
			ID:         i,
			Name:       in.String(),
			EntityName: in.String(),
		}
	}
	return devices, nil
}

// SelectDevice starts listening on the input at deviceID. Messages are
// dropped until StartCapture provides a channel.
func (m *ClientMid) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ins := gomidi.GetInPorts()
	if deviceID < 0 || deviceID >= len(ins) {
		m.logger.Error(ErrInvalidMIDIDevice.Error(), m.logger.Field().Int("deviceID", deviceID))
		return fmt.Errorf("%w: %d", ErrInvalidMIDIDevice, deviceID)
	}

	if m.stopFunc != nil {
		m.stopFunc()
		m.stopFunc = nil
	}

	in := ins[deviceID]
	m.listenStart.Store(time.Now().UTC().UnixNano())
	stop, err := gomidi.ListenTo(in, m.handleMessage, gomidi.HandleError(func(listenErr error) {
		m.logger.Warn("MIDI listener error",
			m.logger.Field().String("device", in.String()),
			m.logger.Field().Error("error", listenErr))
	}))
	if err != nil {
		m.logger.Error(ErrListen.Error(), m.logger.Field().Error("error", err))
		return fmt.Errorf("%w: %v", ErrListen, err)
	}

	m.inPort = in
	m.stopFunc = stop
	m.logger.Info("MIDI device connected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", in.String()))
	return nil
}

func (m *ClientMid) handleMessage(msg gomidi.Message, timestampms int32) {
	eventChannel, _ := m.eventChannel.Load().(chan contracts.MIDI)
	if eventChannel == nil || len(msg) == 0 {
		return
	}
	if !m.midiEventFilter.Allows(msg[0]) {
		return
	}

	event := contracts.MIDI{
		Timestamp: driverTimestamp(m.listenStart.Load(), timestampms),
		Data:      append([]byte(nil), msg...),
	}
	select {
	case eventChannel <- event:
	default:
		m.logger.Warn("MIDI event channel is full; event discarded",
			m.logger.Field().Uint8("status", msg[0]))
	}
}

// driverTimestamp converts the driver's milliseconds since the listener started
// into unix nanoseconds.
func driverTimestamp(start int64, ms int32) uint64 {
	return uint64(start + int64(ms)*int64(time.Millisecond))
}

func (m *ClientMid) StartCapture(eventChannel chan contracts.MIDI) {
	if eventChannel == nil {
		m.logger.Error("StartCapture called with nil eventChannel")
		return
	}
	m.eventChannel.Store(eventChannel)
	m.logger.Info("Starting MIDI event capture")
}

// Stop ends listening and closes the driver. Only the first call has an effect.
func (m *ClientMid) Stop() error {
	var err error
	m.stopOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.stopFunc != nil {
			m.stopFunc()
			m.stopFunc = nil
		}
		if m.inPort != nil && m.inPort.IsOpen() {
			err = m.inPort.Close()
		}
		m.eventChannel.Store((chan contracts.MIDI)(nil))
		gomidi.CloseDriver()
		m.logger.Info("MIDI capture stopped")
	})
	return err
}
