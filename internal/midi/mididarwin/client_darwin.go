//go:build darwin
// +build darwin

package mididarwin

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leandrodaf/midirack/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// Error definitions for MIDI connection and handling issues.
var (
	ErrNoMIDIDevices       = errors.New("no MIDI devices found")
	ErrInvalidMIDIDevice   = errors.New("invalid MIDI device")
	ErrMIDIConnectionError = errors.New("error connecting to MIDI device")
	ErrCreateInputPort     = errors.New("error creating input port")
	ErrEmptyMIDIPacket     = errors.New("empty MIDI packet")
)

// maxMessageLen is the longest channel message the decoder understands.
const maxMessageLen = 3

// internalPortConnection is an interface for handling disconnection from a MIDI port.
type internalPortConnection interface {
	Disconnect()
}

// ClientMid reads raw messages from a CoreMIDI source on macOS.
//
// CoreMIDI invokes handleMIDIMessage on its own thread; messages are handed to
// the capture channel without blocking, so a slow consumer drops messages
// rather than stalling the driver.
type ClientMid struct {
	logger          contracts.Logger
	client          coremidi.Client            // CoreMIDI client instance for MIDI operations.
	inputPort       coremidi.InputPort         // Input port for receiving MIDI events.
	portConn        internalPortConnection     // Connection to the MIDI port.
	midiEventFilter *contracts.MIDIEventFilter // Commands to capture; nil captures all.
	mu              sync.Mutex                 // Guards port state.
	stopOnce        sync.Once

	// sendMu is read-locked by every callback for the whole send, so once Stop
	// holds the write lock no callback can touch eventChannel again.
	sendMu       sync.RWMutex
	eventChannel chan contracts.MIDI
}

// NewMIDIClient initializes a new ClientMid for handling MIDI input on macOS.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	client, err := coremidi.NewClient(options.CoreMIDIConfig.ClientName)
	if err != nil {
		return nil, err
	}
	options.Logger.Info("MIDI client successfully created",
		options.Logger.Field().String("clientName", options.CoreMIDIConfig.ClientName))

	return &ClientMid{
		logger:          options.Logger,
		client:          client,
		midiEventFilter: options.MIDIEventFilter,
	}, nil
}

// ListDevices retrieves and returns available MIDI sources.
func (m *ClientMid) ListDevices() ([]contracts.DeviceInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI sources: %w", err)
	}
	if len(sources) == 0 {
		m.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, len(sources))
	for i, source := range sources {
		sourceEntity := source.Entity()
		devices[i] = contracts.DeviceInfo{
			ID:           i,
			Name:         source.Name(),
			EntityName:   sourceEntity.Name(),
			Manufacturer: sourceEntity.Manufacturer(),
		}
	}
	return devices, nil
}

// SelectDevice connects to the source at deviceID, replacing any previous connection.
func (m *ClientMid) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sources, err := coremidi.AllSources()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI sources: %w", err)
	}
	if deviceID < 0 || deviceID >= len(sources) {
		m.logger.Error(ErrInvalidMIDIDevice.Error(), m.logger.Field().Int("deviceID", deviceID))
		return fmt.Errorf("%w: %d", ErrInvalidMIDIDevice, deviceID)
	}

	if m.portConn != nil {
		m.portConn.Disconnect()
		m.portConn = nil
	}

	source := sources[deviceID]
	m.logger.Info("MIDI device selected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", source.Name()))

	m.inputPort, err = coremidi.NewInputPort(m.client, "Input Port", m.handleMIDIMessage)
	if err != nil {
		m.logger.Error(ErrCreateInputPort.Error(), m.logger.Field().Error("error", err))
		return fmt.Errorf("%w: %v", ErrCreateInputPort, err)
	}

	m.portConn, err = m.inputPort.Connect(source)
	if err != nil {
		m.logger.Error(ErrMIDIConnectionError.Error(), m.logger.Field().Error("error", err))
		return fmt.Errorf("%w: %v", ErrMIDIConnectionError, err)
	}

	m.logger.Info("MIDI device successfully connected")
	return nil
}

// handleMIDIMessage forwards one packet as a raw message. Packets longer than a
// channel message are truncated to their first message.
func (m *ClientMid) handleMIDIMessage(source coremidi.Source, packet coremidi.Packet) {
	m.sendMu.RLock()
	defer m.sendMu.RUnlock()

	eventChannel := m.eventChannel
	if eventChannel == nil {
		return
	}
	if len(packet.Data) == 0 {
		m.logger.Warn(ErrEmptyMIDIPacket.Error())
		return
	}
	if !m.midiEventFilter.Allows(packet.Data[0]) {
		return
	}

	n := len(packet.Data)
	if n > maxMessageLen {
		n = maxMessageLen
	}
	msg := contracts.MIDI{
		Timestamp: uint64(time.Now().UTC().UnixNano()),
		Data:      append([]byte(nil), packet.Data[:n]...),
	}

	select {
	case eventChannel <- msg:
	default:
		m.logger.Warn("Event buffer full; dropping MIDI message",
			m.logger.Field().Uint8("status", msg.Status()))
	}
}

// StartCapture stores the channel raw messages are delivered on.
func (m *ClientMid) StartCapture(eventChannel chan contracts.MIDI) {
	if eventChannel == nil {
		m.logger.Error("StartCapture called with nil eventChannel")
		return
	}

	m.sendMu.Lock()
	defer m.sendMu.Unlock()
	if m.eventChannel != nil {
		m.logger.Warn("Capture already started; replacing event channel")
	}
	m.logger.Info("Starting MIDI event capture")
	m.eventChannel = eventChannel
}

// Stop disconnects from the source and waits for in-flight callbacks. It only
// runs once, however many times it is called.
func (m *ClientMid) Stop() error {
	m.stopOnce.Do(func() {
		m.logger.Info("Stopping MIDI capture")
		m.mu.Lock()
		if m.portConn != nil {
			m.portConn.Disconnect()
			m.portConn = nil
		}
		m.mu.Unlock()

		m.sendMu.Lock()
		m.eventChannel = nil
		m.sendMu.Unlock()
		m.logger.Info("MIDI capture stopped")
	})
	return nil
}
