package contracts

// MIDI is a raw hardware message as delivered by an input driver.
type MIDI struct {
	Timestamp uint64 // Timestamp is the capture time in nanoseconds since the Unix epoch.
	Data      []byte // Data holds the status byte followed by its data bytes.
}

// Status returns the status byte, or 0 when the message is empty.
func (m MIDI) Status() byte {
	if len(m.Data) == 0 {
		return 0
	}
	return m.Data[0]
}

// Command returns the high nibble of the status byte.
func (m MIDI) Command() MIDICommand {
	return MIDICommand(m.Status() & 0xF0)
}

// Channel returns the 1-based channel encoded in the low nibble of the status byte.
// The value is meaningless for system messages.
func (m MIDI) Channel() uint8 {
	return m.Status()&0x0F + 1
}

// ClientMIDI defines an interface for MIDI client operations.
type ClientMIDI interface {
	Stop() error                         // Stops the MIDI client and releases resources.
	ListDevices() ([]DeviceInfo, error)  // Lists all available MIDI devices.
	SelectDevice(deviceID int) error     // Selects a MIDI device by its ID for communication.
	StartCapture(eventChannel chan MIDI) // Starts capturing raw messages and sends them to the specified channel.
}
