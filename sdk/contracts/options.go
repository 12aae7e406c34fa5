package contracts

import "github.com/leandrodaf/midirack/sdk/metrics"

// MIDICommand is the high nibble of a MIDI status byte.
type MIDICommand byte

const (
	// NoteOffCommand is the MIDI command for a Note Off event (0x80).
	NoteOffCommand MIDICommand = 0x80
	// NoteOnCommand is the MIDI command for a Note On event (0x90).
	NoteOnCommand MIDICommand = 0x90
	// PolyAftertouch is the MIDI command for polyphonic key pressure (0xA0).
	PolyAftertouch MIDICommand = 0xA0
	// ControlChangeCommand is the MIDI command for a Control Change event (0xB0).
	ControlChangeCommand MIDICommand = 0xB0
	// ProgramChange is the MIDI command for a Program Change event (0xC0).
	ProgramChange MIDICommand = 0xC0
	// ChannelPressure is the MIDI command for channel aftertouch (0xD0).
	ChannelPressure MIDICommand = 0xD0
	// PitchBend is the MIDI command for pitch wheel changes (0xE0).
	PitchBend MIDICommand = 0xE0
	// System covers every system common and real-time status byte (0xF0-0xFF).
	System MIDICommand = 0xF0
)

// IsVoice reports whether the command is a per-channel voice category.
func (c MIDICommand) IsVoice() bool {
	return c >= NoteOffCommand && c <= PitchBend
}

// MIDIEventFilter allows users to specify which MIDI commands a driver captures.
// An empty filter captures everything.
type MIDIEventFilter struct {
	Commands []MIDICommand // List of MIDI commands to capture.
}

// Allows reports whether a message with the given status byte passes the filter.
// Only the high nibble of status is compared, so the filter is channel independent.
func (f *MIDIEventFilter) Allows(status byte) bool {
	if f == nil || len(f.Commands) == 0 {
		return true
	}
	command := MIDICommand(status & 0xF0)
	for _, allowed := range f.Commands {
		if command == allowed&0xF0 {
			return true
		}
	}
	return false
}

// CoreMIDIConfig holds configuration for CoreMIDI.
type CoreMIDIConfig struct {
	ClientName string // Name of the MIDI client.
}

// ClientOptions defines the configuration options for the MIDI client and input host.
type ClientOptions struct {
	Logger          Logger             // Logger for logging events and errors.
	LogLevel        LogLevel           // Level of logging to use.
	LogFilePath     string             // File path for logging if file logging is enabled.
	MIDIEventFilter *MIDIEventFilter   // Optional filter for MIDI commands to capture.
	CoreMIDIConfig  *CoreMIDIConfig    // Configuration specific to CoreMIDI.
	Channel         ChannelFilter      // Channel filter applied by the decoder.
	BufferSize      int                // Capacity of the raw message channel between driver and decoder.
	Metrics         *metrics.Collector // Optional Prometheus collector.
}

// Option is a function that modifies ClientOptions.
type Option func(*ClientOptions)

// WithLogger sets the logger for the MIDI client.
func WithLogger(l Logger) Option {
	return func(opts *ClientOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level for the MIDI client.
func WithLogLevel(level LogLevel) Option {
	return func(opts *ClientOptions) {
		opts.LogLevel = level
	}
}

// WithLogFile directs log output to the given file.
func WithLogFile(path string) Option {
	return func(opts *ClientOptions) {
		opts.LogFilePath = path
	}
}

// WithMIDIEventFilter sets the MIDI event filter for the MIDI client.
func WithMIDIEventFilter(filter MIDIEventFilter) Option {
	return func(opts *ClientOptions) {
		opts.MIDIEventFilter = &filter
	}
}

// WithCoreMIDIConfig sets the CoreMIDI configuration for the MIDI client.
func WithCoreMIDIConfig(config CoreMIDIConfig) Option {
	return func(opts *ClientOptions) {
		opts.CoreMIDIConfig = &config
	}
}

// WithChannel sets the initial channel filter. Use Omni to accept every channel.
func WithChannel(filter ChannelFilter) Option {
	return func(opts *ClientOptions) {
		opts.Channel = filter
	}
}

// WithBufferSize sets how many raw messages may queue between the driver and the decoder.
func WithBufferSize(size int) Option {
	return func(opts *ClientOptions) {
		opts.BufferSize = size
	}
}

// WithMetrics attaches a Prometheus collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(opts *ClientOptions) {
		opts.Metrics = m
	}
}
