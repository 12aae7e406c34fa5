// Package decoder translates raw 3-byte MIDI channel messages into rack events.
package decoder

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/leandrodaf/midirack/internal/logger"
	"github.com/leandrodaf/midirack/sdk/backplane"
	"github.com/leandrodaf/midirack/sdk/contracts"
	"github.com/leandrodaf/midirack/sdk/metrics"
)

// ErrNilOutput is returned by New when no output port is given.
var ErrNilOutput = errors.New("decoder: nil output port")

// Result classifies what Decode did with a message.
type Result int

const (
	// Decoded means an event was produced.
	Decoded Result = iota
	// Filtered means a voice message was dropped by the channel filter.
	Filtered
	// Ignored means a well-formed message of a category the decoder does not translate,
	// including every system message.
	Ignored
	// Malformed means the message had the wrong length or out-of-range bytes.
	Malformed
)

func (r Result) String() string {
	switch r {
	case Decoded:
		return "decoded"
	case Filtered:
		return "filtered"
	case Ignored:
		return "ignored"
	case Malformed:
		return "malformed"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// Decode translates one raw message under the given channel filter. It never
// fails: anything it cannot translate yields a nil event and a non-Decoded result.
//
// Only note-off (0x80), note-on (0x90) and control change (0xB0) are translated.
// A note-on with velocity 0 is a note-off. System messages (0xF0-0xFF) are
// always ignored, whatever the filter.
func Decode(msg contracts.MIDI, filter contracts.ChannelFilter) (contracts.Event, Result) {
	if len(msg.Data) == 0 || msg.Data[0]&0x80 == 0 {
		return nil, Malformed
	}
	command := msg.Command()
	switch command {
	case contracts.NoteOffCommand, contracts.NoteOnCommand, contracts.ControlChangeCommand:
	default:
		return nil, Ignored
	}
	if len(msg.Data) != 3 {
		return nil, Malformed
	}
	data1, data2 := msg.Data[1], msg.Data[2]
	if data1 > 0x7F || data2 > 0x7F {
		return nil, Malformed
	}

	channel := msg.Channel()
	if !filter.Matches(channel) {
		return nil, Filtered
	}

	switch {
	case command == contracts.NoteOnCommand && data2 > 0:
		return contracts.NoteOn{
			Channel:   channel,
			Note:      data1,
			Velocity:  float64(data2) / 127,
			Timestamp: msg.Timestamp,
		}, Decoded
	case command == contracts.NoteOffCommand, command == contracts.NoteOnCommand:
		return contracts.NoteOff{
			Channel:   channel,
			Note:      data1,
			Timestamp: msg.Timestamp,
		}, Decoded
	default:
		return contracts.ControlChange{
			Channel:    channel,
			Controller: data1,
			Value:      data2,
			Timestamp:  msg.Timestamp,
		}, Decoded
	}
}

// Decoder publishes decoded events on an output port. The channel filter can be
// changed at any time, from any goroutine; every later Translate sees the new value.
type Decoder struct {
	out     *backplane.Port[contracts.Event]
	channel atomic.Uint32
	logger  contracts.Logger
	metrics *metrics.Collector
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithChannel sets the initial channel filter.
func WithChannel(f contracts.ChannelFilter) Option {
	return func(d *Decoder) {
		d.channel.Store(uint32(f))
	}
}

// WithLogger sets the logger used for malformed-message diagnostics.
func WithLogger(l contracts.Logger) Option {
	return func(d *Decoder) {
		d.logger = l
	}
}

// WithMetrics counts every translated message by Result.
func WithMetrics(m *metrics.Collector) Option {
	return func(d *Decoder) {
		d.metrics = m
	}
}

// New creates a Decoder that publishes on out. The filter defaults to omni.
func New(out *backplane.Port[contracts.Event], opts ...Option) (*Decoder, error) {
	if out == nil {
		return nil, ErrNilOutput
	}
	d := &Decoder{out: out}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.Default()
	}
	if f := d.Channel(); !f.Valid() {
		return nil, fmt.Errorf("%w: %d", contracts.ErrInvalidChannel, uint8(f))
	}
	return d, nil
}

// Channel returns the current channel filter.
func (d *Decoder) Channel() contracts.ChannelFilter {
	return contracts.ChannelFilter(d.channel.Load())
}

// SetChannel replaces the channel filter.
func (d *Decoder) SetChannel(f contracts.ChannelFilter) error {
	if !f.Valid() {
		return fmt.Errorf("%w: %d", contracts.ErrInvalidChannel, uint8(f))
	}
	d.channel.Store(uint32(f))
	return nil
}

// Output returns the port decoded events are published on.
func (d *Decoder) Output() *backplane.Port[contracts.Event] { return d.out }

// Translate decodes msg and, if it yields an event, publishes it exactly once.
// It reports whether an event was published.
func (d *Decoder) Translate(msg contracts.MIDI) bool {
	ev, res := Decode(msg, d.Channel())
	d.metrics.Decoded(res.String())
	if res != Decoded {
		if res == Malformed {
			d.logger.Debug("dropping malformed MIDI message",
				d.logger.Field().Int("length", len(msg.Data)),
				d.logger.Field().Uint8("status", msg.Status()))
		}
		return false
	}
	d.out.Publish(ev)
	return true
}
