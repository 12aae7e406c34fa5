package midi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leandrodaf/midirack/sdk/backplane"
	"github.com/leandrodaf/midirack/sdk/contracts"
	"github.com/leandrodaf/midirack/sdk/decoder"
	"go.uber.org/multierr"
)

// Input lifecycle errors.
var (
	ErrNilClient      = errors.New("nil MIDI client")
	ErrAlreadyStarted = errors.New("MIDI input already started")
	ErrClosed         = errors.New("MIDI input closed")
)

// OutputPortName is the port name used in logs and metrics for Input.Output.
const OutputPortName = "midi.input"

// Input drives a hardware client through a Decoder into an output port.
//
// Raw messages are handed off by the driver on its own thread and drained by a
// single pump goroutine, so every message is decoded and fanned out to
// completion before the next one and publishes on Output never overlap.
type Input struct {
	client     contracts.ClientMIDI
	decoder    *decoder.Decoder
	output     *backplane.Port[contracts.Event]
	logger     contracts.Logger
	bufferSize int

	panics chan struct{} // coalesced all-notes-off requests for the pump

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	session string
	closed  bool
	stopped bool // set by the pump under mu before its final panic drain

	stopOnce  sync.Once
	stopErr   error
	closeOnce sync.Once
}

// NewInput wraps client. The options are the same as for NewMIDIClient; the
// channel filter, buffer size, logger and metrics apply to the input.
func NewInput(client contracts.ClientMIDI, opts ...contracts.Option) (*Input, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	output := backplane.NewPort[contracts.Event](
		backplane.WithName(OutputPortName),
		backplane.WithLogger(options.Logger),
		backplane.WithMetrics(options.Metrics),
	)
	dec, err := decoder.New(output,
		decoder.WithChannel(options.Channel),
		decoder.WithLogger(options.Logger),
		decoder.WithMetrics(options.Metrics),
	)
	if err != nil {
		return nil, err
	}

	return &Input{
		client:     client,
		decoder:    dec,
		output:     output,
		logger:     options.Logger,
		bufferSize: options.BufferSize,
		panics:     make(chan struct{}, 1),
	}, nil
}

// Output returns the port decoded events are published on.
func (in *Input) Output() *backplane.Port[contracts.Event] { return in.output }

// Devices lists the client's input devices.
func (in *Input) Devices() ([]contracts.DeviceInfo, error) {
	return in.client.ListDevices()
}

// Channel returns the current channel filter.
func (in *Input) Channel() contracts.ChannelFilter { return in.decoder.Channel() }

// SetChannel changes the channel filter. It takes effect for the next message.
func (in *Input) SetChannel(f contracts.ChannelFilter) error {
	if err := in.decoder.SetChannel(f); err != nil {
		return err
	}
	in.logger.Info("MIDI channel filter changed", in.logger.Field().String("channel", f.String()))
	return nil
}

// Start selects deviceID and begins capturing. Decoding stops when ctx is
// cancelled or Close is called. Either way the client is stopped and the input
// cannot be started again.
func (in *Input) Start(ctx context.Context, deviceID int) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.closed {
		return ErrClosed
	}
	if in.done != nil {
		return ErrAlreadyStarted
	}
	if err := in.client.SelectDevice(deviceID); err != nil {
		return fmt.Errorf("select MIDI device %d: %w", deviceID, err)
	}

	events := make(chan contracts.MIDI, in.bufferSize)
	ctx, cancel := context.WithCancel(ctx)
	in.cancel = cancel
	in.done = make(chan struct{})
	in.session = uuid.NewString()

	in.client.StartCapture(events)
	in.logger.Info("MIDI input started",
		in.logger.Field().String("session", in.session),
		in.logger.Field().Int("deviceID", deviceID),
		in.logger.Field().String("channel", in.decoder.Channel().String()))

	go in.pump(ctx, events, in.done)
	return nil
}

func (in *Input) pump(ctx context.Context, events <-chan contracts.MIDI, done chan<- struct{}) {
	defer close(done)
	defer in.finish(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			in.decoder.Translate(msg)
		case <-in.panics:
			in.allNotesOff()
		}
	}
}

// finish runs on the pump goroutine as it exits. Once stopped is set Panic
// publishes synchronously, so the drain below sees every queued request.
func (in *Input) finish(ctx context.Context) {
	in.mu.Lock()
	in.stopped = true
	in.closed = true
	session := in.session
	in.mu.Unlock()

	select {
	case <-in.panics:
		in.allNotesOff()
	default:
	}

	if err := in.stopClient(); err != nil {
		in.logger.Error("Failed to stop MIDI client",
			in.logger.Field().String("session", session),
			in.logger.Field().Error("error", err))
	}
	in.logger.Debug("MIDI pump stopped",
		in.logger.Field().String("session", session),
		in.logger.Field().Error("reason", ctx.Err()))
}

func (in *Input) stopClient() error {
	in.stopOnce.Do(func() { in.stopErr = in.client.Stop() })
	return in.stopErr
}

// Panic sends all-notes-off (controller 123, value 0) on channels 1 through 16,
// bypassing the channel filter. While capturing, the events are published by
// the pump goroutine after the message being decoded; otherwise they are
// published before Panic returns. Requests made while one is pending are merged.
func (in *Input) Panic() {
	in.mu.Lock()
	if in.done != nil && !in.stopped {
		select {
		case in.panics <- struct{}{}:
		default:
		}
		in.mu.Unlock()
		return
	}
	in.mu.Unlock()
	in.allNotesOff()
}

func (in *Input) running() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.done != nil && !in.stopped
}

func (in *Input) allNotesOff() {
	ts := uint64(time.Now().UTC().UnixNano())
	for ch := uint8(1); ch <= 16; ch++ {
		in.output.Publish(contracts.ControlChange{
			Channel:    ch,
			Controller: contracts.AllNotesOff,
			Value:      0,
			Timestamp:  ts,
		})
	}
}

// Close stops the client, waits for the pump to drain and flushes the logger.
// Calling Close more than once is a no-op. Close must not be called from an
// Output subscriber, since it waits for the pump that is running it.
func (in *Input) Close() error {
	var err error
	in.closeOnce.Do(func() { err = in.close() })
	return err
}

func (in *Input) close() error {
	in.mu.Lock()
	in.closed = true
	cancel, done, session := in.cancel, in.done, in.session
	in.mu.Unlock()

	err := in.stopClient()
	if cancel != nil {
		cancel()
		<-done
	}
	in.logger.Info("MIDI input closed", in.logger.Field().String("session", session))
	return multierr.Append(err, in.logger.Sync())
}
