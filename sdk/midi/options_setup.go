package midi

import (
	"fmt"

	"github.com/leandrodaf/midirack/internal/logger"
	"github.com/leandrodaf/midirack/sdk/contracts"
)

// defaultBufferSize is the raw message queue length between a driver and the decoder.
const defaultBufferSize = 100

// applyDefaultOptions sets default values for ClientOptions if not explicitly provided.
//
// opts ...contracts.Option: A variadic list of option functions that can modify ClientOptions.
//
// Returns:
//   - contracts.ClientOptions: A structure containing the finalized client options with defaults applied.
//   - error: An error if an option value is out of range or the log file cannot be opened.
func applyDefaultOptions(opts ...contracts.Option) (contracts.ClientOptions, error) {
	options := &contracts.ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.CoreMIDIConfig == nil {
		options.CoreMIDIConfig = &contracts.CoreMIDIConfig{ClientName: "GO MIDI Client"}
	}
	if options.BufferSize <= 0 {
		options.BufferSize = defaultBufferSize
	}
	if !options.Channel.Valid() {
		return contracts.ClientOptions{}, fmt.Errorf("%w: %d", contracts.ErrInvalidChannel, uint8(options.Channel))
	}

	options.Logger.SetLevel(options.LogLevel)
	if options.LogFilePath != "" {
		if err := options.Logger.SetDestination(contracts.FileLog, options.LogFilePath); err != nil {
			return contracts.ClientOptions{}, err
		}
	}
	return *options, nil
}
