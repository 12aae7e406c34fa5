package contracts

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidChannel is returned when a channel filter is neither omni nor 1..16.
var ErrInvalidChannel = errors.New("invalid channel filter")

// ChannelFilter restricts which channel's voice messages produce events.
// The zero value is Omni.
type ChannelFilter uint8

// Omni matches every channel.
const Omni ChannelFilter = 0

const omniName = "omni"

// ParseChannelFilter parses "omni" (case-insensitive) or a channel number 1..16.
func ParseChannelFilter(s string) (ChannelFilter, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, omniName) {
		return Omni, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 16 {
		return Omni, fmt.Errorf("%w: %q", ErrInvalidChannel, s)
	}
	return ChannelFilter(n), nil
}

// Valid reports whether f is Omni or a channel 1..16.
func (f ChannelFilter) Valid() bool {
	return f <= 16
}

// Matches reports whether a message on the 1-based channel ch passes the filter.
func (f ChannelFilter) Matches(ch uint8) bool {
	return f == Omni || uint8(f) == ch
}

func (f ChannelFilter) String() string {
	if f == Omni {
		return omniName
	}
	return strconv.Itoa(int(f))
}

// MarshalText implements encoding.TextMarshaler.
func (f ChannelFilter) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannel, uint8(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *ChannelFilter) UnmarshalText(text []byte) error {
	parsed, err := ParseChannelFilter(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Set implements flag.Value.
func (f *ChannelFilter) Set(s string) error {
	return f.UnmarshalText([]byte(s))
}
