package contracts

// EventType is the discriminant carried by every rack event.
type EventType string

const (
	// TypeNoteOn marks a NoteOn event.
	TypeNoteOn EventType = "noteon"
	// TypeNoteOff marks a NoteOff event.
	TypeNoteOff EventType = "noteoff"
	// TypeControlChange marks a ControlChange event.
	TypeControlChange EventType = "controlChange"
)

func (t EventType) String() string { return string(t) }

// Event is a normalized, immutable rack event.
//
// Field exposes the event's fields by their wire names so that routing code can
// discriminate on any key, not only "type".
type Event interface {
	Type() EventType
	Field(name string) (any, bool)
}

// NoteOn is emitted for a note-on message with non-zero velocity.
type NoteOn struct {
	Channel   uint8   // Channel is 1..16.
	Note      uint8   // Note is 0..127.
	Velocity  float64 // Velocity is normalized to 0..1.
	Timestamp uint64
}

// Type implements Event.
func (NoteOn) Type() EventType { return TypeNoteOn }

// RawVelocity returns the 7-bit velocity the event was decoded from.
func (e NoteOn) RawVelocity() uint8 {
	return uint8(e.Velocity*127 + 0.5)
}

// Field implements Event.
func (e NoteOn) Field(name string) (any, bool) {
	switch name {
	case "type":
		return string(TypeNoteOn), true
	case "channel":
		return e.Channel, true
	case "note":
		return e.Note, true
	case "velocity":
		return e.Velocity, true
	case "timestamp":
		return e.Timestamp, true
	}
	return nil, false
}

// NoteOff is emitted for a note-off message, or a note-on with zero velocity.
type NoteOff struct {
	Channel   uint8
	Note      uint8
	Timestamp uint64
}

// Type implements Event.
func (NoteOff) Type() EventType { return TypeNoteOff }

// Field implements Event.
func (e NoteOff) Field(name string) (any, bool) {
	switch name {
	case "type":
		return string(TypeNoteOff), true
	case "channel":
		return e.Channel, true
	case "note":
		return e.Note, true
	case "timestamp":
		return e.Timestamp, true
	}
	return nil, false
}

// ControlChange is emitted for a control change message.
type ControlChange struct {
	Channel    uint8
	Controller uint8
	Value      uint8
	Timestamp  uint64
}

// AllNotesOff is the channel mode controller that silences every sounding note.
const AllNotesOff uint8 = 123

// Type implements Event.
func (ControlChange) Type() EventType { return TypeControlChange }

// Field implements Event.
func (e ControlChange) Field(name string) (any, bool) {
	switch name {
	case "type":
		return string(TypeControlChange), true
	case "channel":
		return e.Channel, true
	case "controller":
		return e.Controller, true
	case "value":
		return e.Value, true
	case "timestamp":
		return e.Timestamp, true
	}
	return nil, false
}
