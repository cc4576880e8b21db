// Package midi defines the MIDI events the engine consumes and a lock-free
// inbox for delivering live input to the render context.
package midi

import (
	"fmt"
	"math"
)

type EventType uint8

const (
	EventTypeNoteOff EventType = iota
	EventTypeNoteOn
	EventTypePolyPressure
	EventTypeControlChange
	EventTypeProgramChange
	EventTypeChannelPressure
	EventTypePitchBend
)

func (t EventType) String() string {
	switch t {
	case EventTypeNoteOff:
		return "NoteOff"
	case EventTypeNoteOn:
		return "NoteOn"
	case EventTypePolyPressure:
		return "PolyPressure"
	case EventTypeControlChange:
		return "CC"
	case EventTypeProgramChange:
		return "ProgramChange"
	case EventTypeChannelPressure:
		return "ChannelPressure"
	case EventTypePitchBend:
		return "PitchBend"
	default:
		return fmt.Sprintf("EventType(%d)", uint8(t))
	}
}

// Event is a single timestamped MIDI message. It is a plain value so event
// slices can be preallocated and passed through the render context without
// boxing.
type Event struct {
	Kind    EventType
	Channel uint8
	Offset  int32 // sample offset within the block
	Data1   uint8 // note number, controller or program
	Data2   uint8 // velocity, value or pressure
	Bend    int16 // -8192 to 8191, 0 is center
}

// NoteOn builds a note-on event
func NoteOn(channel, note, velocity uint8, offset int32) Event {
	return Event{Kind: EventTypeNoteOn, Channel: channel, Offset: offset, Data1: note, Data2: velocity}
}

// NoteOff builds a note-off event
func NoteOff(channel, note, velocity uint8, offset int32) Event {
	return Event{Kind: EventTypeNoteOff, Channel: channel, Offset: offset, Data1: note, Data2: velocity}
}

// ControlChange builds a controller event
func ControlChange(channel, controller, value uint8, offset int32) Event {
	return Event{Kind: EventTypeControlChange, Channel: channel, Offset: offset, Data1: controller, Data2: value}
}

// PitchBend builds a pitch bend event
func PitchBend(channel uint8, value int16, offset int32) Event {
	return Event{Kind: EventTypePitchBend, Channel: channel, Offset: offset, Bend: value}
}

// Note returns the note number of note events
func (e Event) Note() uint8 {
	return e.Data1
}

// Velocity returns the velocity of note events
func (e Event) Velocity() uint8 {
	return e.Data2
}

// Controller returns the controller number of CC events
func (e Event) Controller() uint8 {
	return e.Data1
}

// Value returns the value of CC events
func (e Event) Value() uint8 {
	return e.Data2
}

// IsNoteOn reports a note-on with non-zero velocity
func (e Event) IsNoteOn() bool {
	return e.Kind == EventTypeNoteOn && e.Data2 > 0
}

// IsNoteOff reports a note-off, including note-on with velocity 0
func (e Event) IsNoteOff() bool {
	return e.Kind == EventTypeNoteOff || (e.Kind == EventTypeNoteOn && e.Data2 == 0)
}

// NormalizedBend returns the pitch bend in -1..1
func (e Event) NormalizedBend() float64 {
	return float64(e.Bend) / 8192.0
}

func (e Event) String() string {
	switch e.Kind {
	case EventTypeNoteOn, EventTypeNoteOff:
		return fmt.Sprintf("%s{ch:%d, note:%d, vel:%d, offset:%d}",
			e.Kind, e.Channel, e.Data1, e.Data2, e.Offset)
	case EventTypeControlChange:
		return fmt.Sprintf("CC{ch:%d, ctrl:%d, val:%d, offset:%d}",
			e.Channel, e.Data1, e.Data2, e.Offset)
	case EventTypePitchBend:
		return fmt.Sprintf("PitchBend{ch:%d, val:%d, offset:%d}",
			e.Channel, e.Bend, e.Offset)
	default:
		return fmt.Sprintf("%s{ch:%d, d1:%d, d2:%d, offset:%d}",
			e.Kind, e.Channel, e.Data1, e.Data2, e.Offset)
	}
}

const (
	CCModWheel    uint8 = 1
	CCVolume      uint8 = 7
	CCPan         uint8 = 10
	CCExpression  uint8 = 11
	CCSustain     uint8 = 64
	CCSostenuto   uint8 = 66
	CCAllSoundOff uint8 = 120
	CCResetAll    uint8 = 121
	CCAllNotesOff uint8 = 123
)

// Decode parses a raw channel voice message. System messages and running
// status are not supported.
func Decode(msg []byte, offset int32) (Event, error) {
	if len(msg) == 0 || msg[0] < 0x80 {
		return Event{}, fmt.Errorf("midi: missing status byte")
	}

	status := msg[0] & 0xF0
	channel := msg[0] & 0x0F

	need := 3
	if status == 0xC0 || status == 0xD0 {
		need = 2
	}
	if status == 0xF0 {
		return Event{}, fmt.Errorf("midi: system message 0x%02X not supported", msg[0])
	}
	if len(msg) < need {
		return Event{}, fmt.Errorf("midi: short message for status 0x%02X", msg[0])
	}
	for _, b := range msg[1:need] {
		if b > 0x7F {
			return Event{}, fmt.Errorf("midi: data byte 0x%02X out of range", b)
		}
	}

	e := Event{Channel: channel, Offset: offset, Data1: msg[1]}
	switch status {
	case 0x80:
		e.Kind = EventTypeNoteOff
		e.Data2 = msg[2]
	case 0x90:
		e.Kind = EventTypeNoteOn
		e.Data2 = msg[2]
	case 0xA0:
		e.Kind = EventTypePolyPressure
		e.Data2 = msg[2]
	case 0xB0:
		e.Kind = EventTypeControlChange
		e.Data2 = msg[2]
	case 0xC0:
		e.Kind = EventTypeProgramChange
	case 0xD0:
		e.Kind = EventTypeChannelPressure
		e.Data2 = msg[1]
		e.Data1 = 0
	case 0xE0:
		e.Kind = EventTypePitchBend
		e.Data1 = 0
		e.Bend = int16(int(msg[2])<<7|int(msg[1])) - 8192
	}
	return e, nil
}

// NoteToFrequency converts a note number to Hz
func NoteToFrequency(note uint8, tuningA4 float64) float64 {
	if tuningA4 == 0 {
		tuningA4 = 440.0
	}
	return tuningA4 * math.Exp2((float64(note)-69.0)/12.0)
}

// SemitoneRatio is the playback-rate ratio for a pitch offset in semitones
func SemitoneRatio(semitones float64) float64 {
	return math.Exp2(semitones / 12.0)
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteNumberToName returns the scientific pitch name, e.g. 60 is C4
func NoteNumberToName(note uint8) string {
	octave := int(note/12) - 1
	return fmt.Sprintf("%s%d", noteNames[note%12], octave)
}
