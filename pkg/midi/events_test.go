package midi

import (
	"math"
	"testing"
)

func TestNoteOnEvent(t *testing.T) {
	event := NoteOn(0, 60, 64, 100)

	if event.Kind != EventTypeNoteOn {
		t.Errorf("Expected type %v, got %v", EventTypeNoteOn, event.Kind)
	}
	if event.Note() != 60 || event.Velocity() != 64 {
		t.Errorf("Expected note 60 vel 64, got %d %d", event.Note(), event.Velocity())
	}
	if !event.IsNoteOn() || event.IsNoteOff() {
		t.Error("Expected note on")
	}

	expected := "NoteOn{ch:0, note:60, vel:64, offset:100}"
	if event.String() != expected {
		t.Errorf("Expected string %s, got %s", expected, event.String())
	}
}

func TestNoteOnZeroVelocityIsNoteOff(t *testing.T) {
	event := NoteOn(1, 60, 0, 0)
	if event.IsNoteOn() || !event.IsNoteOff() {
		t.Error("Note on with velocity 0 should be treated as note off")
	}
}

func TestControlChangeEvent(t *testing.T) {
	event := ControlChange(2, CCSustain, 127, 50)

	if event.Controller() != CCSustain || event.Value() != 127 {
		t.Errorf("Expected sustain 127, got %d %d", event.Controller(), event.Value())
	}

	expected := "CC{ch:2, ctrl:64, val:127, offset:50}"
	if event.String() != expected {
		t.Errorf("Expected string %s, got %s", expected, event.String())
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		msg  []byte
		want Event
	}{
		{"note on", []byte{0x91, 60, 100}, NoteOn(1, 60, 100, 7)},
		{"note off", []byte{0x80, 61, 0}, NoteOff(0, 61, 0, 7)},
		{"sustain", []byte{0xB0, 64, 127}, ControlChange(0, CCSustain, 127, 7)},
		{"bend center", []byte{0xE0, 0x00, 0x40}, PitchBend(0, 0, 7)},
		{"bend max", []byte{0xE3, 0x7F, 0x7F}, PitchBend(3, 8191, 7)},
		{"program", []byte{0xC0, 5}, Event{Kind: EventTypeProgramChange, Data1: 5, Offset: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.msg, 7)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	bad := [][]byte{
		nil,
		{0x40, 1, 2},
		{0x90, 60},
		{0x90, 0x80, 1},
		{0xF8},
	}
	for _, msg := range bad {
		if _, err := Decode(msg, 0); err == nil {
			t.Errorf("expected error for % X", msg)
		}
	}
}

func TestNoteToFrequency(t *testing.T) {
	if f := NoteToFrequency(69, 0); math.Abs(f-440) > 1e-9 {
		t.Errorf("A4 should be 440 Hz, got %f", f)
	}
	if f := NoteToFrequency(81, 440); math.Abs(f-880) > 1e-9 {
		t.Errorf("A5 should be 880 Hz, got %f", f)
	}
	if r := SemitoneRatio(12); r != 2 {
		t.Errorf("octave ratio should be 2, got %f", r)
	}
}

func TestNoteNumberToName(t *testing.T) {
	names := map[uint8]string{0: "C-1", 60: "C4", 61: "C#4", 75: "D#5", 127: "G9"}
	for note, want := range names {
		if got := NoteNumberToName(note); got != want {
			t.Errorf("note %d: got %s, want %s", note, got, want)
		}
	}
}
