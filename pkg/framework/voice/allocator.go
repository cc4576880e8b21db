// Package voice implements polyphonic voice allocation: note-to-voice
// bookkeeping, sustain pedal handling and voice stealing.
package voice

import (
	"github.com/justyntemme/vst3sampler/pkg/midi"
)

// Voice represents a single voice in the synthesizer
type Voice interface {
	// IsActive returns true if the voice is currently producing sound
	IsActive() bool
	// IsReleasing returns true once the voice has entered its release stage
	IsReleasing() bool
	// GetNote returns the MIDI note number this voice is playing
	GetNote() uint8
	// Level returns the current envelope level (for stealing)
	Level() float64
	// ReleaseNote moves the voice into its release stage
	ReleaseNote()
	// Stop immediately silences the voice
	Stop()
}

// Allocator manages voice allocation for polyphonic synthesis.
//
// All state lives in fixed-size arrays sized at construction, so every
// method is safe to call from the render context.
type Allocator struct {
	voices    []Voice
	triggered []uint64 // trigger sequence per voice, 0 when never used
	sequence  uint64

	sustainPedal   bool
	sustainedNotes [128]bool
}

// NewAllocator creates a new voice allocator over a fixed voice set
func NewAllocator(voices []Voice) *Allocator {
	return &Allocator{
		voices:    voices,
		triggered: make([]uint64, len(voices)),
	}
}

// Size returns the number of voices
func (a *Allocator) Size() int {
	return len(a.voices)
}

// Allocate prepares a voice for note and returns its index, and whether an
// active voice had to be stolen for it.
//
// A voice already holding note is sent to release first. The returned voice
// is always stopped and ready to be triggered by the caller.
//
// Choice order: an idle voice (lowest index first), then the releasing voice
// with the lowest level (older trigger on ties), then the oldest triggered
// voice.
func (a *Allocator) Allocate(note uint8) (index int, stolen bool) {
	a.releaseHeld(note)
	if note < 128 {
		a.sustainedNotes[note] = false
	}

	index = a.findIdleVoice()
	if index == -1 {
		index = a.findQuietestReleasing()
	}
	if index == -1 {
		index = a.findOldest()
	}
	if index == -1 {
		return -1, false
	}

	stolen = a.voices[index].IsActive()
	if stolen {
		a.voices[index].Stop()
	}

	a.sequence++
	a.triggered[index] = a.sequence
	return index, stolen
}

// NoteOff releases the voice holding note, or defers the release while the
// sustain pedal is down.
func (a *Allocator) NoteOff(note uint8) {
	if note >= 128 {
		return
	}
	if a.sustainPedal {
		if a.isHeld(note) {
			a.sustainedNotes[note] = true
		}
		return
	}
	a.releaseHeld(note)
}

// HandleController applies the controllers the allocator understands:
// sustain, all notes off and all sound off.
func (a *Allocator) HandleController(controller, value uint8) {
	switch controller {
	case midi.CCSustain:
		a.SetSustainPedal(value >= 64)
	case midi.CCAllNotesOff:
		a.ReleaseAll()
	case midi.CCAllSoundOff:
		a.Reset()
	}
}

// SetSustainPedal sets the sustain pedal state. Lifting the pedal releases
// every note whose key went up while it was held.
func (a *Allocator) SetSustainPedal(on bool) {
	a.sustainPedal = on
	if on {
		return
	}
	for note := range a.sustainedNotes {
		if a.sustainedNotes[note] {
			a.sustainedNotes[note] = false
			a.releaseHeld(uint8(note))
		}
	}
}

// SustainPedal reports whether the pedal is down
func (a *Allocator) SustainPedal() bool {
	return a.sustainPedal
}

// ReleaseAll sends every active voice to release
func (a *Allocator) ReleaseAll() {
	for _, v := range a.voices {
		if v.IsActive() && !v.IsReleasing() {
			v.ReleaseNote()
		}
	}
	a.sustainedNotes = [128]bool{}
}

// Reset stops all voices and clears pedal state
func (a *Allocator) Reset() {
	for i, v := range a.voices {
		v.Stop()
		a.triggered[i] = 0
	}
	a.sustainedNotes = [128]bool{}
	a.sustainPedal = false
}

// GetActiveVoiceCount returns the number of active voices
func (a *Allocator) GetActiveVoiceCount() int {
	count := 0
	for _, v := range a.voices {
		if v.IsActive() {
			count++
		}
	}
	return count
}

// TriggerSequence returns the trigger order stamp of a voice
func (a *Allocator) TriggerSequence(index int) uint64 {
	return a.triggered[index]
}

func (a *Allocator) isHeld(note uint8) bool {
	for _, v := range a.voices {
		if v.IsActive() && !v.IsReleasing() && v.GetNote() == note {
			return true
		}
	}
	return false
}

func (a *Allocator) releaseHeld(note uint8) {
	for _, v := range a.voices {
		if v.IsActive() && !v.IsReleasing() && v.GetNote() == note {
			v.ReleaseNote()
		}
	}
}

// findIdleVoice finds an inactive voice, lowest index first
func (a *Allocator) findIdleVoice() int {
	for i, v := range a.voices {
		if !v.IsActive() {
			return i
		}
	}
	return -1
}

func (a *Allocator) findQuietestReleasing() int {
	best := -1
	for i, v := range a.voices {
		if !v.IsReleasing() {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		level, bestLevel := v.Level(), a.voices[best].Level()
		if level < bestLevel || (level == bestLevel && a.triggered[i] < a.triggered[best]) {
			best = i
		}
	}
	return best
}

func (a *Allocator) findOldest() int {
	best := -1
	for i := range a.voices {
		if best == -1 || a.triggered[i] < a.triggered[best] {
			best = i
		}
	}
	return best
}
