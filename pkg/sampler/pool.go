package sampler

import (
	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/justyntemme/vst3sampler/pkg/dsp/envelope"
	"github.com/justyntemme/vst3sampler/pkg/framework/voice"
	"github.com/justyntemme/vst3sampler/pkg/midi"
)

// DefaultVoices is the pool size used by the engine
const DefaultVoices = 16

// DefaultBlockSize sizes the mixing scratch when no maximum is given
const DefaultBlockSize = 512

// NoteResult reports what a note-on did
type NoteResult int

const (
	// NoteIgnored means no asset was bound or the note is out of range
	NoteIgnored NoteResult = iota
	// NoteStarted means an idle voice took the note
	NoteStarted
	// NoteStolen means an active voice was stopped to take the note
	NoteStolen
)

// Pool is a fixed set of voices sharing one bound asset and one envelope
// setting. Every method except Prepare is safe for the render context: none
// allocate, lock or block.
type Pool struct {
	voices    []Voice
	allocator *voice.Allocator

	current    *Asset
	envelope   envelope.Parameters
	sampleRate float64

	// Mixing scratch, one block long
	mixL, mixR  []float64
	left, right []float64
	env, scaled []float64
}

// NewPool creates a pool of numVoices voices. A non-positive count selects
// DefaultVoices.
func NewPool(numVoices int, sampleRate float64, maxBlock int) *Pool {
	if numVoices <= 0 {
		numVoices = DefaultVoices
	}

	p := &Pool{
		voices:   make([]Voice, numVoices),
		envelope: envelope.DefaultParameters(),
	}

	ifaces := make([]voice.Voice, numVoices)
	for i := range p.voices {
		ifaces[i] = &p.voices[i]
	}
	p.allocator = voice.NewAllocator(ifaces)

	p.Prepare(sampleRate, maxBlock)
	return p
}

// Prepare sets the engine rate and block size. It stops all voices and
// reallocates scratch, so it belongs to the control context.
func (p *Pool) Prepare(sampleRate float64, maxBlock int) {
	if maxBlock <= 0 {
		maxBlock = DefaultBlockSize
	}
	p.sampleRate = sampleRate
	p.allocator.Reset()

	for i := range p.voices {
		p.voices[i].env.Init(sampleRate)
		p.voices[i].env.SetParameters(p.envelope)
	}

	p.mixL = make([]float64, maxBlock)
	p.mixR = make([]float64, maxBlock)
	p.left = make([]float64, maxBlock)
	p.right = make([]float64, maxBlock)
	p.env = make([]float64, maxBlock)
	p.scaled = make([]float64, maxBlock)
}

// Size returns the number of voices
func (p *Pool) Size() int {
	return len(p.voices)
}

// Voice returns voice i for inspection
func (p *Pool) Voice(i int) *Voice {
	return &p.voices[i]
}

// SampleRate returns the engine rate
func (p *Pool) SampleRate() float64 {
	return p.sampleRate
}

// Bind takes ownership of a's reference and makes it the asset for new
// notes. The previous binding is released; voices still playing it keep
// their own reference. A nil asset is ignored.
func (p *Pool) Bind(a *Asset) {
	if a == nil {
		return
	}
	if p.current != nil {
		p.current.Release()
	}
	p.current = a
}

// Current returns the bound asset, or nil before the first load
func (p *Pool) Current() *Asset {
	return p.current
}

// SetEnvelope applies ADSR settings to the template and every voice
func (p *Pool) SetEnvelope(params envelope.Parameters) {
	p.envelope = params
	for i := range p.voices {
		v := &p.voices[i]
		v.env.SetParameters(params)
		// A release cut to zero ends the voice here
		if v.active && !v.env.IsActive() {
			v.Stop()
		}
	}
}

// Envelope returns the envelope template
func (p *Pool) Envelope() envelope.Parameters {
	return p.envelope
}

// NoteOn starts note on a voice chosen by the allocator
func (p *Pool) NoteOn(note, velocity uint8) NoteResult {
	a := p.current
	if a == nil || note > 127 || !a.Covers(note) {
		return NoteIgnored
	}

	idx, stolen := p.allocator.Allocate(note)
	if idx < 0 {
		return NoteIgnored
	}
	p.voices[idx].start(note, velocity, a, p.sampleRate)

	if stolen {
		return NoteStolen
	}
	return NoteStarted
}

// NoteOff releases note, honoring the sustain pedal
func (p *Pool) NoteOff(note uint8) {
	p.allocator.NoteOff(note)
}

// HandleEvent applies a MIDI event. Only note-on events produce a result
// other than NoteIgnored.
func (p *Pool) HandleEvent(e midi.Event) NoteResult {
	switch {
	case e.IsNoteOn():
		return p.NoteOn(e.Note(), e.Velocity())
	case e.IsNoteOff():
		p.NoteOff(e.Note())
	case e.Kind == midi.EventTypeControlChange:
		p.allocator.HandleController(e.Controller(), e.Value())
	}
	return NoteIgnored
}

// ActiveVoices returns the number of sounding voices
func (p *Pool) ActiveVoices() int {
	return p.allocator.GetActiveVoiceCount()
}

// Render adds n frames of all active voices into out[ch][start:start+n].
// A mono asset feeds both outputs; a mono output takes a stereo asset's
// first channel.
func (p *Pool) Render(out [][]float32, start, n int) {
	if len(out) == 0 {
		return
	}
	stereo := len(out) > 1

	for n > 0 {
		chunk := min(n, len(p.mixL))
		p.renderChunk(out, start, chunk, stereo)
		start += chunk
		n -= chunk
	}
}

func (p *Pool) renderChunk(out [][]float32, start, n int, stereo bool) {
	mixL := p.mixL[:n]
	mixR := p.mixR[:n]
	clear(mixL)
	if stereo {
		clear(mixR)
	}

	for i := range p.voices {
		v := &p.voices[i]
		if !v.active {
			continue
		}

		m := v.render(p.left, p.right, p.env, n, stereo)
		if m == 0 {
			continue
		}

		vecmath.ScaleBlock(p.scaled[:m], p.env[:m], v.velocity)
		vecmath.MulBlockInPlace(p.left[:m], p.scaled[:m])
		vecmath.AddBlockInPlace(mixL[:m], p.left[:m])
		if stereo {
			vecmath.MulBlockInPlace(p.right[:m], p.scaled[:m])
			vecmath.AddBlockInPlace(mixR[:m], p.right[:m])
		}
	}

	dst := out[0][start : start+n]
	for i, s := range mixL {
		dst[i] += float32(s)
	}
	if stereo {
		dst = out[1][start : start+n]
		for i, s := range mixR {
			dst[i] += float32(s)
		}
	}
}

// Reset stops every voice and lifts the sustain pedal
func (p *Pool) Reset() {
	p.allocator.Reset()
}

// Close stops all voices and drops the bound asset
func (p *Pool) Close() {
	p.allocator.Reset()
	if p.current != nil {
		p.current.Release()
		p.current = nil
	}
}
