package sampler

import (
	"math"

	"github.com/justyntemme/vst3sampler/pkg/dsp/envelope"
)

// Voice plays one note of an asset with its own envelope.
type Voice struct {
	env      envelope.ADSR
	asset    *Asset
	note     uint8
	velocity float64
	pos      float64
	rate     float64
	active   bool
}

// IsActive returns true while the voice produces sound
func (v *Voice) IsActive() bool { return v.active }

// IsReleasing returns true once the envelope is in its release stage
func (v *Voice) IsReleasing() bool { return v.active && v.env.IsReleasing() }

// GetNote returns the note being played
func (v *Voice) GetNote() uint8 { return v.note }

// Level returns the current envelope level
func (v *Voice) Level() float64 { return v.env.Level() }

// Position returns the read position in source frames
func (v *Voice) Position() float64 { return v.pos }

// Rate returns the playback rate in source frames per output frame
func (v *Voice) Rate() float64 { return v.rate }

// Asset returns the asset the voice holds, or nil
func (v *Voice) Asset() *Asset { return v.asset }

// Envelope exposes the envelope stage for inspection
func (v *Voice) Envelope() envelope.Stage { return v.env.GetStage() }

// PlaybackRate returns the source frames to advance per output frame for note
// on asset at the given engine rate.
func PlaybackRate(note uint8, a *Asset, engineRate float64) float64 {
	if engineRate <= 0 {
		return 0
	}
	semitones := float64(int(note) - int(a.RootNote()))
	return math.Exp2(semitones/12.0) * a.SampleRate() / engineRate
}

// start binds asset (retaining it) and triggers the envelope from zero.
func (v *Voice) start(note, velocity uint8, a *Asset, engineRate float64) {
	a.Retain()
	v.asset = a
	v.note = note
	v.velocity = float64(velocity) / 127.0
	v.pos = 0
	v.rate = PlaybackRate(note, a, engineRate)
	v.active = true
	v.env.Trigger()
}

// ReleaseNote starts the release from the current level
func (v *Voice) ReleaseNote() {
	if !v.active {
		return
	}
	v.env.Release()
	if !v.env.IsActive() {
		v.Stop()
	}
}

// Stop silences the voice and drops its asset reference
func (v *Voice) Stop() {
	if v.asset != nil {
		v.asset.Release()
		v.asset = nil
	}
	v.env.Reset()
	v.active = false
	v.pos = 0
}

// render writes up to n interpolated frames into left (and right when
// stereo is set) and the envelope into gain. It returns the frames written;
// fewer than n means the voice finished inside the block.
func (v *Voice) render(left, right, gain []float64, n int, stereo bool) int {
	if !v.active || v.asset == nil {
		return 0
	}

	a := v.asset
	frames := a.frames
	last := frames - 1
	srcL := a.data[0]
	srcR := srcL
	if len(a.data) > 1 {
		srcR = a.data[1]
	}

	m := 0
	for m < n {
		if v.pos >= float64(frames) {
			v.Stop()
			break
		}

		i := int(v.pos)
		frac := v.pos - float64(i)
		j := i + 1
		if j > last {
			j = last
		}

		s0 := float64(srcL[i])
		left[m] = s0 + (float64(srcL[j])-s0)*frac
		if stereo {
			s0 = float64(srcR[i])
			right[m] = s0 + (float64(srcR[j])-s0)*frac
		}

		gain[m] = v.env.Next()
		v.pos += v.rate
		m++

		if !v.env.IsActive() {
			v.Stop()
			break
		}
	}
	return m
}
