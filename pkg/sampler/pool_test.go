package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3sampler/pkg/dsp/envelope"
	"github.com/justyntemme/vst3sampler/pkg/midi"
)

const testRate = 44100.0

func newBuffers(channels, frames int) [][]float32 {
	out := make([][]float32, channels)
	for i := range out {
		out[i] = make([]float32, frames)
	}
	return out
}

// instant is an envelope that sounds at full level immediately
var instant = envelope.Parameters{Attack: 0, Decay: 0, Sustain: 1, Release: 0}

func TestPoolIgnoresNotesWithoutAsset(t *testing.T) {
	p := NewPool(DefaultVoices, testRate, 256)

	assert.Equal(t, NoteIgnored, p.NoteOn(60, 100))

	out := newBuffers(2, 256)
	p.Render(out, 0, 256)
	for _, ch := range out {
		for _, s := range ch {
			require.Zero(t, s)
		}
	}
}

func TestPoolIgnoresNotesOutsideRange(t *testing.T) {
	p := NewPool(DefaultVoices, testRate, 256)
	p.Bind(mustAsset(t, constPCM(100, 1, testRate, 1), Metadata{Name: "x", RootNote: 60, LowNote: 48, HighNote: 72}))

	assert.Equal(t, NoteIgnored, p.NoteOn(47, 100))
	assert.Equal(t, NoteIgnored, p.NoteOn(73, 100))
	assert.Equal(t, NoteStarted, p.NoteOn(72, 100))
}

func TestPoolAttackReachesPeak(t *testing.T) {
	p := NewPool(DefaultVoices, testRate, 512)
	p.SetEnvelope(envelope.Parameters{Attack: 0.1, Decay: 0.1, Sustain: 1.0, Release: 0.1})
	p.Bind(mustAsset(t, constPCM(44100, 1, testRate, 1), FullRange("tone", 60)))

	require.Equal(t, NoteStarted, p.NoteOn(60, 127))
	assert.Equal(t, 1.0, p.Voice(0).Rate())

	out := newBuffers(2, 4410)
	p.Render(out, 0, 4410)

	assert.InDelta(t, 0.5, out[0][2204], 1e-4)
	assert.InDelta(t, 1.0, out[0][4409], 1e-4)
	assert.Equal(t, out[0], out[1], "mono asset feeds both outputs")
}

func TestPoolPlaybackRate(t *testing.T) {
	p := NewPool(DefaultVoices, testRate, 256)
	p.Bind(mustAsset(t, constPCM(1000, 1, testRate, 1), FullRange("tone", 60)))

	p.NoteOn(72, 100)
	assert.InDelta(t, 2.0, p.Voice(0).Rate(), 1e-12)

	p.NoteOn(48, 100)
	assert.InDelta(t, 0.5, p.Voice(1).Rate(), 1e-12)

	// A 48 kHz asset in a 44.1 kHz engine plays faster at the root
	hi := mustAsset(t, constPCM(1000, 1, 48000, 1), FullRange("hi", 60))
	assert.InDelta(t, 48000.0/44100.0, PlaybackRate(60, hi, testRate), 1e-12)
	hi.Release()
}

func TestPoolVoiceStealing(t *testing.T) {
	p := NewPool(16, testRate, 256)
	p.Bind(mustAsset(t, constPCM(44100, 1, testRate, 0.1), FullRange("tone", 60)))

	for i := 0; i < 16; i++ {
		require.Equal(t, NoteStarted, p.NoteOn(uint8(40+i), 100))
	}
	assert.Equal(t, NoteStolen, p.NoteOn(90, 100))
	assert.Equal(t, 16, p.ActiveVoices())
	assert.Equal(t, uint8(90), p.Voice(0).GetNote(), "oldest voice was taken")
}

func TestPoolNeverReadsPastEnd(t *testing.T) {
	p := NewPool(DefaultVoices, testRate, 64)
	p.SetEnvelope(instant)

	// 66150 Hz source in a 44100 Hz engine reads 1.5 frames per output frame
	asset := mustAsset(t, rampPCM(10, 66150), FullRange("ramp", 60))
	p.Bind(asset)
	require.Equal(t, NoteStarted, p.NoteOn(60, 127))

	out := newBuffers(1, 64)
	require.NotPanics(t, func() { p.Render(out, 0, 64) })

	want := []float32{0, 1.5, 3, 4.5, 6, 7.5, 9}
	assert.InDeltaSlice(t, want, out[0][:7], 1e-5)
	for _, s := range out[0][7:] {
		require.Zero(t, s)
	}

	assert.Equal(t, 0, p.ActiveVoices())
	assert.Equal(t, int32(1), asset.RefCount(), "finished voice released its reference")
}

func TestPoolStereoAssetToMonoOutput(t *testing.T) {
	p := NewPool(DefaultVoices, testRate, 64)
	p.SetEnvelope(instant)

	pcm := PCM{SampleRate: testRate, Channels: [][]float32{{0.25, 0.25, 0.25, 0.25}, {0.75, 0.75, 0.75, 0.75}}}
	p.Bind(mustAsset(t, pcm, FullRange("stereo", 60)))
	p.NoteOn(60, 127)

	mono := newBuffers(1, 4)
	p.Render(mono, 0, 4)
	assert.InDeltaSlice(t, []float32{0.25, 0.25, 0.25, 0.25}, mono[0], 1e-6)
}

func TestPoolVelocityScalesOutput(t *testing.T) {
	p := NewPool(DefaultVoices, testRate, 64)
	p.SetEnvelope(instant)
	p.Bind(mustAsset(t, constPCM(100, 1, testRate, 1), FullRange("tone", 60)))

	p.NoteOn(60, 64)
	out := newBuffers(2, 8)
	p.Render(out, 0, 8)
	assert.InDelta(t, 64.0/127.0, out[0][0], 1e-6)
}

func TestPoolRenderAddsAtOffset(t *testing.T) {
	p := NewPool(DefaultVoices, testRate, 64)
	p.SetEnvelope(instant)
	p.Bind(mustAsset(t, constPCM(100, 1, testRate, 0.5), FullRange("tone", 60)))

	out := newBuffers(2, 16)
	out[0][10] = 1
	p.NoteOn(60, 127)
	p.Render(out, 8, 8)

	for i := 0; i < 8; i++ {
		assert.Zero(t, out[0][i])
	}
	assert.InDelta(t, 0.5, out[0][8], 1e-6)
	assert.InDelta(t, 1.5, out[0][10], 1e-6, "render accumulates into output")
}

func TestPoolSwapKeepsPlayingVoices(t *testing.T) {
	p := NewPool(DefaultVoices, testRate, 64)
	p.SetEnvelope(instant)

	oldAsset := mustAsset(t, constPCM(1000, 1, testRate, 0.25), FullRange("old", 60))
	p.Bind(oldAsset)
	p.NoteOn(60, 127)
	assert.Equal(t, int32(2), oldAsset.RefCount())

	newAsset := mustAsset(t, constPCM(1000, 1, testRate, 0.5), FullRange("new", 60))
	p.Bind(newAsset)
	assert.Equal(t, int32(1), oldAsset.RefCount(), "binding released, voice still holds it")
	assert.False(t, oldAsset.Released())

	p.NoteOn(64, 127)
	assert.Same(t, oldAsset, p.Voice(0).Asset())
	assert.Same(t, newAsset, p.Voice(1).Asset())

	out := newBuffers(1, 4)
	p.Render(out, 0, 4)
	assert.InDelta(t, 0.75, out[0][0], 1e-6)

	p.Reset()
	assert.True(t, oldAsset.Released())
	assert.False(t, newAsset.Released())

	p.Close()
	assert.True(t, newAsset.Released())
	assert.Nil(t, p.Current())
}

func TestPoolHandlesSustainPedal(t *testing.T) {
	p := NewPool(DefaultVoices, testRate, 64)
	p.SetEnvelope(envelope.Parameters{Attack: 0, Decay: 0, Sustain: 1, Release: 0.01})
	p.Bind(mustAsset(t, constPCM(44100, 1, testRate, 1), FullRange("tone", 60)))

	p.HandleEvent(midi.NoteOn(0, 60, 100, 0))
	p.HandleEvent(midi.ControlChange(0, midi.CCSustain, 127, 0))
	p.HandleEvent(midi.NoteOn(0, 60, 0, 0))
	assert.False(t, p.Voice(0).IsReleasing())

	p.HandleEvent(midi.ControlChange(0, midi.CCSustain, 0, 0))
	assert.True(t, p.Voice(0).IsReleasing())
	assert.Equal(t, envelope.StageRelease, p.Voice(0).Envelope())

	out := newBuffers(2, 512)
	p.Render(out, 0, 512)
	assert.Equal(t, 0, p.ActiveVoices(), "release finished within the block")
}

func TestPoolZeroReleaseEndsReleasingVoices(t *testing.T) {
	p := NewPool(DefaultVoices, testRate, 64)
	p.SetEnvelope(envelope.Parameters{Attack: 0, Decay: 0, Sustain: 1, Release: 1})
	a := mustAsset(t, constPCM(44100, 1, testRate, 1), FullRange("tone", 60))
	p.Bind(a)

	p.NoteOn(60, 100)
	p.NoteOn(64, 100)
	p.NoteOff(60)
	p.Render(newBuffers(2, 64), 0, 64)
	require.True(t, p.Voice(0).IsReleasing())

	p.SetEnvelope(envelope.Parameters{Attack: 0, Decay: 0, Sustain: 1, Release: 0})

	assert.Equal(t, 1, p.ActiveVoices(), "only the held note keeps sounding")
	assert.False(t, p.Voice(0).IsActive())
	assert.Nil(t, p.Voice(0).Asset())
	assert.Equal(t, int32(2), a.RefCount(), "pool and held voice")
}

func TestPoolRenderLargerThanScratch(t *testing.T) {
	p := NewPool(DefaultVoices, testRate, 16)
	p.SetEnvelope(instant)
	p.Bind(mustAsset(t, constPCM(1000, 1, testRate, 0.5), FullRange("tone", 60)))
	p.NoteOn(60, 127)

	out := newBuffers(2, 100)
	p.Render(out, 0, 100)
	for i := range out[0] {
		require.InDelta(t, 0.5, out[0][i], 1e-6, "frame %d", i)
	}
}

func TestPoolDeterministic(t *testing.T) {
	render := func() [][]float32 {
		p := NewPool(DefaultVoices, testRate, 128)
		p.SetEnvelope(envelope.Parameters{Attack: 0.01, Decay: 0.05, Sustain: 0.6, Release: 0.02})
		p.Bind(mustAsset(t, rampPCM(20000, 48000), FullRange("ramp", 60)))
		out := newBuffers(2, 4096)
		p.NoteOn(60, 100)
		p.NoteOn(67, 90)
		p.Render(out, 0, 1000)
		p.NoteOff(60)
		p.Render(out, 1000, 3096)
		return out
	}

	assert.Equal(t, render(), render())
}

func TestPoolRenderDoesNotAllocate(t *testing.T) {
	p := NewPool(DefaultVoices, testRate, 256)
	p.Bind(mustAsset(t, constPCM(44100, 2, testRate, 0.1), FullRange("tone", 60)))
	out := newBuffers(2, 256)

	note := uint8(30)
	allocs := testing.AllocsPerRun(200, func() {
		p.NoteOn(note, 100)
		p.Render(out, 0, 256)
		p.NoteOff(note)
		note = 30 + (note-29)%60
	})
	assert.Zero(t, allocs)
}
