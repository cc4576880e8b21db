package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constPCM(frames, channels int, rate float64, value float32) PCM {
	pcm := PCM{SampleRate: rate, Channels: make([][]float32, channels)}
	for ch := range pcm.Channels {
		pcm.Channels[ch] = make([]float32, frames)
		for i := range pcm.Channels[ch] {
			pcm.Channels[ch][i] = value
		}
	}
	return pcm
}

func rampPCM(frames int, rate float64) PCM {
	data := make([]float32, frames)
	for i := range data {
		data[i] = float32(i)
	}
	return PCM{SampleRate: rate, Channels: [][]float32{data}}
}

func mustAsset(t *testing.T, pcm PCM, meta Metadata) *Asset {
	t.Helper()
	a, err := NewAsset(pcm, meta)
	require.NoError(t, err)
	return a
}

func TestNewAssetValidation(t *testing.T) {
	tests := []struct {
		name string
		pcm  PCM
		meta Metadata
	}{
		{"no channels", PCM{SampleRate: 44100}, FullRange("x", 60)},
		{"three channels", constPCM(10, 3, 44100, 0), FullRange("x", 60)},
		{"zero rate", constPCM(10, 1, 0, 0), FullRange("x", 60)},
		{"empty", constPCM(0, 1, 44100, 0), FullRange("x", 60)},
		{"root out of range", constPCM(10, 1, 44100, 0), Metadata{RootNote: 128, HighNote: 127}},
		{"inverted range", constPCM(10, 1, 44100, 0), Metadata{RootNote: 60, LowNote: 70, HighNote: 50}},
		{"negative hint", constPCM(10, 1, 44100, 0), Metadata{RootNote: 60, HighNote: 127, Attack: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAsset(tt.pcm, tt.meta)
			assert.ErrorIs(t, err, ErrInvalidAsset)
		})
	}
}

func TestNewAssetTruncatesToMaxLength(t *testing.T) {
	a := mustAsset(t, constPCM(12*1000, 2, 1000, 0.5), FullRange("long", 60))
	assert.Equal(t, 10*1000, a.Frames())
	assert.Len(t, a.Data()[1], 10*1000)

	short := mustAsset(t, constPCM(3000, 1, 1000, 0.5), Metadata{Name: "short", RootNote: 60, HighNote: 127, MaxLength: 2})
	assert.Equal(t, 2000, short.Frames())
}

func TestAssetMetadata(t *testing.T) {
	a := mustAsset(t, constPCM(100, 1, 48000, 0), Metadata{
		Name: "cowbell", RootNote: 75, LowNote: 10, HighNote: 100, Attack: 0.2, Release: 0.3,
	})

	assert.Equal(t, "cowbell", a.Name())
	assert.Equal(t, 1, a.Channels())
	assert.Equal(t, 48000.0, a.SampleRate())
	assert.Equal(t, uint8(75), a.RootNote())

	low, high := a.NoteRange()
	assert.Equal(t, uint8(10), low)
	assert.Equal(t, uint8(100), high)
	assert.True(t, a.Covers(10))
	assert.False(t, a.Covers(101))

	attack, release := a.Envelope()
	assert.Equal(t, 0.2, attack)
	assert.Equal(t, 0.3, release)
}

func TestAssetVersionsIncrease(t *testing.T) {
	a := mustAsset(t, constPCM(10, 1, 44100, 0), FullRange("a", 60))
	b := mustAsset(t, constPCM(10, 1, 44100, 0), FullRange("b", 60))
	assert.Greater(t, b.Version(), a.Version())
}

func TestAssetRefCounting(t *testing.T) {
	a := mustAsset(t, constPCM(10, 1, 44100, 0), FullRange("a", 60))
	assert.Equal(t, int32(1), a.RefCount())

	a.Retain()
	assert.False(t, a.Release())
	assert.False(t, a.Released())

	assert.True(t, a.Release(), "last release reports true")
	assert.True(t, a.Released())

	assert.False(t, a.Release(), "extra releases are ignored")
	assert.Equal(t, int32(0), a.RefCount())
}
