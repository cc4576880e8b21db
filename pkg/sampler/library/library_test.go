package library

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/justyntemme/vst3sampler/pkg/framework/debug"
	"github.com/justyntemme/vst3sampler/pkg/sampler"
	"github.com/justyntemme/vst3sampler/pkg/sampler/decode"
)

func writeSample(t *testing.T, dir, name string, frames int, rate float64) {
	t.Helper()

	pcm := &sampler.PCM{SampleRate: rate, Channels: [][]float32{make([]float32, frames)}}
	for i := range pcm.Channels[0] {
		pcm.Channels[0][i] = 0.25
	}

	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, decode.EncodeWAV(f, pcm, 16))
}

func newTestLibrary(t *testing.T) (*Library, string) {
	t.Helper()

	dir := t.TempDir()
	writeSample(t, dir, "singing.wav", 441, 44100)
	writeSample(t, dir, "cowbell.wav", 100, 22050)
	writeSample(t, dir, "laser.wav", 100, 44100)
	writeSample(t, dir, "guitar.wav", 100, 48000)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not audio"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.wav"), 0o755))

	lib, err := Open(dir, 0)
	require.NoError(t, err)
	lib.SetLogger(debug.Discard())
	return lib, dir
}

func TestOpenSortsAndFilters(t *testing.T) {
	lib, dir := newTestLibrary(t)

	assert.Equal(t, []string{"cowbell", "guitar", "laser", "singing"}, lib.Names())
	assert.Equal(t, 4, lib.Len())
	assert.Equal(t, dir, lib.Dir())

	e, ok := lib.Entry(0)
	require.True(t, ok)
	assert.Equal(t, uint8(75), e.RootNote)
	assert.Equal(t, filepath.Join(dir, "cowbell.wav"), e.Path)

	idx, ok := lib.Index("singing")
	assert.True(t, ok)
	assert.Equal(t, 3, idx)

	_, ok = lib.Index("missing")
	assert.False(t, ok)
	_, ok = lib.Entry(4)
	assert.False(t, ok)
}

func TestOpenEmptyDirectory(t *testing.T) {
	_, err := Open(t.TempDir(), 0)
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = Open(filepath.Join(t.TempDir(), "missing"), 0)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoSamples))
}

func TestRootNoteFor(t *testing.T) {
	assert.Equal(t, uint8(75), RootNoteFor("cowbell"))
	assert.Equal(t, uint8(74), RootNoteFor("Guitar_Clean"))
	assert.Equal(t, uint8(74), RootNoteFor("laser"))
	assert.Equal(t, uint8(65), RootNoteFor("singing"))
	assert.Equal(t, uint8(60), RootNoteFor("piano"))
}

func TestLoadBuildsFullRangeAsset(t *testing.T) {
	lib, _ := newTestLibrary(t)

	a, err := lib.Load(3, 0.2, 0.4)
	require.NoError(t, err)

	assert.Equal(t, "singing", a.Name())
	assert.Equal(t, uint8(65), a.RootNote())
	low, high := a.NoteRange()
	assert.Equal(t, uint8(0), low)
	assert.Equal(t, uint8(127), high)
	assert.Equal(t, 441, a.Frames())
	assert.Equal(t, 44100.0, a.SampleRate())
	attack, release := a.Envelope()
	assert.Equal(t, 0.2, attack)
	assert.Equal(t, 0.4, release)
	assert.InDelta(t, 0.25, a.Data()[0][10], 1e-4)
	assert.Equal(t, int32(1), a.RefCount())
}

func TestLoadUsesCache(t *testing.T) {
	lib, dir := newTestLibrary(t)

	first, err := lib.Load(0, 0.1, 0.1)
	require.NoError(t, err)

	// Removing the file proves the second load never touches disk
	require.NoError(t, os.Remove(filepath.Join(dir, "cowbell.wav")))

	second, err := lib.Load(0, 0.1, 0.1)
	require.NoError(t, err)
	assert.NotEqual(t, first.Version(), second.Version(), "every load yields a new asset")

	hits, misses, cached := lib.CacheStats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 1, cached)

	lib.FlushCache()
	_, err = lib.Load(0, 0.1, 0.1)
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	lib, dir := newTestLibrary(t)

	_, err := lib.Load(-1, 0.1, 0.1)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "laser.wav"), []byte("RIFF garbage"), 0o644))
	_, err = lib.Load(2, 0.1, 0.1)
	assert.ErrorIs(t, err, decode.ErrDecode)
}

func TestOpenWithTTLStartsJanitor(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)

	dir := t.TempDir()
	writeSample(t, dir, "a.wav", 10, 44100)

	lib, err := Open(dir, time.Minute)
	require.NoError(t, err)
	lib.SetLogger(debug.Discard())

	_, err = lib.Load(0, 0, 0)
	require.NoError(t, err)
}
