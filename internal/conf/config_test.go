package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load(New(""))
	require.NoError(t, err)

	assert.Equal(t, 44100, s.Audio.SampleRate)
	assert.Equal(t, 256, s.Audio.BlockSize)
	assert.Equal(t, 2, s.Audio.Channels)
	assert.Equal(t, "oto", s.Audio.Backend)
	assert.Equal(t, "samples", s.Samples.Dir)
	assert.Equal(t, 10*time.Minute, s.Samples.CacheTTL)
	assert.Equal(t, 16, s.Engine.Voices)
	assert.InDelta(t, 0.33, s.Reverb.Wet, 1e-12)
	assert.InDelta(t, 0.4, s.Reverb.Dry, 1e-12)
	assert.True(t, s.HTTP.Enabled)
	assert.Equal(t, "info", s.Log.Level)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sampler.yaml"), []byte(`
audio:
  samplerate: 48000
  channels: 1
  backend: "null"
samples:
  dir: /opt/samples
  cachettl: 30s
reverb:
  wet: 0.5
`), 0o644))
	t.Setenv("SAMPLER_ENGINE_VOICES", "32")
	t.Setenv("SAMPLER_LOG_LEVEL", "debug")

	v := New("")
	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 48000, s.Audio.SampleRate)
	assert.Equal(t, 1, s.Audio.Channels)
	assert.Equal(t, "null", s.Audio.Backend)
	assert.Equal(t, "/opt/samples", s.Samples.Dir)
	assert.Equal(t, 30*time.Second, s.Samples.CacheTTL)
	assert.InDelta(t, 0.5, s.Reverb.Wet, 1e-12)
	assert.Equal(t, 32, s.Engine.Voices)
	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "sampler.yaml", filepath.Base(ConfigFileUsed(v)))
}

func TestExplicitMissingFileFails(t *testing.T) {
	_, err := Load(New(filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Error(t, err)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
audio:
  channels: 6
  backend: jack
engine:
  voices: 0
reverb:
  dry: 2
log:
  level: loud
`), 0o644))

	_, err := Load(New(path))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	for _, want := range []string{"audio.channels", "audio.backend", "engine.voices", "reverb.dry", "log.level"} {
		assert.Contains(t, err.Error(), want)
	}
	assert.NotContains(t, err.Error(), "reverb.wet")
}
