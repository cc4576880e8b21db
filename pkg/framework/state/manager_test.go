package state

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3sampler/pkg/framework/debug"
	"github.com/justyntemme/vst3sampler/pkg/framework/param"
)

func newTestManager(t *testing.T) (*Manager, *param.Registry) {
	t.Helper()

	r := param.NewRegistry()
	require.NoError(t, r.Add(
		param.New(0, "Room Size").Key("roomSize").Range(0, 1).Default(0.75).Build(),
		param.SecondsParameter(1, "Attack", 0, 1, 0.1).Key("attack").Build(),
		param.New(2, "Reverb").Key("reverbEnabled").Toggle().On().Build(),
		param.Choice(3, "Sample", []string{"cowbell", "guitar", "laser", "singing"}).Key("currentSample").DefaultIndex(3).Build(),
	))
	r.Freeze()

	m := NewManager(r)
	m.SetLogger(debug.Discard())
	return m, r
}

func plain(t *testing.T, r *param.Registry, key string) float64 {
	t.Helper()
	v, err := r.Value(key)
	require.NoError(t, err)
	return v
}

func TestSaveWritesParameterTree(t *testing.T) {
	m, r := newTestManager(t)
	require.NoError(t, r.Set("roomSize", 0.5))

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<PARAMETERS>"))
	assert.Contains(t, out, `<PARAM id="roomSize" value="0.5"></PARAM>`)
	assert.Contains(t, out, `<PARAM id="currentSample" value="3"></PARAM>`)
	assert.Contains(t, out, `<PARAM id="reverbEnabled" value="1"></PARAM>`)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m, r := newTestManager(t)
	require.NoError(t, r.Set("roomSize", 0.2))
	require.NoError(t, r.Set("attack", 0.35))
	require.NoError(t, r.Set("reverbEnabled", 0))
	require.NoError(t, r.Set("currentSample", 1))

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))

	r.ResetAll()
	require.NoError(t, m.Load(&buf))

	assert.InDelta(t, 0.2, plain(t, r, "roomSize"), 1e-12)
	assert.InDelta(t, 0.35, plain(t, r, "attack"), 1e-12)
	assert.Equal(t, 0.0, plain(t, r, "reverbEnabled"))
	assert.Equal(t, 1.0, plain(t, r, "currentSample"))
}

func TestLoadClampsAndSkipsUnknown(t *testing.T) {
	m, r := newTestManager(t)

	blob := `<PARAMETERS>
  <PARAM id="roomSize" value="7"/>
  <PARAM id="gain" value="0.3"/>
  <PARAM id="currentSample" value="2"/>
</PARAMETERS>`
	require.NoError(t, m.Load(strings.NewReader(blob)))

	assert.Equal(t, 1.0, plain(t, r, "roomSize"))
	assert.Equal(t, 2.0, plain(t, r, "currentSample"))
	assert.InDelta(t, 0.1, plain(t, r, "attack"), 1e-12, "absent ids keep their value")
}

func TestLoadNotifiesListeners(t *testing.T) {
	m, r := newTestManager(t)

	var changed []string
	unsubscribe := r.Subscribe(func(p *param.Parameter) { changed = append(changed, p.Key) })
	defer unsubscribe()

	require.NoError(t, m.Load(strings.NewReader(`<PARAMETERS><PARAM id="attack" value="0.5"/></PARAMETERS>`)))
	assert.Equal(t, []string{"attack"}, changed)
}

func TestLoadMalformedResetsToDefaults(t *testing.T) {
	for name, blob := range map[string]string{
		"empty":     "",
		"truncated": `<PARAMETERS><PARAM id="roomSize" value="0.1"`,
		"wrong root": `<STATE><PARAM id="roomSize" value="0.1"/></STATE>`,
		"bad value": `<PARAMETERS><PARAM id="roomSize" value="loud"/></PARAMETERS>`,
	} {
		t.Run(name, func(t *testing.T) {
			m, r := newTestManager(t)
			require.NoError(t, r.Set("roomSize", 0.3))
			require.NoError(t, r.Set("currentSample", 0))

			err := m.Load(strings.NewReader(blob))
			assert.ErrorIs(t, err, ErrMalformedState)

			assert.InDelta(t, 0.75, plain(t, r, "roomSize"), 1e-12)
			assert.Equal(t, 3.0, plain(t, r, "currentSample"))
		})
	}
}

func TestPresetRoundTrip(t *testing.T) {
	m, r := newTestManager(t)
	require.NoError(t, r.Set("roomSize", 0.9))
	require.NoError(t, r.Set("reverbEnabled", 0))
	require.NoError(t, r.Set("currentSample", 2))

	path := filepath.Join(t.TempDir(), "hall.yaml")
	require.NoError(t, SavePresetFile(path, m.Snapshot("Hall")))

	r.ResetAll()
	p, err := LoadPresetFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Hall", p.Name)
	assert.Equal(t, "laser", p.Params["currentSample"])
	assert.Equal(t, false, p.Params["reverbEnabled"])

	require.NoError(t, m.Apply(p))
	assert.InDelta(t, 0.9, plain(t, r, "roomSize"), 1e-12)
	assert.Equal(t, 0.0, plain(t, r, "reverbEnabled"))
	assert.Equal(t, 2.0, plain(t, r, "currentSample"))
}

func TestPresetFromHandwrittenYAML(t *testing.T) {
	m, r := newTestManager(t)

	doc := `name: Short
params:
  attack: 0.01
  roomSize: 1
  currentSample: Guitar
  reverbEnabled: off
`
	p, err := LoadPreset(strings.NewReader(doc))
	require.NoError(t, err)
	require.NoError(t, m.Apply(p))

	assert.InDelta(t, 0.01, plain(t, r, "attack"), 1e-12)
	assert.Equal(t, 1.0, plain(t, r, "roomSize"))
	assert.Equal(t, 1.0, plain(t, r, "currentSample"))
	assert.Equal(t, 0.0, plain(t, r, "reverbEnabled"))
}

func TestPresetReportsBadEntries(t *testing.T) {
	m, r := newTestManager(t)

	p := Preset{Name: "broken", Params: map[string]any{
		"roomSize":      0.4,
		"volume":        1.0,
		"currentSample": "piano",
		"attack":        []int{1},
	}}
	err := m.Apply(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, param.ErrUnknownParameter)
	assert.Contains(t, err.Error(), "piano")
	assert.Contains(t, err.Error(), `preset "broken"`)

	assert.InDelta(t, 0.4, plain(t, r, "roomSize"), 1e-12, "valid entries are still applied")
}

func TestLoadPresetRejectsGarbage(t *testing.T) {
	_, err := LoadPreset(strings.NewReader("params: [1, 2"))
	assert.Error(t, err)

	p, err := LoadPreset(strings.NewReader("name: empty\n"))
	require.NoError(t, err)
	assert.NotNil(t, p.Params)
}
