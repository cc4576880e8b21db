package plugin

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3sampler/pkg/framework/bus"
	"github.com/justyntemme/vst3sampler/pkg/framework/param"
	"github.com/justyntemme/vst3sampler/pkg/framework/process"
	"github.com/justyntemme/vst3sampler/pkg/framework/state"
)

type testProcessor struct {
	*BaseProcessor
	blocks int
}

func (p *testProcessor) ProcessAudio(ctx *process.Context) {
	p.blocks++
	ctx.Clear()
}

var _ Processor = (*testProcessor)(nil)

func TestBaseProcessorCallbacks(t *testing.T) {
	base := NewBaseProcessor(nil)

	var calls []string
	base.OnInitialize(func(sr float64, block int32) error {
		calls = append(calls, "init")
		return nil
	})
	base.OnReset(func() { calls = append(calls, "reset") })
	base.OnSetActive(func(active bool) error {
		if active {
			calls = append(calls, "on")
		} else {
			calls = append(calls, "off")
		}
		return nil
	})

	require.NoError(t, base.Initialize(48000, 256))
	require.NoError(t, base.SetActive(true))
	require.NoError(t, base.SetActive(false))

	assert.Equal(t, []string{"init", "on", "reset", "off"}, calls)
	assert.Equal(t, 48000.0, base.SampleRate())
	assert.Equal(t, int32(256), base.MaxBlockSize())
	assert.False(t, base.IsActive())
	assert.Zero(t, base.GetLatencySamples())
	assert.Zero(t, base.GetTailSamples())
}

func TestBaseProcessorInitializeError(t *testing.T) {
	base := NewBaseProcessor(bus.NewInstrument(1))
	boom := errors.New("boom")
	base.OnInitialize(func(float64, int32) error { return boom })

	assert.ErrorIs(t, base.Initialize(44100, 512), boom)
}

func TestConfigureOutput(t *testing.T) {
	base := NewBaseProcessor(nil)
	assert.Equal(t, int32(2), base.GetBuses().OutputChannels())

	require.NoError(t, base.ConfigureOutput(1))
	assert.Equal(t, int32(1), base.GetBuses().OutputChannels())

	err := base.ConfigureOutput(6)
	assert.ErrorIs(t, err, bus.ErrUnsupportedBusLayout)
}

func TestBaseState(t *testing.T) {
	proc := &testProcessor{BaseProcessor: NewBaseProcessor(nil)}
	params := proc.GetParameters()
	require.NoError(t, params.Add(param.New(0, "Room").Key("roomSize").Range(0, 1).Default(0.75).Build()))

	p := NewBase(Info{ID: "com.example.sampler", Name: "Sampler"}, proc)
	require.NoError(t, params.Set("roomSize", 0.25))

	var blob bytes.Buffer
	require.NoError(t, p.GetState(&blob))

	require.NoError(t, params.Set("roomSize", 1))
	require.NoError(t, p.SetState(&blob))
	v, _ := params.Value("roomSize")
	assert.InDelta(t, 0.25, v, 1e-12)

	err := p.SetState(bytes.NewBufferString("garbage"))
	assert.ErrorIs(t, err, state.ErrMalformedState)
	v, _ = params.Value("roomSize")
	assert.InDelta(t, 0.75, v, 1e-12)
	assert.NotNil(t, p.State())

	ctx := process.NewContext(2, 16, 44100)
	ctx.Begin(16)
	p.Processor.ProcessAudio(ctx)
	assert.Equal(t, 1, proc.blocks)
}
