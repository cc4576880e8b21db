// Package engine is the sampler instrument: a fixed parameter set, a voice
// pool bound to one sample asset, a Freeverb and the coordinator that moves
// control-context changes into the render context at block boundaries.
package engine

import (
	"fmt"

	"github.com/justyntemme/vst3sampler/pkg/dsp/reverb"
	"github.com/justyntemme/vst3sampler/pkg/framework/bus"
	"github.com/justyntemme/vst3sampler/pkg/framework/param"
	"github.com/justyntemme/vst3sampler/pkg/framework/plugin"
	"github.com/justyntemme/vst3sampler/pkg/framework/process"
	"github.com/justyntemme/vst3sampler/pkg/midi"
	"github.com/justyntemme/vst3sampler/pkg/sampler"
)

const (
	// Parameter IDs
	ParamRoomSize uint32 = iota
	ParamDamping
	ParamWidth
	ParamAttack
	ParamDecay
	ParamSustain
	ParamRelease
	ParamReverbEnabled
	ParamCurrentSample
)

// Parameter keys, as stored in state blobs and presets
const (
	KeyRoomSize      = "roomSize"
	KeyDamping       = "damping"
	KeyWidth         = "width"
	KeyAttack        = "attack"
	KeyDecay         = "decay"
	KeySustain       = "sustain"
	KeyRelease       = "release"
	KeyReverbEnabled = "reverbEnabled"
	KeyCurrentSample = "currentSample"
)

// DefaultSampleIndex is the initial currentSample choice
const DefaultSampleIndex = 3

// Config fixes everything that cannot change after construction
type Config struct {
	Info plugin.Info

	// Voices is the pool size; 0 selects sampler.DefaultVoices
	Voices int

	// SampleNames are the currentSample choices, in library order
	SampleNames []string

	// Channels is the initial output width, 1 or 2
	Channels int32

	// WetLevel and DryLevel are the fixed reverb mix
	WetLevel float64
	DryLevel float64

	// InboxSize bounds live MIDI input between blocks
	InboxSize int
}

// DefaultConfig returns a stereo, 16 voice configuration with the stock
// reverb mix.
func DefaultConfig() Config {
	rv := reverb.DefaultParameters()
	return Config{
		Info: plugin.Info{
			ID:          "com.justyntemme.vst3sampler",
			Name:        "Sampler",
			Version:     "1.0.0",
			Vendor:      "justyntemme",
			Category:    "Instrument|Sampler",
			AcceptsMIDI: true,
		},
		Voices:    sampler.DefaultVoices,
		Channels:  2,
		WetLevel:  rv.WetLevel,
		DryLevel:  rv.DryLevel,
		InboxSize: midi.DefaultInboxSize,
	}
}

// params holds pointers resolved once so the render context never looks
// anything up by key.
type params struct {
	roomSize, damping, width *param.Parameter
	adsr                     adsrParams
	reverbEnabled            *param.Parameter
	currentSample            *param.Parameter
}

// Engine is the sampler processor. ProcessAudio is the render context;
// every other method belongs to the control context and must not run
// concurrently with ProcessAudio unless documented otherwise.
type Engine struct {
	*plugin.BaseProcessor

	info   plugin.Info
	prm    params
	pool   *sampler.Pool
	reverb *reverb.Freeverb
	coord  *Coordinator
	inbox  *midi.Inbox
	stats  Stats

	wet, dry    float64
	needsReset  bool
	events      []midi.Event
	unsubscribe func()
}

// New builds an engine. The registry is frozen before New returns.
func New(cfg Config) (*Engine, error) {
	if err := bus.ValidateOutputChannels(cfg.Channels); err != nil {
		return nil, err
	}
	if err := cfg.Info.ValidateUID(); err != nil {
		return nil, err
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = midi.DefaultInboxSize
	}
	names := cfg.SampleNames
	if len(names) == 0 {
		names = []string{"none"}
	}

	e := &Engine{
		BaseProcessor: plugin.NewBaseProcessor(bus.NewInstrument(cfg.Channels)),
		info:          cfg.Info,
		pool:          sampler.NewPool(cfg.Voices, 44100, sampler.DefaultBlockSize),
		reverb:        reverb.NewFreeverb(44100),
		inbox:         midi.NewInbox(cfg.InboxSize),
		wet:           cfg.WetLevel,
		dry:           cfg.DryLevel,
	}
	e.events = make([]midi.Event, 0, process.DefaultMaxEvents+e.inbox.Cap())
	// The bus layout decides whether hosts route MIDI here
	e.info.AcceptsMIDI = e.GetBuses().AcceptsMIDI()

	if err := e.declareParameters(names); err != nil {
		return nil, err
	}
	e.coord = newCoordinator(e.pool, e.prm.adsr)

	e.unsubscribe = e.GetParameters().Subscribe(func(p *param.Parameter) {
		switch p.ID {
		case ParamAttack, ParamDecay, ParamSustain, ParamRelease:
			e.coord.MarkADSR()
		}
	})

	e.OnInitialize(e.initialize)
	e.OnReset(e.reset)
	e.coord.MarkADSR()
	return e, nil
}

func (e *Engine) declareParameters(names []string) error {
	reg := e.GetParameters()
	err := reg.Add(
		param.LevelParameter(ParamRoomSize, "Room Size", 0.75).Key(KeyRoomSize).Build(),
		param.LevelParameter(ParamDamping, "Damping", 0.5).Key(KeyDamping).Build(),
		param.LevelParameter(ParamWidth, "Width", 1.0).Key(KeyWidth).Build(),
		param.SecondsParameter(ParamAttack, "Attack", 0, 1, 0.1).Key(KeyAttack).Build(),
		param.SecondsParameter(ParamDecay, "Decay", 0, 1, 0.1).Key(KeyDecay).Build(),
		param.LevelParameter(ParamSustain, "Sustain", 1.0).Key(KeySustain).Build(),
		param.SecondsParameter(ParamRelease, "Release", 0, 1, 0.1).Key(KeyRelease).Build(),
		param.New(ParamReverbEnabled, "Reverb").Key(KeyReverbEnabled).Toggle().On().Build(),
		param.Choice(ParamCurrentSample, "Sample", names).Key(KeyCurrentSample).DefaultIndex(DefaultSampleIndex).Build(),
	)
	if err != nil {
		return fmt.Errorf("declaring parameters: %w", err)
	}
	reg.Freeze()

	e.prm = params{
		roomSize: reg.Get(ParamRoomSize),
		damping:  reg.Get(ParamDamping),
		width:    reg.Get(ParamWidth),
		adsr: adsrParams{
			attack:  reg.Get(ParamAttack),
			decay:   reg.Get(ParamDecay),
			sustain: reg.Get(ParamSustain),
			release: reg.Get(ParamRelease),
		},
		reverbEnabled: reg.Get(ParamReverbEnabled),
		currentSample: reg.Get(ParamCurrentSample),
	}
	return nil
}

func (e *Engine) initialize(sampleRate float64, maxBlockSize int32) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %v", sampleRate)
	}
	if maxBlockSize <= 0 {
		return fmt.Errorf("invalid block size %d", maxBlockSize)
	}
	e.pool.Prepare(sampleRate, int(maxBlockSize))
	e.reverb.SetSampleRate(sampleRate)
	e.needsReset = false
	e.coord.MarkADSR()
	return nil
}

func (e *Engine) reset() {
	e.pool.Reset()
	e.reverb.Reset()
	e.needsReset = false
}

// Info returns the plugin metadata
func (e *Engine) Info() plugin.Info {
	return e.info
}

// Coordinator returns the update coordinator shared with the loader
func (e *Engine) Coordinator() *Coordinator {
	return e.coord
}

// Stats returns the live counters. Safe from any goroutine.
func (e *Engine) Stats() *Stats {
	return &e.stats
}

// Inbox returns the live MIDI input queue
func (e *Engine) Inbox() *midi.Inbox {
	return e.inbox
}

// Send queues a live MIDI event for the next block. Safe from any
// goroutine. It reports false when the inbox is full.
func (e *Engine) Send(ev midi.Event) bool {
	return e.inbox.Push(ev)
}

// CurrentSample returns the selected library index
func (e *Engine) CurrentSample() int {
	return e.prm.currentSample.Index()
}

// EnvelopeHint returns the attack and release baked into newly loaded
// assets.
func (e *Engine) EnvelopeHint() (attack, release float64) {
	return e.prm.adsr.attack.Plain(), e.prm.adsr.release.Plain()
}

// GetTailSamples reports the release time in samples, plus the reverb
// decay while the reverb is enabled
func (e *Engine) GetTailSamples() int32 {
	tail := int32(e.prm.adsr.release.Plain() * e.SampleRate())
	if e.prm.reverbEnabled.Bool() {
		tail += reverb.TailLength(e.prm.roomSize.Plain(), e.SampleRate())
	}
	return tail
}

// ConfigureOutput renegotiates the output width between 1 and 2 channels
func (e *Engine) ConfigureOutput(channels int32) error {
	if err := e.BaseProcessor.ConfigureOutput(channels); err != nil {
		return err
	}
	e.reverb.Reset()
	e.needsReset = false
	return nil
}

// Close stops every voice and drops the bound and pending assets. The
// engine must not render afterwards.
func (e *Engine) Close() error {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	e.coord.discard()
	e.pool.Close()
	return nil
}

// ProcessAudio renders one block. It never allocates, locks or blocks.
func (e *Engine) ProcessAudio(ctx *process.Context) {
	if e.coord.Apply() {
		e.stats.AssetSwaps.Add(1)
		if a := e.pool.Current(); a != nil {
			e.stats.AssetVersion.Store(a.Version())
		}
	}

	// Reverb coefficients ramp, so setting them every block is fine
	enabled := e.prm.reverbEnabled.Bool()
	e.reverb.SetParameters(reverb.Parameters{
		RoomSize: e.prm.roomSize.Plain(),
		Damping:  e.prm.damping.Plain(),
		Width:    e.prm.width.Plain(),
		WetLevel: e.wet,
		DryLevel: e.dry,
	})

	// A zero-length block still applies its events; it only renders nothing
	n := ctx.NumSamples()
	ctx.Clear()
	e.renderEvents(ctx, n)

	if n > 0 {
		switch {
		case enabled:
			if ctx.NumOutputChannels() >= 2 {
				e.reverb.ProcessStereo(ctx.Output[0], ctx.Output[1])
			} else if ctx.NumOutputChannels() == 1 {
				e.reverb.ProcessMono(ctx.Output[0])
			}
			e.needsReset = true
		case e.needsReset:
			e.reverb.Reset()
			e.needsReset = false
			e.stats.ReverbResets.Add(1)
		}

		e.stats.FramesRendered.Add(uint64(n))
	}

	ctx.ConsumeEvents()

	e.stats.BlocksRendered.Add(1)
	e.stats.ActiveVoices.Store(int32(e.pool.ActiveVoices()))
	e.stats.SetPeak(ctx.Peak())
}

// renderEvents merges host and live events and renders the synthesis in
// sub-blocks between event offsets. Host events past the scratch capacity
// are counted as dropped.
func (e *Engine) renderEvents(ctx *process.Context, n int) {
	ctx.SortEvents()

	events := e.events[:0]
	room := cap(events) - e.inbox.Cap()
	if len(ctx.Events) > room {
		events = append(events, ctx.Events[:room]...)
		e.stats.EventsDropped.Add(uint64(len(ctx.Events) - room))
	} else {
		events = append(events, ctx.Events...)
	}
	hostEvents := len(events)
	events = e.inbox.Drain(events)
	for i := hostEvents; i < len(events); i++ {
		events[i].Offset = 0
	}
	midi.SortByOffset(events)

	pos := 0
	for _, ev := range events {
		at := int(ev.Offset)
		if at > pos {
			e.pool.Render(ctx.Output, pos, at-pos)
			pos = at
		}
		e.countNote(e.pool.HandleEvent(ev), ev)
	}
	if pos < n {
		e.pool.Render(ctx.Output, pos, n-pos)
	}
	e.events = events[:0]
}

func (e *Engine) countNote(r sampler.NoteResult, ev midi.Event) {
	switch r {
	case sampler.NoteStarted:
		e.stats.NotesStarted.Add(1)
	case sampler.NoteStolen:
		e.stats.NotesStarted.Add(1)
		e.stats.NotesStolen.Add(1)
	default:
		if ev.IsNoteOn() {
			e.stats.NotesIgnored.Add(1)
		}
	}
}
