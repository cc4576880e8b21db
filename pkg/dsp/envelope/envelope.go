// Package envelope provides envelope generators for audio synthesis
package envelope

// Stage represents the current envelope stage
type Stage int

const (
	// StageIdle represents envelope idle state
	StageIdle Stage = iota
	// StageAttack represents envelope attack phase
	StageAttack
	// StageDecay represents envelope decay phase
	StageDecay
	// StageSustain represents envelope sustain phase
	StageSustain
	// StageRelease represents envelope release phase
	StageRelease
)

// String returns the stage name
func (s Stage) String() string {
	switch s {
	case StageAttack:
		return "attack"
	case StageDecay:
		return "decay"
	case StageSustain:
		return "sustain"
	case StageRelease:
		return "release"
	default:
		return "idle"
	}
}

// Parameters holds ADSR times in seconds and the sustain level (0-1).
type Parameters struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// DefaultParameters matches the engine's parameter defaults.
func DefaultParameters() Parameters {
	return Parameters{Attack: 0.1, Decay: 0.1, Sustain: 1.0, Release: 0.1}
}

// ADSR implements a linear Attack-Decay-Sustain-Release envelope generator.
//
// Attack ramps 0 to 1 over the attack time, decay ramps 1 to the sustain level
// over the decay time and release ramps from wherever the envelope is to 0
// over the release time. A stage time of 0 skips the stage.
type ADSR struct {
	sampleRate float64
	params     Parameters

	// Per-sample increments
	attackRate  float64
	decayRate   float64
	releaseRate float64

	// State
	stage Stage
	value float64
}

// New creates a new ADSR envelope
func New(sampleRate float64) *ADSR {
	env := &ADSR{}
	env.Init(sampleRate)
	return env
}

// Init prepares an envelope held by value, e.g. inside a fixed voice array.
func (e *ADSR) Init(sampleRate float64) {
	e.sampleRate = sampleRate
	e.params = DefaultParameters()
	e.stage = StageIdle
	e.value = 0
	e.recalculate()
}

// SetSampleRate changes the sample rate and rescales the stage increments.
func (e *ADSR) SetSampleRate(sampleRate float64) {
	e.sampleRate = sampleRate
	e.recalculate()
}

// SetParameters applies new stage times and sustain level. Values are
// clamped to non-negative times and a 0-1 sustain level.
func (e *ADSR) SetParameters(p Parameters) {
	e.params = Parameters{
		Attack:  nonNegative(p.Attack),
		Decay:   nonNegative(p.Decay),
		Sustain: clamp01(p.Sustain),
		Release: nonNegative(p.Release),
	}
	e.recalculate()
}

// GetParameters returns the active parameters
func (e *ADSR) GetParameters() Parameters {
	return e.params
}

func (e *ADSR) recalculate() {
	e.attackRate = rateFor(1.0, e.params.Attack, e.sampleRate)
	e.decayRate = rateFor(1.0-e.params.Sustain, e.params.Decay, e.sampleRate)
	e.releaseRate = rateFor(e.params.Sustain, e.params.Release, e.sampleRate)

	// A running stage whose time drops to 0 finishes at once, the same way
	// Next leaves it.
	switch e.stage {
	case StageAttack:
		if e.attackRate <= 0 {
			e.value = 1.0
			e.afterAttack()
		}

	case StageDecay:
		if e.decayRate <= 0 {
			e.value = e.params.Sustain
			e.stage = StageSustain
		}

	case StageSustain:
		e.value = e.params.Sustain

	case StageRelease:
		// A running release keeps its slope from the level it started at
		e.releaseRate = rateFor(e.value, e.params.Release, e.sampleRate)
		if e.releaseRate <= 0 {
			e.Reset()
		}
	}
}

// afterAttack moves a completed attack to decay, or straight to sustain
func (e *ADSR) afterAttack() {
	if e.decayRate > 0 {
		e.stage = StageDecay
		return
	}
	e.value = e.params.Sustain
	e.stage = StageSustain
}

// rateFor returns the per-sample step that covers distance in seconds.
// Zero means the stage is skipped.
func rateFor(distance, seconds, sampleRate float64) float64 {
	if seconds <= 0 || sampleRate <= 0 {
		return 0
	}
	return distance / (seconds * sampleRate)
}

// Trigger starts the envelope from zero (note on)
func (e *ADSR) Trigger() {
	e.value = 0

	switch {
	case e.attackRate > 0:
		e.stage = StageAttack
	case e.decayRate > 0:
		e.value = 1
		e.stage = StageDecay
	default:
		e.value = e.params.Sustain
		e.stage = StageSustain
	}
}

// Release starts the release stage from the current level (note off)
func (e *ADSR) Release() {
	if e.stage == StageIdle {
		return
	}

	if e.params.Release > 0 && e.value > 0 {
		e.releaseRate = rateFor(e.value, e.params.Release, e.sampleRate)
		e.stage = StageRelease
		return
	}

	e.Reset()
}

// Reset immediately returns the envelope to idle
func (e *ADSR) Reset() {
	e.stage = StageIdle
	e.value = 0
}

// IsActive returns true if the envelope is generating output
func (e *ADSR) IsActive() bool {
	return e.stage != StageIdle
}

// IsReleasing reports whether the envelope is in its release stage
func (e *ADSR) IsReleasing() bool {
	return e.stage == StageRelease
}

// GetStage returns the current envelope stage
func (e *ADSR) GetStage() Stage {
	return e.stage
}

// Level returns the last generated value
func (e *ADSR) Level() float64 {
	return e.value
}

// Next generates the next envelope value
func (e *ADSR) Next() float64 {
	switch e.stage {
	case StageAttack:
		e.value += e.attackRate
		if e.value >= 1.0 {
			e.value = 1.0
			e.afterAttack()
		}

	case StageDecay:
		e.value -= e.decayRate
		if e.value <= e.params.Sustain {
			e.value = e.params.Sustain
			e.stage = StageSustain
		}

	case StageSustain:
		e.value = e.params.Sustain

	case StageRelease:
		e.value -= e.releaseRate
		if e.value <= 0 {
			e.Reset()
		}

	case StageIdle:
		e.value = 0
	}

	return e.value
}

// Process fills buffer with envelope values - no allocations
func (e *ADSR) Process(buffer []float64) {
	for i := range buffer {
		buffer[i] = e.Next()
	}
}

func nonNegative(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	if v != v {
		return 1
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
