package reverb

import (
	"github.com/justyntemme/vst3sampler/pkg/framework/param"
)

// Freeverb tuning constants (scaled for 44.1kHz)
const (
	numCombs     = 8
	numAllpasses = 4
	fixedGain    = 0.015
	scaleWet     = 3.0
	scaleDry     = 2.0
	scaleDamping = 0.4
	scaleRoom    = 0.28
	offsetRoom   = 0.7
	stereoSpread = 23

	// Coefficient ramp length
	smoothingSeconds = 0.01
)

// Comb filter tuning values (in samples at 44.1kHz)
var combTuning = [numCombs]int{
	1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617,
}

// Allpass filter tuning values (in samples at 44.1kHz)
var allpassTuning = [numAllpasses]int{
	556, 441, 341, 225,
}

// Parameters controls the reverb. All values are 0-1.
type Parameters struct {
	RoomSize   float64
	Damping    float64
	WetLevel   float64
	DryLevel   float64
	Width      float64
	FreezeMode float64 // >= 0.5 holds the tail indefinitely
}

// DefaultParameters returns the stock settings: a medium room with wet 0.33
// and dry 0.4.
func DefaultParameters() Parameters {
	return Parameters{
		RoomSize: 0.5,
		Damping:  0.5,
		WetLevel: 0.33,
		DryLevel: 0.4,
		Width:    1.0,
	}
}

// Freeverb implements the Freeverb reverb algorithm by Jezar at Dreampoint.
//
// Parameter changes never jump: gain, feedback, damping and the wet/dry
// gains ramp linearly over 10 ms. Process calls do not allocate and are
// independent of block size.
type Freeverb struct {
	// Comb and allpass filters for left (0) and right (1) channels
	combs     [2][numCombs]combFilter
	allpasses [2][numAllpasses]allPassFilter

	params     Parameters
	sampleRate float64

	gain     *param.Smoother
	damping  *param.Smoother
	feedback *param.Smoother
	dryGain  *param.Smoother
	wetGain1 *param.Smoother
	wetGain2 *param.Smoother
}

// NewFreeverb creates a new Freeverb reverb instance
func NewFreeverb(sampleRate float64) *Freeverb {
	f := &Freeverb{
		gain:     param.NewSmoother(param.LinearSmoothing, 0),
		damping:  param.NewSmoother(param.LinearSmoothing, 0),
		feedback: param.NewSmoother(param.LinearSmoothing, 0),
		dryGain:  param.NewSmoother(param.LinearSmoothing, 0),
		wetGain1: param.NewSmoother(param.LinearSmoothing, 0),
		wetGain2: param.NewSmoother(param.LinearSmoothing, 0),
	}
	f.SetParameters(DefaultParameters())
	f.SetSampleRate(sampleRate)
	return f
}

// SetSampleRate resizes the delay lines, clears all state and snaps the
// coefficients to their targets. It allocates and must not be called from
// the render context.
func (f *Freeverb) SetSampleRate(sampleRate float64) {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	f.sampleRate = sampleRate

	// Scale factor for different sample rates
	scaleFactor := sampleRate / 44100.0

	for i := 0; i < numCombs; i++ {
		f.combs[0][i].setSize(int(float64(combTuning[i]) * scaleFactor))
		f.combs[1][i].setSize(int(float64(combTuning[i]+stereoSpread) * scaleFactor))
	}

	for i := 0; i < numAllpasses; i++ {
		f.allpasses[0][i].setSize(int(float64(allpassTuning[i]) * scaleFactor))
		f.allpasses[1][i].setSize(int(float64(allpassTuning[i]+stereoSpread) * scaleFactor))
	}

	for _, s := range f.smoothers() {
		s.SetRampTime(sampleRate, smoothingSeconds)
		s.Reset(s.Target())
	}
}

// SampleRate returns the rate the delay lines are tuned for
func (f *Freeverb) SampleRate() float64 {
	return f.sampleRate
}

func (f *Freeverb) smoothers() [6]*param.Smoother {
	return [6]*param.Smoother{f.gain, f.damping, f.feedback, f.dryGain, f.wetGain1, f.wetGain2}
}

// SetParameters sets new targets for the smoothed coefficients. Values are
// clamped to 0-1.
func (f *Freeverb) SetParameters(p Parameters) {
	p = Parameters{
		RoomSize:   clamp01(p.RoomSize),
		Damping:    clamp01(p.Damping),
		WetLevel:   clamp01(p.WetLevel),
		DryLevel:   clamp01(p.DryLevel),
		Width:      clamp01(p.Width),
		FreezeMode: clamp01(p.FreezeMode),
	}
	f.params = p

	wet := p.WetLevel * scaleWet
	f.dryGain.SetTarget(p.DryLevel * scaleDry)
	f.wetGain1.SetTarget(0.5 * wet * (1.0 + p.Width))
	f.wetGain2.SetTarget(0.5 * wet * (1.0 - p.Width))

	if p.FreezeMode >= 0.5 {
		f.gain.SetTarget(0)
		f.damping.SetTarget(0)
		f.feedback.SetTarget(1)
	} else {
		f.gain.SetTarget(fixedGain)
		f.damping.SetTarget(p.Damping * scaleDamping)
		f.feedback.SetTarget(p.RoomSize*scaleRoom + offsetRoom)
	}
}

// GetParameters returns the current (clamped) parameters
func (f *Freeverb) GetParameters() Parameters {
	return f.params
}

// ProcessStereo processes a stereo block in place
func (f *Freeverb) ProcessStereo(left, right []float32) {
	n := min(len(left), len(right))

	for i := 0; i < n; i++ {
		input := (left[i] + right[i]) * float32(f.gain.Next())
		damp := float32(f.damping.Next())
		feedback := float32(f.feedback.Next())

		var outL, outR float32

		// Parallel comb filters
		for j := 0; j < numCombs; j++ {
			outL += f.combs[0][j].process(input, damp, feedback)
			outR += f.combs[1][j].process(input, damp, feedback)
		}

		// Series allpass filters
		for j := 0; j < numAllpasses; j++ {
			outL = f.allpasses[0][j].process(outL)
			outR = f.allpasses[1][j].process(outR)
		}

		dry := float32(f.dryGain.Next())
		wet1 := float32(f.wetGain1.Next())
		wet2 := float32(f.wetGain2.Next())

		left[i] = outL*wet1 + outR*wet2 + left[i]*dry
		right[i] = outR*wet1 + outL*wet2 + right[i]*dry
	}
}

// ProcessMono processes a mono block in place using the left filter bank
func (f *Freeverb) ProcessMono(buffer []float32) {
	for i := range buffer {
		input := buffer[i] * float32(f.gain.Next())
		damp := float32(f.damping.Next())
		feedback := float32(f.feedback.Next())

		var out float32
		for j := 0; j < numCombs; j++ {
			out += f.combs[0][j].process(input, damp, feedback)
		}
		for j := 0; j < numAllpasses; j++ {
			out = f.allpasses[0][j].process(out)
		}

		dry := float32(f.dryGain.Next())
		wet1 := float32(f.wetGain1.Next())
		f.wetGain2.Next()

		buffer[i] = out*wet1 + buffer[i]*dry
	}
}

// Reset clears all comb and allpass state. Coefficients are left alone.
func (f *Freeverb) Reset() {
	for ch := 0; ch < 2; ch++ {
		for i := 0; i < numCombs; i++ {
			f.combs[ch][i].reset()
		}
		for i := 0; i < numAllpasses; i++ {
			f.allpasses[ch][i].reset()
		}
	}
}

// TailLength is the time in samples for the longest comb to fall by 60 dB
// at the given room size.
func TailLength(roomSize, sampleRate float64) int32 {
	roomSize = min(max(roomSize, 0), 1)
	longest := float64(combTuning[numCombs-1]+stereoSpread) * sampleRate / 44100.0
	feedback := roomSize*scaleRoom + offsetRoom
	trips := 0.0
	for level := 1.0; level > 0.001; level *= feedback {
		trips++
	}
	return int32(longest * trips)
}

func clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
