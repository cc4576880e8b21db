package debug

import (
	"fmt"
	"math"
)

// AudioAnalyzer collects level statistics over rendered audio.
type AudioAnalyzer struct {
	clippingThreshold float32
	dcThreshold       float32
	silenceThreshold  float32
}

// NewAudioAnalyzer creates a new audio analyzer with default settings.
func NewAudioAnalyzer() *AudioAnalyzer {
	return &AudioAnalyzer{
		clippingThreshold: 0.99,
		dcThreshold:       0.01,
		silenceThreshold:  0.0001,
	}
}

// AnalysisResult contains the results of audio buffer analysis.
type AnalysisResult struct {
	Samples        int
	Peak           float32
	RMS            float32
	DC             float32
	Clipping       bool
	ClippedSamples int
	Silent         bool
	HasNaN         bool
	NaNCount       int
	ZeroCrossings  int

	dcExcess bool
}

// Analyze inspects a single buffer.
func (a *AudioAnalyzer) Analyze(buffer []float32) AnalysisResult {
	return a.AnalyzeChannels([][]float32{buffer})
}

// AnalyzeChannels inspects every channel of a render and reports the
// combined figures. Zero crossings are counted per channel and summed.
func (a *AudioAnalyzer) AnalyzeChannels(channels [][]float32) AnalysisResult {
	var result AnalysisResult
	var sum, sumSquares float64
	counted := 0

	for _, buffer := range channels {
		var last float32
		first := true
		for _, sample := range buffer {
			result.Samples++
			if math.IsNaN(float64(sample)) {
				result.HasNaN = true
				result.NaNCount++
				continue
			}

			abs := sample
			if abs < 0 {
				abs = -abs
			}
			if abs > result.Peak {
				result.Peak = abs
			}
			if abs >= a.clippingThreshold {
				result.Clipping = true
				result.ClippedSamples++
			}

			sum += float64(sample)
			sumSquares += float64(sample) * float64(sample)
			counted++

			if !first && (last < 0) != (sample < 0) {
				result.ZeroCrossings++
			}
			last = sample
			first = false
		}
	}

	if counted == 0 {
		result.Silent = true
		return result
	}

	result.RMS = float32(math.Sqrt(sumSquares / float64(counted)))
	result.DC = float32(sum / float64(counted))
	result.Silent = result.RMS < a.silenceThreshold
	result.dcExcess = math.Abs(float64(result.DC)) > float64(a.dcThreshold)
	return result
}

// PeakDB returns the peak level in dBFS, or -Inf for silence.
func (r AnalysisResult) PeakDB() float64 {
	if r.Peak <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(float64(r.Peak))
}

// Issues lists the problems found in the analysed audio, prefixed by name.
func (r AnalysisResult) Issues(name string) []string {
	var issues []string

	if r.HasNaN {
		issues = append(issues, fmt.Sprintf("%s: contains %d NaN values", name, r.NaNCount))
	}
	if r.Clipping {
		issues = append(issues, fmt.Sprintf("%s: clipping detected (%d samples)", name, r.ClippedSamples))
	}
	if r.dcExcess {
		issues = append(issues, fmt.Sprintf("%s: DC offset detected (%.3f)", name, r.DC))
	}
	if r.Peak > 1.0 {
		issues = append(issues, fmt.Sprintf("%s: peak exceeds 1.0 (%.3f)", name, r.Peak))
	}
	return issues
}

// LogBufferStats logs the figures of a result and a warning per issue.
func LogBufferStats(logger *Logger, name string, r AnalysisResult) {
	logger.Info("audio stats",
		"buffer", name,
		"samples", r.Samples,
		"peak", r.Peak,
		"peak_db", r.PeakDB(),
		"rms", r.RMS,
		"silent", r.Silent,
	)
	for _, issue := range r.Issues(name) {
		logger.Warn(issue)
	}
}
