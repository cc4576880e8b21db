package debug

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// RenderProfiler times render blocks and relates the time spent to the
// audio time produced. It is meant for offline renders and benchmarks on
// the control context; it locks and allocates.
type RenderProfiler struct {
	mu         sync.Mutex
	sampleRate float64
	maxSamples int

	count     uint64
	frames    uint64
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	samples   []time.Duration
	next      int
}

// NewRenderProfiler keeps the most recent maxSamples block timings for
// percentiles.
func NewRenderProfiler(sampleRate float64, maxSamples int) *RenderProfiler {
	if maxSamples <= 0 {
		maxSamples = 1000
	}
	return &RenderProfiler{
		sampleRate: sampleRate,
		maxSamples: maxSamples,
		samples:    make([]time.Duration, 0, maxSamples),
	}
}

// Start begins timing a block of frames. Call the returned func when the
// block is done.
func (p *RenderProfiler) Start(frames int) func() {
	start := time.Now()
	return func() {
		p.Record(time.Since(start), frames)
	}
}

// Record adds one block timing.
func (p *RenderProfiler) Record(elapsed time.Duration, frames int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.count == 0 || elapsed < p.minTime {
		p.minTime = elapsed
	}
	if elapsed > p.maxTime {
		p.maxTime = elapsed
	}
	p.count++
	p.frames += uint64(frames)
	p.totalTime += elapsed

	if len(p.samples) < p.maxSamples {
		p.samples = append(p.samples, elapsed)
	} else {
		p.samples[p.next] = elapsed
		p.next = (p.next + 1) % p.maxSamples
	}
}

// Count returns the number of recorded blocks.
func (p *RenderProfiler) Count() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Average returns the mean block time.
func (p *RenderProfiler) Average() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.count == 0 {
		return 0
	}
	return p.totalTime / time.Duration(p.count)
}

// Percentile returns the given percentile (0-100) of recent block times.
func (p *RenderProfiler) Percentile(pct float64) time.Duration {
	p.mu.Lock()
	sorted := slices.Clone(p.samples)
	p.mu.Unlock()

	if len(sorted) == 0 {
		return 0
	}
	slices.Sort(sorted)
	pct = min(max(pct, 0), 100)
	return sorted[int(float64(len(sorted)-1)*pct/100.0)]
}

// Load returns processing time as a percentage of the audio time rendered.
// 100% means rendering only just keeps up with real time.
func (p *RenderProfiler) Load() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frames == 0 || p.sampleRate <= 0 {
		return 0
	}
	audio := float64(p.frames) / p.sampleRate
	return p.totalTime.Seconds() / audio * 100
}

// Report renders a short human readable summary.
func (p *RenderProfiler) Report() string {
	if p.Count() == 0 {
		return "No measurements recorded"
	}
	p.mu.Lock()
	count, minT, maxT := p.count, p.minTime, p.maxTime
	p.mu.Unlock()

	return fmt.Sprintf("blocks %d, avg %v, min %v, max %v, p99 %v, load %.2f%%",
		count, p.Average(), minT, maxT, p.Percentile(99), p.Load())
}

// Reset clears all measurements.
func (p *RenderProfiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count, p.frames, p.totalTime = 0, 0, 0
	p.minTime, p.maxTime = 0, 0
	p.samples = p.samples[:0]
	p.next = 0
}
