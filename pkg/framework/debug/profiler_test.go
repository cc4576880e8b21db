package debug

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderProfiler(t *testing.T) {
	t.Run("Statistics", func(t *testing.T) {
		p := NewRenderProfiler(1000, 10)
		for _, ms := range []int{4, 1, 3, 2} {
			p.Record(time.Duration(ms)*time.Millisecond, 100)
		}

		assert.Equal(t, uint64(4), p.Count())
		assert.Equal(t, 2500*time.Microsecond, p.Average())
		assert.Equal(t, 4*time.Millisecond, p.Percentile(100))
		assert.Equal(t, 1*time.Millisecond, p.Percentile(0))
		// 10ms of work for 400ms of audio
		assert.InDelta(t, 2.5, p.Load(), 1e-9)
		assert.Contains(t, p.Report(), "blocks 4")
	})

	t.Run("RingOfRecentSamples", func(t *testing.T) {
		p := NewRenderProfiler(1000, 2)
		p.Record(10*time.Millisecond, 1)
		p.Record(1*time.Millisecond, 1)
		p.Record(2*time.Millisecond, 1)

		assert.Equal(t, 2*time.Millisecond, p.Percentile(100), "oldest sample was overwritten")
		assert.Equal(t, uint64(3), p.Count())
	})

	t.Run("StartStop", func(t *testing.T) {
		p := NewRenderProfiler(48000, 0)
		stop := p.Start(512)
		time.Sleep(time.Millisecond)
		stop()

		assert.Equal(t, uint64(1), p.Count())
		assert.GreaterOrEqual(t, p.Average(), time.Millisecond)
	})

	t.Run("Empty", func(t *testing.T) {
		p := NewRenderProfiler(48000, 4)
		assert.Zero(t, p.Average())
		assert.Zero(t, p.Load())
		assert.Zero(t, p.Percentile(50))
		assert.Equal(t, "No measurements recorded", p.Report())
	})

	t.Run("Reset", func(t *testing.T) {
		p := NewRenderProfiler(48000, 4)
		p.Record(time.Millisecond, 64)
		p.Reset()
		assert.Zero(t, p.Count())
		assert.Zero(t, p.Load())
	})

	t.Run("Concurrent", func(t *testing.T) {
		p := NewRenderProfiler(48000, 100)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					p.Record(time.Microsecond, 64)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, uint64(400), p.Count())
	})
}
