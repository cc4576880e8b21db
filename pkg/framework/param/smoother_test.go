package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSmoother(t *testing.T) {
	t.Run("LinearSmoothing", func(t *testing.T) {
		smoother := NewSmoother(LinearSmoothing, 10) // 10 samples
		smoother.Reset(0.0)
		smoother.SetTarget(1.0)

		for i := 0; i < 10; i++ {
			assert.InDelta(t, float64(i+1)*0.1, smoother.Next(), 1e-9, "sample %d", i)
		}

		assert.Equal(t, 1.0, smoother.Next(), "should stay at target")
		assert.False(t, smoother.IsSmoothing())
	})

	t.Run("RetargetMidRamp", func(t *testing.T) {
		smoother := NewSmoother(LinearSmoothing, 4)
		smoother.Reset(0.0)
		smoother.SetTarget(1.0)
		smoother.Next()
		smoother.Next() // 0.5

		smoother.SetTarget(0.0)
		for i := 0; i < 4; i++ {
			smoother.Next()
		}
		assert.Equal(t, 0.0, smoother.Current())
	})

	t.Run("ZeroLengthRampJumps", func(t *testing.T) {
		smoother := NewSmoother(LinearSmoothing, 0)
		smoother.Reset(0.25)
		smoother.SetTarget(0.75)
		assert.False(t, smoother.IsSmoothing())
		assert.Equal(t, 0.75, smoother.Next())
	})

	t.Run("TinyChangeDoesNotRamp", func(t *testing.T) {
		smoother := NewSmoother(LinearSmoothing, 10)
		smoother.Reset(0.5)
		smoother.SetTarget(0.5 + 1e-9)
		assert.False(t, smoother.IsSmoothing())
	})

	t.Run("RampTime", func(t *testing.T) {
		smoother := NewSmoother(LinearSmoothing, 0)
		smoother.SetRampTime(44100, 0.01)
		smoother.Reset(0)
		smoother.SetTarget(1)

		n := 0
		for smoother.IsSmoothing() {
			smoother.Next()
			n++
		}
		assert.Equal(t, 441, n)
	})
}
