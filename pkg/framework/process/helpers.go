package process

import (
	"github.com/justyntemme/vst3sampler/pkg/midi"
)

// SortEvents orders the block's events by sample offset, keeping arrival
// order for events at the same offset. Offsets outside the block are
// clamped first so every event is applied.
func (c *Context) SortEvents() {
	last := int32(c.NumSamples() - 1)
	for i := range c.Events {
		switch {
		case c.Events[i].Offset < 0 || last < 0:
			c.Events[i].Offset = 0
		case c.Events[i].Offset > last:
			c.Events[i].Offset = last
		}
	}
	midi.SortByOffset(c.Events)
}

// Peak returns the largest absolute sample across all output channels
func (c *Context) Peak() float32 {
	var peak float32
	for _, buf := range c.Output {
		for _, s := range buf {
			if s < 0 {
				s = -s
			}
			if s > peak {
				peak = s
			}
		}
	}
	return peak
}

// Interleave writes the block into dst as interleaved frames and returns
// the number of samples written.
func (c *Context) Interleave(dst []float32) int {
	channels := len(c.Output)
	n := min(c.NumSamples(), len(dst)/max(channels, 1))
	for i := 0; i < n; i++ {
		for ch := 0; ch < channels; ch++ {
			dst[i*channels+ch] = c.Output[ch][i]
		}
	}
	return n * channels
}
