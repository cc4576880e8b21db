// Package process carries one render block between the host side and the
// engine: output buffers, block-local MIDI events and the sample rate.
package process

import (
	"github.com/justyntemme/vst3sampler/pkg/midi"
)

// DefaultMaxEvents bounds the block-local event list owned by a Context
const DefaultMaxEvents = 512

// Context provides a clean API for audio processing with zero allocations.
//
// Hosts either fill Output and Events directly or use a Context created by
// NewContext, whose Begin reslices preallocated storage for each block.
type Context struct {
	Output     [][]float32
	Events     []midi.Event
	SampleRate float64

	// Preallocated storage backing Output and Events
	buffers [][]float32
	events  []midi.Event
}

// NewContext creates a context owning channels output buffers of
// maxBlockSize frames and room for DefaultMaxEvents events.
func NewContext(channels, maxBlockSize int, sampleRate float64) *Context {
	c := &Context{
		SampleRate: sampleRate,
		buffers:    make([][]float32, channels),
		events:     make([]midi.Event, 0, DefaultMaxEvents),
	}
	for ch := range c.buffers {
		c.buffers[ch] = make([]float32, maxBlockSize)
	}
	c.Output = make([][]float32, channels)
	c.Begin(0)
	return c
}

// Begin starts a block of numSamples frames on the owned storage and
// empties the event list. numSamples is clamped to the buffer size.
func (c *Context) Begin(numSamples int) {
	for ch, buf := range c.buffers {
		n := min(max(numSamples, 0), len(buf))
		c.Output[ch] = buf[:n]
	}
	c.Events = c.events[:0]
}

// AddEvent appends an event for the current block. It reports false when
// the event list is full.
func (c *Context) AddEvent(e midi.Event) bool {
	if len(c.Events) == cap(c.Events) {
		return false
	}
	c.Events = append(c.Events, e)
	return true
}

// MaxBlockSize returns the owned buffer length, or 0 for host-filled contexts
func (c *Context) MaxBlockSize() int {
	if len(c.buffers) == 0 {
		return 0
	}
	return len(c.buffers[0])
}

// NumSamples returns the number of samples to process
func (c *Context) NumSamples() int {
	if len(c.Output) > 0 {
		return len(c.Output[0])
	}
	return 0
}

// NumOutputChannels returns the number of output channels
func (c *Context) NumOutputChannels() int {
	return len(c.Output)
}

// Clear zeros the output buffers
func (c *Context) Clear() {
	for ch := range c.Output {
		clear(c.Output[ch])
	}
}

// ConsumeEvents marks the block's input events as handled
func (c *Context) ConsumeEvents() {
	c.Events = c.Events[:0]
}
