package engine

import (
	"sync/atomic"

	"github.com/justyntemme/vst3sampler/pkg/dsp/envelope"
	"github.com/justyntemme/vst3sampler/pkg/framework/param"
	"github.com/justyntemme/vst3sampler/pkg/sampler"
)

// DirtyFlag signals that control-context state changed and the render
// context has not applied it yet. Any number of Marks before a Consume
// collapse into one.
type DirtyFlag struct {
	v atomic.Bool
}

// Mark sets the flag
func (f *DirtyFlag) Mark() {
	f.v.Store(true)
}

// Consume clears the flag and reports whether it was set
func (f *DirtyFlag) Consume() bool {
	return f.v.Swap(false)
}

// IsDirty reports the flag without clearing it
func (f *DirtyFlag) IsDirty() bool {
	return f.v.Load()
}

// PendingSlot hands at most one asset from the loader to the render
// context. The slot owns one reference to whatever it holds.
type PendingSlot struct {
	p atomic.Pointer[sampler.Asset]
}

// Publish stores a, taking over the caller's reference. An asset that was
// still waiting is displaced and released.
func (s *PendingSlot) Publish(a *sampler.Asset) {
	if old := s.p.Swap(a); old != nil {
		old.Release()
	}
}

// Take empties the slot and hands its reference to the caller. It returns
// nil when nothing is pending.
func (s *PendingSlot) Take() *sampler.Asset {
	return s.p.Swap(nil)
}

// Pending reports whether an asset is waiting
func (s *PendingSlot) Pending() bool {
	return s.p.Load() != nil
}

// Discard releases a waiting asset, if any
func (s *PendingSlot) Discard() {
	if a := s.Take(); a != nil {
		a.Release()
	}
}

// adsrParams are the four latched envelope parameters
type adsrParams struct {
	attack, decay, sustain, release *param.Parameter
}

func (p adsrParams) read() envelope.Parameters {
	return envelope.Parameters{
		Attack:  p.attack.Plain(),
		Decay:   p.decay.Plain(),
		Sustain: p.sustain.Plain(),
		Release: p.release.Plain(),
	}
}

// Coordinator applies latched updates at block boundaries. The control
// context marks flags and publishes assets; Apply runs at the start of
// every render block.
type Coordinator struct {
	adsrDirty   DirtyFlag
	sampleDirty DirtyFlag
	slot        PendingSlot

	adsr adsrParams
	pool *sampler.Pool
}

func newCoordinator(pool *sampler.Pool, adsr adsrParams) *Coordinator {
	return &Coordinator{pool: pool, adsr: adsr}
}

// MarkADSR requests that the envelope parameters be re-read next block
func (c *Coordinator) MarkADSR() {
	c.adsrDirty.Mark()
}

// PublishSample queues a for binding at the next block. The coordinator
// takes over the caller's reference.
func (c *Coordinator) PublishSample(a *sampler.Asset) {
	c.slot.Publish(a)
	c.sampleDirty.Mark()
}

// Pending reports whether any update is waiting for the next block
func (c *Coordinator) Pending() bool {
	return c.adsrDirty.IsDirty() || c.sampleDirty.IsDirty()
}

// Apply consumes the dirty flags. A pending asset becomes the pool's
// binding for new notes, and the envelope is re-read in the same block so
// the new binding starts with current values. Voices already playing keep
// their own asset reference. It reports whether an asset was swapped in.
//
// Render context only.
func (c *Coordinator) Apply() (swapped bool) {
	if c.sampleDirty.Consume() {
		if a := c.slot.Take(); a != nil {
			c.pool.Bind(a)
			c.adsrDirty.Mark()
			swapped = true
		}
	}
	if c.adsrDirty.Consume() {
		c.pool.SetEnvelope(c.adsr.read())
	}
	return swapped
}

// discard drops anything waiting. Control context, while not rendering.
func (c *Coordinator) discard() {
	c.slot.Discard()
	c.sampleDirty.Consume()
}
