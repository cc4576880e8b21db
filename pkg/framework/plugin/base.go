package plugin

import (
	"io"

	"github.com/justyntemme/vst3sampler/pkg/framework/state"
)

// Base ties a processor to its metadata and its persisted state. It is what
// a host shell (or the CLI) holds on to.
type Base struct {
	Info      Info
	Processor Processor
	state     *state.Manager
}

// NewBase creates a new plugin base
func NewBase(info Info, processor Processor) *Base {
	return &Base{
		Info:      info,
		Processor: processor,
		state:     state.NewManager(processor.GetParameters()),
	}
}

// State returns the state manager over the processor's parameters
func (b *Base) State() *state.Manager {
	return b.state
}

// GetState writes the processor's parameter state blob
func (b *Base) GetState(w io.Writer) error {
	return b.state.Save(w)
}

// SetState restores a parameter state blob. A malformed blob leaves every
// parameter at its default and returns an error wrapping
// state.ErrMalformedState.
func (b *Base) SetState(r io.Reader) error {
	return b.state.Load(r)
}
