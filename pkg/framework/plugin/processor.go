// Package plugin defines the host-facing surface of an instrument: its
// metadata, the Processor contract a host drives, and a base that handles
// the bookkeeping shared by every processor.
package plugin

import (
	"github.com/justyntemme/vst3sampler/pkg/framework/bus"
	"github.com/justyntemme/vst3sampler/pkg/framework/param"
	"github.com/justyntemme/vst3sampler/pkg/framework/process"
)

// Processor handles the actual audio processing
type Processor interface {
	// Initialize is called before processing starts and whenever the
	// sample rate or maximum block size changes
	Initialize(sampleRate float64, maxBlockSize int32) error

	// ProcessAudio renders one block - ZERO ALLOCATIONS!
	ProcessAudio(ctx *process.Context)

	// GetParameters returns the parameter registry
	GetParameters() *param.Registry

	// GetBuses returns the bus configuration
	GetBuses() *bus.Configuration

	// SetActive is called when processing starts/stops
	SetActive(active bool) error

	// GetLatencySamples returns the plugin's latency in samples
	GetLatencySamples() int32

	// GetTailSamples returns the tail length in samples
	GetTailSamples() int32
}

// BaseProcessor provides common functionality for audio processors
type BaseProcessor struct {
	params       *param.Registry
	buses        *bus.Configuration
	sampleRate   float64
	maxBlockSize int32
	active       bool

	// Optional callbacks for customization
	onInitialize func(sampleRate float64, maxBlockSize int32) error
	onSetActive  func(active bool) error
	onReset      func()
}

// NewBaseProcessor creates a new base processor with the given bus configuration
func NewBaseProcessor(buses *bus.Configuration) *BaseProcessor {
	if buses == nil {
		buses = bus.NewStereoInstrument()
	}

	return &BaseProcessor{
		params: param.NewRegistry(),
		buses:  buses,
	}
}

// Initialize implements the Processor interface
func (b *BaseProcessor) Initialize(sampleRate float64, maxBlockSize int32) error {
	b.sampleRate = sampleRate
	b.maxBlockSize = maxBlockSize

	if b.onInitialize != nil {
		return b.onInitialize(sampleRate, maxBlockSize)
	}
	return nil
}

// GetParameters implements the Processor interface
func (b *BaseProcessor) GetParameters() *param.Registry {
	return b.params
}

// GetBuses implements the Processor interface
func (b *BaseProcessor) GetBuses() *bus.Configuration {
	return b.buses
}

// ConfigureOutput renegotiates the main output width. Only mono and stereo
// are accepted; the error wraps bus.ErrUnsupportedBusLayout.
func (b *BaseProcessor) ConfigureOutput(channels int32) error {
	return b.buses.SetOutputChannels(channels)
}

// SetActive implements the Processor interface. Deactivation runs the reset
// callback before the activation callback.
func (b *BaseProcessor) SetActive(active bool) error {
	if !active && b.onReset != nil {
		b.onReset()
	}
	b.active = active

	if b.onSetActive != nil {
		return b.onSetActive(active)
	}
	return nil
}

// IsActive reports the last SetActive state
func (b *BaseProcessor) IsActive() bool {
	return b.active
}

// GetLatencySamples implements the Processor interface - default no latency
func (b *BaseProcessor) GetLatencySamples() int32 {
	return 0
}

// GetTailSamples implements the Processor interface - default no tail
func (b *BaseProcessor) GetTailSamples() int32 {
	return 0
}

// SampleRate returns the current sample rate
func (b *BaseProcessor) SampleRate() float64 {
	return b.sampleRate
}

// MaxBlockSize returns the largest block Initialize announced
func (b *BaseProcessor) MaxBlockSize() int32 {
	return b.maxBlockSize
}

// OnInitialize sets a callback for initialization
func (b *BaseProcessor) OnInitialize(fn func(sampleRate float64, maxBlockSize int32) error) {
	b.onInitialize = fn
}

// OnSetActive sets a callback for activation/deactivation
func (b *BaseProcessor) OnSetActive(fn func(active bool) error) {
	b.onSetActive = fn
}

// OnReset sets a callback for when the processor should reset its state
func (b *BaseProcessor) OnReset(fn func()) {
	b.onReset = fn
}
