package bus

import (
	"fmt"
)

// Builder provides a fluent API for building bus configurations
type Builder struct {
	config *Configuration
}

// NewBuilder creates a new bus configuration builder
func NewBuilder() *Builder {
	return &Builder{config: &Configuration{}}
}

// WithAudioOutput adds an audio output bus
func (b *Builder) WithAudioOutput(name string, channels int32) *Builder {
	b.config.audioBuses = append(b.config.audioBuses, Info{
		MediaType:    MediaTypeAudio,
		Direction:    DirectionOutput,
		ChannelCount: channels,
		Name:         name,
		IsActive:     true,
	})
	return b
}

// WithEventInput adds an event (MIDI) input bus
func (b *Builder) WithEventInput(name string) *Builder {
	b.config.eventBuses = append(b.config.eventBuses, Info{
		MediaType:    MediaTypeEvent,
		Direction:    DirectionInput,
		ChannelCount: 1,
		Name:         name,
		IsActive:     true,
	})
	return b
}

// Validate checks that the configuration has exactly one mono or stereo
// audio output.
func (b *Builder) Validate() error {
	outputs := b.config.GetBusCount(MediaTypeAudio, DirectionOutput)
	if outputs != 1 {
		return fmt.Errorf("%w: %d audio outputs", ErrUnsupportedBusLayout, outputs)
	}
	return ValidateOutputChannels(b.config.OutputChannels())
}

// Build returns the built configuration or an error
func (b *Builder) Build() (*Configuration, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b.config, nil
}

// MustBuild returns the built configuration or panics on error
func (b *Builder) MustBuild() *Configuration {
	config, err := b.Build()
	if err != nil {
		panic(err)
	}
	return config
}
