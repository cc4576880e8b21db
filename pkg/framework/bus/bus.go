// Package bus describes the audio and event buses an instrument exposes to
// its host, and validates the output layouts the engine can render.
package bus

import (
	"errors"
	"fmt"
)

// ErrUnsupportedBusLayout is returned when a host asks for an output layout
// other than mono or stereo.
var ErrUnsupportedBusLayout = errors.New("unsupported bus layout")

// MediaType represents the type of bus
type MediaType int32

const (
	// MediaTypeAudio represents audio bus type
	MediaTypeAudio MediaType = 0
	// MediaTypeEvent represents event/MIDI bus type
	MediaTypeEvent MediaType = 1
)

// Direction represents the bus direction
type Direction int32

const (
	// DirectionInput represents input bus
	DirectionInput Direction = 0
	// DirectionOutput represents output bus
	DirectionOutput Direction = 1
)

// Info contains bus configuration
type Info struct {
	MediaType    MediaType
	Direction    Direction
	ChannelCount int32
	Name         string
	IsActive     bool
}

// Configuration manages audio and event buses
type Configuration struct {
	audioBuses []Info
	eventBuses []Info
}

// GetBusCount returns the number of buses for a given type and direction
func (c *Configuration) GetBusCount(mediaType MediaType, direction Direction) int32 {
	count := int32(0)
	for _, bus := range c.buses(mediaType) {
		if bus.Direction == direction {
			count++
		}
	}
	return count
}

// GetBusInfo returns information about a specific bus
func (c *Configuration) GetBusInfo(mediaType MediaType, direction Direction, index int32) *Info {
	buses := c.buses(mediaType)

	busIndex := int32(0)
	for i := range buses {
		if buses[i].Direction == direction {
			if busIndex == index {
				return &buses[i]
			}
			busIndex++
		}
	}
	return nil
}

// AcceptsMIDI reports whether there is an active event input
func (c *Configuration) AcceptsMIDI() bool {
	for _, bus := range c.eventBuses {
		if bus.Direction == DirectionInput && bus.IsActive {
			return true
		}
	}
	return false
}

// OutputChannels returns the channel count of the main audio output, or 0
// when there is none.
func (c *Configuration) OutputChannels() int32 {
	if out := c.GetBusInfo(MediaTypeAudio, DirectionOutput, 0); out != nil {
		return out.ChannelCount
	}
	return 0
}

// SetOutputChannels renegotiates the main output. Only mono and stereo are
// accepted; anything else leaves the configuration untouched.
func (c *Configuration) SetOutputChannels(channels int32) error {
	if err := ValidateOutputChannels(channels); err != nil {
		return err
	}
	out := c.GetBusInfo(MediaTypeAudio, DirectionOutput, 0)
	if out == nil {
		return fmt.Errorf("%w: no main output bus", ErrUnsupportedBusLayout)
	}
	out.ChannelCount = channels
	out.Name = outputName(channels)
	return nil
}

// ValidateOutputChannels accepts 1 or 2 channels
func ValidateOutputChannels(channels int32) error {
	if channels != 1 && channels != 2 {
		return fmt.Errorf("%w: %d output channels", ErrUnsupportedBusLayout, channels)
	}
	return nil
}

func (c *Configuration) buses(mediaType MediaType) []Info {
	if mediaType == MediaTypeEvent {
		return c.eventBuses
	}
	return c.audioBuses
}

func outputName(channels int32) string {
	if channels == 1 {
		return "Mono Out"
	}
	return "Stereo Out"
}
