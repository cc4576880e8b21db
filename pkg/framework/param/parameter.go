package param

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

// Parameter represents a host-automatable engine parameter.
//
// The value is kept normalized (0-1) in a single atomic word so the render
// context can read it without locking and never observe a torn write.
type Parameter struct {
	ID           uint32
	Key          string // Stable identifier used by state blobs and the control API
	Name         string
	ShortName    string
	Unit         string
	Min          float64
	Max          float64
	DefaultValue float64 // normalized
	StepCount    int32
	Flags        uint32
	Choices      []string

	value atomic.Uint64

	// Value formatting
	formatFunc func(float64) string
	parseFunc  func(string) (float64, error)
}

// Flags for parameters
const (
	CanAutomate     uint32 = 1 << 0
	IsReadOnly      uint32 = 1 << 1
	IsWrapAround    uint32 = 1 << 2
	IsList          uint32 = 1 << 3
	IsHidden        uint32 = 1 << 4
	IsProgramChange uint32 = 1 << 15
	IsBypass        uint32 = 1 << 16
)

// GetValue returns the current normalized value (0-1)
func (p *Parameter) GetValue() float64 {
	return math.Float64frombits(p.value.Load())
}

// SetValue sets the normalized value (0-1). Out of range values are clamped
// and discrete parameters snap to the nearest step.
func (p *Parameter) SetValue(value float64) {
	if math.IsNaN(value) {
		value = p.DefaultValue
	}
	if value < 0 {
		value = 0
	} else if value > 1 {
		value = 1
	}
	if p.StepCount > 0 {
		steps := float64(p.StepCount)
		value = math.Round(value*steps) / steps
	}

	p.value.Store(math.Float64bits(value))
}

// GetPlainValue converts normalized to plain value
func (p *Parameter) GetPlainValue() float64 {
	return p.Denormalize(p.GetValue())
}

// SetPlainValue converts plain to normalized value
func (p *Parameter) SetPlainValue(plain float64) {
	if p.Max <= p.Min {
		p.SetValue(0)
		return
	}
	p.SetValue(p.Normalize(plain))
}

// Plain is shorthand for GetPlainValue.
func (p *Parameter) Plain() float64 {
	return p.GetPlainValue()
}

// Index returns the selected entry of a discrete parameter.
func (p *Parameter) Index() int {
	return int(math.Round(p.GetPlainValue()))
}

// Bool reports whether a toggle parameter is on.
func (p *Parameter) Bool() bool {
	return p.GetValue() >= 0.5
}

// DefaultPlain returns the default value in the plain range.
func (p *Parameter) DefaultPlain() float64 {
	return p.Denormalize(p.DefaultValue)
}

// Reset restores the default value.
func (p *Parameter) Reset() {
	p.SetValue(p.DefaultValue)
}

// IsChoice reports whether the parameter selects from a named list.
func (p *Parameter) IsChoice() bool {
	return p.Flags&IsList != 0
}

// IsToggle reports whether the parameter is an on/off switch.
func (p *Parameter) IsToggle() bool {
	return !p.IsChoice() && p.StepCount == 1 && p.Min == 0 && p.Max == 1
}

// SetFormatter sets custom value formatting
func (p *Parameter) SetFormatter(format func(float64) string, parse func(string) (float64, error)) {
	p.formatFunc = format
	p.parseFunc = parse
}

// FormatValue returns formatted parameter value
func (p *Parameter) FormatValue(normalized float64) string {
	plain := p.Denormalize(normalized)

	if p.formatFunc != nil {
		return p.formatFunc(plain)
	}

	if p.StepCount > 0 {
		return fmt.Sprintf("%.0f", plain)
	}
	return fmt.Sprintf("%.2f", plain)
}

// ParseValue parses string to normalized value
func (p *Parameter) ParseValue(str string) (float64, error) {
	if p.parseFunc != nil {
		plain, err := p.parseFunc(str)
		if err != nil {
			return 0, err
		}
		return p.Normalize(plain), nil
	}
	plain, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, err
	}
	return p.Normalize(plain), nil
}

// Normalize converts plain value to normalized (0-1)
func (p *Parameter) Normalize(plain float64) float64 {
	if p.Max <= p.Min {
		return 0
	}
	normalized := (plain - p.Min) / (p.Max - p.Min)
	if normalized < 0 {
		return 0
	}
	if normalized > 1 {
		return 1
	}
	return normalized
}

// Denormalize converts normalized (0-1) to plain value
func (p *Parameter) Denormalize(normalized float64) float64 {
	return p.Min + normalized*(p.Max-p.Min)
}
