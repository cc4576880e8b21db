// Package param provides the parameter store: declared, atomically readable
// parameters, their registry, and per-sample smoothing for DSP coefficients.
package param

import (
	"math"
)

// SmoothingType defines different parameter smoothing algorithms.
type SmoothingType int

const (
	// LinearSmoothing ramps linearly over a fixed number of samples
	LinearSmoothing SmoothingType = iota
)

// smoothingThreshold is the smallest target change that starts a ramp
const smoothingThreshold = 1e-6

// Smoother provides parameter smoothing to prevent zipper noise.
// It is plain state owned by one goroutine; the render context uses it for
// coefficients it recomputes once per block.
type Smoother struct {
	smoothingType SmoothingType
	current       float64
	target        float64
	rate          float64
	isSmoothing   bool

	// For linear smoothing
	step      float64
	remaining int
}

// NewSmoother creates a new parameter smoother. rate is the ramp length
// in samples.
func NewSmoother(smoothingType SmoothingType, rate float64) *Smoother {
	return &Smoother{
		smoothingType: smoothingType,
		rate:          rate,
	}
}

// SetTarget sets the target value for smoothing.
func (s *Smoother) SetTarget(target float64) {
	if math.Abs(target-s.target) < smoothingThreshold {
		return
	}

	s.target = target

	switch s.smoothingType {
	case LinearSmoothing:
		s.remaining = int(s.rate)
		if s.remaining <= 0 {
			s.current = target
			s.isSmoothing = false
			return
		}
		s.step = (target - s.current) / float64(s.remaining)
	}
	s.isSmoothing = true
}

// Next returns the next smoothed value.
func (s *Smoother) Next() float64 {
	if !s.isSmoothing {
		return s.current
	}

	switch s.smoothingType {
	case LinearSmoothing:
		s.remaining--
		if s.remaining <= 0 {
			s.current = s.target
			s.isSmoothing = false
		} else {
			s.current += s.step
		}
	}

	return s.current
}

// Current returns the value without advancing.
func (s *Smoother) Current() float64 {
	return s.current
}

// Target returns the value being approached.
func (s *Smoother) Target() float64 {
	return s.target
}

// IsSmoothing returns true if the smoother is currently smoothing.
func (s *Smoother) IsSmoothing() bool {
	return s.isSmoothing
}

// Reset jumps to a specific value.
func (s *Smoother) Reset(value float64) {
	s.current = value
	s.target = value
	s.remaining = 0
	s.isSmoothing = false
}

// SetRampTime configures a linear smoother for a ramp of the given length.
func (s *Smoother) SetRampTime(sampleRate, seconds float64) {
	switch s.smoothingType {
	case LinearSmoothing:
		s.rate = math.Floor(sampleRate * seconds)
	}
}
