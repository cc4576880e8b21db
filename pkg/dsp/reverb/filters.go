// Package reverb provides the Freeverb reverberator used by the sampler.
package reverb

// combFilter is a feedback comb with a one-pole lowpass in the loop.
type combFilter struct {
	buffer      []float32
	index       int
	filterStore float32
}

func (c *combFilter) setSize(size int) {
	if size < 1 {
		size = 1
	}
	if cap(c.buffer) >= size {
		c.buffer = c.buffer[:size]
	} else {
		c.buffer = make([]float32, size)
	}
	c.reset()
}

// process runs one sample with the given damping and feedback coefficients.
func (c *combFilter) process(input, damp, feedback float32) float32 {
	output := c.buffer[c.index]
	c.filterStore = output*(1-damp) + c.filterStore*damp
	if c.filterStore < 1e-23 && c.filterStore > -1e-23 {
		c.filterStore = 0
	}

	c.buffer[c.index] = input + c.filterStore*feedback
	c.index++
	if c.index >= len(c.buffer) {
		c.index = 0
	}
	return output
}

func (c *combFilter) reset() {
	clear(c.buffer)
	c.index = 0
	c.filterStore = 0
}

// allPassFilter is a Schroeder allpass with fixed 0.5 feedback.
type allPassFilter struct {
	buffer []float32
	index  int
}

func (a *allPassFilter) setSize(size int) {
	if size < 1 {
		size = 1
	}
	if cap(a.buffer) >= size {
		a.buffer = a.buffer[:size]
	} else {
		a.buffer = make([]float32, size)
	}
	a.reset()
}

func (a *allPassFilter) process(input float32) float32 {
	buffered := a.buffer[a.index]
	next := input + buffered*0.5
	if next < 1e-23 && next > -1e-23 {
		next = 0
	}
	a.buffer[a.index] = next

	a.index++
	if a.index >= len(a.buffer) {
		a.index = 0
	}
	return buffered - input
}

func (a *allPassFilter) reset() {
	clear(a.buffer)
	a.index = 0
}
