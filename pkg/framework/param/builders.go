package param

import (
	"fmt"
	"strconv"
	"strings"
)

// Choice creates a parameter builder for a list parameter. The plain value
// is the index into names.
func Choice(id uint32, name string, names []string) *Builder {
	options := append([]string(nil), names...)

	formatter := func(value float64) string {
		index := int(value + 0.5)
		if index >= 0 && index < len(options) {
			return options[index]
		}
		return "Unknown"
	}

	parser := func(str string) (float64, error) {
		trimmed := strings.TrimSpace(str)
		for i, opt := range options {
			if strings.EqualFold(trimmed, opt) {
				return float64(i), nil
			}
		}
		if index, err := strconv.Atoi(trimmed); err == nil && index >= 0 && index < len(options) {
			return float64(index), nil
		}
		return 0, fmt.Errorf("unknown option: %s", str)
	}

	maxVal := 0.0
	if len(options) > 1 {
		maxVal = float64(len(options) - 1)
	}

	b := New(id, name).
		Range(0, maxVal).
		Formatter(formatter, parser)
	b.param.Choices = options
	b.param.Flags |= IsList
	if len(options) > 1 {
		b.param.StepCount = int32(len(options) - 1)
	}
	return b
}

// DefaultIndex selects the default entry of a Choice parameter, clamped to
// the available options.
func (b *Builder) DefaultIndex(index int) *Builder {
	if n := len(b.param.Choices); index >= n {
		index = n - 1
	}
	if index < 0 {
		index = 0
	}
	return b.Default(float64(index))
}

// SecondsParameter creates a time parameter expressed in seconds
func SecondsParameter(id uint32, name string, minSec, maxSec, defaultSec float64) *Builder {
	return New(id, name).
		Range(minSec, maxSec).
		Default(defaultSec).
		Unit("s").
		Formatter(SecondsFormatter, SecondsParser)
}

// LevelParameter creates a 0-1 level parameter displayed as a percentage
func LevelParameter(id uint32, name string, defaultVal float64) *Builder {
	return New(id, name).
		Range(0, 1).
		Default(defaultVal).
		Unit("%").
		Formatter(PercentFormatter, PercentParser)
}
