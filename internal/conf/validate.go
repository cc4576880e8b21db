package conf

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/justyntemme/vst3sampler/pkg/framework/debug"
	"github.com/justyntemme/vst3sampler/pkg/output"
)

// ValidationError collects every invalid setting
type ValidationError struct {
	Errors []string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(e.Errors, "; "))
}

// ValidateSettings checks every section and reports all problems at once
func ValidateSettings(s *Settings) error {
	var ve ValidationError

	add := func(format string, args ...any) {
		ve.Errors = append(ve.Errors, fmt.Sprintf(format, args...))
	}

	if s.Audio.SampleRate < 8000 || s.Audio.SampleRate > 192000 {
		add("audio.samplerate %d outside 8000..192000", s.Audio.SampleRate)
	}
	if s.Audio.BlockSize < 16 || s.Audio.BlockSize > 8192 {
		add("audio.blocksize %d outside 16..8192", s.Audio.BlockSize)
	}
	if s.Audio.Channels != 1 && s.Audio.Channels != 2 {
		add("audio.channels must be 1 or 2, got %d", s.Audio.Channels)
	}
	if !slices.Contains(output.Backends, strings.ToLower(s.Audio.Backend)) {
		add("audio.backend %q is not one of %s", s.Audio.Backend, strings.Join(output.Backends, ", "))
	}
	if s.Audio.Buffered < 1 {
		add("audio.buffered must be at least 1")
	}

	if s.Samples.Dir == "" {
		add("samples.dir is required")
	}
	if s.Samples.CacheTTL < 0 {
		add("samples.cachettl must not be negative")
	}

	if s.Engine.Voices < 1 || s.Engine.Voices > 128 {
		add("engine.voices %d outside 1..128", s.Engine.Voices)
	}

	for name, v := range map[string]float64{"reverb.wet": s.Reverb.Wet, "reverb.dry": s.Reverb.Dry} {
		if v < 0 || v > 1 {
			add("%s %v outside 0..1", name, v)
		}
	}

	if s.HTTP.Enabled && s.HTTP.Listen == "" {
		add("http.listen is required when http is enabled")
	}

	if _, err := debug.ParseLevel(s.Log.Level); err != nil {
		add("log.level: %v", err)
	}

	if len(ve.Errors) > 0 {
		slices.Sort(ve.Errors)
		return ve
	}
	return nil
}

// IsValidationError reports whether err carries a ValidationError
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
