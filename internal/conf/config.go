// Package conf loads the sampler's settings from sampler.yaml, SAMPLER_*
// environment variables and command-line flags.
package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigName is the config file name without extension
const ConfigName = "sampler"

// EnvPrefix prefixes environment overrides, e.g. SAMPLER_AUDIO_SAMPLERATE
const EnvPrefix = "SAMPLER"

// Settings is the complete configuration
type Settings struct {
	Audio struct {
		SampleRate int    // output sample rate in Hz
		BlockSize  int    // frames per render block
		Channels   int    // 1 or 2
		Backend    string // oto, malgo or null
		Buffered   int    // blocks queued ahead of the device
	}

	Samples struct {
		Dir      string        // directory of .wav and .flac files
		CacheTTL time.Duration // decoded sample cache lifetime, 0 keeps forever
	}

	Engine struct {
		Voices int
	}

	Reverb struct {
		Wet float64
		Dry float64
	}

	HTTP struct {
		Enabled bool
		Listen  string
	}

	Log struct {
		Level string
	}
}

// New returns a viper instance with defaults, the config search path and
// environment overrides set up. Callers may bind flags before Load.
func New(configFile string) *viper.Viper {
	v := viper.New()
	setDefaultConfig(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/sampler")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file, if any, and returns validated settings. A
// missing file is not an error when no file was named explicitly.
func Load(v *viper.Viper) (*Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}
	return settings, nil
}

// ConfigFileUsed returns the path of the file Load read, or ""
func ConfigFileUsed(v *viper.Viper) string {
	return v.ConfigFileUsed()
}
