package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/justyntemme/vst3sampler/internal/conf"
	"github.com/justyntemme/vst3sampler/pkg/engine"
	"github.com/justyntemme/vst3sampler/pkg/framework/debug"
	"github.com/justyntemme/vst3sampler/pkg/sampler/library"
)

// app carries what every subcommand shares
type app struct {
	configFile string
	v          *viper.Viper
	settings   *conf.Settings
	log        *debug.Logger
}

func rootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "sampler",
		Short:         "Polyphonic sample player with reverb",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "Config file (default ./sampler.yaml)")
	flags.String("samples", "", "Sample directory")
	flags.Int("rate", 0, "Sample rate in Hz")
	flags.Int("block", 0, "Render block size in frames")
	flags.Int("channels", 0, "Output channels, 1 or 2")
	flags.Int("voices", 0, "Voice pool size")
	flags.String("log-level", "", "Log level: debug, info, warn, error or off")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		a.v = conf.New(a.configFile)
		for key, flag := range map[string]string{
			"samples.dir":      "samples",
			"audio.samplerate": "rate",
			"audio.blocksize":  "block",
			"audio.channels":   "channels",
			"engine.voices":    "voices",
			"log.level":        "log-level",
		} {
			// Only flags the user set override file and environment values
			if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
				if err := a.v.BindPFlag(key, f); err != nil {
					return fmt.Errorf("error binding flag %s: %w", flag, err)
				}
			}
		}

		settings, err := conf.Load(a.v)
		if err != nil {
			return err
		}
		a.settings = settings

		level, _ := debug.ParseLevel(settings.Log.Level)
		a.log = debug.New(os.Stderr, "", level)
		debug.SetDefault(a.log)
		if used := conf.ConfigFileUsed(a.v); used != "" {
			a.log.Debug("config loaded", "file", used)
		}
		return nil
	}

	rootCmd.AddCommand(
		samplesCommand(a),
		paramsCommand(a),
		renderCommand(a),
		playCommand(a),
	)
	return rootCmd
}

func (a *app) openLibrary() (*library.Library, error) {
	lib, err := library.Open(a.settings.Samples.Dir, a.settings.Samples.CacheTTL)
	if err != nil {
		return nil, err
	}
	lib.SetLogger(a.log.Module("library"))
	return lib, nil
}

// newEngine builds an initialized, active engine whose sample choices are
// the library's names. lib may be nil.
func (a *app) newEngine(lib *library.Library) (*engine.Engine, error) {
	cfg := engine.DefaultConfig()
	cfg.Voices = a.settings.Engine.Voices
	cfg.Channels = int32(a.settings.Audio.Channels)
	cfg.WetLevel = a.settings.Reverb.Wet
	cfg.DryLevel = a.settings.Reverb.Dry
	if lib != nil {
		cfg.SampleNames = lib.Names()
	}

	e, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := e.Initialize(float64(a.settings.Audio.SampleRate), int32(a.settings.Audio.BlockSize)); err != nil {
		e.Close()
		return nil, err
	}
	if err := e.SetActive(true); err != nil {
		e.Close()
		return nil, err
	}
	a.log.Debug("engine ready", "plugin", e.Info().String(), "rate", a.settings.Audio.SampleRate, "block", a.settings.Audio.BlockSize)
	return e, nil
}
