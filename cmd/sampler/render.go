package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/justyntemme/vst3sampler/pkg/engine"
	"github.com/justyntemme/vst3sampler/pkg/framework/debug"
	"github.com/justyntemme/vst3sampler/pkg/framework/plugin"
	"github.com/justyntemme/vst3sampler/pkg/framework/state"
	"github.com/justyntemme/vst3sampler/pkg/sampler/decode"
)

type renderOptions struct {
	score     string
	out       string
	preset    string
	saveState string
	bits      int
	profile   bool
}

func renderCommand(a *app) *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a YAML score to a WAV file",
		Long: `Render plays a score through the engine offline, block by block, and
writes the result as WAV. The same score and settings always produce the
same file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.render(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.score, "score", "s", "", "YAML score to play")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "WAV file to write")
	cmd.Flags().StringVar(&opts.preset, "state", "", "YAML preset applied before the score")
	cmd.Flags().StringVar(&opts.saveState, "save-state", "", "Write the final parameter state blob to this file")
	cmd.Flags().IntVar(&opts.bits, "bits", 16, "Output bit depth, 16 or 24")
	cmd.Flags().BoolVar(&opts.profile, "profile", false, "Report render timing and output levels")
	_ = cmd.MarkFlagRequired("score")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func (a *app) render(cmd *cobra.Command, opts renderOptions) error {
	if opts.bits != 16 && opts.bits != 24 {
		return fmt.Errorf("unsupported bit depth %d", opts.bits)
	}

	score, err := LoadScoreFile(opts.score)
	if err != nil {
		return err
	}

	lib, err := a.openLibrary()
	if err != nil {
		return err
	}
	e, err := a.newEngine(lib)
	if err != nil {
		return err
	}
	defer e.Close()

	base := plugin.NewBase(e.Info(), e)
	base.State().SetLogger(a.log.Module("state"))
	if opts.preset != "" {
		if err := applyPresetFile(base, opts.preset); err != nil {
			return err
		}
	}
	if err := applyScoreSettings(base, score); err != nil {
		return err
	}

	// Load synchronously so the first block already has the sample
	loader := engine.NewLoader(e, lib)
	loader.SetLogger(a.log.Module("loader"))
	err = loader.Load(e.CurrentSample())
	loader.Close()
	if err != nil {
		return err
	}

	var prof *debug.RenderProfiler
	if opts.profile {
		prof = debug.NewRenderProfiler(e.SampleRate(), 4096)
	}

	pcm := renderScore(e, score, a.settings.Audio.BlockSize, prof)

	f, err := os.Create(opts.out)
	if err != nil {
		return err
	}
	if err := decode.EncodeWAV(f, pcm, opts.bits); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if opts.saveState != "" {
		if err := saveStateFile(base, opts.saveState); err != nil {
			return err
		}
	}

	stats := e.Stats().Snapshot()
	a.log.Info("render complete",
		"out", opts.out,
		"frames", len(pcm.Channels[0]),
		"notes", stats.NotesStarted,
		"stolen", stats.NotesStolen)

	if prof != nil {
		fmt.Fprintln(cmd.OutOrStdout(), prof.Report())
		debug.LogBufferStats(a.log, "output", debug.NewAudioAnalyzer().AnalyzeChannels(pcm.Channels))
	}
	return nil
}

// applyScoreSettings applies the score's parameters, then its sample
// selection by name
func applyScoreSettings(b *plugin.Base, s *Score) error {
	if len(s.Params) > 0 {
		if err := b.State().Apply(state.Preset{Name: "score", Params: s.Params}); err != nil {
			return err
		}
	}
	if s.Sample != "" {
		return b.Processor.GetParameters().SetString(engine.KeyCurrentSample, s.Sample)
	}
	return nil
}

func saveStateFile(b *plugin.Base, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := b.GetState(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
