package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/justyntemme/vst3sampler/pkg/framework/plugin"
	"github.com/justyntemme/vst3sampler/pkg/framework/state"
	"github.com/justyntemme/vst3sampler/pkg/midi"
)

func samplesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "samples",
		Short: "List the sample library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lib, err := a.openLibrary()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tNAME\tROOT\tPATH")
			for i, e := range lib.Entries() {
				fmt.Fprintf(w, "%d\t%s\t%s (%d)\t%s\n", i, e.Name, midi.NoteNumberToName(e.RootNote), e.RootNote, e.Path)
			}
			return w.Flush()
		},
	}
}

func paramsCommand(a *app) *cobra.Command {
	var presetFile string

	cmd := &cobra.Command{
		Use:   "params",
		Short: "List parameters with ranges and current values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The sample choice list comes from the library when there is one
			lib, err := a.openLibrary()
			if err != nil {
				a.log.Warn("no sample library, listing parameters without sample names", "error", err)
				lib = nil
			}
			e, err := a.newEngine(lib)
			if err != nil {
				return err
			}
			defer e.Close()

			if presetFile != "" {
				if err := applyPresetFile(plugin.NewBase(e.Info(), e), presetFile); err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tNAME\tRANGE\tDEFAULT\tVALUE")
			for _, p := range e.GetParameters().All() {
				rng := fmt.Sprintf("%g..%g %s", p.Min, p.Max, p.Unit)
				if p.IsChoice() {
					rng = fmt.Sprintf("%d choices", len(p.Choices))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					p.Key, p.Name, rng,
					p.FormatValue(p.DefaultValue),
					p.FormatValue(p.GetValue()))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&presetFile, "state", "", "YAML preset to apply first")
	return cmd
}

// applyPresetFile applies a YAML preset through the plugin's state manager
func applyPresetFile(b *plugin.Base, path string) error {
	p, err := state.LoadPresetFile(path)
	if err != nil {
		return err
	}
	return b.State().Apply(p)
}
