package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/vst3sampler/pkg/control"
	"github.com/justyntemme/vst3sampler/pkg/engine"
	"github.com/justyntemme/vst3sampler/pkg/metrics"
	"github.com/justyntemme/vst3sampler/pkg/output"
)

func playCommand(a *app) *cobra.Command {
	var backendName, listen string
	var noHTTP bool

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play live to the audio device with the control API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if backendName != "" {
				a.settings.Audio.Backend = backendName
			}
			if listen != "" {
				a.settings.HTTP.Listen = listen
			}
			if noHTTP {
				a.settings.HTTP.Enabled = false
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.play(ctx)
		},
	}

	cmd.Flags().StringVar(&backendName, "backend", "", "Audio backend: oto, malgo or null")
	cmd.Flags().StringVar(&listen, "listen", "", "Control API address")
	cmd.Flags().BoolVar(&noHTTP, "no-http", false, "Disable the control API")
	return cmd
}

func (a *app) play(ctx context.Context) error {
	lib, err := a.openLibrary()
	if err != nil {
		return err
	}
	e, err := a.newEngine(lib)
	if err != nil {
		return err
	}
	defer e.Close()

	loader := engine.NewLoader(e, lib)
	loader.SetLogger(a.log.Module("loader"))
	defer loader.Close()

	stream, err := output.NewStream(e, output.StreamConfig{
		SampleRate:     a.settings.Audio.SampleRate,
		Channels:       a.settings.Audio.Channels,
		BlockSize:      a.settings.Audio.BlockSize,
		BufferedBlocks: a.settings.Audio.Buffered,
	})
	if err != nil {
		return err
	}

	m, err := metrics.NewSamplerMetrics(prometheus.NewRegistry(), metrics.Sources{
		Engine: e,
		Cache:  lib,
		Output: stream,
	})
	if err != nil {
		return err
	}
	stream.OnBlock(m.ObserveRender)

	backend, err := output.NewBackend(a.settings.Audio.Backend)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loader.Run(gctx) })
	g.Go(func() error { return stream.Run(gctx) })

	if a.settings.HTTP.Enabled {
		ctrl := control.New(e,
			control.WithSamples(lib),
			control.WithMetrics(m.Handler()),
			control.WithLogger(a.log.Module("api")))
		g.Go(func() error { return ctrl.Serve(gctx, a.settings.HTTP.Listen) })
	}

	if startErr := backend.Start(stream); startErr != nil {
		a.log.Error("audio backend failed to start", "backend", backend.Name(), "error", startErr)
		// Unwind the goroutines started above
		g.Go(func() error { return startErr })
	} else {
		a.log.Info("playing",
			"backend", backend.Name(),
			"rate", a.settings.Audio.SampleRate,
			"block", a.settings.Audio.BlockSize,
			"samples", lib.Len(),
			"http", a.settings.HTTP.Enabled)
	}

	err = g.Wait()
	a.log.ErrorIf(backend.Close(), "closing audio backend")
	a.log.ErrorIf(e.SetActive(false), "deactivating engine")

	if errors.Is(err, context.Canceled) {
		err = nil
	}
	stats := e.Stats().Snapshot()
	a.log.Info("stopped", "blocks", stats.BlocksRendered, "underruns", stream.Underruns())
	return err
}
