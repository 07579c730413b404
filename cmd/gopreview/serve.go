package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/philipparndt/gopreview/internal/metrics"
	"github.com/philipparndt/gopreview/internal/server"
	"github.com/philipparndt/gopreview/pkg/loader"
	"github.com/philipparndt/gopreview/pkg/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve [file]",
	Short: "Serve a live preview in the browser",
	Long: `Start a web server with a live preview of the model. Every browser tab
gets its own preview session. The model is reloaded when it or one of its
OpenSCAD dependencies changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&flags.Addr, "addr", "", "listen address")
	f.IntVar(&flags.Width, "width", 0, "render width in pixels")
	f.IntVar(&flags.Height, "height", 0, "render height in pixels")
	f.StringVar(&flags.Background, "background", "", "background color as #rrggbb, #rrggbbaa or transparent")
	f.IntVar(&flags.Edge, "edge", 0, "thumbnail height in pixels")
	f.StringVar(&flags.Format, "format", "", "thumbnail format: webp or png")
	f.BoolVar(&flags.NoWatch, "no-watch", false, "do not reload on file changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	path := args[0]

	capturer, err := cfg.Capturer()
	if err != nil {
		return err
	}
	background, err := cfg.BackgroundColor()
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:          cfg.Server.Addr,
		Source:        loader.NewFileSource(path),
		Width:         cfg.Render.Width,
		Height:        cfg.Render.Height,
		Background:    &background,
		Capturer:      capturer,
		LoadTimeout:   cfg.Load.Timeout,
		FrameInterval: cfg.FrameInterval(),
		Logger:        logger,
		Metrics:       metrics.NewCollector(logger),
	})

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})

	if cfg.WatchEnabled() {
		fw, err := watcher.NewFileWatcher(cfg.Watch.Debounce, logger)
		if err != nil {
			return err
		}
		defer fw.Close()

		resolve := func() ([]string, error) { return loader.WatchTargets(path, logger) }
		if err := fw.WatchResolved(resolve, func(string) { srv.Reload() }); err != nil {
			logger.Warn("File watching disabled", zap.Error(err))
		} else {
			g.Go(func() error {
				if err := fw.Run(ctx); !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		}
	}

	return g.Wait()
}
