package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/philipparndt/gopreview/internal/preview"
	"github.com/philipparndt/gopreview/pkg/loader"
)

var renderView = preview.DefaultViewState()

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a model headless and write a thumbnail",
	Long: `Load a model, apply the given view and capture a lossless thumbnail.
The thumbnail is --edge pixels high; its width follows the aspect ratio of
--width and --height.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	f.Float64Var(&renderView.Yaw, "yaw", renderView.Yaw, "rotation about the vertical axis in degrees")
	f.Float64Var(&renderView.Pitch, "pitch", renderView.Pitch, "tilt in degrees, clamped to [-90, 90]")
	f.Float64Var(&renderView.Roll, "roll", renderView.Roll, "roll in degrees")
	f.Float64Var(&renderView.Zoom, "zoom", renderView.Zoom, "zoom factor, must be positive")
	f.Float64Var(&renderView.FocalLength, "focal", renderView.FocalLength, "focal length in mm, clamped to [20, 200]")
	f.IntVar(&flags.Width, "width", 0, "render width in pixels")
	f.IntVar(&flags.Height, "height", 0, "render height in pixels")
	f.StringVar(&flags.Background, "background", "", "background color as #rrggbb, #rrggbbaa or transparent")
	f.IntVar(&flags.Edge, "edge", 0, "thumbnail height in pixels")
	f.StringVar(&flags.Format, "format", "", "thumbnail format: webp or png")
	f.StringVarP(&flags.Output, "output", "o", "", "output file")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	capturer, err := cfg.Capturer()
	if err != nil {
		return err
	}
	background, err := cfg.BackgroundColor()
	if err != nil {
		return err
	}

	ready := make(chan preview.AssetInfo, 1)
	failed := make(chan error, 1)
	sess, err := preview.NewSession(preview.Options{
		ID:          "render",
		Width:       cfg.Render.Width,
		Height:      cfg.Render.Height,
		Background:  &background,
		Capturer:    capturer,
		LoadTimeout: cfg.Load.Timeout,
		Logger:      logger,
		Callbacks: preview.Callbacks{
			OnReady: func(info preview.AssetInfo) { ready <- info },
			OnError: func(err error) { failed <- err },
		},
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Load(loader.NewFileSource(args[0])); err != nil {
		return err
	}

	var info preview.AssetInfo
	select {
	case info = <-ready:
	case err := <-failed:
		return err
	case <-cmd.Context().Done():
		return cmd.Context().Err()
	}
	logger.Debug("Asset ready",
		zap.String("name", info.Name),
		zap.Int("triangles", info.Triangles),
		zap.Float64("scale", info.Scale))

	if err := sess.Apply(renderView); err != nil {
		return err
	}
	thumb, err := sess.Capture()
	if err != nil {
		return err
	}
	if err := thumb.WriteFile(cfg.Capture.Output); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%dx%d %s, %d bytes)\n",
		cfg.Capture.Output, thumb.Width, thumb.Height, thumb.Format, len(thumb.Data))
	return nil
}
