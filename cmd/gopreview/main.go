package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/philipparndt/gopreview/internal/config"
	"github.com/philipparndt/gopreview/internal/logging"
	"github.com/philipparndt/gopreview/version"
)

var (
	configPath string
	flags      config.Flags
	cfg        config.Config
	logger     = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "gopreview",
	Short: "Preview 3D models and capture thumbnails",
	Long: `gopreview loads STL, glTF/GLB and OpenSCAD models, frames them in a
normalized scene and captures lossless thumbnails. Previews run headless,
in the browser (serve) or in the desktop app (gopreview-gui).`,
	Version:       version.GetFullVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		loaded.Resolve(flags)
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		l, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default "+config.DefaultFile+" when present)")
	pf.StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flags.LogFormat, "log-format", "", "log format: console or json")
	pf.DurationVar(&flags.Timeout, "timeout", 0, "model load timeout")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
