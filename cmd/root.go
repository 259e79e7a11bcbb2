// Package cmd implements the cap command line interface.
package cmd

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/creativepipe/cap/pkg/config"
	"github.com/creativepipe/cap/pkg/logger"
)

var (
	debugMode bool
	envFile   string
)

var rootCmd = &cobra.Command{
	Use:   "cap",
	Short: "Creative automation pipeline for campaign assets",
	Long: `cap turns campaign briefs into finished creative assets using Adobe
Firefly, Adobe Photoshop, OpenAI, and S3, with process-wide rate limiting
across every upstream API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := config.LoadEnv(envFile); err != nil {
				return err
			}
		} else if err := config.LoadEnv(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			// A missing default .env is fine; a broken one is not.
			return err
		}

		var logCfg logger.Config
		if err := config.Load(&logCfg); err != nil {
			return err
		}
		var opts []logger.Option
		if debugMode {
			opts = append(opts, logger.WithLevel(slog.LevelDebug))
		}
		logger.SetAsDefault(logger.NewFromConfig(logCfg, "cap", opts...))
		return nil
	},
}

// Execute runs the root command with a context that ends on interrupt or
// TERM, so long-running commands shut down cleanly.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file (default: .env when present)")
}
