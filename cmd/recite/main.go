package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/escalopa/quran-recite-checker/internal/adapter/mushaf"
	"github.com/escalopa/quran-recite-checker/internal/config"
	"github.com/escalopa/quran-recite-checker/internal/observe"
	"github.com/escalopa/quran-recite-checker/internal/recite/rangebuilder"
)

var rootCmd = &cobra.Command{
	Use:   "recite",
	Short: "Check Quran recitation transcripts against the Mushaf",
	Long: `recite runs the recitation checker offline. It builds the expected words
of an ayah range and judges transcripts or recorded audio against them the
same way the bot does.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", os.Getenv("CONFIG_PATH"), "config file (mushaf and recite sections)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level")

	rootCmd.AddCommand(rangeCmd, checkCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// env is what every subcommand needs
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	layout  *mushaf.Mushaf
	builder *rangebuilder.Builder
}

func setup(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	level, _ := cmd.Flags().GetString("log-level")

	logger, err := observe.NewLogger(level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	cfg, err := config.LoadRecite(path)
	if err != nil {
		return nil, err
	}

	layout, err := mushaf.Load(cfg.Mushaf.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug("mushaf loaded", zap.String("path", cfg.Mushaf.Path), zap.Int("tokens", layout.Len()))

	return &env{
		cfg:     cfg,
		logger:  logger,
		layout:  layout,
		builder: rangebuilder.New(layout, logger.Named("rangebuilder")),
	}, nil
}
