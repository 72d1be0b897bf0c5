package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"financeshub/internal/config"
	"financeshub/internal/logger"
	"financeshub/internal/persist"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "financeshub",
	Short: "Finance market data ingestion",
	Long: `financeshub pulls market data from exchange, market-data and equity providers,
wraps every response in a provenance envelope and stages it in raw files and/or the
bronze warehouse layer.

Configuration is read from --config, $FINANCES_HUB_CONFIG or configs/config.yaml.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $FINANCES_HUB_CONFIG or configs/config.yaml)")
}

// loadConfig reads the config and routes logging the way the config asks. The returned
// closer releases the log file, if any.
func loadConfig() (*config.Config, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.SetFormat(cfg.App.LogFormat)
	closer := func() {
		if logFile != nil {
			_ = logFile.Close()
		}
	}
	return cfg, closer, nil
}

func applySinkFlag(cmd *cobra.Command, cfg *config.Config) error {
	raw, _ := cmd.Flags().GetString("sink")
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	sink, err := persist.ParseSink(raw)
	if err != nil {
		return err
	}
	cfg.Storage.Sink = string(sink)
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
