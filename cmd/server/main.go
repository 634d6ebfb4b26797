package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/obesho/internal/config"
	"github.com/rl1809/obesho/internal/platform/observability"
)

var rootCmd = &cobra.Command{
	Use:           "obesho",
	Short:         "ObeSho shop backend: catalog, inventory reservations and orders",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the process logger shared by all commands.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.IsProduction())
	if err != nil {
		return nil, nil, err
	}
	log = log.With(zap.String("service", config.ServiceName))
	return cfg, log, nil
}
