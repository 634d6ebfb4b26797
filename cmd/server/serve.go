package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/obesho/internal/app"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, err := app.NewContainer(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer c.Shutdown(context.Background())

		if serveMigrate {
			if err := c.Store().Migrate(ctx); err != nil {
				return err
			}
			log.Info("schema migrated")
		}

		log.Info("starting obesho",
			zap.String("env", cfg.Env),
			zap.String("http_addr", cfg.HTTPAddr),
			zap.String("grpc_addr", cfg.GRPCAddr))
		return app.NewServer(c).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Create or update the schema before serving")
	rootCmd.AddCommand(serveCmd)
}
