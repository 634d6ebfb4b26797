package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/obesho/internal/adapter/storage"
	"github.com/rl1809/obesho/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		c, err := app.NewStoreContainer(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer c.Shutdown(context.Background())

		if err := c.Store().Migrate(cmd.Context()); err != nil {
			return err
		}
		log.Info("schema migrated", zap.String("driver", cfg.DBDriver))
		return nil
	},
}

var seedResetStock bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo catalog: ten models, sizes 35 to 45 and their stock",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		c, err := app.NewStoreContainer(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer c.Shutdown(context.Background())

		if err := c.Store().Migrate(cmd.Context()); err != nil {
			return err
		}
		fixture := storage.DefaultFixture()
		if err := c.Store().Seed(cmd.Context(), fixture, seedResetStock); err != nil {
			return err
		}
		log.Info("catalog seeded",
			zap.Int("models", len(fixture.Models)),
			zap.Int("sizes", len(fixture.Sizes)),
			zap.Int("stock_entries", len(fixture.Stock)),
			zap.Bool("reset_stock", seedResetStock))
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedResetStock, "reset-stock", false, "Overwrite current stock quantities with the fixture's")
	rootCmd.AddCommand(migrateCmd, seedCmd)
}
