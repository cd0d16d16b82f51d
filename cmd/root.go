package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marekrost/mapa-psc/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mapa-psc",
	Short: "Postal code area polygons from address points",
	Long:  "Groups geocoded address points by postal code, builds one polygon per code, colours neighbouring areas apart and exports the result for map tiling.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
