package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicgrab/civicgrab/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "civicgrab",
	Short: "Meeting and file scraper for CivicClerk civic portals",
	Long:  "Enumerates meetings on a client-rendered civic portal, recovers file download URLs from component state, and downloads agendas, packets, minutes, and attachments.",
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
