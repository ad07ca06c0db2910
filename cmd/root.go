package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kisanmitra/advisor/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Conversational agricultural advisory backend",
	Long:  "Classifies farmer questions (English, Hindi, Hinglish), fans out to weather, mandi price, crop and scheme providers with per-provider fallback, and serves one merged answer.",
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
