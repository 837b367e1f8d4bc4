package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ledgerflow/internal/config"
	"ledgerflow/internal/logger"
)

var version = "0.1.0"

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ledgerflow",
	Short: "Ledgerflow invoicing service",
	Long: `Ledgerflow runs the invoicing API, the public invoice pages and the
Square webhook receiver.

Configuration comes from an optional YAML file (--config or
LEDGERFLOW_CONFIG), then environment variables and .env.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := logger.Setup(c.GetLoggerConfig()); err != nil {
			return fmt.Errorf("setup logger: %w", err)
		}
		cfg = c
		return nil
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
}
