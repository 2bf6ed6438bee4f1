package cmd

import (
	"fmt"
	"os"

	"github.com/matthieukhl/spatula/internal/config"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "shop",
	Short: "Spatula shop - order management for a spatula store",
	Long: `Spatula shop manages customers, their shipping locations, the spatula
catalog and orders made of order lines.

The shop can run as a web server with an HTML and JSON interface, or be used
via CLI commands to set up the database and review orders.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default searches ./deploy, ., $HOME/.spatula, /etc/spatula)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigFrom(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
