// facegate is a face-recognition access control system: it enrolls people
// from a camera, trains a classifier over their samples, and grants or
// denies access on a live feed.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/facegate/facegate/pkg/config"
	"github.com/facegate/facegate/pkg/logging"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "facegate",
	Short: "Face recognition access control",
	Long: `facegate grants or denies access based on a live camera feed matched
against a registry of enrolled identities.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config %s: %w", cfgFile, err)
			}
		} else {
			cfg, _ = config.LoadDefault()
		}

		cfg.ExpandPaths()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			return err
		}
		return logging.Init(cfg.Logging.Level, cfg.Logging.File)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
