package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alignlab/styletrain/internal/config"
	"github.com/alignlab/styletrain/internal/logging"
)

var (
	cfgFile string
	verbose bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "styletrain",
	Short: "Train a local model on your own conversation style",
	Long: `Styletrain fine-tunes a small transformer on exported assistant
conversations so that its output matches your reference style: response
structure, language patterns, code formatting, and tool usage.

Everything runs locally on CPU. No data leaves your machine.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		if err := logging.Init(level, cfg.Logging.File, cfg.Logging.Console); err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.styletrain/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
