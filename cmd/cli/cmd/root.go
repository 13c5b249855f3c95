// Package cmd provides the CLI commands for pwnet.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pwnet/internal/config"
	"pwnet/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pwnet",
	Short: "Optimize produced-water network operations",
	Long: `pwnet builds and solves produced-water network flow models.

It reads a declarative case file describing the network, assembles a
mixed-integer optimization model, and reports the cost-optimal flow,
storage, and capacity-expansion plan.

Examples:
  pwnet solve field.pwnet.hcl
  pwnet solve --quality discrete --solver simplex field.pwnet.hcl
  pwnet solve --json result.json field.pwnet.hcl`,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pwnet.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		config.Set(cfg)
	}

	// Initialize logging
	cfg := config.Get()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("pwnet version 0.1.0")
	},
}
