package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiFlag    string
	configFlag string
	rootCmd    = &cobra.Command{
		Use:   "trailctl",
		Short: "Operate and inspect the title/license ledger",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFlag != "" {
				return os.Setenv("TRAIL_CONFIG_FILE", configFlag)
			}
			return nil
		},
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Trail endpoint base URL")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "YAML config file (overrides TRAIL_* env)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
