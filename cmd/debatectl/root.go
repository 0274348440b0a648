package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "debatectl",
	Short: "debatectl runs and inspects the multi-agent debate engine",
	Long: `debatectl is the reference transport shell around the debate execution
engine: it exposes the engine's operations over JSON-over-HTTP and a
WebSocket streaming channel, and can print the provider/model catalog
without starting a server.`,
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "catalog config file (defaults to the embedded catalog)")
}
