package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:           "supportd",
	Short:         "Customer support decision core",
	Long:          "supportd scores inbound customer messages, retrieves knowledge base answers, and decides when a human needs to take over.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(conversationCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(decisionsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
