package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "taskforge",
		Short: "TaskForge - batch AI task generation for goals",
		Long: `TaskForge turns a goal's actions into concrete tasks. It loads each
action with its parent-chain context, asks a language model to break it
into tasks, and persists the results batch by batch with progress
tracking, cancellation, and a final per-goal verdict.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
