package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "attendsync",
	Short: "Campus attendance API server",
	Long: `attendsync serves the attendance API used by the student and faculty apps:
beacon and face verified marking, attendance windows, offline sync and a
live feed for faculty.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the config file")

	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "Clear existing data before seeding")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
