package main

import (
	"fmt"
	"os"

	"restaurant-booking-be/cmd/cli/commands"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "booking",
	Short: "Restaurant booking assistant CLI",
	Long: `Talk to the booking assistant from a terminal, manage local users
and replay scripted conversations against a running server.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&commands.ConfigFile, "config", "", "YAML file overriding environment settings")

	rootCmd.AddCommand(commands.ChatCmd)
	rootCmd.AddCommand(commands.UserCmd)
	rootCmd.AddCommand(commands.SimulateCmd)
	rootCmd.AddCommand(commands.ReasonsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
