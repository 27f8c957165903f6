package commands

import (
	"fmt"

	"restaurant-booking-be/pkg/booking/schema"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var ReasonsCmd = &cobra.Command{
	Use:   "reasons",
	Short: "List the cancellation reasons the restaurant accepts",
	Run: func(cmd *cobra.Command, args []string) {
		color.Cyan("Cancellation reasons:")
		for id := 1; id <= len(schema.CancellationReasons); id++ {
			fmt.Printf("  %d  %s\n", id, schema.CancellationReasons[id])
		}
	},
}
