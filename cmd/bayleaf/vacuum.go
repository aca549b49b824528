package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var vacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Compact the catalog database",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		_, db := mustOpen()
		defer db.Close()

		if err := db.Vacuum(cmd.Context()); err != nil {
			fatal("Error compacting catalog", err)
		}
		fmt.Println("Catalog compacted.")
	},
}

func init() {
	rootCmd.AddCommand(vacuumCmd)
}
