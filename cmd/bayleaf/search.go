package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchJSON  bool
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over extracted recipes",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, db := mustOpen()
		defer db.Close()

		query := strings.Join(args, " ")
		hits, err := db.SearchRecipes(cmd.Context(), query, searchLimit)
		if err != nil {
			fatal("Error searching recipes", err)
		}

		if searchJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(hits); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		if len(hits) == 0 {
			fmt.Println("No recipes found. Did you run bayleaf index --recipes?")
			return
		}
		for _, h := range hits {
			fmt.Printf("%s  (%s)\n", h.Title, h.BookTitle)
			if h.Snippet != "" {
				fmt.Printf("    %s\n", h.Snippet)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output in JSON format")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum number of results")
}
