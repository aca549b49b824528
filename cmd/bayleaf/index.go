package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/hollyoak/bayleaf/internal/index"
	"github.com/spf13/cobra"
)

var (
	indexWatch   bool
	indexNoPurge bool
	indexRecipes bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Scan the library directory into the catalog",
	Long: `Scan the library directory for EPUB and PDF files and update the
catalog. Books that vanished from disk are removed unless --no-purge is
given. With --recipes, recipe text is extracted from EPUB cookbooks for
full-text search; unchanged books are skipped on re-runs.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, db := mustOpen()
		defer db.Close()

		ix := &index.Indexer{
			DB:         db,
			LibraryDir: cfg.LibraryDir,
			Purge:      !indexNoPurge,
			Recipes:    indexRecipes,
			Log:        slog.Default(),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		stats, err := ix.Run(ctx)
		if err != nil {
			fatal("Error indexing library", err)
		}
		fmt.Printf("Indexed %d books (%d purged", stats.BooksSeen, stats.BooksPurged)
		if indexRecipes {
			fmt.Printf(", %d recipes from %d books", stats.RecipesFound, stats.BooksParsed)
		}
		fmt.Println(")")

		if indexWatch {
			fmt.Printf("Watching %s for changes. Ctrl-C to stop.\n", cfg.LibraryDir)
			if err := index.Watch(ctx, ix, 2*time.Second, slog.Default()); err != nil {
				fatal("Error watching library", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "Keep running and reindex on filesystem changes")
	indexCmd.Flags().BoolVar(&indexNoPurge, "no-purge", false, "Keep catalog entries for files missing from disk")
	indexCmd.Flags().BoolVar(&indexRecipes, "recipes", false, "Extract recipes from EPUB cookbooks")
}
