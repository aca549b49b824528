package main

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/hollyoak/bayleaf/internal/reader"
	"github.com/hollyoak/bayleaf/internal/ui"
	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read [address]",
	Short: "Open a book directly in the reader",
	Long: `Open a book without going through the library screen.

The address is a path to an EPUB file, a file:// URL, or a bayleaf://open
URL carrying book, file or path query parameters. With no address, the
configured book_address (or BAYLEAF_BOOK) is opened; if neither is set
the reader reports that no book is selected.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, db := mustOpen()
		defer db.Close()

		src := reader.Source{Configured: cfg.BookAddress}
		if len(args) == 1 {
			explicit, query := parseAddress(args[0])
			src.Explicit = explicit
			src.Query = query
		}

		redirectLogsToFile(cfg)

		app := ui.NewApp(cfg, db, slog.Default())
		app.OpenSource(src)
		runTUI(app)
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
}

// parseAddress splits a CLI address into an explicit path or a query
// parameter set. Only bayleaf:// URLs carry queries; anything else is
// taken verbatim as an explicit address.
func parseAddress(arg string) (explicit string, query url.Values) {
	if !strings.HasPrefix(arg, "bayleaf://") {
		return arg, nil
	}
	u, err := url.Parse(arg)
	if err != nil {
		return arg, nil
	}
	return "", u.Query()
}
