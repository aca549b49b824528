package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hollyoak/bayleaf/internal/config"
	"github.com/hollyoak/bayleaf/internal/index"
	"github.com/hollyoak/bayleaf/internal/ui"
	"github.com/spf13/cobra"
)

var (
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bayleaf",
	Short: "A terminal reader for your cookbook library",
	Long: `Bayleaf reads EPUB cookbooks from a local library directory.
It keeps a SQLite catalog of books and extracted recipes, remembers your
reading position per book, and offers full-text recipe search.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
	Run: func(cmd *cobra.Command, args []string) {
		cfg, db := mustOpen()
		defer db.Close()

		// Stderr belongs to the TUI now; keep logs out of it.
		redirectLogsToFile(cfg)

		app := ui.NewApp(cfg, db, slog.Default())
		runTUI(app)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// mustOpen loads config and opens the catalog, exiting on failure.
func mustOpen() (*config.Config, *index.DB) {
	cfg, err := config.Load()
	if err != nil {
		fatal("Error loading config", err)
	}
	db, err := index.Open(cfg.DatabasePath)
	if err != nil {
		fatal("Error opening catalog", err)
	}
	return cfg, db
}

// runTUI starts the bubbletea program over the app model.
func runTUI(app *ui.App) {
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fatal("Error running program", err)
	}
}

// redirectLogsToFile routes slog away from the terminal while the TUI is
// up. Falls back to discarding when the log file cannot be opened.
func redirectLogsToFile(cfg *config.Config) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	path := filepath.Join(filepath.Dir(cfg.DatabasePath), "bayleaf.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, opts)))
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, opts)))
}
