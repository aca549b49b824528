package index

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/hollyoak/bayleaf/internal/library"
	"github.com/hollyoak/bayleaf/internal/recipes"
)

// Indexer runs one synchronization pass: scan the library, upsert the
// catalog, drop rows for vanished files, and optionally extract recipes
// from EPUB cookbooks.
type Indexer struct {
	DB         *DB
	LibraryDir string

	// Purge removes catalog rows whose files disappeared.
	Purge bool

	// Recipes extracts recipes from every EPUB whose file changed since
	// the last pass (or that has none yet).
	Recipes    bool
	MaxRecipes int // per book, 0 = no cap

	Log *slog.Logger
}

// Stats summarizes one indexing pass.
type Stats struct {
	BooksSeen    int
	BooksPurged  int
	BooksParsed  int
	RecipesFound int
}

// Run performs one pass. Per-book extraction failures are logged and
// skipped; only catalog-level failures abort the pass.
func (ix *Indexer) Run(ctx context.Context) (Stats, error) {
	log := ix.Log
	if log == nil {
		log = slog.Default()
	}

	var stats Stats
	files, err := library.Scan(ix.LibraryDir)
	if err != nil {
		return stats, err
	}
	seen, err := ix.DB.UpsertBooks(ctx, files)
	if err != nil {
		return stats, err
	}
	stats.BooksSeen = seen

	if ix.Purge {
		purged, err := ix.DB.PurgeMissing(ctx, ix.LibraryDir)
		if err != nil {
			return stats, err
		}
		stats.BooksPurged = purged
	}

	if !ix.Recipes {
		return stats, nil
	}

	books, err := ix.DB.Books(ctx)
	if err != nil {
		return stats, err
	}
	for _, b := range books {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if !b.IsEPUB() {
			continue
		}
		extractedAt, err := ix.DB.RecipesExtractedAt(ctx, b.ID)
		if err != nil {
			return stats, err
		}
		if extractedAt > 0 && extractedAt >= b.ModifiedAt {
			// Already extracted and the file has not changed since.
			continue
		}
		path := filepath.Join(ix.LibraryDir, filepath.FromSlash(b.RelPath))
		found, err := recipes.ExtractFile(path, ix.MaxRecipes)
		if err != nil {
			log.Warn("recipe extraction failed", "book", b.RelPath, "error", err)
			continue
		}
		if err := ix.DB.ReplaceRecipes(ctx, b.ID, found); err != nil {
			return stats, err
		}
		stats.BooksParsed++
		stats.RecipesFound += len(found)
	}
	return stats, nil
}
