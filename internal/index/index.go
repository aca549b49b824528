// Package index owns the bayleaf SQLite database: the scanned book
// catalog, extracted recipes with full-text search, and the reader's
// persisted state. The database is a single file; WAL mode keeps the TUI
// responsive while an indexing run writes.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/hollyoak/bayleaf/internal/library"
	"github.com/hollyoak/bayleaf/pkg/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS books (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  rel_path TEXT NOT NULL UNIQUE,
  file_name TEXT NOT NULL,
  file_type TEXT NOT NULL,
  file_size INTEGER NOT NULL,
  modified_mtime INTEGER NOT NULL,
  title TEXT,
  author TEXT,
  created_at INTEGER NOT NULL DEFAULT (unixepoch()),
  updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS recipes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  book_id INTEGER NOT NULL,
  title TEXT NOT NULL,
  ingredients_text TEXT,
  method_text TEXT,
  source_key TEXT NOT NULL,
  image_href TEXT,
  created_at INTEGER NOT NULL DEFAULT (unixepoch()),
  updated_at INTEGER NOT NULL DEFAULT (unixepoch()),
  UNIQUE(book_id, source_key),
  FOREIGN KEY(book_id) REFERENCES books(id) ON DELETE CASCADE
);

CREATE VIRTUAL TABLE IF NOT EXISTS recipes_fts USING fts5(
  title,
  ingredients_text,
  method_text,
  content='recipes',
  content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS recipes_ai AFTER INSERT ON recipes BEGIN
  INSERT INTO recipes_fts(rowid, title, ingredients_text, method_text)
  VALUES (new.id, new.title, new.ingredients_text, new.method_text);
END;

CREATE TRIGGER IF NOT EXISTS recipes_ad AFTER DELETE ON recipes BEGIN
  INSERT INTO recipes_fts(recipes_fts, rowid, title, ingredients_text, method_text)
  VALUES ('delete', old.id, old.title, old.ingredients_text, old.method_text);
END;

CREATE TRIGGER IF NOT EXISTS recipes_au AFTER UPDATE ON recipes BEGIN
  INSERT INTO recipes_fts(recipes_fts, rowid, title, ingredients_text, method_text)
  VALUES ('delete', old.id, old.title, old.ingredients_text, old.method_text);
  INSERT INTO recipes_fts(rowid, title, ingredients_text, method_text)
  VALUES (new.id, new.title, new.ingredients_text, new.method_text);
END;

CREATE TABLE IF NOT EXISTS reader_state (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);
`

// DB is a handle on the bayleaf database.
type DB struct {
	sql *sql.DB
	log *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the
// schema. The parent directory is created when missing.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("index: create %s: %w", dir, err)
		}
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	if _, err := sqldb.Exec(schemaSQL); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{sql: sqldb, log: slog.Default()}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.sql.Close()
}

// UpsertBooks inserts or refreshes catalog rows for the scanned files.
// Manually curated title/author values win over re-guessed ones.
func (d *DB) UpsertBooks(ctx context.Context, files []library.BookFile) (int, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("index: begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO books (rel_path, file_name, file_type, file_size, modified_mtime, title, author, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, unixepoch())
		ON CONFLICT(rel_path) DO UPDATE SET
		  file_name=excluded.file_name,
		  file_type=excluded.file_type,
		  file_size=excluded.file_size,
		  modified_mtime=excluded.modified_mtime,
		  title=COALESCE(books.title, excluded.title),
		  author=COALESCE(books.author, excluded.author),
		  updated_at=unixepoch()`)
	if err != nil {
		return 0, fmt.Errorf("index: prepare upsert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, f := range files {
		if _, err := stmt.ExecContext(ctx, f.RelPath, f.FileName, f.FileType, f.FileSize, f.ModifiedAt, nullable(f.Title), nullable(f.Author)); err != nil {
			return 0, fmt.Errorf("index: upsert %s: %w", f.RelPath, err)
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("index: commit upsert: %w", err)
	}
	return count, nil
}

// PurgeMissing deletes catalog rows whose files no longer exist under
// root. Recipes cascade.
func (d *DB) PurgeMissing(ctx context.Context, root string) (int, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, rel_path FROM books`)
	if err != nil {
		return 0, fmt.Errorf("index: list books: %w", err)
	}
	var missing []int64
	for rows.Next() {
		var id int64
		var rel string
		if err := rows.Scan(&id, &rel); err != nil {
			rows.Close()
			return 0, err
		}
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); os.IsNotExist(err) {
			missing = append(missing, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(missing) == 0 {
		return 0, nil
	}

	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("index: begin purge: %w", err)
	}
	defer tx.Rollback()
	for _, id := range missing {
		if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("index: purge book %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(missing), nil
}

// Books returns the catalog ordered by title.
func (d *DB) Books(ctx context.Context) ([]models.Book, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT id, rel_path, file_name, file_type, file_size, modified_mtime,
		       COALESCE(title, ''), COALESCE(author, ''), created_at, updated_at
		FROM books
		ORDER BY COALESCE(title, file_name) COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("index: list books: %w", err)
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.ID, &b.RelPath, &b.FileName, &b.FileType, &b.FileSize,
			&b.ModifiedAt, &b.Title, &b.Author, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// BookByRelPath returns one catalog row, or nil when absent.
func (d *DB) BookByRelPath(ctx context.Context, relPath string) (*models.Book, error) {
	var b models.Book
	err := d.sql.QueryRowContext(ctx, `
		SELECT id, rel_path, file_name, file_type, file_size, modified_mtime,
		       COALESCE(title, ''), COALESCE(author, ''), created_at, updated_at
		FROM books WHERE rel_path = ?`, relPath).
		Scan(&b.ID, &b.RelPath, &b.FileName, &b.FileType, &b.FileSize,
			&b.ModifiedAt, &b.Title, &b.Author, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// RecipeCount returns the number of recipes extracted for a book.
func (d *DB) RecipeCount(ctx context.Context, bookID int64) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes WHERE book_id = ?`, bookID).Scan(&n)
	return n, err
}

// RecipesExtractedAt returns when a book's recipes were last written, or 0
// when none exist.
func (d *DB) RecipesExtractedAt(ctx context.Context, bookID int64) (int64, error) {
	var at int64
	err := d.sql.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(updated_at), 0) FROM recipes WHERE book_id = ?`, bookID).Scan(&at)
	return at, err
}

// ReplaceRecipes swaps a book's recipe set for the given one. The FTS
// mirror stays in sync through the triggers.
func (d *DB) ReplaceRecipes(ctx context.Context, bookID int64, recipes []models.Recipe) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin replace recipes: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recipes WHERE book_id = ?`, bookID); err != nil {
		return fmt.Errorf("index: clear recipes: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO recipes (book_id, title, ingredients_text, method_text, source_key, image_href)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(book_id, source_key) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("index: prepare recipe insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range recipes {
		if _, err := stmt.ExecContext(ctx, bookID, r.Title, nullable(r.IngredientsText), r.MethodText, r.SourceKey, nullable(r.ImageHref)); err != nil {
			return fmt.Errorf("index: insert recipe %q: %w", r.Title, err)
		}
	}
	return tx.Commit()
}

// SearchRecipes runs a full-text query over recipe titles, ingredients and
// methods, best matches first.
func (d *DB) SearchRecipes(ctx context.Context, query string, limit int) ([]models.RecipeHit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.sql.QueryContext(ctx, `
		SELECT r.id, r.book_id, r.title, COALESCE(r.ingredients_text, ''), r.method_text,
		       r.source_key, COALESCE(r.image_href, ''),
		       COALESCE(b.title, b.file_name),
		       snippet(recipes_fts, 2, '[', ']', '…', 12)
		FROM recipes_fts
		JOIN recipes r ON r.id = recipes_fts.rowid
		JOIN books b ON b.id = r.book_id
		WHERE recipes_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search %q: %w", query, err)
	}
	defer rows.Close()

	var hits []models.RecipeHit
	for rows.Next() {
		var h models.RecipeHit
		if err := rows.Scan(&h.ID, &h.BookID, &h.Title, &h.IngredientsText, &h.MethodText,
			&h.SourceKey, &h.ImageHref, &h.BookTitle, &h.Snippet); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Vacuum truncates the WAL and compacts the database file.
func (d *DB) Vacuum(ctx context.Context) error {
	if _, err := d.sql.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("index: checkpoint: %w", err)
	}
	if _, err := d.sql.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("index: vacuum: %w", err)
	}
	return nil
}

// nullable maps "" to NULL so COALESCE-based upserts can distinguish
// "never extracted" from an empty value.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
