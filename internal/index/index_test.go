package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollyoak/bayleaf/internal/library"
	"github.com/hollyoak/bayleaf/internal/reader"
	"github.com/hollyoak/bayleaf/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleFiles() []library.BookFile {
	return []library.BookFile{
		{RelPath: "a.epub", FileName: "a.epub", FileType: "epub", FileSize: 100, ModifiedAt: 1000, Title: "Apples", Author: "A"},
		{RelPath: "sub/b.epub", FileName: "b.epub", FileType: "epub", FileSize: 200, ModifiedAt: 2000, Title: "Breads"},
	}
}

func TestUpsertBooks_InsertAndRefresh(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	n, err := db.UpsertBooks(ctx, sampleFiles())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	books, err := db.Books(ctx)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Apples", books[0].Title)
	assert.Equal(t, "Breads", books[1].Title)

	// Same rel_path again refreshes instead of duplicating.
	files := sampleFiles()
	files[0].FileSize = 150
	files[0].Title = "Re-guessed"
	_, err = db.UpsertBooks(ctx, files)
	require.NoError(t, err)

	books, err = db.Books(ctx)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, int64(150), books[0].FileSize)
	// An existing title is kept over a new guess.
	assert.Equal(t, "Apples", books[0].Title)
}

func TestBookByRelPath(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.UpsertBooks(ctx, sampleFiles())
	require.NoError(t, err)

	b, err := db.BookByRelPath(ctx, "sub/b.epub")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "Breads", b.Title)

	b, err = db.BookByRelPath(ctx, "nope.epub")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestPurgeMissing(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	root := t.TempDir()

	// Only a.epub exists on disk.
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.epub"), []byte("x"), 0644))
	_, err := db.UpsertBooks(ctx, sampleFiles())
	require.NoError(t, err)

	purged, err := db.PurgeMissing(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	books, err := db.Books(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "a.epub", books[0].RelPath)
}

func TestPurgeMissing_CascadesRecipes(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.UpsertBooks(ctx, sampleFiles())
	require.NoError(t, err)
	b, err := db.BookByRelPath(ctx, "a.epub")
	require.NoError(t, err)

	require.NoError(t, db.ReplaceRecipes(ctx, b.ID, []models.Recipe{
		{Title: "Apple Pie", MethodText: "Bake it.", SourceKey: "ch1#pie"},
	}))

	// Empty root: everything is missing.
	_, err = db.PurgeMissing(ctx, t.TempDir())
	require.NoError(t, err)

	n, err := db.RecipeCount(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	hits, err := db.SearchRecipes(ctx, "pie", 10)
	require.NoError(t, err)
	assert.Empty(t, hits, "FTS rows must go with their recipes")
}

func TestReplaceRecipesAndSearch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.UpsertBooks(ctx, sampleFiles())
	require.NoError(t, err)
	b, err := db.BookByRelPath(ctx, "a.epub")
	require.NoError(t, err)

	recipes := []models.Recipe{
		{Title: "Lemon Chicken", IngredientsText: "1 lemon\n1 chicken", MethodText: "Roast the chicken with the lemon inside.", SourceKey: "ch2#lemon-chicken"},
		{Title: "Apple Pie", IngredientsText: "6 apples\npastry", MethodText: "Fill the pastry and bake.", SourceKey: "ch3#apple-pie", ImageHref: "images/pie.jpg"},
	}
	require.NoError(t, db.ReplaceRecipes(ctx, b.ID, recipes))

	at, err := db.RecipesExtractedAt(ctx, b.ID)
	require.NoError(t, err)
	assert.NotZero(t, at)

	hits, err := db.SearchRecipes(ctx, "lemon", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Lemon Chicken", hits[0].Title)
	assert.Equal(t, "Apples", hits[0].BookTitle)
	assert.NotEmpty(t, hits[0].Snippet)

	// Matching on ingredients too.
	hits, err = db.SearchRecipes(ctx, "pastry", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Apple Pie", hits[0].Title)

	// Replacing drops the previous set.
	require.NoError(t, db.ReplaceRecipes(ctx, b.ID, recipes[:1]))
	n, err := db.RecipeCount(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err = db.SearchRecipes(ctx, "pie", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRecipesExtractedAt_NoRecipes(t *testing.T) {
	db := openTestDB(t)
	at, err := db.RecipesExtractedAt(context.Background(), 42)
	require.NoError(t, err)
	assert.Zero(t, at)
}

func TestPositions_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	store := db.Positions()

	_, ok := store.Load("abcd1234")
	assert.False(t, ok)

	store.Save("abcd1234", "loc:2:500")
	token, ok := store.Load("abcd1234")
	require.True(t, ok)
	assert.Equal(t, "loc:2:500", token)

	// Saves overwrite.
	store.Save("abcd1234", "loc:3:0")
	token, _ = store.Load("abcd1234")
	assert.Equal(t, "loc:3:0", token)
}

func TestPositions_StoresKeysVerbatim(t *testing.T) {
	db := openTestDB(t)
	store := db.Positions()

	// The reader session hands over already-namespaced keys; the store
	// must not layer its own prefix on top.
	key := reader.StatePrefix + "abcd1234"
	store.Save(key, "loc:1:0")

	var value string
	err := db.sql.QueryRow(`SELECT value FROM reader_state WHERE key = ?`,
		key).Scan(&value)
	require.NoError(t, err)
	assert.Equal(t, "loc:1:0", value)
}

func TestVacuum(t *testing.T) {
	db := openTestDB(t)
	_, err := db.UpsertBooks(context.Background(), sampleFiles())
	require.NoError(t, err)
	require.NoError(t, db.Vacuum(context.Background()))
}

func TestIndexer_Run(t *testing.T) {
	db := openTestDB(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "plain.pdf"), []byte("x"), 0644))

	ix := &Indexer{DB: db, LibraryDir: root, Purge: true}
	stats, err := ix.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.BooksSeen)
	assert.Zero(t, stats.BooksPurged)

	// The file vanishes; the next run purges its row.
	require.NoError(t, os.Remove(filepath.Join(root, "plain.pdf")))
	stats, err = ix.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.BooksSeen)
	assert.Equal(t, 1, stats.BooksPurged)
}
