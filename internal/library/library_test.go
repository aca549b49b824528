package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestScan_FindsBooksRecursively(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Julia Child - Mastering the Art.epub"))
	writeFile(t, filepath.Join(root, "baking", "Flour Water Salt Yeast.epub"))
	writeFile(t, filepath.Join(root, "scans", "handwritten.pdf"))
	writeFile(t, filepath.Join(root, "notes.txt"))
	writeFile(t, filepath.Join(root, "cover.jpg"))

	files, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, files, 3)

	// Sorted by title, case-insensitively.
	assert.Equal(t, "Flour Water Salt Yeast", files[0].Title)
	assert.Equal(t, "handwritten", files[1].Title)
	assert.Equal(t, "Mastering the Art", files[2].Title)

	assert.Equal(t, "baking/Flour Water Salt Yeast.epub", files[0].RelPath)
	assert.Equal(t, "epub", files[0].FileType)
	assert.Equal(t, "pdf", files[1].FileType)
	assert.Equal(t, int64(1), files[0].FileSize)
	assert.NotZero(t, files[0].ModifiedAt)
}

func TestScan_MissingRoot(t *testing.T) {
	files, err := Scan(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGuessTitleAuthor(t *testing.T) {
	cases := []struct {
		fileName string
		title    string
		author   string
	}{
		{"Julia Child - Mastering the Art.epub", "Mastering the Art", "Julia Child"},
		{"Mastering the Art.epub", "Mastering the Art", ""},
		{"Bread - A History - Vol 1.epub", "Bread", "A History - Vol 1"},
		{"M.F.K. Fisher - How to Cook a Wolf.epub", "How to Cook a Wolf", "M.F.K. Fisher"},
		{"plain.pdf", "plain", ""},
	}
	for _, tc := range cases {
		title, author := GuessTitleAuthor(tc.fileName)
		assert.Equal(t, tc.title, title, tc.fileName)
		assert.Equal(t, tc.author, author, tc.fileName)
	}
}

func TestFilter(t *testing.T) {
	files := []BookFile{
		{Title: "Mastering the Art"},
		{Title: "Flour Water Salt Yeast"},
		{Title: "The Art of Fermentation"},
	}

	assert.Len(t, Filter(files, ""), 3)
	assert.Len(t, Filter(files, "art"), 2)

	got := Filter(files, "FLOUR")
	require.Len(t, got, 1)
	assert.Equal(t, "Flour Water Salt Yeast", got[0].Title)

	assert.Empty(t, Filter(files, "sausage"))
}
