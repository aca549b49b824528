package config

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv(EnvLibraryDir, "")
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvBook, "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.LibraryDir)
	assert.Equal(t, filepath.Join(dir, "bayleaf", "bayleaf.db"), cfg.DatabasePath)
	assert.Empty(t, cfg.BookAddress)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLibraryDir, "/mnt/books")
	t.Setenv(EnvDBPath, "/tmp/other.db")
	t.Setenv(EnvBook, "/mnt/books/default.epub")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/mnt/books", cfg.LibraryDir)
	assert.Equal(t, "/tmp/other.db", cfg.DatabasePath)
	assert.Equal(t, "/mnt/books/default.epub", cfg.BookAddress)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	cfg.LibraryDir = "/srv/library"
	cfg.BookAddress = "/srv/library/current.epub"
	require.NoError(t, cfg.Save())

	again, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/library", again.LibraryDir)
	assert.Equal(t, "/srv/library/current.epub", again.BookAddress)
}

func TestAddRecentlyRead(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.NoError(t, cfg.AddRecentlyRead("/b/one.epub", "One"))
	require.NoError(t, cfg.AddRecentlyRead("/b/two.epub", "Two"))
	require.NoError(t, cfg.AddRecentlyRead("/b/one.epub", "One"))

	// Re-opening moves to the front without duplicating.
	assert.Equal(t, []string{"/b/one.epub", "/b/two.epub"}, cfg.RecentlyReadAddresses())

	for i := 0; i < MaxRecentlyRead+3; i++ {
		require.NoError(t, cfg.AddRecentlyRead(fmt.Sprintf("/b/extra-%d.epub", i), "x"))
	}
	assert.Len(t, cfg.RecentlyRead, MaxRecentlyRead)
}
