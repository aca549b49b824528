package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const (
	configFileName  = "config.json"
	configDirName   = "bayleaf"
	dbFileName      = "bayleaf.db"
	MaxRecentlyRead = 10 // Maximum number of recently read books to track
)

// Environment overrides, checked after the config file is loaded.
const (
	EnvLibraryDir = "BAYLEAF_LIBRARY_DIR"
	EnvDBPath     = "BAYLEAF_DB_PATH"
	EnvBook       = "BAYLEAF_BOOK"
)

// RecentlyReadEntry represents a recently opened book
type RecentlyReadEntry struct {
	Address  string    `json:"address"`
	Title    string    `json:"title"`
	OpenedAt time.Time `json:"opened_at"`
}

// Config holds the application configuration
type Config struct {
	LibraryDir   string              `json:"library_dir,omitempty"`
	DatabasePath string              `json:"database_path,omitempty"`
	BookAddress  string              `json:"book_address,omitempty"`
	RecentlyRead []RecentlyReadEntry `json:"recently_read,omitempty"`

	// Path to config file (not persisted)
	path string `json:"-"`
}

// Load loads configuration from the config file, applies defaults for
// anything unset, then applies environment overrides.
func Load() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := &Config{path: configPath}

	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
		cfg.path = configPath
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if cfg.LibraryDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.LibraryDir = filepath.Join(home, "Books")
		}
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(filepath.Dir(configPath), dbFileName)
	}

	if v := os.Getenv(EnvLibraryDir); v != "" {
		cfg.LibraryDir = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv(EnvBook); v != "" {
		cfg.BookAddress = v
	}

	return cfg, nil
}

// Save persists the configuration to disk
func (c *Config) Save() error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

// AddRecentlyRead adds a book to the recently read list
func (c *Config) AddRecentlyRead(address, title string) error {
	newList := make([]RecentlyReadEntry, 0, MaxRecentlyRead)
	for _, entry := range c.RecentlyRead {
		if entry.Address != address {
			newList = append(newList, entry)
		}
	}

	entry := RecentlyReadEntry{
		Address:  address,
		Title:    title,
		OpenedAt: time.Now(),
	}
	c.RecentlyRead = append([]RecentlyReadEntry{entry}, newList...)

	if len(c.RecentlyRead) > MaxRecentlyRead {
		c.RecentlyRead = c.RecentlyRead[:MaxRecentlyRead]
	}

	return c.Save()
}

// RecentlyReadAddresses returns recently read book addresses, newest first.
func (c *Config) RecentlyReadAddresses() []string {
	addrs := make([]string, len(c.RecentlyRead))
	for i, entry := range c.RecentlyRead {
		addrs[i] = entry.Address
	}
	return addrs
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}

	return filepath.Join(configDir, configDirName, configFileName), nil
}
