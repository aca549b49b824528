// Package library finds and describes the book files under the configured
// library root. It knows nothing about the index database or the reader;
// it only walks the filesystem.
package library

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// allowedSuffixes are the file extensions treated as books.
var allowedSuffixes = map[string]bool{
	".epub": true,
	".pdf":  true,
}

// BookFile describes one book file found under the library root.
type BookFile struct {
	RelPath    string
	FileName   string
	FileType   string // extension without the dot, lowercased
	FileSize   int64
	ModifiedAt int64 // unix mtime
	Title      string
	Author     string
}

// Scan recursively lists book files under root, sorted by title
// (case-insensitive). A missing root yields an empty result, not an error;
// an empty library is a normal state.
func Scan(root string) ([]BookFile, error) {
	var files []BookFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !allowedSuffixes[ext] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		title, author := GuessTitleAuthor(d.Name())
		files = append(files, BookFile{
			RelPath:    filepath.ToSlash(rel),
			FileName:   d.Name(),
			FileType:   strings.TrimPrefix(ext, "."),
			FileSize:   info.Size(),
			ModifiedAt: info.ModTime().Unix(),
			Title:      title,
			Author:     author,
		})
		return nil
	})
	if err != nil {
		// WalkDir only returns an error for an unusable root.
		return nil, nil
	}
	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i].Title) < strings.ToLower(files[j].Title)
	})
	return files, nil
}

// GuessTitleAuthor derives a title and author from a file name. The common
// "Author - Title" pattern is split when the first part looks like a person
// name; otherwise the whole stem becomes the title.
func GuessTitleAuthor(fileName string) (title, author string) {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	var parts []string
	for _, p := range strings.Split(base, " - ") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return base, ""
	}
	first := []rune(parts[0])
	if strings.Contains(parts[0], " ") && len(first) > 0 && unicode.IsLetter(first[0]) {
		return strings.Join(parts[1:], " - "), parts[0]
	}
	return parts[0], strings.Join(parts[1:], " - ")
}

// Filter returns the files whose title contains q, case-insensitively.
// An empty query returns the input unchanged.
func Filter(files []BookFile, q string) []BookFile {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return files
	}
	var out []BookFile
	for _, f := range files {
		if strings.Contains(strings.ToLower(f.Title), q) {
			out = append(out, f)
		}
	}
	return out
}
