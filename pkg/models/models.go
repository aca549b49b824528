package models

// File format constants
const (
	FileFormatEPUB = "epub"
	FileFormatPDF  = "pdf"
)

// Book represents an indexed book in the library catalog.
type Book struct {
	ID         int64  `json:"id"`
	RelPath    string `json:"rel_path"`
	FileName   string `json:"file_name"`
	FileType   string `json:"file_type"`
	FileSize   int64  `json:"file_size"`
	ModifiedAt int64  `json:"modified_mtime"`
	Title      string `json:"title,omitempty"`
	Author     string `json:"author,omitempty"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
}

// IsEPUB returns true if the book is an EPUB file.
func (b *Book) IsEPUB() bool {
	return b.FileType == FileFormatEPUB
}

// DisplayTitle returns the title to show in lists, falling back to the
// file name when no title was extracted.
func (b *Book) DisplayTitle() string {
	if b.Title != "" {
		return b.Title
	}
	return b.FileName
}

// Recipe represents a recipe extracted from a cookbook.
type Recipe struct {
	ID              int64  `json:"id"`
	BookID          int64  `json:"book_id"`
	Title           string `json:"title"`
	IngredientsText string `json:"ingredients_text,omitempty"`
	MethodText      string `json:"method_text"`
	SourceKey       string `json:"source_key"`
	ImageHref       string `json:"image_href,omitempty"`
}

// RecipeHit is a full-text search result with its source book attached.
type RecipeHit struct {
	Recipe
	BookTitle string `json:"book_title"`
	Snippet   string `json:"snippet,omitempty"`
}
