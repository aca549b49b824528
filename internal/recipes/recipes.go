// Package recipes extracts recipes from EPUB cookbooks. A recipe is a
// heading-delimited section that carries a method: the extractor walks the
// book spine, splits each document into sections at h1–h3 headings, and
// buckets the section's text under its ingredient/method sub-headings.
// The heuristics are deliberately loose; a cookbook that labels things
// unusually yields fewer recipes, never an error.
package recipes

import (
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/simp-lee/epub"
	"golang.org/x/net/html"

	"github.com/hollyoak/bayleaf/pkg/models"
)

var (
	// Section titles that are never recipes (front/back matter).
	ignoreTitleRE = regexp.MustCompile(`(?i)acknowledg|equipment|conversion|glossary|index|about the author|contents|introduction|chapter|bibliography|notes|preface`)

	ingredientsRE = regexp.MustCompile(`(?i)\bingredient`)
	methodRE      = regexp.MustCompile(`(?i)\b(method|directions?|instructions?|preparation)\b`)
)

// block is one text-bearing element of a content document.
type block struct {
	tag   string
	text  string
	level int // heading level, 0 for non-headings
	id    string
}

// capturedTags are the elements whose text becomes blocks.
var capturedTags = map[string]int{
	"p": 0, "li": 0, "h1": 1, "h2": 2, "h3": 3, "h4": 4,
}

// ExtractFile opens the EPUB at epubPath and extracts up to maxRecipes
// recipes (0 means no cap).
func ExtractFile(epubPath string, maxRecipes int) ([]models.Recipe, error) {
	book, err := epub.Open(epubPath)
	if err != nil {
		return nil, fmt.Errorf("recipes: open %s: %w", epubPath, err)
	}
	defer book.Close()
	return Extract(book, maxRecipes)
}

// Extract walks book's spine and collects recipes in reading order.
func Extract(book *epub.Book, maxRecipes int) ([]models.Recipe, error) {
	var out []models.Recipe
	for _, ch := range book.Chapters() {
		data, err := ch.RawContent()
		if err != nil {
			// A damaged spine entry skips that document only.
			continue
		}
		for _, sec := range splitSections(parseBlocks(data)) {
			r := collectRecipe(sec, ch.Href)
			if r == nil {
				continue
			}
			out = append(out, *r)
			if maxRecipes > 0 && len(out) >= maxRecipes {
				return out, nil
			}
		}
	}
	return out, nil
}

// parseBlocks tokenizes an XHTML document into flat text blocks. Nested
// captured tags inside an active block are ignored; images become their
// own blocks carrying the src reference.
func parseBlocks(data []byte) []block {
	z := html.NewTokenizer(bytes.NewReader(data))
	var blocks []block
	var active *block
	var buf []string

	for {
		switch z.Next() {
		case html.ErrorToken:
			return blocks

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			attrs := map[string]string{}
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				attrs[string(k)] = string(v)
			}
			if tag == "img" {
				if src := strings.TrimSpace(attrs["src"]); src != "" {
					blocks = append(blocks, block{tag: "img", text: src})
				}
				continue
			}
			if active != nil {
				continue
			}
			if level, ok := capturedTags[tag]; ok {
				active = &block{tag: tag, level: level, id: attrs["id"]}
				buf = buf[:0]
			}

		case html.TextToken:
			if active != nil {
				buf = append(buf, string(z.Text()))
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if active == nil || string(name) != active.tag {
				continue
			}
			if text := strings.Join(strings.Fields(strings.Join(buf, " ")), " "); text != "" {
				active.text = text
				blocks = append(blocks, *active)
			}
			active = nil
		}
	}
}

// section is a run of blocks under one h1–h3 heading.
type section struct {
	title   string
	titleID string
	blocks  []block
}

// splitSections groups blocks into sections at h1–h3 headings. Blocks
// before the first such heading belong to no section.
func splitSections(blocks []block) []section {
	var sections []section
	var current *section
	for _, b := range blocks {
		if b.level >= 1 && b.level <= 3 {
			if current != nil {
				sections = append(sections, *current)
			}
			current = &section{title: b.text, titleID: b.id}
			continue
		}
		if current != nil {
			current.blocks = append(current.blocks, b)
		}
	}
	if current != nil {
		sections = append(sections, *current)
	}
	return sections
}

// collectRecipe turns a section into a recipe, or nil when the section is
// boilerplate or carries no method.
func collectRecipe(sec section, href string) *models.Recipe {
	title := strings.TrimSpace(sec.title)
	if title == "" || ignoreTitleRE.MatchString(title) {
		return nil
	}

	var ingredients, method []string
	var imageHref string
	bucket := ""
	for _, b := range sec.blocks {
		if b.tag == "img" {
			if imageHref == "" {
				imageHref = resolveImage(href, b.text)
			}
			continue
		}
		if b.level > 0 {
			switch {
			case ingredientsRE.MatchString(b.text):
				bucket = "ingredients"
			case methodRE.MatchString(b.text):
				bucket = "method"
			default:
				bucket = ""
			}
			continue
		}
		switch bucket {
		case "ingredients":
			ingredients = append(ingredients, b.text)
		case "method":
			method = append(method, b.text)
		}
	}
	if len(method) == 0 {
		return nil
	}

	sourceKey := href
	if sec.titleID != "" {
		sourceKey = href + "#" + sec.titleID
	}
	return &models.Recipe{
		Title:           title,
		IngredientsText: strings.TrimSpace(strings.Join(ingredients, "\n")),
		MethodText:      strings.TrimSpace(strings.Join(method, "\n")),
		SourceKey:       sourceKey,
		ImageHref:       imageHref,
	}
}

// resolveImage maps an img src to an archive path relative to the EPUB
// root. Data URIs and absolute URLs are not images we can store.
func resolveImage(href, src string) string {
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(src, "data:") || strings.Contains(src, "://") {
		return ""
	}
	if strings.HasPrefix(src, "/") {
		return strings.TrimLeft(src, "/")
	}
	return path.Join(path.Dir(href), src)
}
