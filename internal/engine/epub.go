package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/simp-lee/epub"
)

var (
	// ErrUnsupportedFormat reports a book address this engine cannot render
	// (anything that is not an EPUB file).
	ErrUnsupportedFormat = errors.New("engine: unsupported book format")

	// ErrEmptyBook reports an EPUB with no readable content chapters.
	ErrEmptyBook = errors.New("engine: book has no readable content")
)

type epubEngine struct{}

// NewEPUB returns the default rendering engine. It renders EPUB files
// addressed by local path or file:// URL.
func NewEPUB() Engine {
	return epubEngine{}
}

func (epubEngine) Load(ctx context.Context, address string) (BookHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := addressPath(address)
	if err != nil {
		return nil, err
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".epub" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	book, err := epub.Open(path)
	if err != nil {
		return nil, fmt.Errorf("engine: open %s: %w", path, err)
	}
	return &epubHandle{book: book}, nil
}

// addressPath maps a book address to a filesystem path. file:// URLs are
// unwrapped; everything else is taken as a path verbatim.
func addressPath(address string) (string, error) {
	if !strings.HasPrefix(address, "file://") {
		return address, nil
	}
	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("engine: bad address %q: %w", address, err)
	}
	return u.Path, nil
}

type epubHandle struct {
	book *epub.Book
}

func (h *epubHandle) Metadata(ctx context.Context) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	md := h.book.Metadata()
	var out Metadata
	if len(md.Titles) > 0 {
		out.Title = md.Titles[0]
	}
	if len(md.Authors) > 0 {
		out.Author = md.Authors[0].Name
	}
	return out, nil
}

func (h *epubHandle) RenderTo(v *Viewer, layout LayoutConfig) (Rendition, error) {
	if v == nil {
		return nil, errors.New("engine: nil viewer")
	}
	chapters := h.book.ContentChapters()
	texts := make([]string, 0, len(chapters))
	titles := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		text, err := ch.TextContent()
		if err != nil {
			return nil, fmt.Errorf("engine: extract %s: %w", ch.Href, err)
		}
		texts = append(texts, text)
		titles = append(titles, ch.Title)
	}
	if len(texts) == 0 {
		return nil, ErrEmptyBook
	}
	return &epubRendition{
		viewer: v,
		layout: layout,
		texts:  texts,
		titles: titles,
		cur:    -1,
	}, nil
}

func (h *epubHandle) Close() error {
	return h.book.Close()
}

// renditionPage is one laid-out page of a chapter.
type renditionPage struct {
	lines   []string
	chapter int
	index   int // page number within the chapter
	total   int // page count of the chapter
}

// epubRendition paginates extracted chapter text into viewer-sized pages.
// Position tokens have the form "loc:<chapter>:<permille>", which keeps a
// restored location meaningful after the surface is resized and pages
// reflow.
type epubRendition struct {
	viewer *Viewer
	layout LayoutConfig
	texts  []string
	titles []string

	mu          sync.Mutex
	onRelocated func(token string)

	// pagination, rebuilt lazily whenever the viewer geometry changes
	w, h  int
	cols  int
	pageW int
	pages []renditionPage
	cur   int // leftmost visible page; -1 before the first display
}

const (
	spreadGutter    = 4
	autoSpreadWidth = 120 // auto layout shows two pages from this width up
	minPageWidth    = 20
)

func (r *epubRendition) OnRelocated(fn func(token string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRelocated = fn
}

func (r *epubRendition) Display(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.reflowLocked()
	target := 0
	if token != "" {
		// A stale or malformed token reads as "start from the beginning";
		// the next relocation overwrites it in the store.
		if ch, permille, ok := parseToken(token); ok && ch < len(r.texts) {
			target = r.pageForLocked(ch, permille)
		}
	}
	r.goToLocked(target, true)
	return nil
}

func (r *epubRendition) Next(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.reflowLocked()
	r.goToLocked(r.cur+r.cols, false)
	return nil
}

func (r *epubRendition) Prev(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.reflowLocked()
	r.goToLocked(r.cur-r.cols, false)
	return nil
}

// Location describes the visible position for host chrome (progress bars,
// chapter labels). Not part of the session's engine contract.
type Location struct {
	Chapter      int
	ChapterTitle string
	ChapterPages int
	ChapterPage  int     // 1-based
	Progress     float64 // 0..1 through the whole book
}

// Location returns the current location. Zero value before first display.
func (r *epubRendition) Location() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur < 0 || r.cur >= len(r.pages) {
		return Location{}
	}
	p := r.pages[r.cur]
	loc := Location{
		Chapter:      p.chapter,
		ChapterPages: p.total,
		ChapterPage:  p.index + 1,
	}
	if p.chapter < len(r.titles) {
		loc.ChapterTitle = r.titles[p.chapter]
	}
	if len(r.pages) > 1 {
		loc.Progress = float64(r.cur) / float64(len(r.pages)-1)
	} else {
		loc.Progress = 1
	}
	return loc
}

// goToLocked moves to page i, clamps to the book bounds, repaints, and
// fires the relocation callback. Releases r.mu before invoking the
// callback. No relocation fires when the position did not change, unless
// forced (the initial display).
func (r *epubRendition) goToLocked(i int, force bool) {
	maxStart := 0
	if len(r.pages) > 0 {
		maxStart = ((len(r.pages) - 1) / r.cols) * r.cols
	}
	if i < 0 {
		i = 0
	}
	if i > maxStart {
		i = maxStart
	}
	if i == r.cur && !force {
		r.mu.Unlock()
		return
	}
	r.cur = i
	r.viewer.paint(r.frameLocked())
	fn := r.onRelocated
	token := r.tokenLocked()
	r.mu.Unlock()
	if fn != nil {
		fn(token)
	}
}

func (r *epubRendition) tokenLocked() string {
	if r.cur < 0 || r.cur >= len(r.pages) {
		return "loc:0:0"
	}
	p := r.pages[r.cur]
	permille := 0
	if p.total > 1 {
		permille = p.index * 1000 / (p.total - 1)
	}
	return fmt.Sprintf("loc:%d:%d", p.chapter, permille)
}

func parseToken(token string) (chapter, permille int, ok bool) {
	var ch, pm int
	if _, err := fmt.Sscanf(token, "loc:%d:%d", &ch, &pm); err != nil {
		return 0, 0, false
	}
	if ch < 0 || pm < 0 || pm > 1000 {
		return 0, 0, false
	}
	return ch, pm, true
}

// pageForLocked maps a chapter and permille offset back to a page index
// under the current pagination.
func (r *epubRendition) pageForLocked(chapter, permille int) int {
	first, total := -1, 0
	for i, p := range r.pages {
		if p.chapter == chapter {
			if first < 0 {
				first = i
			}
			total = p.total
		}
	}
	if first < 0 {
		return 0
	}
	if total <= 1 {
		return first
	}
	return first + permille*(total-1)/1000
}

// reflowLocked rebuilds pagination when the viewer geometry changed since
// the last paint, keeping the current location.
func (r *epubRendition) reflowLocked() {
	w, h := r.viewer.Size()
	if w == r.w && h == r.h && r.pages != nil {
		return
	}

	var keepChapter, keepPermille int
	restore := false
	if r.cur >= 0 && r.cur < len(r.pages) {
		if ch, pm, ok := parseToken(r.tokenLocked()); ok {
			keepChapter, keepPermille = ch, pm
			restore = true
		}
	}

	r.w, r.h = w, h
	r.cols = 1
	switch r.layout.Spread {
	case SpreadDouble:
		r.cols = 2
	case SpreadAuto:
		if w >= autoSpreadWidth {
			r.cols = 2
		}
	}
	r.pageW = (w - spreadGutter*(r.cols-1)) / r.cols
	if r.pageW < minPageWidth {
		r.pageW = minPageWidth
	}
	pageH := h
	if pageH < 1 {
		pageH = 1
	}

	r.pages = nil
	for ci, text := range r.texts {
		lines := wrapText(text, r.pageW)
		if len(lines) == 0 {
			lines = []string{""}
		}
		var chapterPages []renditionPage
		for start := 0; start < len(lines); start += pageH {
			end := start + pageH
			if end > len(lines) {
				end = len(lines)
			}
			chapterPages = append(chapterPages, renditionPage{
				lines:   lines[start:end],
				chapter: ci,
				index:   len(chapterPages),
			})
		}
		for i := range chapterPages {
			chapterPages[i].total = len(chapterPages)
		}
		r.pages = append(r.pages, chapterPages...)
	}

	if restore {
		r.cur = r.pageForLocked(keepChapter, keepPermille)
	}
}

// frameLocked renders the visible page or spread.
func (r *epubRendition) frameLocked() string {
	if r.cur < 0 || r.cur >= len(r.pages) {
		return ""
	}
	if r.cols == 1 {
		return strings.Join(r.pages[r.cur].lines, "\n")
	}

	left := r.pages[r.cur]
	var right *renditionPage
	if r.cur+1 < len(r.pages) {
		right = &r.pages[r.cur+1]
	}

	height := len(left.lines)
	if right != nil && len(right.lines) > height {
		height = len(right.lines)
	}
	gutter := strings.Repeat(" ", spreadGutter)

	var b strings.Builder
	for i := 0; i < height; i++ {
		var l, rr string
		if i < len(left.lines) {
			l = left.lines[i]
		}
		if right != nil && i < len(right.lines) {
			rr = right.lines[i]
		}
		b.WriteString(padRight(l, r.pageW))
		b.WriteString(gutter)
		b.WriteString(rr)
		if i < height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func padRight(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// wrapText word-wraps text to the given width, preserving paragraph
// breaks as blank lines.
func wrapText(text string, width int) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		var current strings.Builder
		for _, word := range words {
			switch {
			case current.Len() == 0:
				current.WriteString(word)
			case current.Len()+1+len(word) <= width:
				current.WriteString(" ")
				current.WriteString(word)
			default:
				lines = append(lines, current.String())
				current.Reset()
				current.WriteString(word)
			}
		}
		if current.Len() > 0 {
			lines = append(lines, current.String())
		}
	}
	// Trim leading/trailing paragraph padding.
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
