package epub2pdf

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/simp-lee/epub"

	"github.com/alnah/go-epub2pdf/internal/pipeline"
)

// epubConverter converts EPUB to HTML in-process, without pandoc.
// Chapters are concatenated in spine order and images are extracted into
// the media directory next to the HTML output.
type epubConverter struct{}

const bookTemplate = `<!DOCTYPE html>
<html lang="%s">
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`

// ToHTML writes a standalone HTML5 document at htmlPath.
func (c *epubConverter) ToHTML(ctx context.Context, epubPath, htmlPath string) error {
	book, err := epub.Open(epubPath)
	if err != nil {
		if errors.Is(err, epub.ErrDRMProtected) {
			return fmt.Errorf("%w: book is DRM protected", ErrConversion)
		}
		return fmt.Errorf("%w: %v", ErrConversion, err)
	}
	defer func() { _ = book.Close() }()

	dir := filepath.Dir(htmlPath)
	media := &mediaExtractor{
		book:    book,
		dir:     filepath.Join(dir, mediaDirName),
		written: make(map[string]string),
	}

	var body strings.Builder
	chapters := 0
	for _, ch := range book.ContentChapters() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrConversion, err)
		}
		if !ch.Linear {
			continue
		}

		inner, err := ch.BodyHTML()
		if err != nil {
			return fmt.Errorf("%w: chapter %s: %v", ErrConversion, ch.Href, err)
		}
		if strings.TrimSpace(inner) == "" {
			continue
		}

		inner, err = pipeline.MapImageSources(inner, media.extract)
		if err != nil {
			return fmt.Errorf("%w: chapter %s: %v", ErrConversion, ch.Href, err)
		}
		if media.err != nil {
			return fmt.Errorf("%w: extracting media: %w", ErrConversion, media.err)
		}

		fmt.Fprintf(&body, "<section class=\"chapter\" id=\"%s\">\n", html.EscapeString(ch.ID))
		if ch.Title != "" && !hasHeading(inner) {
			fmt.Fprintf(&body, "<h1>%s</h1>\n", html.EscapeString(ch.Title))
		}
		body.WriteString(inner)
		body.WriteString("\n</section>\n")
		chapters++
	}

	if chapters == 0 {
		return ErrNoChapters
	}

	meta := book.Metadata()
	title := ""
	if len(meta.Titles) > 0 {
		title = meta.Titles[0]
	}
	lang := "und"
	if len(meta.Language) > 0 && meta.Language[0] != "" {
		lang = meta.Language[0]
	}

	doc := fmt.Sprintf(bookTemplate, html.EscapeString(lang), html.EscapeString(title), body.String())
	if err := os.WriteFile(htmlPath, []byte(doc), inputFilePerm); err != nil {
		_ = os.Remove(htmlPath)
		return fmt.Errorf("%w: %w: writing HTML: %v", ErrConversion, ErrIO, err)
	}
	return nil
}

// mediaExtractor copies images out of the archive on first reference.
type mediaExtractor struct {
	book    *epub.Book
	dir     string
	written map[string]string // archive path -> rewritten src
	err     error
}

// extract returns the src to use for an image. Sources that are not in the
// archive, or would resolve outside the media directory, are left as is and
// surface later as broken images.
func (m *mediaExtractor) extract(src string) string {
	if src == "" || m.err != nil || strings.Contains(src, ":") {
		return src
	}
	name := strings.TrimPrefix(path.Clean("/"+src), "/")
	if rewritten, ok := m.written[name]; ok {
		return rewritten
	}

	data, err := m.book.ReadFile(name)
	if err != nil {
		return src
	}

	dest := filepath.Join(m.dir, filepath.FromSlash(name))
	if !pipeline.IsPathUnderDir(dest, m.dir) {
		return src
	}
	if err := os.MkdirAll(filepath.Dir(dest), workspaceDirPerm); err != nil {
		m.err = fmt.Errorf("%w: %v", ErrIO, err)
		return src
	}
	if err := os.WriteFile(dest, data, inputFilePerm); err != nil {
		m.err = fmt.Errorf("%w: %v", ErrIO, err)
		return src
	}

	rewritten := (&url.URL{Path: mediaDirName + "/" + name}).String()
	m.written[name] = rewritten
	return rewritten
}

// hasHeading reports whether a chapter body already carries a top-level heading.
func hasHeading(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "<h1") || strings.Contains(lower, "<h2")
}
