package pipeline

import (
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RewriteRelativePaths converts relative image paths to absolute file:// URLs
// rooted at sourceDir. If sourceDir is empty, returns the HTML unchanged.
//
// Rewrites img[src] and SVG image[href|xlink:href]. Paths that would escape
// sourceDir, URLs, data URIs and absolute paths are left untouched.
func RewriteRelativePaths(htmlContent, sourceDir string) (string, error) {
	if sourceDir == "" {
		return htmlContent, nil
	}

	absSourceDir, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", err
	}

	return MapImageSources(htmlContent, func(src string) string {
		if !isRelativePath(src) {
			return src
		}
		rel, err := url.PathUnescape(src)
		if err != nil {
			rel = src
		}
		// Drop query and fragment before resolving on disk.
		if i := strings.IndexAny(rel, "?#"); i >= 0 {
			rel = rel[:i]
		}
		absPath := filepath.Join(absSourceDir, filepath.FromSlash(rel))
		if !IsPathUnderDir(absPath, absSourceDir) {
			return src
		}
		return pathToFileURL(absPath)
	})
}

// MapImageSources applies fn to every image source attribute in the document
// and returns the re-rendered HTML.
func MapImageSources(htmlContent string, fn func(src string) string) (string, error) {
	doc, isFragment, err := parseHTML(htmlContent)
	if err != nil {
		return "", err
	}

	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch {
		case n.DataAtom == atom.Img:
			mapAttr(n, "src", fn)
		case n.Namespace == "svg" && n.Data == "image":
			mapAttr(n, "href", fn)
			mapAttr(n, "xlink:href", fn)
		}
	})

	return renderHTML(doc, isFragment)
}

// ImageSources lists image source attributes in document order.
func ImageSources(htmlContent string) ([]string, error) {
	var srcs []string
	_, err := MapImageSources(htmlContent, func(src string) string {
		if src != "" {
			srcs = append(srcs, src)
		}
		return src
	})
	return srcs, err
}

func mapAttr(n *html.Node, key string, fn func(string) string) {
	for i := range n.Attr {
		a := &n.Attr[i]
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		if name == key {
			a.Val = fn(a.Val)
		}
	}
}

// parseHTML parses HTML content, handling both full documents and fragments.
// Returns the parsed node, whether it was a fragment, and any error.
func parseHTML(content string) (*html.Node, bool, error) {
	trimmed := strings.ToLower(strings.TrimSpace(content))

	if strings.HasPrefix(trimmed, "<!doctype") ||
		strings.HasPrefix(trimmed, "<html") ||
		strings.HasPrefix(trimmed, "<?xml") {
		doc, err := html.Parse(strings.NewReader(content))
		return doc, false, err
	}

	body := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return nil, true, err
	}

	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}

	return container, true, nil
}

// renderHTML renders the document back to string.
// For fragments, only renders the children (avoids adding <html><body> wrapper).
func renderHTML(doc *html.Node, isFragment bool) (string, error) {
	var buf strings.Builder

	if isFragment {
		for c := doc.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", err
			}
		}
		return buf.String(), nil
	}

	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// isRelativePath returns true if the path should be rewritten.
func isRelativePath(path string) bool {
	if path == "" {
		return false
	}

	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "file://") ||
		strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(path, "//") {
		return false
	}

	if strings.HasPrefix(path, "#") {
		return false
	}

	return !filepath.IsAbs(path) && !strings.HasPrefix(path, "/")
}

// IsPathUnderDir reports whether absPath is dir or lies inside it.
func IsPathUnderDir(absPath, dir string) bool {
	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(dir)

	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}

	return strings.HasPrefix(cleanPath+string(filepath.Separator), cleanDir)
}

// pathToFileURL converts an absolute path to a file:// URL.
func pathToFileURL(absPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(absPath),
	}
	return u.String()
}
