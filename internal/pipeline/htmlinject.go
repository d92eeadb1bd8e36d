package pipeline

import (
	"context"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// CSSInjector defines the contract for CSS injection into HTML.
type CSSInjector interface {
	InjectCSS(ctx context.Context, htmlContent, cssContent string) string
}

// CSSInjection injects CSS as a <style> block into HTML content.
type CSSInjection struct{}

// InjectCSS inserts a <style> block into HTML content.
// Tries </head> first, then <body>, then prepends to the HTML.
// CSS content is sanitized to prevent injection attacks.
func (s *CSSInjection) InjectCSS(ctx context.Context, htmlContent, cssContent string) string {
	if cssContent == "" {
		return htmlContent
	}

	if ctx.Err() != nil {
		return htmlContent
	}

	styleBlock := `<style data-epub2pdf="print">` + sanitizeCSS(cssContent) + "</style>"
	lowerHTML := strings.ToLower(htmlContent)

	if idx := strings.Index(lowerHTML, "</head>"); idx != -1 {
		return htmlContent[:idx] + styleBlock + htmlContent[idx:]
	}

	if idx := strings.Index(lowerHTML, "<body"); idx != -1 {
		closeIdx := strings.Index(htmlContent[idx:], ">")
		if closeIdx != -1 {
			insertPos := idx + closeIdx + 1
			return htmlContent[:insertPos] + styleBlock + htmlContent[insertPos:]
		}
	}

	return styleBlock + htmlContent
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// noImagesCSS hides background images that survive element stripping.
const noImagesCSS = `*, *::before, *::after { background-image: none !important; }`

// StripImages removes every image-bearing element (img, picture, SVG image,
// image inputs) and returns the document with the number of removed elements.
func StripImages(htmlContent string) (string, int, error) {
	doc, isFragment, err := parseHTML(htmlContent)
	if err != nil {
		return "", 0, err
	}

	removed := removeNodes(doc, isImageNode)

	out, err := renderHTML(doc, isFragment)
	if err != nil {
		return "", 0, err
	}
	return (&CSSInjection{}).InjectCSS(context.Background(), out, noImagesCSS), removed, nil
}

// CountImages returns the number of <img> elements in the document.
func CountImages(htmlContent string) (int, error) {
	doc, _, err := parseHTML(htmlContent)
	if err != nil {
		return 0, err
	}
	n := 0
	walk(doc, func(node *html.Node) {
		if node.Type == html.ElementNode && node.DataAtom == atom.Img {
			n++
		}
	})
	return n, nil
}

func isImageNode(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Img, atom.Picture:
		return true
	case atom.Input:
		return attr(n, "type") == "image"
	}
	// SVG <image> keeps its namespace and has no atom in foreign content.
	return n.Namespace == "svg" && n.Data == "image"
}

// removeNodes detaches every node matching pred and returns the count.
func removeNodes(n *html.Node, pred func(*html.Node) bool) int {
	removed := 0
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if pred(c) {
			n.RemoveChild(c)
			removed++
		} else {
			removed += removeNodes(c, pred)
		}
		c = next
	}
	return removed
}

// walk visits n and all its descendants in document order.
func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
