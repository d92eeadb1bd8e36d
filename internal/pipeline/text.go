package pipeline

import (
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TextDocument is the plain-text projection of an HTML document.
type TextDocument struct {
	Title string
	// Lines holds one entry per non-empty block of text, trimmed, in
	// document order. Line breaks inside <pre> and <br> split lines.
	Lines []string
}

// Runes returns every distinct rune present in the title and lines.
func (d *TextDocument) Runes() []rune {
	seen := make(map[rune]struct{})
	var out []rune
	add := func(s string) {
		for _, r := range s {
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	add(d.Title)
	for _, l := range d.Lines {
		add(l)
	}
	return out
}

// blockAtoms are elements that end the current line.
var blockAtoms = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Caption: true, atom.Dd: true, atom.Div: true, atom.Dl: true,
	atom.Dt: true, atom.Figcaption: true, atom.Figure: true, atom.Footer: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true,
	atom.H6: true, atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true,
	atom.Nav: true, atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true,
	atom.Table: true, atom.Td: true, atom.Th: true, atom.Tr: true, atom.Ul: true,
}

// skippedAtoms never contribute text.
var skippedAtoms = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Template: true,
	atom.Noscript: true, atom.Svg: true, atom.Math: true,
}

// ExtractText strips all markup from r. Block elements become line breaks,
// runs of whitespace inside a block collapse to one space, and empty lines
// are dropped.
func ExtractText(r io.Reader) (*TextDocument, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	t := &textCollector{}
	t.visit(doc, false)
	t.flush()

	return &TextDocument{Title: findTitle(doc), Lines: t.lines}, nil
}

type textCollector struct {
	cur   strings.Builder
	lines []string
}

func (t *textCollector) visit(n *html.Node, pre bool) {
	switch n.Type {
	case html.TextNode:
		t.text(n.Data, pre)
		return
	case html.ElementNode:
		if skippedAtoms[n.DataAtom] {
			return
		}
		if n.DataAtom == atom.Pre {
			pre = true
		}
	}

	block := n.Type == html.ElementNode && blockAtoms[n.DataAtom]
	if block {
		t.flush()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		t.visit(c, pre)
	}
	if block {
		t.flush()
	}
}

func (t *textCollector) text(s string, pre bool) {
	if pre {
		parts := strings.Split(s, "\n")
		for i, p := range parts {
			if i > 0 {
				t.flush()
			}
			t.cur.WriteString(p)
		}
		return
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			r = ' '
		}
		t.cur.WriteRune(r)
	}
}

func (t *textCollector) flush() {
	line := strings.Join(strings.Fields(t.cur.String()), " ")
	t.cur.Reset()
	if line != "" {
		t.lines = append(t.lines, line)
	}
}

// findTitle returns the text of the first <title> element.
func findTitle(doc *html.Node) string {
	var title string
	var find func(*html.Node) bool
	find = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			var b strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
				}
			}
			title = strings.Join(strings.Fields(b.String()), " ")
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if find(c) {
				return true
			}
		}
		return false
	}
	find(doc)
	return title
}
