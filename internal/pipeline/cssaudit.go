package pipeline

import (
	"errors"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxParseErrors stops the CSS scan on hopelessly malformed input.
const maxParseErrors = 1000

// Declaration is one CSS property and value found in the document.
type Declaration struct {
	Property string
	Value    string
}

func (d Declaration) String() string {
	return d.Property + ": " + d.Value
}

// CollectDeclarations returns the distinct CSS declarations found in <style>
// blocks and style attributes. Custom properties and the stylesheet injected
// by CSSInjection are skipped.
func CollectDeclarations(htmlContent string) ([]Declaration, error) {
	doc, _, err := parseHTML(htmlContent)
	if err != nil {
		return nil, err
	}

	seen := make(map[Declaration]struct{})
	var out []Declaration
	add := func(decls []Declaration) {
		for _, d := range decls {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}

	var walkErr error
	walk(doc, func(n *html.Node) {
		if walkErr != nil || n.Type != html.ElementNode {
			return
		}
		if n.DataAtom == atom.Style && attr(n, "data-epub2pdf") == "" {
			var b strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
				}
			}
			decls, err := ParseDeclarations(b.String(), false)
			if err != nil {
				walkErr = err
				return
			}
			add(decls)
		}
		if style := attr(n, "style"); style != "" {
			decls, err := ParseDeclarations(style, true)
			if err != nil {
				walkErr = err
				return
			}
			add(decls)
		}
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return out, nil
}

// ParseDeclarations extracts property/value pairs from a stylesheet, or from
// a declaration list when inline is true.
func ParseDeclarations(src string, inline bool) ([]Declaration, error) {
	p := css.NewParser(parse.NewInputString(src), inline)
	var out []Declaration
	parseErrors := 0
	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if p.HasParseError() {
				parseErrors++
				if parseErrors > maxParseErrors {
					return out, nil
				}
				continue
			}
			if err := p.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
			return out, nil
		case css.DeclarationGrammar:
			value := declarationValue(p.Values())
			if value == "" {
				continue
			}
			out = append(out, Declaration{
				Property: strings.ToLower(string(data)),
				Value:    value,
			})
		}
	}
}

func declarationValue(tokens []css.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.Write(t.Data)
	}
	v := strings.TrimSpace(b.String())
	lower := strings.ToLower(v)
	if i := strings.LastIndex(lower, "!important"); i >= 0 && strings.TrimSpace(lower[i+len("!important"):]) == "" {
		v = strings.TrimSpace(v[:i])
	}
	return v
}
