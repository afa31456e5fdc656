// Package document parses a static markup/stylesheet pair into a read-only
// tree that the static checks query by class, tag, attribute or selector.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// ErrEmptyDocument is returned when the markup contains no content at all.
var ErrEmptyDocument = errors.New("document is empty")

// Document is a parsed page. It is never mutated after Parse returns.
type Document struct {
	Root *html.Node
	// Styles holds the rules of every <style> element followed by the rules
	// of the external stylesheets, in that order.
	Styles StyleSheet
	// StyleText is the raw stylesheet text the rules were parsed from.
	StyleText string
	// Warnings collects non fatal problems such as unreadable linked sheets.
	Warnings []string

	elements []*html.Node
}

// Parse reads markup and appends the given external stylesheet texts to the
// document's embedded <style> blocks.
func Parse(markup io.Reader, stylesheets ...string) (*Document, error) {
	raw, err := io.ReadAll(markup)
	if err != nil {
		return nil, fmt.Errorf("failed to read markup: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyDocument
	}
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}

	d := &Document{Root: root}
	walk(root, func(n *html.Node) {
		if n.Type == html.ElementNode {
			d.elements = append(d.elements, n)
		}
	})

	var css strings.Builder
	for _, n := range d.ByTag("style") {
		css.WriteString(Text(n))
		css.WriteByte('\n')
	}
	for _, s := range stylesheets {
		css.WriteString(s)
		css.WriteByte('\n')
	}
	d.StyleText = css.String()
	d.Styles = ParseStyleSheet(d.StyleText)
	return d, nil
}

// Load reads a markup file and its stylesheet. When cssPath is empty, local
// stylesheets referenced by <link rel="stylesheet"> are resolved relative to
// the markup file instead.
func Load(htmlPath, cssPath string) (*Document, error) {
	markup, err := os.ReadFile(htmlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if cssPath != "" {
		css, err := os.ReadFile(cssPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read stylesheet: %w", err)
		}
		return Parse(bytes.NewReader(markup), string(css))
	}

	d, err := Parse(bytes.NewReader(markup))
	if err != nil {
		return nil, err
	}
	var linked []string
	for _, href := range d.LinkedStylesheets() {
		u, err := url.Parse(href)
		if err != nil || u.Scheme != "" || u.Host != "" {
			d.Warnings = append(d.Warnings, fmt.Sprintf("stylesheet %q is not local and was not checked", href))
			continue
		}
		path := filepath.Join(filepath.Dir(htmlPath), filepath.FromSlash(u.Path))
		css, err := os.ReadFile(path)
		if err != nil {
			d.Warnings = append(d.Warnings, fmt.Sprintf("stylesheet %q could not be read: %v", href, err))
			continue
		}
		linked = append(linked, string(css))
	}
	if len(linked) == 0 {
		return d, nil
	}
	warnings := d.Warnings
	d, err = Parse(bytes.NewReader(markup), linked...)
	if err != nil {
		return nil, err
	}
	d.Warnings = warnings
	return d, nil
}

// LinkedStylesheets returns the href of every <link rel="stylesheet">.
func (d *Document) LinkedStylesheets() []string {
	var hrefs []string
	for _, n := range d.ByTag("link") {
		rel, _ := Attr(n, "rel")
		href, ok := Attr(n, "href")
		if !ok || href == "" {
			continue
		}
		for _, r := range strings.Fields(rel) {
			if strings.EqualFold(r, "stylesheet") {
				hrefs = append(hrefs, href)
				break
			}
		}
	}
	return hrefs
}

// Elements returns every element in document order.
func (d *Document) Elements() []*html.Node { return d.elements }

// ByClass returns the elements carrying class, in document order.
func (d *Document) ByClass(class string) []*html.Node {
	return d.filter(func(n *html.Node) bool { return HasClass(n, class) })
}

// ByTag returns the elements with the given tag name.
func (d *Document) ByTag(tag string) []*html.Node {
	return d.filter(func(n *html.Node) bool { return strings.EqualFold(n.Data, tag) })
}

// WithAttr returns the elements that carry the named attribute.
func (d *Document) WithAttr(name string) []*html.Node {
	return d.filter(func(n *html.Node) bool {
		_, ok := Attr(n, name)
		return ok
	})
}

// Query returns the elements matched by a selector list.
func (d *Document) Query(selector string) ([]*html.Node, error) {
	sels, err := ParseSelector(selector)
	if err != nil {
		return nil, err
	}
	return d.filter(func(n *html.Node) bool { return MatchesAny(n, sels) }), nil
}

// RulesWhere returns the stylesheet rules that have at least one selector
// satisfying pred, in source order.
func (d *Document) RulesWhere(pred func(Selector) bool) []Rule {
	var out []Rule
	for _, r := range d.Styles.Rules {
		for _, s := range r.Selectors {
			if pred(s) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func (d *Document) filter(keep func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for _, n := range d.elements {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

// Text returns the concatenated text content of n with whitespace collapsed.
func Text(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

// Describe renders a short identifying label for n, e.g. `img#hero.media`.
func Describe(n *html.Node) string {
	var b strings.Builder
	b.WriteString(n.Data)
	if id, ok := Attr(n, "id"); ok && id != "" {
		b.WriteString("#" + id)
	}
	if class, ok := Attr(n, "class"); ok {
		for _, c := range strings.Fields(class) {
			b.WriteString("." + c)
		}
	}
	return b.String()
}

func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}
