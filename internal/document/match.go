package document

import (
	"strings"

	"golang.org/x/net/html"
)

// Matches reports whether n is matched by sel. Pseudo-classes are ignored,
// so ".a:hover" matches every element with class a.
func Matches(n *html.Node, sel Selector) bool {
	if n == nil || n.Type != html.ElementNode || len(sel.Parts) == 0 {
		return false
	}
	return matchFrom(n, sel.Parts, len(sel.Parts)-1)
}

// MatchesAny reports whether any selector in the list matches n.
func MatchesAny(n *html.Node, sels []Selector) bool {
	for _, s := range sels {
		if Matches(n, s) {
			return true
		}
	}
	return false
}

func matchFrom(n *html.Node, parts []SelectorPart, i int) bool {
	if n == nil || n.Type != html.ElementNode || i < 0 {
		return false
	}
	part := parts[i]
	if !matchCompound(n, part.Compound) {
		return false
	}
	if i == 0 {
		return true
	}
	switch part.Combinator {
	case CombinatorChild:
		return matchFrom(n.Parent, parts, i-1)
	case CombinatorAdjacentSibling:
		return matchFrom(prevElement(n), parts, i-1)
	case CombinatorGeneralSibling:
		for sib := prevElement(n); sib != nil; sib = prevElement(sib) {
			if matchFrom(sib, parts, i-1) {
				return true
			}
		}
		return false
	default:
		for anc := n.Parent; anc != nil; anc = anc.Parent {
			if matchFrom(anc, parts, i-1) {
				return true
			}
		}
		return false
	}
}

func prevElement(n *html.Node) *html.Node {
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode {
			return sib
		}
	}
	return nil
}

func matchCompound(n *html.Node, c Compound) bool {
	if c.Tag != "" && c.Tag != "*" && !strings.EqualFold(n.Data, c.Tag) {
		return false
	}
	if c.ID != "" {
		if id, ok := Attr(n, "id"); !ok || id != c.ID {
			return false
		}
	}
	for _, class := range c.Classes {
		if !HasClass(n, class) {
			return false
		}
	}
	for _, a := range c.Attributes {
		if !matchAttribute(n, a) {
			return false
		}
	}
	return true
}

func matchAttribute(n *html.Node, m AttributeMatcher) bool {
	val, found := Attr(n, m.Name)
	if !found {
		return false
	}
	switch m.Operator {
	case "":
		return true
	case "=":
		return val == m.Value
	case "~=":
		for _, w := range strings.Fields(val) {
			if w == m.Value {
				return true
			}
		}
		return false
	case "|=":
		return val == m.Value || strings.HasPrefix(val, m.Value+"-")
	case "^=":
		return m.Value != "" && strings.HasPrefix(val, m.Value)
	case "$=":
		return m.Value != "" && strings.HasSuffix(val, m.Value)
	case "*=":
		return m.Value != "" && strings.Contains(val, m.Value)
	}
	return false
}

// Attr returns the value of the named attribute. Names compare case
// insensitively.
func Attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// HasClass reports whether class is one of n's classes.
func HasClass(n *html.Node, class string) bool {
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// Attributes returns n's attributes as a map with lower case keys.
func Attributes(n *html.Node) map[string]string {
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		m[strings.ToLower(a.Key)] = a.Val
	}
	return m
}
