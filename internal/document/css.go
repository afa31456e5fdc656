package document

import (
	"fmt"
	"strings"
)

// Declaration is one "property: value" pair. Property is lower case.
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// Rule is a selector list with its declaration block.
type Rule struct {
	// Text is the selector list as written, trimmed, used in evidence.
	Text         string
	Selectors    []Selector
	Declarations []Declaration
	// Media holds the enclosing @media or @supports prelude, if any.
	Media string
}

// Lookup returns the last value declared for property in the rule.
func (r Rule) Lookup(property string) (string, bool) {
	for i := len(r.Declarations) - 1; i >= 0; i-- {
		if r.Declarations[i].Property == property {
			return r.Declarations[i].Value, true
		}
	}
	return "", false
}

// StyleSheet is a flat list of style rules in source order.
type StyleSheet struct {
	Rules []Rule
}

// Selector is a complex selector, e.g. ".chat-body > .message img".
type Selector struct {
	Parts []SelectorPart
}

// Subject returns the compound selector that elements are matched against,
// i.e. the right-most one.
func (s Selector) Subject() Compound {
	if len(s.Parts) == 0 {
		return Compound{}
	}
	return s.Parts[len(s.Parts)-1].Compound
}

// SelectorPart is a compound selector plus the combinator that links it to
// the previous part.
type SelectorPart struct {
	Combinator Combinator
	Compound   Compound
}

// Compound is a sequence of simple selectors with no combinator, e.g.
// "img.media[alt]".
type Compound struct {
	Tag        string
	ID         string
	Classes    []string
	Attributes []AttributeMatcher
	// Pseudo holds pseudo-classes and pseudo-elements verbatim, without the
	// leading colons. They are kept for evidence and ignored when matching.
	Pseudo []string
}

// HasClass reports whether the compound requires class.
func (c Compound) HasClass(class string) bool {
	for _, cl := range c.Classes {
		if cl == class {
			return true
		}
	}
	return false
}

func (c Compound) empty() bool {
	return c.Tag == "" && c.ID == "" && len(c.Classes) == 0 && len(c.Attributes) == 0 && len(c.Pseudo) == 0
}

// AttributeMatcher is an attribute selector like [href] or [target="_blank"].
type AttributeMatcher struct {
	Name     string
	Operator string // "", "=", "~=", "|=", "^=", "$=", "*="
	Value    string
}

// Combinator relates a compound selector to the one before it.
type Combinator int

const (
	CombinatorNone Combinator = iota
	CombinatorDescendant
	CombinatorChild
	CombinatorAdjacentSibling
	CombinatorGeneralSibling
)

// groupingAtRules contain ordinary style rules and are descended into. Every
// other at-rule (@keyframes, @font-face, @import...) is skipped.
var groupingAtRules = map[string]bool{
	"media":    true,
	"supports": true,
	"layer":    true,
	"document": true,
}

// ParseStyleSheet parses CSS text. It is tolerant: malformed rules are skipped
// and parsing resumes at the next block.
func ParseStyleSheet(input string) StyleSheet {
	p := &cssParser{input: input}
	return StyleSheet{Rules: p.parseRules("", false)}
}

// ParseSelector parses a single selector list such as ".a, .b > img".
func ParseSelector(input string) ([]Selector, error) {
	p := &cssParser{input: input}
	sels := p.parseSelectorList()
	p.skipWhitespace()
	if !p.eof() {
		return nil, fmt.Errorf("unexpected %q at offset %d in selector %q", p.peek(), p.pos, input)
	}
	if len(sels) == 0 {
		return nil, fmt.Errorf("empty selector %q", input)
	}
	return sels, nil
}

// ParseInlineStyle parses the contents of a style attribute.
func ParseInlineStyle(style string) []Declaration {
	p := &cssParser{input: style}
	return p.parseDeclarationList(false)
}

type cssParser struct {
	input string
	pos   int
}

// parseRules reads rules until EOF or, when nested, the closing brace of the
// enclosing at-rule block.
func (p *cssParser) parseRules(media string, nested bool) []Rule {
	var rules []Rule
	for {
		p.skipWhitespaceAndComments()
		if p.eof() {
			return rules
		}
		if p.peek() == '}' {
			p.pos++
			if nested {
				return rules
			}
			continue
		}
		if p.peek() == '@' {
			rules = append(rules, p.parseAtRule(media)...)
			continue
		}

		start := p.pos
		sels := p.parseSelectorList()
		text := strings.TrimSpace(p.input[start:p.pos])
		p.skipWhitespaceAndComments()
		if p.eof() {
			return rules
		}
		if p.peek() != '{' || len(sels) == 0 {
			// Not a usable prelude: drop everything up to and including the block.
			p.skipTo('{', '}')
			if !p.eof() && p.peek() == '{' {
				p.pos++
				p.skipBlock('{', '}')
			}
			continue
		}
		p.pos++
		decls := p.parseDeclarationList(true)
		if len(decls) > 0 {
			rules = append(rules, Rule{Text: text, Selectors: sels, Declarations: decls, Media: media})
		}
	}
}

func (p *cssParser) parseAtRule(media string) []Rule {
	p.pos++ // '@'
	name := strings.ToLower(p.parseIdentifier())
	start := p.pos
	for !p.eof() {
		switch p.peek() {
		case ';':
			p.pos++
			return nil
		case '{':
			prelude := strings.TrimSpace(p.input[start:p.pos])
			p.pos++
			if groupingAtRules[name] {
				if media != "" {
					prelude = media + " and " + prelude
				}
				return p.parseRules(prelude, true)
			}
			p.skipBlock('{', '}')
			return nil
		case '"', '\'':
			p.skipQuoted(p.peek())
		default:
			p.pos++
		}
	}
	return nil
}

func (p *cssParser) parseSelectorList() []Selector {
	var list []Selector
	for {
		p.skipWhitespaceAndComments()
		if p.eof() || p.peek() == '{' {
			return list
		}
		sel, ok := p.parseComplexSelector()
		if ok {
			list = append(list, sel)
		}
		p.skipWhitespaceAndComments()
		if !p.eof() && p.peek() == ',' {
			p.pos++
			continue
		}
		return list
	}
}

// parseComplexSelector stops before ',', '{' or EOF. ok is false when any
// part of the selector could not be parsed.
func (p *cssParser) parseComplexSelector() (Selector, bool) {
	var sel Selector
	ok := true
	comb := CombinatorNone
	for {
		p.skipWhitespace()
		if p.eof() || p.peek() == '{' || p.peek() == ',' {
			break
		}
		switch p.peek() {
		case '>':
			comb = CombinatorChild
			p.pos++
			continue
		case '+':
			comb = CombinatorAdjacentSibling
			p.pos++
			continue
		case '~':
			comb = CombinatorGeneralSibling
			p.pos++
			continue
		}
		compound, err := p.parseCompound()
		if err != nil {
			ok = false
			p.skipTo(',', '{')
			break
		}
		if len(sel.Parts) == 0 {
			comb = CombinatorNone
		} else if comb == CombinatorNone {
			comb = CombinatorDescendant
		}
		sel.Parts = append(sel.Parts, SelectorPart{Combinator: comb, Compound: compound})
		comb = CombinatorNone
	}
	return sel, ok && len(sel.Parts) > 0
}

func (p *cssParser) parseCompound() (Compound, error) {
	var c Compound
	if p.peek() == '*' {
		p.pos++
		c.Tag = "*"
	} else if isIdentStart(p.peek()) {
		c.Tag = strings.ToLower(p.parseIdentifier())
	}
	for !p.eof() {
		switch p.peek() {
		case '#':
			p.pos++
			c.ID = p.parseIdentifier()
		case '.':
			p.pos++
			class := p.parseIdentifier()
			if class == "" {
				return c, fmt.Errorf("empty class name at offset %d", p.pos)
			}
			c.Classes = append(c.Classes, class)
		case '[':
			p.pos++
			attr, err := p.parseAttributeMatcher()
			if err != nil {
				return c, err
			}
			c.Attributes = append(c.Attributes, attr)
		case ':':
			p.pos++
			if p.peek() == ':' {
				p.pos++
			}
			start := p.pos
			p.parseIdentifier()
			if p.peek() == '(' {
				p.pos++
				p.skipBlock('(', ')')
			}
			c.Pseudo = append(c.Pseudo, p.input[start:p.pos])
		default:
			if c.empty() {
				return c, fmt.Errorf("unexpected %q at offset %d", p.peek(), p.pos)
			}
			return c, nil
		}
	}
	if c.empty() {
		return c, fmt.Errorf("empty compound selector")
	}
	return c, nil
}

// parseAttributeMatcher reads the body of [...]; the '[' is already consumed.
func (p *cssParser) parseAttributeMatcher() (AttributeMatcher, error) {
	p.skipWhitespace()
	name := strings.ToLower(p.parseIdentifier())
	p.skipWhitespace()
	if name == "" || p.eof() {
		return AttributeMatcher{}, fmt.Errorf("malformed attribute selector at offset %d", p.pos)
	}
	if p.peek() == ']' {
		p.pos++
		return AttributeMatcher{Name: name}, nil
	}

	var op string
	switch p.peek() {
	case '=':
		op = "="
		p.pos++
	case '~', '|', '^', '$', '*':
		if p.pos+1 < len(p.input) && p.input[p.pos+1] == '=' {
			op = p.input[p.pos : p.pos+2]
			p.pos += 2
		}
	}
	if op == "" {
		return AttributeMatcher{}, fmt.Errorf("unknown attribute operator at offset %d", p.pos)
	}
	p.skipWhitespace()

	var value string
	if q := p.peek(); q == '"' || q == '\'' {
		start := p.pos + 1
		p.skipQuoted(q)
		end := p.pos - 1
		if end < start {
			end = start
		}
		value = p.input[start:end]
	} else {
		value = p.parseIdentifier()
	}
	p.skipWhitespace()
	// Case sensitivity flags ([a="b" i]) are accepted and ignored.
	if isIdentStart(p.peek()) {
		p.parseIdentifier()
		p.skipWhitespace()
	}
	if p.peek() != ']' {
		return AttributeMatcher{}, fmt.Errorf("expected ']' at offset %d", p.pos)
	}
	p.pos++
	return AttributeMatcher{Name: name, Operator: op, Value: value}, nil
}

// parseDeclarationList reads declarations up to the closing brace (consumed
// when inBlock) or EOF.
func (p *cssParser) parseDeclarationList(inBlock bool) []Declaration {
	var decls []Declaration
	for {
		p.skipWhitespaceAndComments()
		if p.eof() {
			return decls
		}
		switch p.peek() {
		case '}':
			if inBlock {
				p.pos++
				return decls
			}
			p.pos++
			continue
		case ';':
			p.pos++
			continue
		}
		if d, ok := p.parseDeclaration(); ok {
			decls = append(decls, d)
		}
	}
}

func (p *cssParser) parseDeclaration() (Declaration, bool) {
	if !isIdentStart(p.peek()) {
		p.skipTo(';', '}')
		return Declaration{}, false
	}
	prop := strings.ToLower(p.parseIdentifier())
	p.skipWhitespaceAndComments()
	if p.peek() != ':' {
		p.skipTo(';', '}')
		return Declaration{}, false
	}
	p.pos++

	start := p.pos
	for !p.eof() {
		ch := p.peek()
		if ch == ';' || ch == '}' {
			break
		}
		switch ch {
		case '"', '\'':
			p.skipQuoted(ch)
		case '(':
			p.pos++
			p.skipBlock('(', ')')
		default:
			p.pos++
		}
	}
	val := strings.TrimSpace(stripComments(p.input[start:p.pos]))
	important := false
	if i := strings.LastIndex(strings.ToLower(val), "!important"); i >= 0 && strings.TrimSpace(val[i+len("!important"):]) == "" {
		important = true
		val = strings.TrimSpace(val[:i])
	}
	if val == "" {
		return Declaration{}, false
	}
	return Declaration{Property: prop, Value: val, Important: important}, true
}

func stripComments(s string) string {
	for {
		i := strings.Index(s, "/*")
		if i < 0 {
			return s
		}
		j := strings.Index(s[i+2:], "*/")
		if j < 0 {
			return s[:i]
		}
		s = s[:i] + " " + s[i+2+j+2:]
	}
}

// -- scanning helpers --

func (p *cssParser) eof() bool { return p.pos >= len(p.input) }

func (p *cssParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

func (p *cssParser) skipWhitespace() {
	for !p.eof() && isSpace(p.peek()) {
		p.pos++
	}
}

func (p *cssParser) skipWhitespaceAndComments() {
	for {
		p.skipWhitespace()
		if !strings.HasPrefix(p.input[p.pos:], "/*") {
			return
		}
		end := strings.Index(p.input[p.pos+2:], "*/")
		if end < 0 {
			p.pos = len(p.input)
			return
		}
		p.pos += end + 4
	}
}

func (p *cssParser) skipTo(targets ...byte) {
	for !p.eof() {
		for _, t := range targets {
			if p.peek() == t {
				return
			}
		}
		p.pos++
	}
}

// skipBlock consumes input through the bracket that closes an already opened
// block.
func (p *cssParser) skipBlock(open, close byte) {
	depth := 1
	for !p.eof() {
		ch := p.peek()
		switch {
		case ch == '"' || ch == '\'':
			p.skipQuoted(ch)
			continue
		case ch == open:
			depth++
		case ch == close:
			depth--
		}
		p.pos++
		if depth == 0 {
			return
		}
	}
}

// skipQuoted consumes a quoted string including both quotes.
func (p *cssParser) skipQuoted(quote byte) {
	p.pos++
	for !p.eof() {
		ch := p.peek()
		p.pos++
		if ch == '\\' {
			p.pos++
			continue
		}
		if ch == quote {
			return
		}
	}
	if p.pos > len(p.input) {
		p.pos = len(p.input)
	}
}

func (p *cssParser) parseIdentifier() string {
	start := p.pos
	for !p.eof() {
		ch := p.peek()
		if ch == '\\' && p.pos+1 < len(p.input) {
			p.pos += 2
			continue
		}
		if !isIdentChar(ch) {
			break
		}
		p.pos++
	}
	return strings.ReplaceAll(p.input[start:p.pos], `\`, "")
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '-' || ch >= 0x80
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
