package document

import (
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
)

// fuzzInput is populated from raw fuzz bytes.
type fuzzInput struct {
	Markup     string
	Stylesheet string
	Selector   string
	Inline     string
}

func FuzzParseStyleSheet(f *testing.F) {
	f.Add(".media { max-height: 300px; height: auto; }")
	f.Add("@media (max-width: 600px) { .message { position: absolute } }")
	f.Add("/* unterminated")
	f.Add("a{b:c;;;}}}{")

	f.Fuzz(func(t *testing.T, css string) {
		sheet := ParseStyleSheet(css)
		for _, r := range sheet.Rules {
			for _, d := range r.Declarations {
				if d.Property != strings.ToLower(d.Property) {
					t.Fatalf("property %q was not normalized", d.Property)
				}
			}
		}
	})
}

func FuzzDocument_Structured(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		in := &fuzzInput{}
		if err := consumer.GenerateStruct(in); err != nil {
			return
		}

		doc, err := Parse(strings.NewReader(in.Markup), in.Stylesheet)
		if err != nil {
			return
		}

		known := make(map[interface{}]bool, len(doc.Elements()))
		for _, n := range doc.Elements() {
			known[n] = true
			_ = Describe(n)
			_ = Attributes(n)
		}

		nodes, err := doc.Query(in.Selector)
		if err == nil {
			for _, n := range nodes {
				if !known[n] {
					t.Fatalf("query %q returned a node outside the document", in.Selector)
				}
			}
		}

		_ = doc.RulesWhere(func(Selector) bool { return true })
		_ = ParseInlineStyle(in.Inline)
	})
}
