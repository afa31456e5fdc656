package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compound(tag, id string, classes ...string) Compound {
	return Compound{Tag: tag, ID: id, Classes: classes}
}

func part(c Combinator, cp Compound) SelectorPart {
	return SelectorPart{Combinator: c, Compound: cp}
}

func TestParseSelector_Compounds(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Compound
	}{
		{"Tag", "img", compound("img", "")},
		{"ID", "#main", compound("", "main")},
		{"Class", ".media", compound("", "", "media")},
		{"Multiple Classes", ".time-header.sticky", compound("", "", "time-header", "sticky")},
		{"Combined", "img#hero.media", compound("img", "hero", "media")},
		{"Universal", "*", compound("*", "")},
		{"Attr Presence", "[alt]", Compound{Attributes: []AttributeMatcher{{Name: "alt"}}}},
		{"Attr Exact", `[role="separator"]`, Compound{Attributes: []AttributeMatcher{{Name: "role", Operator: "=", Value: "separator"}}}},
		{"Attr Prefix", `[src^='https']`, Compound{Attributes: []AttributeMatcher{{Name: "src", Operator: "^=", Value: "https"}}}},
		{"Pseudo", ".message:hover", Compound{Classes: []string{"message"}, Pseudo: []string{"hover"}}},
		{"Functional Pseudo", "img:not(.icon)", Compound{Tag: "img", Pseudo: []string{"not(.icon)"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sels, err := ParseSelector(tt.input)
			require.NoError(t, err)
			require.Len(t, sels, 1)
			require.Len(t, sels[0].Parts, 1)
			assert.Equal(t, tt.expected, sels[0].Subject())
		})
	}
}

func TestParseSelector_Combinators(t *testing.T) {
	sels, err := ParseSelector(".chat-body .message, .chat-body > img.media, h1 + h2, h2 ~ p")
	require.NoError(t, err)
	require.Len(t, sels, 4)

	assert.Equal(t, []SelectorPart{
		part(CombinatorNone, compound("", "", "chat-body")),
		part(CombinatorDescendant, compound("", "", "message")),
	}, sels[0].Parts)
	assert.Equal(t, []SelectorPart{
		part(CombinatorNone, compound("", "", "chat-body")),
		part(CombinatorChild, compound("img", "", "media")),
	}, sels[1].Parts)
	assert.Equal(t, CombinatorAdjacentSibling, sels[2].Parts[1].Combinator)
	assert.Equal(t, CombinatorGeneralSibling, sels[3].Parts[1].Combinator)
}

func TestParseSelector_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", ".", "[alt", "img )"} {
		_, err := ParseSelector(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseStyleSheet(t *testing.T) {
	input := `
	/* chat layout */
	.chat-body { display: flex; flex-direction: column; }
	.media {
		max-height: 320px;
		height: auto !important;
		background: url("data:image/png;base64,AAA}") no-repeat;
	}
	@media (max-width: 600px) {
		.media { transform: rotate(90deg); }
	}
	@keyframes blink { from { opacity: 0 } to { opacity: 1 } }
	@import "other.css";
	.message:hover { color: red }
	`
	sheet := ParseStyleSheet(input)
	require.Len(t, sheet.Rules, 4)

	body := sheet.Rules[0]
	assert.Equal(t, ".chat-body", body.Text)
	v, ok := body.Lookup("display")
	assert.True(t, ok)
	assert.Equal(t, "flex", v)

	media := sheet.Rules[1]
	assert.Equal(t, []Declaration{
		{Property: "max-height", Value: "320px"},
		{Property: "height", Value: "auto", Important: true},
		{Property: "background", Value: `url("data:image/png;base64,AAA}") no-repeat`},
	}, media.Declarations)

	rotated := sheet.Rules[2]
	assert.Equal(t, "(max-width: 600px)", rotated.Media)
	assert.True(t, rotated.Selectors[0].Subject().HasClass("media"))
	tv, _ := rotated.Lookup("transform")
	assert.Equal(t, "rotate(90deg)", tv)

	assert.Equal(t, ".message:hover", sheet.Rules[3].Text)
}

func TestParseStyleSheet_Recovery(t *testing.T) {
	t.Run("Malformed Declarations", func(t *testing.T) {
		sheet := ParseStyleSheet(`.a { color: ; font-size: 12px; border }`)
		require.Len(t, sheet.Rules, 1)
		assert.Equal(t, []Declaration{{Property: "font-size", Value: "12px"}}, sheet.Rules[0].Declarations)
	})

	t.Run("Malformed Selector Skips Block", func(t *testing.T) {
		sheet := ParseStyleSheet(`.a[ { color: red } .b { color: blue }`)
		require.Len(t, sheet.Rules, 1)
		assert.Equal(t, ".b", sheet.Rules[0].Text)
	})

	t.Run("Unterminated Block", func(t *testing.T) {
		sheet := ParseStyleSheet(`.a { color: red`)
		require.Len(t, sheet.Rules, 1)
	})

	t.Run("Stray Closing Brace", func(t *testing.T) {
		sheet := ParseStyleSheet(`} .a { color: red }`)
		require.Len(t, sheet.Rules, 1)
	})
}

func TestParseInlineStyle(t *testing.T) {
	decls := ParseInlineStyle("transform: rotate(90deg); HEIGHT: 200px !important;;")
	assert.Equal(t, []Declaration{
		{Property: "transform", Value: "rotate(90deg)"},
		{Property: "height", Value: "200px", Important: true},
	}, decls)
	assert.Empty(t, ParseInlineStyle(""))
}
