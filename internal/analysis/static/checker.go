// Package static checks markup and stylesheet invariants without rendering
// the page. It never opens a browser, so its findings are available even when
// no rendering session can be established.
package static

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/analysis/core"
	"github.com/xkilldash9x/uiconform/internal/document"
)

// CheckerID is the checker name used in logs and facet sources.
const CheckerID = "static"

// Facet sources.
const (
	SourceIdentifierUniqueness = "static.identifier_uniqueness"
	SourceForcedRotation       = "static.forced_rotation"
	SourceAspectRatioHint      = "static.aspect_ratio_hint"
	SourceMessageFlow          = "static.message_flow"
	SourceMediaAltText         = "static.media_alt_text"
	SourceSeparatorRoles       = "static.separator_roles"
	SourceSeparatorIdentity    = "static.separator_identity"
)

// Config names the classes that identify the chat UI's parts.
type Config struct {
	MediaClass     string
	MessageClass   string
	ContainerClass string
	SeparatorClass string
}

// DefaultConfig returns the class names used by the reference chat page.
func DefaultConfig() Config {
	return Config{
		MediaClass:     "media",
		MessageClass:   "message",
		ContainerClass: "chat-body",
		SeparatorClass: "time-header",
	}
}

// Checker runs every static check against one document.
type Checker struct {
	*core.BaseChecker
	cfg    Config
	logger *zap.Logger
}

// NewChecker creates a static structure checker.
func NewChecker(cfg Config, logger *zap.Logger) *Checker {
	base := core.NewBaseChecker(
		CheckerID,
		"Markup and stylesheet invariants",
		core.TypeStatic,
		[]schemas.CheckName{
			schemas.CheckAccessibilitySmoke,
			schemas.CheckNoForcedRotation,
			schemas.CheckMediaAspectRatio,
			schemas.CheckLayoutNonOverlap,
			schemas.CheckTimeHeaderStability,
		},
		logger,
	)
	return &Checker{BaseChecker: base, cfg: cfg, logger: base.Logger}
}

// Run evaluates every static check. Each check contributes exactly one facet.
func (c *Checker) Run(doc *document.Document) []schemas.Facet {
	facets := []schemas.Facet{
		c.identifierUniqueness(doc),
		c.forcedRotation(doc),
		c.aspectRatioHint(doc),
		c.messageFlow(doc),
		c.mediaAltText(doc),
		c.separatorRoles(doc),
		c.separatorIdentity(doc),
	}
	for _, f := range facets {
		c.logger.Debug("Static check evaluated",
			zap.String("source", f.Source),
			zap.String("status", f.Status.String()),
			zap.String("message", f.Message),
		)
	}
	return facets
}

func (c *Checker) identifierUniqueness(doc *document.Document) schemas.Facet {
	var ids []string
	for _, n := range doc.WithAttr("id") {
		id, _ := document.Attr(n, "id")
		ids = append(ids, id)
	}
	dups, counts := core.Duplicates(ids)
	if len(dups) > 0 {
		return core.Fail(schemas.CheckAccessibilitySmoke, SourceIdentifierUniqueness, schemas.KindStructuralViolation,
			"duplicate element ids: "+strings.Join(dups, ", "),
			core.Evidence{"duplicates": dups, "counts": counts},
		)
	}
	return core.Pass(schemas.CheckAccessibilitySmoke, SourceIdentifierUniqueness,
		fmt.Sprintf("%d element ids are unique", len(ids)))
}

// rotateFn captures the argument list of any rotate function.
var rotateFn = regexp.MustCompile(`(?i)rotate(?:3d|x|y|z)?\(([^)]*)\)`)

// declaresRotation reports whether a transform or rotate value turns the
// element by a non-zero angle.
func declaresRotation(property, value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	switch property {
	case "rotate":
		if v == "none" {
			return false
		}
		fields := strings.Fields(v)
		return len(fields) > 0 && !isZeroAngle(fields[len(fields)-1])
	case "transform":
		for _, m := range rotateFn.FindAllStringSubmatch(v, -1) {
			args := strings.Split(m[1], ",")
			if !isZeroAngle(args[len(args)-1]) {
				return true
			}
		}
	}
	return false
}

func isZeroAngle(s string) bool {
	s = strings.TrimSpace(s)
	for _, unit := range []string{"deg", "grad", "rad", "turn"} {
		if strings.HasSuffix(s, unit) {
			s = strings.TrimSuffix(s, unit)
			break
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f == 0
}

func (c *Checker) forcedRotation(doc *document.Document) schemas.Facet {
	var offenders []string
	for _, r := range c.rulesFor(doc, c.cfg.MediaClass) {
		for _, d := range r.Declarations {
			if (d.Property == "transform" || d.Property == "rotate") && declaresRotation(d.Property, d.Value) {
				offenders = append(offenders, fmt.Sprintf("%s { %s: %s }", r.Text, d.Property, d.Value))
			}
		}
	}
	for _, n := range c.mediaElements(doc) {
		style, ok := document.Attr(n, "style")
		if !ok {
			continue
		}
		for _, d := range document.ParseInlineStyle(style) {
			if (d.Property == "transform" || d.Property == "rotate") && declaresRotation(d.Property, d.Value) {
				offenders = append(offenders, fmt.Sprintf("%s style=%q", document.Describe(n), style))
			}
		}
	}
	if len(offenders) > 0 {
		return core.Fail(schemas.CheckNoForcedRotation, SourceForcedRotation, schemas.KindStructuralViolation,
			fmt.Sprintf("media class .%s is rotated by the stylesheet: %s", c.cfg.MediaClass, strings.Join(offenders, "; ")),
			core.Evidence{"declarations": offenders},
		)
	}
	return core.Pass(schemas.CheckNoForcedRotation, SourceForcedRotation,
		fmt.Sprintf("no rotation declared for .%s", c.cfg.MediaClass))
}

func (c *Checker) aspectRatioHint(doc *document.Document) schemas.Facet {
	if len(c.rulesFor(doc, c.cfg.MediaClass)) == 0 && len(c.mediaElements(doc)) == 0 {
		return core.Pass(schemas.CheckMediaAspectRatio, SourceAspectRatioHint, "document has no media elements")
	}

	// Media queries and state selectors may relax the bounds; only the base
	// rules decide.
	rules := c.baseRulesFor(doc, c.cfg.MediaClass)
	var maxHeight, autoHeight, contain bool
	for _, r := range rules {
		for _, d := range r.Declarations {
			switch d.Property {
			case "max-height":
				maxHeight = !strings.EqualFold(d.Value, "none")
			case "height":
				autoHeight = strings.EqualFold(d.Value, "auto")
			case "object-fit":
				v := strings.ToLower(d.Value)
				contain = v == "contain" || v == "scale-down"
			}
		}
	}

	ev := core.Evidence{}
	if !contain {
		ev["warnings"] = []string{fmt.Sprintf(".%s does not declare object-fit: contain", c.cfg.MediaClass)}
	}

	var missing []string
	if !maxHeight {
		missing = append(missing, "max-height")
	}
	if !autoHeight {
		missing = append(missing, "height: auto")
	}
	if len(missing) > 0 {
		ev["missing"] = missing
		ev["rules"] = ruleTexts(rules)
		return core.Fail(schemas.CheckMediaAspectRatio, SourceAspectRatioHint, schemas.KindStructuralViolation,
			fmt.Sprintf(".%s does not declare %s", c.cfg.MediaClass, strings.Join(missing, " and ")),
			ev,
		)
	}
	if len(ev) == 0 {
		ev = nil
	}
	return core.PassWith(schemas.CheckMediaAspectRatio, SourceAspectRatioHint,
		fmt.Sprintf(".%s is bounded by max-height with automatic height", c.cfg.MediaClass), ev)
}

var flowDisplays = map[string]bool{"flex": true, "inline-flex": true, "grid": true, "inline-grid": true}

func (c *Checker) messageFlow(doc *document.Document) schemas.Facet {
	var problems []string

	for _, r := range c.rulesFor(doc, c.cfg.MessageClass) {
		if pos, ok := r.Lookup("position"); ok && isOutOfFlow(pos) {
			problems = append(problems, fmt.Sprintf("%s { position: %s }", r.Text, pos))
		}
	}
	for _, n := range doc.ByClass(c.cfg.MessageClass) {
		if pos, ok := inlineValue(n, "position"); ok && isOutOfFlow(pos) {
			problems = append(problems, fmt.Sprintf("%s has inline position: %s", document.Describe(n), pos))
		}
	}

	flow := false
	for _, r := range c.rulesFor(doc, c.cfg.ContainerClass) {
		if disp, ok := r.Lookup("display"); ok && flowDisplays[strings.ToLower(disp)] {
			flow = true
		}
	}
	for _, n := range doc.ByClass(c.cfg.ContainerClass) {
		if disp, ok := inlineValue(n, "display"); ok && flowDisplays[strings.ToLower(disp)] {
			flow = true
		}
	}
	if !flow {
		problems = append(problems, fmt.Sprintf("container .%s does not use flex or grid layout", c.cfg.ContainerClass))
	}

	if len(problems) > 0 {
		return core.Fail(schemas.CheckLayoutNonOverlap, SourceMessageFlow, schemas.KindStructuralViolation,
			"message layout is not flow based: "+strings.Join(problems, "; "),
			core.Evidence{"problems": problems},
		)
	}
	return core.Pass(schemas.CheckLayoutNonOverlap, SourceMessageFlow,
		fmt.Sprintf(".%s messages follow a flex/grid flow", c.cfg.MessageClass))
}

func isOutOfFlow(position string) bool {
	p := strings.ToLower(strings.TrimSpace(position))
	return p == "absolute" || p == "fixed"
}

func (c *Checker) mediaAltText(doc *document.Document) schemas.Facet {
	media := c.mediaElements(doc)
	var missing []string
	for _, n := range media {
		if !schemas.HasTextAlternative(document.Attributes(n)) {
			missing = append(missing, describeMedia(n))
		}
	}
	if len(missing) > 0 {
		return core.Fail(schemas.CheckAccessibilitySmoke, SourceMediaAltText, schemas.KindStructuralViolation,
			fmt.Sprintf("%d media element(s) lack alternative text: %s", len(missing), strings.Join(missing, ", ")),
			core.Evidence{"elements": missing},
		)
	}
	return core.Pass(schemas.CheckAccessibilitySmoke, SourceMediaAltText,
		fmt.Sprintf("%d media element(s) have alternative text", len(media)))
}

func (c *Checker) separatorRoles(doc *document.Document) schemas.Facet {
	seps := doc.ByClass(c.cfg.SeparatorClass)
	var wrongRole, unlabeled []string
	for _, n := range seps {
		if role, _ := document.Attr(n, "role"); !strings.EqualFold(strings.TrimSpace(role), "separator") {
			wrongRole = append(wrongRole, document.Describe(n))
		}
		if label, _ := document.Attr(n, "aria-label"); strings.TrimSpace(label) == "" {
			unlabeled = append(unlabeled, document.Describe(n))
		}
	}

	var ev core.Evidence
	if len(unlabeled) > 0 {
		ev = core.Evidence{"warnings": []string{fmt.Sprintf("%d separator(s) have no aria-label: %s", len(unlabeled), strings.Join(unlabeled, ", "))}}
	}
	if len(wrongRole) > 0 {
		if ev == nil {
			ev = core.Evidence{}
		}
		ev["elements"] = wrongRole
		return core.Fail(schemas.CheckAccessibilitySmoke, SourceSeparatorRoles, schemas.KindStructuralViolation,
			fmt.Sprintf("%d time separator(s) lack role=\"separator\": %s", len(wrongRole), strings.Join(wrongRole, ", ")),
			ev,
		)
	}
	return core.PassWith(schemas.CheckAccessibilitySmoke, SourceSeparatorRoles,
		fmt.Sprintf("%d time separator(s) carry the separator role", len(seps)), ev)
}

func (c *Checker) separatorIdentity(doc *document.Document) schemas.Facet {
	seps := doc.ByClass(c.cfg.SeparatorClass)
	var ids, untracked []string
	for _, n := range seps {
		id, _ := document.Attr(n, "id")
		if id == "" {
			untracked = append(untracked, document.Describe(n))
			continue
		}
		ids = append(ids, id)
	}

	var problems []string
	dups, _ := core.Duplicates(ids)
	if len(dups) > 0 {
		problems = append(problems, "duplicate separator ids: "+strings.Join(dups, ", "))
	}

	var sticky, animated bool
	rules := c.rulesFor(doc, c.cfg.SeparatorClass)
	for _, r := range rules {
		if pos, ok := r.Lookup("position"); ok && strings.EqualFold(pos, "sticky") {
			sticky = true
		}
		if v, ok := r.Lookup("animation"); ok && !strings.EqualFold(v, "none") {
			animated = true
		}
		if v, ok := r.Lookup("animation-name"); ok && !strings.EqualFold(v, "none") {
			animated = true
		}
	}
	if sticky && animated {
		problems = append(problems, fmt.Sprintf(".%s is sticky and animated, which flickers while scrolling", c.cfg.SeparatorClass))
	}

	var ev core.Evidence
	if len(untracked) > 0 {
		ev = core.Evidence{"warnings": []string{fmt.Sprintf("%d separator(s) have no id and cannot be tracked: %s", len(untracked), strings.Join(untracked, ", "))}}
	}
	if len(problems) > 0 {
		if ev == nil {
			ev = core.Evidence{}
		}
		ev["problems"] = problems
		if len(dups) > 0 {
			ev["duplicates"] = dups
		}
		return core.Fail(schemas.CheckTimeHeaderStability, SourceSeparatorIdentity, schemas.KindStructuralViolation,
			strings.Join(problems, "; "), ev)
	}
	return core.PassWith(schemas.CheckTimeHeaderStability, SourceSeparatorIdentity,
		fmt.Sprintf("%d time separator(s) have stable identities", len(seps)), ev)
}

// rulesFor returns the rules that style elements carrying class: either the
// selector's subject names the class or the selector matches one of those
// elements in the document. Rules that only style a pseudo-element are
// excluded.
func (c *Checker) rulesFor(doc *document.Document, class string) []document.Rule {
	elems := doc.ByClass(class)
	return doc.RulesWhere(func(s document.Selector) bool {
		return selects(s, class, elems)
	})
}

// baseRulesFor is rulesFor restricted to rules outside any @media or
// @supports block whose matching selector carries no pseudo-class.
func (c *Checker) baseRulesFor(doc *document.Document, class string) []document.Rule {
	elems := doc.ByClass(class)
	var out []document.Rule
	for _, r := range doc.RulesWhere(func(s document.Selector) bool {
		return selects(s, class, elems) && !hasPseudo(s)
	}) {
		if r.Media == "" {
			out = append(out, r)
		}
	}
	return out
}

func selects(s document.Selector, class string, elems []*html.Node) bool {
	subj := s.Subject()
	for _, p := range subj.Pseudo {
		switch strings.ToLower(p) {
		case "before", "after", "marker", "placeholder", "selection":
			return false
		}
	}
	if subj.HasClass(class) {
		return true
	}
	for _, n := range elems {
		if document.Matches(n, s) {
			return true
		}
	}
	return false
}

func hasPseudo(s document.Selector) bool {
	for _, p := range s.Parts {
		if len(p.Compound.Pseudo) > 0 {
			return true
		}
	}
	return false
}

// mediaElements returns every <img> plus any element with the media class.
func (c *Checker) mediaElements(doc *document.Document) []*html.Node {
	nodes, err := doc.Query("img, ." + c.cfg.MediaClass)
	if err == nil {
		return nodes
	}
	c.logger.Debug("Media class is not a valid selector, matching by class.", zap.Error(err))
	var out []*html.Node
	for _, n := range doc.Elements() {
		if strings.EqualFold(n.Data, "img") || document.HasClass(n, c.cfg.MediaClass) {
			out = append(out, n)
		}
	}
	return out
}

func inlineValue(n *html.Node, property string) (string, bool) {
	style, ok := document.Attr(n, "style")
	if !ok {
		return "", false
	}
	decls := document.ParseInlineStyle(style)
	for i := len(decls) - 1; i >= 0; i-- {
		if decls[i].Property == property {
			return decls[i].Value, true
		}
	}
	return "", false
}

func describeMedia(n *html.Node) string {
	if src, ok := document.Attr(n, "src"); ok && src != "" {
		return fmt.Sprintf("%s[src=%q]", document.Describe(n), src)
	}
	return document.Describe(n)
}

func ruleTexts(rules []document.Rule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Text
	}
	return out
}
