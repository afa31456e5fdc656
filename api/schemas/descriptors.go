package schemas

import (
	"strings"

	"github.com/xkilldash9x/uiconform/pkg/geometry"
)

// -- Page Snapshots --

// ElementDescriptor is a read-only snapshot of one rendered element.
type ElementDescriptor struct {
	// ID is the element's id attribute, empty when absent.
	ID         string            `json:"id,omitempty"`
	Rect       geometry.Rect     `json:"rect"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// MediaDescriptor is a snapshot of one rendered media element.
type MediaDescriptor struct {
	Source     string            `json:"source"`
	Attributes map[string]string `json:"attributes,omitempty"`
	// Complete is true once the resource finished loading. Natural dimensions
	// are only meaningful when Complete is set.
	Complete          bool    `json:"complete"`
	NaturalWidth      float64 `json:"natural_width"`
	NaturalHeight     float64 `json:"natural_height"`
	DisplayedWidth    float64 `json:"displayed_width"`
	DisplayedHeight   float64 `json:"displayed_height"`
	// ComputedTransform is filled per element through Page.ComputedStyle.
	ComputedTransform string `json:"computed_transform,omitempty"`
}

// Loaded reports whether the natural dimensions can be trusted.
func (m MediaDescriptor) Loaded() bool {
	return m.Complete && m.NaturalWidth > 0 && m.NaturalHeight > 0
}

// Label returns a short identifier for messages: the id, else the source.
func (m MediaDescriptor) Label() string {
	if id := m.Attributes["id"]; id != "" {
		return id
	}
	if m.Source != "" {
		return m.Source
	}
	return "<img>"
}

// SeparatorSnapshot is the position of one time separator at a point in time.
type SeparatorSnapshot struct {
	ID  string  `json:"id"`
	Top float64 `json:"top"`
}

// ScrollExtent describes the scrollable region of a container.
type ScrollExtent struct {
	ScrollHeight float64 `json:"scroll_height"`
	ClientHeight float64 `json:"client_height"`
}

// MaxOffset is the largest valid scroll offset, never negative.
func (e ScrollExtent) MaxOffset() float64 {
	if d := e.ScrollHeight - e.ClientHeight; d > 0 {
		return d
	}
	return 0
}

// HasTextAlternative reports whether an element described by attrs exposes
// alternative text or is explicitly decorative. Keys are lower case.
func HasTextAlternative(attrs map[string]string) bool {
	if strings.TrimSpace(attrs["aria-label"]) != "" {
		return true
	}
	if strings.EqualFold(attrs["aria-hidden"], "true") {
		return true
	}
	alt, hasAlt := attrs["alt"]
	if !hasAlt {
		return false
	}
	if strings.TrimSpace(alt) != "" {
		return true
	}
	switch strings.ToLower(attrs["role"]) {
	case "presentation", "none":
		return true
	}
	return false
}
