// Package geometry provides the rectangle math shared by the rendered checks.
package geometry

import (
	"fmt"
	"math"
)

// DefaultOverlapEpsilon is the intersection area, in square pixels, below which
// two rectangles are treated as adjacent rather than overlapping. It absorbs
// sub-pixel rendering jitter.
const DefaultOverlapEpsilon = 1.0

// Rect is an axis aligned rectangle in viewport pixel coordinates.
type Rect struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Right  float64 `json:"right" yaml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
}

// NewRect builds a Rect from two corners, normalizing them so that
// Right >= Left and Bottom >= Top.
func NewRect(x1, y1, x2, y2 float64) Rect {
	return Rect{
		Left:   math.Min(x1, x2),
		Top:    math.Min(y1, y2),
		Right:  math.Max(x1, x2),
		Bottom: math.Max(y1, y2),
	}
}

// FromXYWH builds a Rect from an origin and a size, as reported by
// getBoundingClientRect. Negative sizes are clamped to zero.
func FromXYWH(x, y, w, h float64) Rect {
	return Rect{Left: x, Top: y, Right: x + math.Max(0, w), Bottom: y + math.Max(0, h)}
}

// Width is never negative.
func (r Rect) Width() float64 { return math.Max(0, r.Right-r.Left) }

// Height is never negative.
func (r Rect) Height() float64 { return math.Max(0, r.Bottom-r.Top) }

func (r Rect) String() string {
	return fmt.Sprintf("[%.1f,%.1f %.1fx%.1f]", r.Left, r.Top, r.Width(), r.Height())
}

// IntersectionArea returns the area shared by a and b. Rectangles that only
// touch along an edge, or do not meet at all, yield exactly 0.
func IntersectionArea(a, b Rect) float64 {
	w := math.Min(a.Right, b.Right) - math.Max(a.Left, b.Left)
	h := math.Min(a.Bottom, b.Bottom) - math.Max(a.Top, b.Top)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Overlaps reports whether a and b share more than epsilon square pixels.
func Overlaps(a, b Rect, epsilon float64) bool {
	return IntersectionArea(a, b) > epsilon
}

// Pair identifies two entries of a slice by index.
type Pair struct {
	I, J int
	Area float64
}

// FirstOverlap scans every unordered pair of rects and returns the first pair
// whose intersection exceeds epsilon. ok is false when no pair overlaps.
func FirstOverlap(rects []Rect, epsilon float64) (p Pair, ok bool) {
	for i := 0; i < len(rects); i++ {
		for j := i + 1; j < len(rects); j++ {
			if area := IntersectionArea(rects[i], rects[j]); area > epsilon {
				return Pair{I: i, J: j, Area: area}, true
			}
		}
	}
	return Pair{}, false
}
