package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntersectionArea(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Rect
		expected float64
	}{
		{"Disjoint horizontally", NewRect(0, 0, 10, 10), NewRect(20, 0, 30, 10), 0},
		{"Disjoint vertically", NewRect(0, 0, 10, 10), NewRect(0, 50, 10, 60), 0},
		{"Shared edge", NewRect(0, 0, 10, 10), NewRect(10, 0, 20, 10), 0},
		{"Shared corner", NewRect(0, 0, 10, 10), NewRect(10, 10, 20, 20), 0},
		{"Partial overlap", NewRect(0, 0, 10, 10), NewRect(5, 5, 15, 15), 25},
		{"Contained", NewRect(0, 0, 100, 100), NewRect(10, 10, 20, 30), 200},
		{"Identical", NewRect(0, 0, 4, 4), NewRect(0, 0, 4, 4), 16},
		{"Degenerate line", NewRect(0, 5, 10, 5), NewRect(0, 0, 10, 10), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IntersectionArea(tt.a, tt.b))
			assert.Equal(t, tt.expected, IntersectionArea(tt.b, tt.a), "intersection must be symmetric")
		})
	}
}

func TestIntersectionArea_NoIntersectionIsExactlyZero(t *testing.T) {
	base := NewRect(100, 100, 200, 200)
	for dx := -300.0; dx <= 300; dx += 37 {
		for dy := -300.0; dy <= 300; dy += 41 {
			other := FromXYWH(base.Left+dx, base.Top+dy, 100, 100)
			w := base.Right - other.Left
			if other.Right-base.Left < w {
				w = other.Right - base.Left
			}
			h := base.Bottom - other.Top
			if other.Bottom-base.Top < h {
				h = other.Bottom - base.Top
			}
			if w <= 0 || h <= 0 {
				assert.Zero(t, IntersectionArea(base, other), "dx=%v dy=%v", dx, dy)
			}
		}
	}
}

func TestOverlaps_EpsilonBoundary(t *testing.T) {
	eps := DefaultOverlapEpsilon
	a := NewRect(0, 0, 10, 10)

	// Identical rectangles always overlap.
	assert.True(t, Overlaps(a, a, eps))

	// An intersection of exactly eps (1x1) is jitter, not overlap.
	exactly := NewRect(9, 9, 19, 19)
	assert.Equal(t, eps, IntersectionArea(a, exactly))
	assert.False(t, Overlaps(a, exactly, eps))

	// eps+1 (2x1) is an overlap.
	above := NewRect(8, 9, 18, 19)
	assert.Equal(t, eps+1, IntersectionArea(a, above))
	assert.True(t, Overlaps(a, above, eps))

	// Separated by more than eps on one axis.
	separated := NewRect(0, 10+eps+1, 10, 30)
	assert.False(t, Overlaps(a, separated, eps))
}

func TestFirstOverlap(t *testing.T) {
	rects := []Rect{
		FromXYWH(0, 0, 100, 40),
		FromXYWH(0, 40, 100, 40),
		FromXYWH(0, 70, 100, 40),
		FromXYWH(0, 75, 100, 40),
	}
	p, ok := FirstOverlap(rects, DefaultOverlapEpsilon)
	assert.True(t, ok)
	assert.Equal(t, 1, p.I)
	assert.Equal(t, 2, p.J)
	assert.Equal(t, 1000.0, p.Area)

	_, ok = FirstOverlap(rects[:2], DefaultOverlapEpsilon)
	assert.False(t, ok)

	_, ok = FirstOverlap(nil, DefaultOverlapEpsilon)
	assert.False(t, ok)
}

func TestFromXYWH_ClampsNegativeSize(t *testing.T) {
	r := FromXYWH(10, 10, -5, 20)
	assert.Equal(t, 0.0, r.Width())
	assert.Equal(t, 20.0, r.Height())
	assert.Equal(t, 10.0, r.Right)
}
