package media

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// angleEpsilon is the smallest rotation, in degrees, that counts as rotated.
const angleEpsilon = 0.01

// axisEpsilon bounds the out-of-plane matrix terms treated as zero.
const axisEpsilon = 1e-6

// Rotation describes the rotation component of a computed transform.
type Rotation struct {
	// Degrees is the in-plane angle. It is NaN when the transform was
	// reported as a function list rather than a resolved matrix.
	Degrees float64
	// OutOfPlane is set for 3D rotations around the x or y axis.
	OutOfPlane bool
}

// Rotated reports whether the rotation is visible.
func (r Rotation) Rotated() bool {
	if r.OutOfPlane {
		return true
	}
	if math.IsNaN(r.Degrees) {
		return true
	}
	return math.Abs(r.Degrees) > angleEpsilon
}

// ParseRotation extracts the rotation from a computed transform value, which
// browsers report as "none", "matrix(a, b, c, d, e, f)" or "matrix3d(...)".
// Reflections are not treated as rotations.
func ParseRotation(transform string) (Rotation, error) {
	v := strings.TrimSpace(strings.ToLower(transform))
	switch {
	case v == "" || v == "none":
		return Rotation{}, nil
	case strings.HasPrefix(v, "matrix3d("):
		m, err := matrixArgs(v, "matrix3d(", 16)
		if err != nil {
			return Rotation{}, err
		}
		// Column-major: m[2], m[6], m[8], m[9] couple z with x/y.
		out := math.Abs(m[2]) > axisEpsilon || math.Abs(m[6]) > axisEpsilon ||
			math.Abs(m[8]) > axisEpsilon || math.Abs(m[9]) > axisEpsilon
		return Rotation{Degrees: planarAngle(m[0], m[1], m[4], m[5]), OutOfPlane: out}, nil
	case strings.HasPrefix(v, "matrix("):
		m, err := matrixArgs(v, "matrix(", 6)
		if err != nil {
			return Rotation{}, err
		}
		return Rotation{Degrees: planarAngle(m[0], m[1], m[2], m[3])}, nil
	case strings.Contains(v, "rotate"):
		return Rotation{Degrees: math.NaN()}, nil
	}
	return Rotation{}, nil
}

// planarAngle decomposes the 2D linear part [a c; b d] into a rotation and a
// scale. With a negative determinant one axis is mirrored, and the angle is
// only defined modulo 180 degrees, so it is folded into (-90, 90].
func planarAngle(a, b, c, d float64) float64 {
	det := a*d - b*c
	if det >= 0 {
		return math.Atan2(b, a) * 180 / math.Pi
	}
	deg := math.Atan2(b, a) * 180 / math.Pi
	for deg > 90 {
		deg -= 180
	}
	for deg <= -90 {
		deg += 180
	}
	return deg
}

func matrixArgs(v, prefix string, n int) ([]float64, error) {
	if !strings.HasSuffix(v, ")") {
		return nil, fmt.Errorf("malformed transform %q", v)
	}
	parts := strings.Split(v[len(prefix):len(v)-1], ",")
	if len(parts) != n {
		return nil, fmt.Errorf("transform %q has %d values, want %d", v, len(parts), n)
	}
	out := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("transform %q: %w", v, err)
		}
		out[i] = f
	}
	return out, nil
}

// RatioDeviation returns |natural - displayed| / natural for the width/height
// ratios of a loaded image.
func RatioDeviation(naturalW, naturalH, displayedW, displayedH float64) (float64, error) {
	if naturalW <= 0 || naturalH <= 0 {
		return 0, fmt.Errorf("natural size %.0fx%.0f is not usable", naturalW, naturalH)
	}
	if displayedH <= 0 {
		return 0, fmt.Errorf("displayed height is zero")
	}
	natural := naturalW / naturalH
	displayed := displayedW / displayedH
	return math.Abs(natural-displayed) / natural, nil
}
