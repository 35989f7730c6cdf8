package machine

import (
	"math"

	"github.com/mastercactapus/zprobe/coord"
)

// Geometry describes the probe-reachable envelope of a machine and how
// wander positions are kept inside it.
type Geometry interface {
	// ReachableByProbe reports whether the probe can safely visit x,y.
	ReachableByProbe(x, y float64) bool

	// RadiusBounds returns the smallest and largest wander radius for
	// movement patterns.
	RadiusBounds() (min, max float64)

	// Clamp returns the nearest safe position for x,y. onAdjust, when
	// set, observes each intermediate position produced on the way in.
	Clamp(x, y float64, onAdjust func(x, y float64)) (float64, float64)
}

// Rectangular is a flat rectangular bed.
type Rectangular struct {
	MinX, MinY, MaxX, MaxY float64
}

var _ Geometry = Rectangular{}

func (g Rectangular) ReachableByProbe(x, y float64) bool {
	return x >= g.MinX && x <= g.MaxX && y >= g.MinY && y <= g.MaxY
}

func (g Rectangular) RadiusBounds() (min, max float64) {
	return 5, 0.125 * math.Min(g.MaxX-g.MinX, g.MaxY-g.MinY)
}

// Clamp limits each axis independently to the bed extents.
func (g Rectangular) Clamp(x, y float64, _ func(x, y float64)) (float64, float64) {
	x = math.Max(g.MinX, math.Min(x, g.MaxX))
	y = math.Max(g.MinY, math.Min(y, g.MaxY))
	return x, y
}

// Radial is a delta-style round bed centered on the origin.
type Radial struct {
	// ProbeRadius is the radius the probe can reach.
	ProbeRadius float64
}

var _ Geometry = Radial{}

func (g Radial) ReachableByProbe(x, y float64) bool {
	return coord.Point{X: x, Y: y}.DistanceOrigin() <= g.ProbeRadius
}

func (g Radial) RadiusBounds() (min, max float64) {
	return 0.125 * g.ProbeRadius, g.ProbeRadius / 3
}

// Clamp scales the position towards the origin until it is reachable.
func (g Radial) Clamp(x, y float64, onAdjust func(x, y float64)) (float64, float64) {
	for !g.ReachableByProbe(x, y) {
		x *= 0.8
		y *= 0.8
		if onAdjust != nil {
			onAdjust(x, y)
		}
	}
	return x, y
}
