package machine

import (
	"math/rand"

	"github.com/mastercactapus/zprobe/coord"
)

// wanderPattern generates the intermediate positions visited before a
// reading so the target is approached from varying directions.
type wanderPattern struct {
	rng *rand.Rand
	geo Geometry

	center coord.Point
	star   bool

	dir    float64
	angle  float64
	radius float64
}

func newWanderPattern(rng *rand.Rand, geo Geometry, center coord.Point, star bool) *wanderPattern {
	w := &wanderPattern{
		rng:    rng,
		geo:    geo,
		center: center,
		star:   star,
		dir:    1,
	}
	if rng.Intn(10) > 5 {
		w.dir = -1
	}
	w.angle = rng.Float64() * 360

	min, max := geo.RadiusBounds()
	w.radius = min + rng.Float64()*(max-min)

	return w
}

func (w *wanderPattern) dirString() string {
	if w.dir > 0 {
		return "CCW"
	}
	return "CW"
}

// Next advances the pattern and returns the next position, clamped to
// the reachable envelope. onAdjust, when set, observes each intermediate
// position produced while clamping.
func (w *wanderPattern) Next(onAdjust func(x, y float64)) coord.Point {
	var delta float64
	if w.star {
		// the points of a 5 point star are 72 degrees apart; skip a
		// point and go to the next one on the star
		delta = w.dir * 2 * 72
	} else {
		delta = w.dir * (25 + w.rng.Float64()*20)
	}
	w.angle = normalizeAngle(w.angle + delta)

	p := w.center.Polar(w.angle, w.radius)
	p.X, p.Y = w.geo.Clamp(p.X, p.Y, onAdjust)
	return p
}

// normalizeAngle folds a into [0,360) by repeated addition and
// subtraction, keeping trig inputs in their documented range.
func normalizeAngle(a float64) float64 {
	for a >= 360 {
		a -= 360
	}
	for a < 0 {
		a += 360
	}
	return a
}
