package machine

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mastercactapus/zprobe/coord"
)

func TestNormalizeAngle(t *testing.T) {
	assert.Equal(t, 0.0, normalizeAngle(0))
	assert.Equal(t, 0.0, normalizeAngle(360))
	assert.Equal(t, 0.0, normalizeAngle(720))
	assert.Equal(t, 10.0, normalizeAngle(370))
	assert.Equal(t, 350.0, normalizeAngle(-10))
	assert.Equal(t, 350.0, normalizeAngle(-370))
	assert.InDelta(t, 359.5, normalizeAngle(359.5), 1e-12)

	for a := -1000.0; a < 1000; a += 7.3 {
		n := normalizeAngle(a)
		assert.True(t, n >= 0 && n < 360, "angle %f normalized to %f", a, n)
	}
}

func TestWanderPattern_Start(t *testing.T) {
	geo := Rectangular{MaxX: 200, MaxY: 200}
	min, max := geo.RadiusBounds()

	for seed := int64(0); seed < 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		w := newWanderPattern(rng, geo, coord.Point{X: 100, Y: 100}, false)

		assert.True(t, w.angle >= 0 && w.angle < 360)
		assert.True(t, w.radius >= min && w.radius <= max, "seed %d: radius %f", seed, w.radius)
		assert.True(t, w.dir == 1 || w.dir == -1)
	}
}

func TestWanderPattern_RandomWalk(t *testing.T) {
	geo := Rectangular{MaxX: 200, MaxY: 200}

	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		w := newWanderPattern(rng, geo, coord.Point{X: 100, Y: 100}, false)

		prev := w.angle
		for i := 0; i < 15; i++ {
			w.Next(nil)
			delta := math.Abs(normalizeAngle(w.angle - prev))
			if delta > 180 {
				delta = 360 - delta
			}
			assert.True(t, delta >= 25 && delta <= 45, "seed %d: step %f", seed, delta)
			prev = w.angle
		}
	}
}

func TestWanderPattern_Star(t *testing.T) {
	geo := Rectangular{MaxX: 200, MaxY: 200}
	rng := rand.New(rand.NewSource(7))
	w := newWanderPattern(rng, geo, coord.Point{X: 100, Y: 100}, true)

	// skipping every other point of a 5-point star advances 144 degrees
	prev := w.angle
	for i := 0; i < 10; i++ {
		w.Next(nil)
		delta := normalizeAngle(w.angle - prev)
		if w.dir < 0 {
			delta = 360 - delta
		}
		assert.InDelta(t, 144, delta, 1e-9)
		prev = w.angle
	}
}

func TestWanderPattern_StaysReachable(t *testing.T) {
	geo := Radial{ProbeRadius: 50}

	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		// a center near the edge forces clamping
		w := newWanderPattern(rng, geo, coord.Point{X: 40, Y: 20}, false)

		for i := 0; i < 15; i++ {
			p := w.Next(nil)
			assert.True(t, geo.ReachableByProbe(p.X, p.Y), "seed %d: %f,%f", seed, p.X, p.Y)
		}
	}
}
