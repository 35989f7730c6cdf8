package coord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoint_Add(t *testing.T) {
	a := Point{X: 1, Y: 2, Z: 3}
	b := Point{X: 4, Y: 5, Z: 6}

	assert.Equal(t, Point{X: 5, Y: 7, Z: 9}, a.Add(b))
}

func TestPoint_DistanceXY(t *testing.T) {
	dist := Point{X: 1, Y: 2, Z: 3}.DistanceXY(4, 5)
	assert.InEpsilon(t, 4.24264, dist, .01)
}

func TestPoint_Polar(t *testing.T) {
	p := Point{X: 10, Y: 10, Z: 3}

	assert.InDelta(t, 15, p.Polar(0, 5).X, .0001)
	assert.InDelta(t, 10, p.Polar(0, 5).Y, .0001)

	assert.InDelta(t, 10, p.Polar(90, 5).X, .0001)
	assert.InDelta(t, 15, p.Polar(90, 5).Y, .0001)

	assert.InDelta(t, 5, p.Polar(180, 5).X, .0001)
	assert.InDelta(t, 10, p.Polar(270, 5).Y-5, .0001)

	// Z carried unchanged
	assert.Equal(t, 3.0, p.Polar(45, 5).Z)
}

func TestPoint_DistanceOrigin(t *testing.T) {
	assert.InEpsilon(t, 5, Point{X: 3, Y: 4, Z: 99}.DistanceOrigin(), .0001)
}
