package machine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_RepeatCommand(t *testing.T) {
	f := newFakeAdapter(10)
	m := testMachine(f, nil)
	m.ProbeDefaults = ProbeOptions{FeedRate: 50, MaxTravel: -10}

	f.queueProbe(1.02, true)
	for i := 0; i < 4; i++ {
		f.queueProbe(1.0, true)
	}

	var buf bytes.Buffer
	err := m.Run([]string{
		"G0 X10 Y10\n",
		"M48 P4 X50 Y50 V1 L0\n",
		"G0 X0 Y0\n",
	}, &buf)
	assert.NoError(t, err)

	// the M48 block runs locally, everything else goes to the controller
	assert.Equal(t, 5, f.cycles)
	for _, b := range f.blocks {
		assert.NotContains(t, b, "M48")
	}
	assert.Equal(t, "G0X10Y10", f.blocks[0])
	assert.Equal(t, "G0X0Y0", f.blocks[len(f.blocks)-1])

	// probes landed on the commanded target
	for _, p := range f.probes {
		assert.Equal(t, 50.0, p.X)
		assert.Equal(t, 50.0, p.Y)
	}

	assert.Contains(t, buf.String(), "z-probe repeatability test")
	assert.Contains(t, buf.String(), "standard deviation:")
}

func TestRun_NotIdle(t *testing.T) {
	f := newFakeAdapter(10)
	f.status = "Run"
	m := testMachine(f, nil)

	err := m.Run([]string{"G0 X1\n"}, nil)
	assert.Error(t, err)
	assert.Empty(t, f.blocks)
}
