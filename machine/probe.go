package machine

import (
	"errors"
	"math"

	"github.com/mastercactapus/zprobe/coord"
	"github.com/mastercactapus/zprobe/gcode"
)

type ProbeResult struct {
	coord.Point
	Valid bool
}

// ProbeOptions configure a straight z-probe operation.
type ProbeOptions struct {
	ZeroZAxis bool

	// Offset is the offset to use when ZeroZAxis is set.
	Offset float64

	FeedRate  float64
	MaxTravel float64

	// If true, execute a feed hold before probing
	Wait bool
}

// ProbeZ will perform a straight z-probe from the current location.
func (m *Machine) ProbeZ(opt ProbeOptions) (*ProbeResult, error) {
	if opt.Wait {
		err := m.hold("Attach Z-Probe to spindle.")
		if err != nil {
			return nil, err
		}
	}
	if err := m.prepareProbeMoves(); err != nil {
		return nil, err
	}
	stat := m.CurrentState()

	m.Adapter.ResetProbes()
	err := m.runBlocks(opt.generate(stat.MPos))
	if err != nil {
		return nil, err
	}
	p := m.Adapter.Probes()
	if len(p) == 0 {
		return nil, errors.New("no probe data returned")
	}

	return &p[0], nil
}

// probePoint positions the tool so the probe lands on x,y (machine
// coordinates), runs one probe cycle and lifts back to lift. It returns
// the probed machine Z, or NaN when the cycle produced no valid contact.
func (m *Machine) probePoint(x, y, lift float64, opt ProbeOptions) float64 {
	err := m.moveTo(x-m.ProbeOffset.X, y-m.ProbeOffset.Y)
	if err != nil {
		return math.NaN()
	}

	m.Adapter.ResetProbes()
	err = m.runBlocks(opt.probeCommand(false, lift))
	if err != nil {
		return math.NaN()
	}

	p := m.Adapter.Probes()
	if len(p) == 0 || !p[len(p)-1].Valid {
		return math.NaN()
	}
	return p[len(p)-1].Z
}

// probeCommand will return a command to do a Z-probe.
func (opt ProbeOptions) probeCommand(zero bool, lift float64) []gcode.Block {
	b := []gcode.Block{
		{
			{W: 'G', Arg: 91},
			{W: 'G', Arg: 38.2},
			{W: 'Z', Arg: opt.MaxTravel},
			{W: 'F', Arg: opt.FeedRate},
		},
	}
	if zero {
		b = append(b, gcode.Block{
			{W: 'G', Arg: 92},
			{W: 'Z', Arg: opt.Offset},
		})
	}
	b = append(b,
		gcode.Block{
			{W: 'G', Arg: 53},
			{W: 'G', Arg: 0},
			{W: 'Z', Arg: lift},
		},
	)
	return b
}

// generate will create gcode to do a probe operation that
// handles zeroing the z-axis and returning to the point of origin.
func (opt ProbeOptions) generate(mPos coord.Point) []gcode.Block {
	return opt.probeCommand(opt.ZeroZAxis, mPos.Z)
}
