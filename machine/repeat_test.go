package machine

import (
	"bytes"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mastercactapus/zprobe/coord"
	"github.com/mastercactapus/zprobe/gcode"
)

// fakeAdapter interprets the g-code stream the Machine writes, tracking
// position with the gcode VM and answering probe cycles from a queue.
type fakeAdapter struct {
	vm     *gcode.VM
	status string

	queue  []ProbeResult
	probes []ProbeResult

	moves  []coord.Point
	cycles int
	blocks []string
}

var _ Adapter = &fakeAdapter{}

func newFakeAdapter(startZ float64) *fakeAdapter {
	vm := gcode.NewVM()
	vm.SetMPos(coord.Point{Z: startZ})
	return &fakeAdapter{vm: vm, status: "Idle"}
}

func (f *fakeAdapter) queueProbe(z float64, valid bool) {
	f.queue = append(f.queue, ProbeResult{Point: coord.Point{Z: z}, Valid: valid})
}

func (f *fakeAdapter) Probes() []ProbeResult { return f.probes }
func (f *fakeAdapter) ResetProbes()          { f.probes = nil }
func (f *fakeAdapter) State() chan State     { return nil }
func (f *fakeAdapter) CurrentState() State {
	return State{Status: f.status, MPos: f.vm.MPos()}
}
func (f *fakeAdapter) WriteByte(byte) error { return nil }
func (f *fakeAdapter) Write(p []byte) (int, error) {
	_, err := f.ReadFrom(bytes.NewReader(p))
	return len(p), err
}

func (f *fakeAdapter) ReadFrom(r io.Reader) (int64, error) {
	p := gcode.NewParser(r)
	for {
		b, err := p.Read()
		if err == io.EOF {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		f.blocks = append(f.blocks, b.String())

		err = f.vm.Run(b)
		if err != nil {
			return 0, err
		}

		var probe, machineCoords bool
		for _, g := range b {
			if g.W != 'G' {
				continue
			}
			if g.Arg == 38.2 {
				probe = true
			}
			if g.Arg == 53 {
				machineCoords = true
			}
		}

		if probe {
			f.cycles++
			var res ProbeResult
			if len(f.queue) > 0 {
				res = f.queue[0]
				f.queue = f.queue[1:]
			}
			res.X = f.vm.MPos().X
			res.Y = f.vm.MPos().Y
			f.probes = append(f.probes, res)
		} else if machineCoords && (b.Has('X') || b.Has('Y')) {
			f.moves = append(f.moves, f.vm.MPos())
		}
	}
}

func testMachine(f *fakeAdapter, geo Geometry) *Machine {
	if geo == nil {
		geo = Rectangular{MaxX: 200, MaxY: 200}
	}
	return NewMachine(f, geo)
}

func baseOptions() RepeatOptions {
	return RepeatOptions{
		ProbeOptions: ProbeOptions{FeedRate: 50, MaxTravel: -10},
		Samples:      10,
		Rand:         rand.New(rand.NewSource(1)),
	}
}

func TestProbeRepeatability(t *testing.T) {
	f := newFakeAdapter(10)
	m := testMachine(f, nil)

	f.queueProbe(1.05, true) // priming
	readings := []float64{1.01, 1.02, 0.99, 1.0, 1.03, 0.98, 1.01, 1.0, 1.02, 0.99}
	for _, z := range readings {
		f.queueProbe(z, true)
	}

	opt := baseOptions()
	x, y := 100.0, 100.0
	opt.X, opt.Y = &x, &y

	res, err := m.ProbeRepeatability(opt)
	assert.NoError(t, err)
	assert.Equal(t, readings, res.Samples)

	// priming + one per sample
	assert.Equal(t, 11, f.cycles)

	// no legs: every move lands on the same position
	for _, p := range f.moves {
		assert.Equal(t, 100.0, p.X)
		assert.Equal(t, 100.0, p.Y)
	}

	assert.True(t, res.Min <= res.Mean && res.Mean <= res.Max)
	assert.True(t, res.Sigma >= 0)
	assert.Equal(t, 0.98, res.Min)
	assert.Equal(t, 1.03, res.Max)
	assert.InDelta(t, 0.05, res.Range(), 1e-9)
}

func TestProbeRepeatability_ProbeOffset(t *testing.T) {
	f := newFakeAdapter(10)
	m := testMachine(f, nil)
	m.ProbeOffset = coord.Point{X: 10, Y: -5}

	f.queueProbe(1, true)
	for i := 0; i < 4; i++ {
		f.queueProbe(1, true)
	}

	opt := baseOptions()
	opt.Samples = 4
	x, y := 100.0, 100.0
	opt.X, opt.Y = &x, &y

	_, err := m.ProbeRepeatability(opt)
	assert.NoError(t, err)

	// the tool moves offset from the probe target
	for _, p := range f.moves {
		assert.Equal(t, 90.0, p.X)
		assert.Equal(t, 105.0, p.Y)
	}
}

func TestProbeRepeatability_PrimingFail(t *testing.T) {
	f := newFakeAdapter(10)
	m := testMachine(f, nil)

	points := []coord.Point{
		{X: 0, Y: 0, Z: 0}, {X: 100, Y: 0, Z: 0.1},
		{X: 0, Y: 100, Z: 0.1}, {X: 100, Y: 100, Z: 0.2},
	}
	assert.NoError(t, m.SetLevelingMesh(points, 5))
	assert.True(t, m.LevelingEnabled())

	f.queueProbe(0, false) // priming fails

	var buf bytes.Buffer
	opt := baseOptions()
	opt.Verbosity = 1
	opt.Output = &buf
	x, y := 100.0, 100.0
	opt.X, opt.Y = &x, &y

	res, err := m.ProbeRepeatability(opt)
	assert.Equal(t, ErrProbeFail, err)
	assert.Nil(t, res)
	assert.Equal(t, 1, f.cycles)

	// teardown: leveling restored, probe lifted back to start height
	assert.True(t, m.LevelingEnabled())
	assert.Equal(t, 10.0, f.vm.MPos().Z)

	// no summary without a single successful reading
	assert.NotContains(t, buf.String(), "standard deviation")
	// the final position is still reported
	assert.Contains(t, buf.String(), "Z:10.000")
}

func TestProbeRepeatability_MidLoopFail(t *testing.T) {
	f := newFakeAdapter(10)
	m := testMachine(f, nil)

	f.queueProbe(1, true) // priming
	readings := []float64{1.01, 1.02, 0.99, 1.0, 1.03, 0.98}
	for _, z := range readings {
		f.queueProbe(z, true)
	}
	f.queueProbe(0, false) // 7th sample fails

	var buf bytes.Buffer
	opt := baseOptions()
	opt.Verbosity = 1
	opt.Output = &buf
	x, y := 100.0, 100.0
	opt.X, opt.Y = &x, &y

	res, err := m.ProbeRepeatability(opt)
	assert.Equal(t, ErrProbeFail, err)
	assert.NotNil(t, res)
	assert.Equal(t, readings, res.Samples)
	assert.Equal(t, 0.98, res.Min)
	assert.Equal(t, 1.03, res.Max)

	// partial statistics still get summarized
	assert.Contains(t, buf.String(), "standard deviation")

	// teardown ran
	assert.Equal(t, 10.0, f.vm.MPos().Z)
}

func TestProbeRepeatability_Validation(t *testing.T) {
	check := func(mutate func(opt *RepeatOptions), want error) {
		t.Helper()

		f := newFakeAdapter(10)
		m := testMachine(f, nil)
		opt := baseOptions()
		x, y := 100.0, 100.0
		opt.X, opt.Y = &x, &y
		mutate(&opt)

		res, err := m.ProbeRepeatability(opt)
		assert.Equal(t, want, err)
		assert.Nil(t, res)

		// validation failures never touch the machine
		assert.Equal(t, 0, f.cycles)
		assert.Empty(t, f.moves)
	}

	check(func(opt *RepeatOptions) { opt.Verbosity = 5 }, ErrVerbosity)
	check(func(opt *RepeatOptions) { opt.Verbosity = -1 }, ErrVerbosity)
	check(func(opt *RepeatOptions) { opt.Samples = 3 }, ErrSamples)
	check(func(opt *RepeatOptions) { opt.Samples = 51 }, ErrSamples)
	check(func(opt *RepeatOptions) {
		x := 500.0
		opt.X = &x
	}, ErrTarget)
	check(func(opt *RepeatOptions) {
		opt.Legs = 16
		opt.LegsSet = true
	}, ErrLegs)
}

func TestProbeRepeatability_NotHomed(t *testing.T) {
	f := newFakeAdapter(10)
	f.status = "Alarm"
	m := testMachine(f, nil)

	res, err := m.ProbeRepeatability(baseOptions())
	assert.Equal(t, ErrNotHomed, err)
	assert.Nil(t, res)
	assert.Equal(t, 0, f.cycles)
}

// movesPerSample measures wander moves by running a test and counting
// recorded XY moves beyond the one per probe cycle.
func movesPerSample(t *testing.T, opt RepeatOptions) int {
	t.Helper()

	f := newFakeAdapter(10)
	m := testMachine(f, nil)

	f.queueProbe(1, true)
	for i := 0; i < opt.Samples; i++ {
		f.queueProbe(1, true)
	}

	x, y := 100.0, 100.0
	opt.X, opt.Y = &x, &y

	_, err := m.ProbeRepeatability(opt)
	assert.NoError(t, err)

	// each probe cycle is preceded by one positioning move
	wander := len(f.moves) - (opt.Samples + 1)
	assert.Equal(t, 0, wander%opt.Samples)
	return wander / opt.Samples
}

func TestProbeRepeatability_Legs(t *testing.T) {
	opt := baseOptions()
	opt.Samples = 4

	// no legs: probe stays fixed at the target
	assert.Equal(t, 0, movesPerSample(t, opt))

	// legs generate legCount-1 intermediate positions
	opt.Legs, opt.LegsSet = 4, true
	opt.Rand = rand.New(rand.NewSource(2))
	assert.Equal(t, 3, movesPerSample(t, opt))

	// a single leg is remapped to two
	opt.Legs = 1
	opt.Rand = rand.New(rand.NewSource(3))
	assert.Equal(t, 1, movesPerSample(t, opt))

	// star with no explicit leg count forces seven legs
	opt.Legs, opt.LegsSet = 0, false
	opt.Star = true
	opt.Rand = rand.New(rand.NewSource(4))
	assert.Equal(t, 6, movesPerSample(t, opt))

	// an explicit leg count is never overridden by star mode
	opt.Legs, opt.LegsSet = 12, true
	opt.Rand = rand.New(rand.NewSource(5))
	assert.Equal(t, 11, movesPerSample(t, opt))
}

func TestProbeRepeatability_WaypointsInBounds(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		f := newFakeAdapter(10)
		m := testMachine(f, Rectangular{MaxX: 120, MaxY: 80})

		f.queueProbe(1, true)
		for i := 0; i < 4; i++ {
			f.queueProbe(1, true)
		}

		opt := baseOptions()
		opt.Samples = 4
		opt.Legs, opt.LegsSet = 15, true
		opt.Rand = rand.New(rand.NewSource(seed))
		x, y := 60.0, 40.0
		opt.X, opt.Y = &x, &y

		_, err := m.ProbeRepeatability(opt)
		assert.NoError(t, err)

		for _, p := range f.moves {
			assert.True(t, p.X >= 0 && p.X <= 120, "seed %d: x=%f", seed, p.X)
			assert.True(t, p.Y >= 0 && p.Y <= 80, "seed %d: y=%f", seed, p.Y)
		}
	}
}

func TestProbeRepeatability_Output(t *testing.T) {
	run := func(verbosity int) string {
		f := newFakeAdapter(10)
		m := testMachine(f, nil)

		f.queueProbe(1, true)
		for i := 0; i < 4; i++ {
			f.queueProbe(1, true)
		}

		var buf bytes.Buffer
		opt := baseOptions()
		opt.Samples = 4
		opt.Verbosity = verbosity
		opt.Output = &buf
		x, y := 100.0, 100.0
		opt.X, opt.Y = &x, &y

		_, err := m.ProbeRepeatability(opt)
		assert.NoError(t, err)
		return buf.String()
	}

	// silent during sampling; only the final position report
	out := run(0)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "X:")

	out = run(1)
	assert.Contains(t, out, "z-probe repeatability test")
	assert.Contains(t, out, "4/4: z:")
	assert.Contains(t, out, "finished")
	assert.Contains(t, out, "standard deviation:")
	assert.NotContains(t, out, "point 1 of 4")
	assert.NotContains(t, out, "sigma:")

	out = run(2)
	assert.Contains(t, out, "point 1 of 4")
	assert.Contains(t, out, "point 4 of 4")

	out = run(3)
	assert.Contains(t, out, "sigma:")
	assert.Contains(t, out, "positioning the probe...")
}

func TestProbeRepeatability_Progress(t *testing.T) {
	f := newFakeAdapter(10)
	m := testMachine(f, nil)

	f.queueProbe(1, true)
	for i := 0; i < 4; i++ {
		f.queueProbe(1, true)
	}

	var seen []int
	opt := baseOptions()
	opt.Samples = 4
	opt.Progress = func(n, total int) {
		assert.Equal(t, 4, total)
		seen = append(seen, n)
	}
	x, y := 100.0, 100.0
	opt.X, opt.Y = &x, &y

	_, err := m.ProbeRepeatability(opt)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, seen)
}
