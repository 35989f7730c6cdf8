package machine

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/mastercactapus/zprobe/coord"
)

// Validation failures for a repeatability test. They abort the test
// before any machine motion.
var (
	ErrNotHomed  = errors.New("machine not homed")
	ErrVerbosity = errors.New("verbose level not plausible (0-4)")
	ErrSamples   = errors.New("sample size not plausible (4-50)")
	ErrTarget    = errors.New("(X,Y) out of bounds")
	ErrLegs      = errors.New("number of legs in movement not plausible (0-15)")
)

// ErrProbeFail indicates a probe cycle finished without a valid contact.
// When returned together with a RepeatResult, the result holds the
// statistics of the samples taken before the failure.
var ErrProbeFail = errors.New("probe failed")

// RepeatOptions configure a probe repeatability measurement.
type RepeatOptions struct {
	ProbeOptions

	// Samples is the number of readings to take (4-50).
	Samples int

	// Verbosity gates status output: 0 silent, 1 per-sample readings and
	// final summary, 2 adds sample headers, 3 adds running statistics
	// and positioning notes, 4 adds per-leg movement detail.
	Verbosity int

	// X, Y select the probe target in machine coordinates. A nil axis
	// defaults to the current position offset by the probe offset.
	X, Y *float64

	// Stow fully retracts the probe between readings instead of a raise.
	Stow bool

	// Legs is the number of intermediate movement legs before each
	// reading (0-15). LegsSet distinguishes an explicit 0 from absent.
	Legs    int
	LegsSet bool

	// Star moves in a 5-point-star skip pattern instead of a random walk.
	Star bool

	// TravelZ is the machine Z the probe retracts to when Stow is set.
	TravelZ float64

	// Rand is the randomness source for movement patterns. When nil, one
	// is seeded from the clock.
	Rand *rand.Rand

	// Progress, when set, receives the 1-based sample index before each
	// reading.
	Progress func(n, total int)

	// Output receives status lines per Verbosity. Nil discards them.
	Output io.Writer
}

// RepeatResult summarizes a repeatability measurement.
type RepeatResult struct {
	Samples []float64

	Mean  float64
	Sigma float64
	Min   float64
	Max   float64
}

// Range will return the spread between the smallest and largest sample.
func (r *RepeatResult) Range() float64 { return r.Max - r.Min }

// ProbeRepeatability measures probe noise by sampling the same point
// repeatedly, optionally wandering through intermediate positions before
// each reading so the target is approached from varying directions.
//
// Bed leveling correction is disabled for the duration and restored
// afterward; the probe is retracted and the final position reported on
// every exit path past validation.
func (m *Machine) ProbeRepeatability(opt RepeatOptions) (*RepeatResult, error) {
	if !m.Homed() {
		return nil, ErrNotHomed
	}

	if opt.Verbosity < 0 || opt.Verbosity > 4 {
		return nil, ErrVerbosity
	}
	out := reporter{w: opt.Output, level: opt.Verbosity}
	out.printf(1, "z-probe repeatability test")

	if opt.Samples < 4 || opt.Samples > 50 {
		return nil, ErrSamples
	}

	stat := m.CurrentState()

	targetX := stat.MPos.X + m.ProbeOffset.X
	if opt.X != nil {
		targetX = *opt.X
	}
	targetY := stat.MPos.Y + m.ProbeOffset.Y
	if opt.Y != nil {
		targetY = *opt.Y
	}
	if !m.Geometry.ReachableByProbe(targetX, targetY) {
		return nil, ErrTarget
	}

	legs := 0
	if opt.LegsSet {
		legs = opt.Legs
	}
	if legs < 0 || legs > 15 {
		return nil, ErrLegs
	}
	if legs == 1 {
		// a single leg cannot form a closed detour
		legs = 2
	}
	if opt.Star && !opt.LegsSet {
		legs = 7
	}

	rng := opt.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	out.printf(3, "positioning the probe...")

	// raw readings only: bed correction stays off for the duration
	priorLeveling := m.SetLevelingEnabled(false)

	if err := m.prepareProbeMoves(); err != nil {
		m.SetLevelingEnabled(priorLeveling)
		return nil, err
	}

	lift := stat.MPos.Z
	if opt.Stow {
		lift = opt.TravelZ
	}

	defer func() {
		m.restoreProbeMoves(stat)
		m.SetLevelingEnabled(priorLeveling)
		p := m.CurrentState().MPos
		out.printf(0, "X:%.3f Y:%.3f Z:%.3f", p.X, p.Y, p.Z)
	}()

	// one priming probe to get the probe close to the bed; a failure
	// here aborts before any sampling
	z := m.probePoint(targetX, targetY, lift, opt.ProbeOptions)
	if math.IsNaN(z) {
		return nil, ErrProbeFail
	}
	out.printf(1, "bed x: %.3f y: %.3f z: %.3f", targetX, targetY, z)

	center := coord.Point{
		X: targetX - m.ProbeOffset.X,
		Y: targetY - m.ProbeOffset.Y,
	}

	stats := NewRunningStats()

	for n := 0; n < opt.Samples; n++ {
		if opt.Progress != nil {
			opt.Progress(n+1, opt.Samples)
		}
		out.printf(2, "point %d of %d", n+1, opt.Samples)

		if legs > 0 {
			w := newWanderPattern(rng, m.Geometry, center, opt.Star)
			out.printf(4, "starting radius: %.3f   angle: %.3f dir: %s",
				w.radius, w.angle, w.dirString())

			for l := 0; l < legs-1; l++ {
				p := w.Next(func(x, y float64) {
					out.printf(4, "pulling point towards center: %.3f, %.3f", x, y)
				})
				out.printf(4, "going to: X%.3f Y%.3f Z%.3f", p.X, p.Y, stat.MPos.Z)
				if err := m.moveTo(p.X, p.Y); err != nil {
					return partialResult(out, stats), err
				}
			}
		}

		z = m.probePoint(targetX, targetY, lift, opt.ProbeOptions)
		if math.IsNaN(z) {
			return partialResult(out, stats), ErrProbeFail
		}
		stats.Add(z)

		line := fmt.Sprintf("%d/%d: z: %.3f", n+1, opt.Samples, z)
		if out.level >= 3 {
			line += fmt.Sprintf(" mean: %.4f sigma: %.6f min: %.3f max: %.3f range: %.3f",
				stats.Mean, stats.Sigma, stats.Min, stats.Max, stats.Max-stats.Min)
		}
		out.printf(1, "%s", line)
	}

	out.printf(1, "finished")
	res := stats.result()
	printSummary(out, res)
	return res, nil
}

// partialResult reports whatever statistics were gathered before a
// failure; nil when not a single sample succeeded.
func partialResult(out reporter, stats *RunningStats) *RepeatResult {
	if stats.Count() == 0 {
		return nil
	}
	res := stats.result()
	printSummary(out, res)
	return res
}

func printSummary(out reporter, res *RepeatResult) {
	out.printf(1, "mean: %.6f min: %.3f max: %.3f range: %.3f",
		res.Mean, res.Min, res.Max, res.Range())
	out.printf(1, "standard deviation: %.6f", res.Sigma)
}
