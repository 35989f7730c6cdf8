package machine

import (
	"github.com/mastercactapus/zprobe/gcode"
)

// RepeatOptionsFromBlock extracts repeatability options from an
// M48-style command block:
//
//	P sample count, X/Y target, V verbose level,
//	E stow between readings, L movement legs, S star pattern
//
// Absent words take their documented defaults; range validation happens
// when the test runs.
func RepeatOptionsFromBlock(b gcode.Block) RepeatOptions {
	opt := RepeatOptions{
		Samples:   10,
		Verbosity: 1,
	}

	if ok, v := b.Arg('P'); ok {
		opt.Samples = int(v)
	}
	if ok, v := b.Arg('V'); ok {
		opt.Verbosity = int(v)
	}
	if ok, v := b.Arg('X'); ok {
		x := v
		opt.X = &x
	}
	if ok, v := b.Arg('Y'); ok {
		y := v
		opt.Y = &y
	}
	if ok, v := b.Arg('L'); ok {
		opt.Legs = int(v)
		opt.LegsSet = true
	}
	opt.Stow = b.Has('E')
	opt.Star = b.Has('S')

	return opt
}
