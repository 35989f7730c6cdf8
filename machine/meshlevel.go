package machine

import (
	"errors"
	"io"
	"strings"

	"github.com/mastercactapus/zprobe/gcode"
	"github.com/mastercactapus/zprobe/meshlevel"
)

// Run executes raw g-code lines, filtering them through bed leveling
// correction when it is enabled. M48 blocks run locally as
// repeatability tests instead of being forwarded to the controller,
// reporting to out.
func (m *Machine) Run(lines []string, out io.Writer) error {
	if m.CurrentState().Status != "Idle" {
		return errors.New("machine not idle")
	}

	parser := gcode.NewParser(strings.NewReader(strings.Join(lines, "")))

	var batch []gcode.Block
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		var gr gcode.Reader = &gcode.BlocksReader{Blocks: batch}
		if m.levelEnabled && m.levelMesh != nil {
			stat := m.CurrentState()
			gr = meshlevel.New(meshlevel.Config{
				ZOffsetter: m.levelMesh,

				MPos: stat.MPos,
				WCO:  stat.WCO,

				Granularity: m.levelGran,
				Reader:      gr,
			})
		}
		batch = nil

		_, err := m.ReadFrom(gcode.NewBuffer(gr))
		return err
	}

	for {
		b, err := parser.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		if ok, v := b.Arg('M'); ok && v == 48 {
			// run preceding motion first so the test starts from
			// where the job left off
			if err = flush(); err != nil {
				return err
			}

			opt := RepeatOptionsFromBlock(b)
			opt.ProbeOptions = m.ProbeDefaults
			opt.Output = out
			if _, err = m.ProbeRepeatability(opt); err != nil {
				return err
			}
			continue
		}

		batch = append(batch, b)
	}

	return flush()
}
