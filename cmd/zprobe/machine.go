package main

import (
	"io"

	"github.com/mastercactapus/zprobe/coord"
	"github.com/mastercactapus/zprobe/machine"
)

type Machine interface {
	Run([]string, io.Writer) error

	ProbeZ(machine.ProbeOptions) (*machine.ProbeResult, error)
	ProbeZGrid(machine.ProbeGridOptions) ([]machine.ProbeResult, error)
	ProbeRepeatability(machine.RepeatOptions) (*machine.RepeatResult, error)

	SetLevelingMesh([]coord.Point, float64) error
	SetLevelingEnabled(bool) bool

	State() chan machine.State
	HoldMessage() chan string
}
