package machine

import (
	"errors"
	"log"
	"strings"

	"github.com/mastercactapus/zprobe/coord"
	"github.com/mastercactapus/zprobe/gcode"
	"github.com/mastercactapus/zprobe/meshlevel"
)

// Machine drives a grbl-class controller through an Adapter.
type Machine struct {
	Adapter

	// Geometry describes the probe-reachable envelope.
	Geometry Geometry

	// ProbeOffset is the XY offset of the probe from the tool position.
	ProbeOffset coord.Point

	// ProbeDefaults supplies feed rate and travel for probe cycles
	// started from a command block rather than explicit options.
	ProbeDefaults ProbeOptions

	levelMesh    *meshlevel.Mesh
	levelGran    float64
	levelEnabled bool

	holdMessage chan string
}

type State struct {
	Status string
	MPos   coord.Point
	WCO    coord.Point
}

func NewMachine(a Adapter, geo Geometry) *Machine {
	return &Machine{
		Adapter:     a,
		Geometry:    geo,
		holdMessage: make(chan string),
	}
}

func (m *Machine) HoldMessage() chan string {
	return m.holdMessage
}

// Homed reports whether machine positions can be trusted. A controller
// in alarm state has lost position and must be homed first.
func (m *Machine) Homed() bool {
	return !strings.HasPrefix(m.CurrentState().Status, "Alarm")
}

// SetLevelingMesh builds the bed correction mesh from probed points and
// enables correction for subsequent runs.
func (m *Machine) SetLevelingMesh(points []coord.Point, granularity float64) error {
	mesh, err := meshlevel.NewMesh(points)
	if err != nil {
		return err
	}
	m.levelMesh = mesh
	m.levelGran = granularity
	m.levelEnabled = true
	return nil
}

// SetLevelingEnabled toggles bed correction and returns the prior state
// so callers can restore it. Enabling without a mesh is a no-op.
func (m *Machine) SetLevelingEnabled(on bool) (prior bool) {
	prior = m.levelEnabled
	m.levelEnabled = on && m.levelMesh != nil
	return prior
}

func (m *Machine) LevelingEnabled() bool { return m.levelEnabled }

func (m *Machine) runBlocks(b []gcode.Block) error {
	_, err := m.Adapter.ReadFrom(gcode.NewBuffer(&gcode.BlocksReader{Blocks: b}))
	return err
}

func (m *Machine) hold(message string) error {
	m.holdMessage <- message
	_, err := m.Adapter.Write([]byte("M0\n"))
	m.holdMessage <- "-"
	return err
}

// moveTo runs a blocking rapid to x,y in machine coordinates.
func (m *Machine) moveTo(x, y float64) error {
	return m.runBlocks([]gcode.Block{
		{
			{W: 'G', Arg: 53},
			{W: 'G', Arg: 0},
			{W: 'X', Arg: x},
			{W: 'Y', Arg: y},
		},
	})
}

// prepareProbeMoves verifies the controller is ready for probe cycles.
func (m *Machine) prepareProbeMoves() error {
	stat := m.CurrentState()
	if stat.Status != "Idle" && stat.Status != "Hold:0" {
		return errors.New("machine not idle")
	}
	return nil
}

// restoreProbeMoves lifts back to the pre-test height, leaving the
// machine where a following job expects it.
func (m *Machine) restoreProbeMoves(stat State) {
	err := m.runBlocks([]gcode.Block{
		{
			{W: 'G', Arg: 53},
			{W: 'G', Arg: 0},
			{W: 'Z', Arg: stat.MPos.Z},
		},
	})
	if err != nil {
		log.Println("ERROR: restore probe height:", err)
	}
}
