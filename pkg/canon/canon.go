// Package canon implements the canonical machine model: the committed
// machine position, plane selection, feed state, and soft limit checks
// that motion planners read from and commit back into.
package canon

import (
	"sync"

	"tinyg-go-migration/pkg/config"
	"tinyg-go-migration/pkg/errors"
	"tinyg-go-migration/pkg/log"
)

// Linear axis indices.
const (
	AxisX = 0
	AxisY = 1
	AxisZ = 2

	// NumAxes is the number of linear axes.
	NumAxes = 3
)

// axisNames maps axis index to the lowercase axis letter.
var axisNames = [NumAxes]string{"x", "y", "z"}

// AxisName returns the lowercase letter for an axis index.
func AxisName(axis int) string {
	if axis < 0 || axis >= NumAxes {
		return "?"
	}
	return axisNames[axis]
}

// Plane selects the arc plane (G17/G18/G19).
type Plane int

const (
	// PlaneXY is the G17 plane (the default).
	PlaneXY Plane = iota
	// PlaneXZ is the G18 plane.
	PlaneXZ
	// PlaneYZ is the G19 plane.
	PlaneYZ
)

// String returns the G-code name of the plane.
func (p Plane) String() string {
	switch p {
	case PlaneXY:
		return "XY"
	case PlaneXZ:
		return "XZ"
	case PlaneYZ:
		return "YZ"
	default:
		return "unknown"
	}
}

// MotionMode is the active motion mode of the model.
type MotionMode int

const (
	// MotionNone means no motion is commanded.
	MotionNone MotionMode = iota
	// MotionStraightFeed is a linear feed move (G1).
	MotionStraightFeed
	// MotionCWArc is a clockwise arc (G2).
	MotionCWArc
	// MotionCCWArc is a counter-clockwise arc (G3).
	MotionCCWArc
)

// FeedRateMode selects how the F word is interpreted.
type FeedRateMode int

const (
	// UnitsPerMinuteMode interprets F as mm/min (G94).
	UnitsPerMinuteMode FeedRateMode = iota
	// InverseTimeMode interprets F as 1/minutes for the whole move (G93).
	InverseTimeMode
)

// GCodeState is a snapshot of the model state planners stamp onto moves.
// Distances are mm, rates mm/min, times minutes.
type GCodeState struct {
	Target       [NumAxes]float64 // absolute machine target
	WorkOffset   [NumAxes]float64 // resolved work coordinate offset
	FeedRate     float64          // mm/min, or move time in minutes when inverse
	FeedRateMode FeedRateMode
	MotionMode   MotionMode
	MoveTime     float64 // per-move (or per-segment) duration, minutes
}

// Machine is the canonical machine. It owns the committed model
// position and the modal state G-code commands mutate. The status
// server reads it from its own goroutines, so every accessor takes
// the mutex.
type Machine struct {
	cfg *config.MachineConfig
	log *log.Logger

	mu          sync.Mutex
	position    [NumAxes]float64 // committed model position
	plane       Plane
	workOffsets [NumAxes]float64
	gm          GCodeState // current model state

	cycleRunning bool
}

// NewMachine creates a machine model with the given configuration.
func NewMachine(cfg *config.MachineConfig) *Machine {
	return &Machine{
		cfg: cfg,
		log: log.GetLogger("canon"),
	}
}

// Config returns the machine configuration.
func (m *Machine) Config() *config.MachineConfig {
	return m.cfg
}

// Position returns the committed model position.
func (m *Machine) Position() [NumAxes]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// SetPosition forces the committed model position (homing, G92).
func (m *Machine) SetPosition(pos [NumAxes]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = pos
	m.gm.Target = pos
}

// Plane returns the active arc plane.
func (m *Machine) Plane() Plane {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plane
}

// SelectPlane sets the active arc plane.
func (m *Machine) SelectPlane(p Plane) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plane = p
}

// SetFeedRate sets the modal feed rate (mm/min, or 1/min in inverse time mode).
func (m *Machine) SetFeedRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gm.FeedRate = rate
}

// SetFeedRateMode sets the feed rate interpretation (G93/G94).
func (m *Machine) SetFeedRateMode(mode FeedRateMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gm.FeedRateMode = mode
}

// SetMotionMode sets the active motion mode.
func (m *Machine) SetMotionMode(mode MotionMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gm.MotionMode = mode
}

// SetWorkOffsets sets the active work coordinate offset (G54 style).
func (m *Machine) SetWorkOffsets(offsets [NumAxes]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workOffsets = offsets
}

// SetModelTarget commits an absolute target into the model state.
// Only flagged axes are taken from target; the rest hold the current
// model target. Work offsets are resolved into machine coordinates.
func (m *Machine) SetModelTarget(target [NumAxes]float64, flags [NumAxes]bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < NumAxes; i++ {
		if flags[i] {
			m.gm.Target[i] = target[i] + m.workOffsets[i]
		}
	}
}

// ResolveWorkOffsets captures the fully resolved offsets into the model
// state so a snapshot carries them.
func (m *Machine) ResolveWorkOffsets() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gm.WorkOffset = m.workOffsets
}

// State returns a copy of the current model state.
func (m *Machine) State() GCodeState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gm
}

// TestSoftLimits returns an error if the target is outside machine
// travel. Disabled axes are not checked.
func (m *Machine) TestSoftLimits(target [NumAxes]float64) error {
	for i := 0; i < NumAxes; i++ {
		a := m.cfg.Axes[i]
		if !a.Enabled {
			continue
		}
		if target[i] < a.TravelMin || target[i] > a.TravelMax {
			return errors.SoftLimitError(AxisName(i), target[i], a.TravelMin, a.TravelMax)
		}
	}
	return nil
}

// CycleStart ensures the motion subsystem is active before queuing moves.
// Safe to call when already running.
func (m *Machine) CycleStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.cycleRunning {
		m.cycleRunning = true
		m.log.Debug("cycle start")
	}
}

// CycleEnd marks the motion subsystem idle.
func (m *Machine) CycleEnd() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycleRunning = false
}

// CycleRunning reports whether a machining cycle is active.
func (m *Machine) CycleRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cycleRunning
}

// CommitModelPosition commits the model target as the new position.
// Called only after a move has been accepted for execution.
func (m *Machine) CommitModelPosition() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = m.gm.Target
}
