// G-code interpretation for the TinyG Go migration
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcode

import (
	"math"
	"strings"

	"tinyg-go-migration/pkg/arc"
	"tinyg-go-migration/pkg/canon"
	"tinyg-go-migration/pkg/errors"
	"tinyg-go-migration/pkg/log"
	"tinyg-go-migration/pkg/planner"
)

// Interpreter executes parsed commands against the machine model,
// queuing linear moves directly and handing arcs to the arc planner.
type Interpreter struct {
	machine *canon.Machine
	arc     *arc.Planner
	queue   *planner.Queue
	log     *log.Logger

	absolute   bool             // G90 (true) vs G91
	motionMode canon.MotionMode // modal group 1
}

// NewInterpreter creates an interpreter in G90/G94 defaults.
func NewInterpreter(machine *canon.Machine, arcPlanner *arc.Planner, queue *planner.Queue) *Interpreter {
	return &Interpreter{
		machine:  machine,
		arc:      arcPlanner,
		queue:    queue,
		log:      log.GetLogger("gcode"),
		absolute: true,
	}
}

// ArcBusy reports whether the arc planner still has segments pending.
// The caller must not feed further lines until it drains.
func (in *Interpreter) ArcBusy() bool {
	return in.arc.RunState() == arc.StateRunning
}

// ExecuteLine parses and runs one G-code line. Word-only lines
// ("X10 Y5") continue the modal motion mode.
func (in *Interpreter) ExecuteLine(line string) error {
	cmd, err := ParseLine(line)
	if err != nil {
		return err
	}
	if cmd == nil {
		return nil
	}

	// A line starting with an argument word continues the current
	// motion mode, per modal group 1 semantics.
	if len(cmd.Name) > 0 && strings.ContainsAny(cmd.Name[:1], "XYZIJKRF") {
		modal := in.modalName()
		if modal == "" {
			return errors.GCodeParseError(line, "argument words with no motion mode active")
		}
		cmd, err = ParseLine(modal + " " + line)
		if err != nil {
			return err
		}
	}

	switch cmd.Name {
	case "G0":
		in.motionMode = canon.MotionStraightFeed
		return in.executeLinear(cmd, true)
	case "G1":
		in.motionMode = canon.MotionStraightFeed
		return in.executeLinear(cmd, false)
	case "G2":
		in.motionMode = canon.MotionCWArc
		return in.executeArc(cmd, canon.MotionCWArc)
	case "G3":
		in.motionMode = canon.MotionCCWArc
		return in.executeArc(cmd, canon.MotionCCWArc)
	case "G17":
		in.machine.SelectPlane(canon.PlaneXY)
	case "G18":
		in.machine.SelectPlane(canon.PlaneXZ)
	case "G19":
		in.machine.SelectPlane(canon.PlaneYZ)
	case "G90":
		in.absolute = true
	case "G91":
		in.absolute = false
	case "G93":
		in.machine.SetFeedRateMode(canon.InverseTimeMode)
	case "G94":
		in.machine.SetFeedRateMode(canon.UnitsPerMinuteMode)
	case "G20", "G21":
		// Units are canonical mm throughout; G21 is the only mode.
		if cmd.Name == "G20" {
			return errors.GCodeUnknownCommandError("G20 (inch mode unsupported)")
		}
	case "M2", "M30":
		in.machine.CycleEnd()
	default:
		if strings.HasPrefix(cmd.Name, "M") {
			// Spindle/coolant words are outside the motion core.
			in.log.Debug("ignoring %s", cmd.Name)
			return nil
		}
		return errors.GCodeUnknownCommandError(cmd.Name)
	}
	return nil
}

func (in *Interpreter) modalName() string {
	switch in.motionMode {
	case canon.MotionStraightFeed:
		return "G1"
	case canon.MotionCWArc:
		return "G2"
	case canon.MotionCCWArc:
		return "G3"
	}
	return ""
}

// resolveTarget turns the line's axis words into an absolute target and
// flag set, honoring G90/G91.
func (in *Interpreter) resolveTarget(cmd *Command) ([canon.NumAxes]float64, [canon.NumAxes]bool) {
	pos := in.machine.Position()
	target := pos
	var flags [canon.NumAxes]bool
	letters := [canon.NumAxes]string{"X", "Y", "Z"}

	for i, letter := range letters {
		v, ok := cmd.Args[letter]
		if !ok {
			continue
		}
		flags[i] = true
		if in.absolute {
			target[i] = v
		} else {
			target[i] = pos[i] + v
		}
	}
	return target, flags
}

func (in *Interpreter) executeLinear(cmd *Command, rapid bool) error {
	if f, ok := cmd.Args["F"]; ok {
		in.machine.SetFeedRate(f)
	}

	target, flags := in.resolveTarget(cmd)
	if !flags[0] && !flags[1] && !flags[2] {
		return nil // word-only line with no axes, nothing to move
	}

	state := in.machine.State()
	if !rapid && state.FeedRateMode != canon.InverseTimeMode && state.FeedRate == 0 {
		return errors.FeedRateError()
	}

	in.machine.SetModelTarget(target, flags)
	in.machine.ResolveWorkOffsets()
	resolved := in.machine.State().Target

	if err := in.machine.TestSoftLimits(resolved); err != nil {
		return err
	}

	pos := in.machine.Position()
	var dist float64
	for i := 0; i < canon.NumAxes; i++ {
		d := resolved[i] - pos[i]
		dist += d * d
	}
	dist = math.Sqrt(dist)
	if dist == 0 {
		return nil
	}

	moveTime := in.moveTime(resolved, pos, dist, rapid)

	in.machine.CycleStart()
	if err := in.queue.Append(planner.Move{
		Target:   resolved,
		MoveTime: moveTime,
		FeedRate: in.machine.State().FeedRate,
	}); err != nil {
		return err
	}
	in.machine.CommitModelPosition()
	return nil
}

// moveTime returns the move duration in minutes. Rapids are limited by
// the slowest axis; feeds by the commanded rate, or the F word directly
// in inverse time mode.
func (in *Interpreter) moveTime(target, pos [canon.NumAxes]float64, dist float64, rapid bool) float64 {
	state := in.machine.State()
	cfg := in.machine.Config()

	if rapid {
		var t float64
		for i := 0; i < canon.NumAxes; i++ {
			if at := math.Abs(target[i]-pos[i]) / cfg.Axes[i].FeedRateMax; at > t {
				t = at
			}
		}
		return t
	}
	if state.FeedRateMode == canon.InverseTimeMode {
		return state.FeedRate
	}
	return dist / state.FeedRate
}

func (in *Interpreter) executeArc(cmd *Command, direction canon.MotionMode) error {
	if f, ok := cmd.Args["F"]; ok {
		in.machine.SetFeedRate(f)
	}

	target, flags := in.resolveTarget(cmd)
	i := cmd.Value("I", 0)
	j := cmd.Value("J", 0)
	k := cmd.Value("K", 0)
	r := cmd.Value("R", 0)

	return in.arc.Feed(target, flags, i, j, k, r, direction)
}
