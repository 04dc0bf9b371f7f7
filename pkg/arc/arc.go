// Arc planning for the TinyG Go migration
//
// Converts a G2/G3 arc command into a bounded run of short linear
// segments pushed into the motion queue. Planning happens once in
// Feed; segments are emitted one per Callback poll so arc generation
// never blocks the main loop.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package arc

import (
	"math"
	"sync"

	"tinyg-go-migration/pkg/canon"
	"tinyg-go-migration/pkg/config"
	"tinyg-go-migration/pkg/controller"
	"tinyg-go-migration/pkg/errors"
	"tinyg-go-migration/pkg/log"
	"tinyg-go-migration/pkg/planner"
)

const (
	fullCircle = 2 * math.Pi

	// microsecondsPerMinute converts planned move time (minutes) into
	// microseconds for the minimum-segment-time constraint.
	microsecondsPerMinute = 60000000.0

	// epsilon is the zero threshold for floats, matching the precision
	// the rest of the motion model works to.
	epsilon = 0.00001
)

func fpZero(f float64) bool { return math.Abs(f) < epsilon }

// RunState tracks whether an arc is being generated.
type RunState int

const (
	// StateIdle means no arc is in flight.
	StateIdle RunState = iota
	// StateRunning means segments remain to be emitted.
	StateRunning
)

// Planner generates one arc at a time. It is populated by Feed and
// drained by Callback; it is not safe for a second Feed while running.
type Planner struct {
	machine *canon.Machine
	queue   *planner.Queue
	cfg     *config.MachineConfig
	log     *log.Logger

	position [canon.NumAxes]float64 // current position, updated per segment

	// planeAxis0/1 span the arc plane; planeAxis2 is the helical axis.
	planeAxis0 int
	planeAxis1 int
	planeAxis2 int

	offset [canon.NumAxes]float64 // center offset from start position
	radius float64                // signed input radius, then solved magnitude

	theta        float64 // current angle from the positive axis1 direction
	segmentTheta float64 // angular increment per segment

	center0 float64 // absolute arc center in the plane
	center1 float64

	angularTravel float64 // radians, signed
	linearTravel  float64 // mm along the helical axis
	length        float64 // total helix length, mm
	time          float64 // planned arc duration, minutes

	segmentLinearTravel float64

	gm canon.GCodeState // snapshot stamped onto each segment

	// mu guards runState and segmentsRemaining, which the status
	// server samples from other goroutines.
	mu                sync.Mutex
	runState          RunState
	segmentsRemaining int
}

// New creates an arc planner bound to the machine model and motion queue.
func New(machine *canon.Machine, queue *planner.Queue) *Planner {
	return &Planner{
		machine: machine,
		queue:   queue,
		cfg:     machine.Config(),
		log:     log.GetLogger("arc"),
	}
}

// RunState returns the current run state.
func (p *Planner) RunState() RunState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runState
}

// SegmentsRemaining returns the number of segments not yet emitted.
func (p *Planner) SegmentsRemaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.segmentsRemaining
}

// Feed plans an arc from the current model position to target. Offsets
// i/j/k give the center relative to the start (offset form); a non-zero
// radius selects radius form instead, with negative radius requesting
// the arc longer than 180 degrees. direction must be MotionCWArc or
// MotionCCWArc. On success the planner is armed and the model position
// is committed to the endpoint; on any error no state is committed.
func (p *Planner) Feed(target [canon.NumAxes]float64, flags [canon.NumAxes]bool,
	i, j, k, radius float64, direction canon.MotionMode) error {

	state := p.machine.State()
	if state.FeedRateMode != canon.InverseTimeMode && fpZero(state.FeedRate) {
		return errors.FeedRateError()
	}

	// A word-only command (bare F or M) can arrive while still in arc
	// motion mode. With no geometry at all it is a legal no-op.
	if fpZero(i) && fpZero(j) && fpZero(k) && fpZero(radius) &&
		!flags[0] && !flags[1] && !flags[2] {
		return nil
	}

	p.machine.SetModelTarget(target, flags)
	p.machine.SetMotionMode(direction)
	p.machine.ResolveWorkOffsets()
	p.gm = p.machine.State()

	p.position = p.machine.Position()
	p.radius = radius
	p.offset = [canon.NumAxes]float64{i, j, k}

	switch p.machine.Plane() {
	case canon.PlaneXY: // G17, the common case
		p.planeAxis0 = canon.AxisX
		p.planeAxis1 = canon.AxisY
		p.planeAxis2 = canon.AxisZ
	case canon.PlaneXZ: // G18
		p.planeAxis0 = canon.AxisX
		p.planeAxis1 = canon.AxisZ
		p.planeAxis2 = canon.AxisY
	case canon.PlaneYZ: // G19
		p.planeAxis0 = canon.AxisY
		p.planeAxis1 = canon.AxisZ
		p.planeAxis2 = canon.AxisX
	}

	if err := p.computeArc(); err != nil {
		return err
	}
	// The working target's helical component was reset for segment
	// generation; limit-check the fully resolved endpoint instead.
	if err := p.machine.TestSoftLimits(p.machine.State().Target); err != nil {
		return err
	}

	p.machine.CycleStart()
	p.mu.Lock()
	p.runState = StateRunning
	p.mu.Unlock()
	p.machine.CommitModelPosition()
	p.log.Debug("arc armed: segments=%d radius=%.4f travel=%.4frad length=%.4fmm",
		p.segmentsRemaining, p.radius, p.angularTravel, p.length)
	return nil
}

// Callback emits at most one segment per call. It returns StatusNoop
// when no arc is in flight, StatusAgain when the queue lacks headroom
// or segments remain, and StatusDone when the final segment was queued.
func (p *Planner) Callback() controller.Status {
	p.mu.Lock()
	idle := p.runState == StateIdle
	p.mu.Unlock()
	if idle {
		return controller.StatusNoop
	}
	if p.queue.Available() < p.cfg.QueueHeadroom {
		return controller.StatusAgain
	}

	p.theta += p.segmentTheta
	p.gm.Target[p.planeAxis0] = p.center0 + math.Sin(p.theta)*p.radius
	p.gm.Target[p.planeAxis1] = p.center1 + math.Cos(p.theta)*p.radius
	p.gm.Target[p.planeAxis2] += p.segmentLinearTravel

	// Capacity was checked above, so the append cannot fail.
	p.queue.Append(planner.Move{
		Target:   p.gm.Target,
		MoveTime: p.gm.MoveTime,
		FeedRate: p.gm.FeedRate,
	})
	p.position = p.gm.Target

	p.mu.Lock()
	p.segmentsRemaining--
	if p.segmentsRemaining > 0 {
		p.mu.Unlock()
		return controller.StatusAgain
	}
	p.runState = StateIdle
	p.mu.Unlock()
	return controller.StatusDone
}

// Abort stops arc generation without retracting queued segments.
// Safe to call when no arc is running.
func (p *Planner) Abort() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runState = StateIdle
	p.segmentsRemaining = 0
}

// computeArc solves the arc geometry and segmentation from the planner
// fields loaded by Feed. Theta values are radians of deviance from the
// positive axis1 direction, negative to its left, positive to its right.
func (p *Planner) computeArc() error {
	// A non-zero radius means radius form; solve it into plane offsets,
	// overriding any IJK words.
	if !fpZero(p.radius) {
		if err := p.offsetsFromRadius(); err != nil {
			return err
		}
	}

	// Start angle: the vector from the center back to the current position.
	p.theta = getTheta(-p.offset[p.planeAxis0], -p.offset[p.planeAxis1])
	if math.IsNaN(p.theta) {
		return errors.ArcSpecificationError("start angle undefined")
	}

	thetaEnd := getTheta(
		p.gm.Target[p.planeAxis0]-p.offset[p.planeAxis0]-p.position[p.planeAxis0],
		p.gm.Target[p.planeAxis1]-p.offset[p.planeAxis1]-p.position[p.planeAxis1])
	if math.IsNaN(thetaEnd) {
		return errors.ArcSpecificationError("end angle undefined")
	}

	// Ensure the difference is positive so travel reads as clockwise.
	if thetaEnd < p.theta {
		thetaEnd += fullCircle
	}

	// Invert for counter-clockwise arcs. Zero travel with live offsets
	// is a full circle.
	p.angularTravel = thetaEnd - p.theta
	if fpZero(p.angularTravel) {
		if p.gm.MotionMode == canon.MotionCCWArc {
			p.angularTravel -= fullCircle
		} else {
			p.angularTravel = fullCircle
		}
	} else if p.gm.MotionMode == canon.MotionCCWArc {
		p.angularTravel -= fullCircle
	}

	// The solved offset magnitude is the authoritative radius from here
	// on; it may differ slightly from a radius-form input.
	p.radius = math.Hypot(p.offset[p.planeAxis0], p.offset[p.planeAxis1])
	p.linearTravel = p.gm.Target[p.planeAxis2] - p.position[p.planeAxis2]

	p.length = math.Hypot(p.angularTravel*p.radius, math.Abs(p.linearTravel))
	if p.length < p.cfg.ArcSegmentLen {
		return errors.MinimumLengthMoveError(p.length, p.cfg.ArcSegmentLen)
	}

	p.time = p.arcTime()

	// Segment count is the binding minimum of chordal accuracy, minimum
	// segment length, and minimum segment time, but at least 1.
	tol := p.cfg.ChordalTolerance
	forChordalAccuracy := p.length / math.Sqrt(4*tol*(2*p.radius-tol))
	forMinimumDistance := p.length / p.cfg.ArcSegmentLen
	forMinimumTime := p.time * microsecondsPerMinute / p.cfg.MinSegmentUsec

	segments := math.Floor(math.Min(forChordalAccuracy,
		math.Min(forMinimumDistance, forMinimumTime)))
	segments = math.Max(segments, 1)

	p.gm.MoveTime = p.time / segments // each queued line gets segment time
	p.mu.Lock()
	p.segmentsRemaining = int(segments)
	p.mu.Unlock()
	p.segmentTheta = p.angularTravel / segments
	p.segmentLinearTravel = p.linearTravel / segments
	p.center0 = p.position[p.planeAxis0] - math.Sin(p.theta)*p.radius
	p.center1 = p.position[p.planeAxis1] - math.Cos(p.theta)*p.radius

	// The helical target starts at the current position and is advanced
	// segment by segment.
	p.gm.Target[p.planeAxis2] = p.position[p.planeAxis2]
	return nil
}

// offsetsFromRadius finds the circle center that has the requested
// radius and passes through both the current position and the target,
// writing it into the offset vector.
//
// With [x,y] the travel vector and d its magnitude, the center sits at
// the travel midpoint displaced along the perpendicular [-y,x] by
// h = sqrt(r^2 - (d/2)^2), giving:
//
//	offset0 = (x - y*h*2/d) / 2
//	offset1 = (y + x*h*2/d) / 2
//
// The sign of h*2/d picks which side of the chord the center lies on:
// negated for counter-clockwise arcs, and negated again for a negative
// input radius, which requests the arc spanning more than 180 degrees.
func (p *Planner) offsetsFromRadius() error {
	x := p.gm.Target[p.planeAxis0] - p.position[p.planeAxis0]
	y := p.gm.Target[p.planeAxis1] - p.position[p.planeAxis1]

	// The chord cannot be longer than the diameter; a negative
	// discriminant would put the center on the complex plane.
	disc := 4*p.radius*p.radius - x*x - y*y
	if disc < 0 {
		return errors.FloatingPointError("radius too small for chord")
	}
	hX2DivD := -math.Sqrt(disc) / math.Hypot(x, y)
	if math.IsNaN(hX2DivD) {
		return errors.FloatingPointError("degenerate radius arc")
	}

	if p.gm.MotionMode == canon.MotionCCWArc {
		hX2DivD = -hX2DivD
	}
	if p.radius < 0 {
		hX2DivD = -hX2DivD
	}

	p.offset[p.planeAxis0] = (x - y*hX2DivD) / 2
	p.offset[p.planeAxis1] = (y + x*hX2DivD) / 2
	p.offset[p.planeAxis2] = 0
	return nil
}

// arcTime estimates arc duration in minutes with a naive per-dimension
// rate limit: the duration from the feed rate, pushed up to whatever
// the slowest axis needs assuming it sees the full planar or linear
// travel. Conservative, never below the feed-rate time.
func (p *Planner) arcTime() float64 {
	planarTravel := math.Abs(p.angularTravel * p.radius)

	var moveTime float64
	if p.gm.FeedRateMode == canon.InverseTimeMode {
		moveTime = p.gm.FeedRate // inverse time: F is the whole-move time
	} else {
		moveTime = math.Hypot(planarTravel, p.linearTravel) / p.gm.FeedRate
	}

	if t := planarTravel / p.cfg.Axes[p.planeAxis0].FeedRateMax; t > moveTime {
		moveTime = t
	}
	if t := planarTravel / p.cfg.Axes[p.planeAxis1].FeedRateMax; t > moveTime {
		moveTime = t
	}
	if t := math.Abs(p.linearTravel / p.cfg.Axes[p.planeAxis2].FeedRateMax); t > moveTime {
		moveTime = t
	}
	return moveTime
}

// getTheta finds the angle in radians of deviance from the positive
// y axis, negative to the left of it and positive to the right. The
// piecewise form covers all four quadrants; NaN (only for x=y=0) is
// passed through for the caller to reject.
func getTheta(x, y float64) float64 {
	theta := math.Atan(x / math.Abs(y))

	if y > 0 {
		return theta
	}
	if theta > 0 {
		return math.Pi - theta
	}
	return -math.Pi - theta
}
