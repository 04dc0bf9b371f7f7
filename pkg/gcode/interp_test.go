package gcode

import (
	"math"
	"testing"

	"tinyg-go-migration/pkg/arc"
	"tinyg-go-migration/pkg/canon"
	"tinyg-go-migration/pkg/config"
	"tinyg-go-migration/pkg/controller"
	"tinyg-go-migration/pkg/errors"
	"tinyg-go-migration/pkg/planner"
)

func newTestInterp() (*Interpreter, *canon.Machine, *planner.Queue) {
	cfg := config.DefaultMachineConfig()
	cfg.QueueSize = 10000
	m := canon.NewMachine(cfg)
	q := planner.NewQueue(cfg.QueueSize)
	p := arc.New(m, q)
	return NewInterpreter(m, p, q), m, q
}

func TestLinearMove(t *testing.T) {
	in, m, q := newTestInterp()

	if err := in.ExecuteLine("G1 X10 Y20 F600"); err != nil {
		t.Fatal(err)
	}
	if m.Position() != ([3]float64{10, 20, 0}) {
		t.Errorf("position = %v", m.Position())
	}

	mv, ok := q.Next()
	if !ok {
		t.Fatal("no move queued")
	}
	wantTime := math.Hypot(10, 20) / 600 // minutes
	if math.Abs(mv.MoveTime-wantTime) > 1e-12 {
		t.Errorf("move time = %v, want %v", mv.MoveTime, wantTime)
	}
}

func TestLinearMoveZeroFeed(t *testing.T) {
	in, _, _ := newTestInterp()
	err := in.ExecuteLine("G1 X10")
	if !errors.Is(err, errors.ErrFeedRate) {
		t.Errorf("err = %v, want feed rate error", err)
	}
}

func TestRapidMoveNeedsNoFeed(t *testing.T) {
	in, m, q := newTestInterp()
	if err := in.ExecuteLine("G0 X100"); err != nil {
		t.Fatal(err)
	}
	if m.Position() != ([3]float64{100, 0, 0}) {
		t.Errorf("position = %v", m.Position())
	}
	mv, _ := q.Next()
	// Rapid time is the slowest axis at its feed ceiling.
	want := 100.0 / config.DefaultFeedRateMax
	if math.Abs(mv.MoveTime-want) > 1e-12 {
		t.Errorf("rapid time = %v, want %v", mv.MoveTime, want)
	}
}

func TestRelativeMode(t *testing.T) {
	in, m, _ := newTestInterp()
	lines := []string{"G90", "G1 X10 F600", "G91", "G1 X5 Y5", "X5"}
	for _, l := range lines {
		if err := in.ExecuteLine(l); err != nil {
			t.Fatalf("%q: %v", l, err)
		}
	}
	if m.Position() != ([3]float64{20, 5, 0}) {
		t.Errorf("position = %v, want (20, 5, 0)", m.Position())
	}
}

func TestModalMotionContinuation(t *testing.T) {
	in, m, q := newTestInterp()
	if err := in.ExecuteLine("G1 X10 F600"); err != nil {
		t.Fatal(err)
	}
	if err := in.ExecuteLine("Y10"); err != nil {
		t.Fatal(err)
	}
	if m.Position() != ([3]float64{10, 10, 0}) {
		t.Errorf("position = %v", m.Position())
	}
	if q.Len() != 2 {
		t.Errorf("queued %d moves, want 2", q.Len())
	}
}

func TestModalWordsWithoutMotionMode(t *testing.T) {
	in, _, _ := newTestInterp()
	err := in.ExecuteLine("X10 Y10")
	if !errors.Is(err, errors.ErrGCodeParse) {
		t.Errorf("err = %v, want parse error", err)
	}
}

func TestArcDispatch(t *testing.T) {
	in, m, q := newTestInterp()
	m.SetFeedRate(600)

	if err := in.ExecuteLine("G2 X0 Y0 I10 J0"); err != nil {
		t.Fatal(err)
	}
	if !in.ArcBusy() {
		t.Fatal("arc planner not armed by G2")
	}
	// Drain the arc; every segment becomes a queued move.
	for {
		s := in.arc.Callback()
		if s == controller.StatusDone {
			break
		}
		if s != controller.StatusAgain {
			t.Fatalf("unexpected callback status %v", s)
		}
	}
	if q.Len() == 0 {
		t.Error("no segments queued for full circle")
	}
	if in.ArcBusy() {
		t.Error("arc still busy after drain")
	}
}

func TestArcCounterClockwise(t *testing.T) {
	in, m, _ := newTestInterp()
	m.SetFeedRate(600)
	if err := in.ExecuteLine("G3 X10 Y10 I10 J0"); err != nil {
		t.Fatal(err)
	}
	if !in.ArcBusy() {
		t.Error("G3 did not arm the arc planner")
	}
}

func TestPlaneSelection(t *testing.T) {
	in, m, _ := newTestInterp()
	cases := map[string]canon.Plane{
		"G17": canon.PlaneXY,
		"G18": canon.PlaneXZ,
		"G19": canon.PlaneYZ,
	}
	for line, want := range cases {
		if err := in.ExecuteLine(line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
		if m.Plane() != want {
			t.Errorf("%s: plane = %v, want %v", line, m.Plane(), want)
		}
	}
}

func TestFeedRateModes(t *testing.T) {
	in, m, _ := newTestInterp()
	if err := in.ExecuteLine("G93"); err != nil {
		t.Fatal(err)
	}
	if m.State().FeedRateMode != canon.InverseTimeMode {
		t.Error("G93 did not select inverse time mode")
	}
	if err := in.ExecuteLine("G94"); err != nil {
		t.Fatal(err)
	}
	if m.State().FeedRateMode != canon.UnitsPerMinuteMode {
		t.Error("G94 did not select units per minute mode")
	}
}

func TestSoftLimitRejected(t *testing.T) {
	in, m, q := newTestInterp()
	err := in.ExecuteLine("G1 X500 F600")
	if !errors.Is(err, errors.ErrSoftLimit) {
		t.Fatalf("err = %v, want soft limit error", err)
	}
	if m.Position() != ([3]float64{}) || q.Len() != 0 {
		t.Error("rejected move mutated state")
	}
}

func TestUnknownCommands(t *testing.T) {
	in, _, _ := newTestInterp()
	if err := in.ExecuteLine("G33"); !errors.Is(err, errors.ErrGCodeUnknownCmd) {
		t.Errorf("G33: err = %v, want unknown command", err)
	}
	if err := in.ExecuteLine("G20"); !errors.Is(err, errors.ErrGCodeUnknownCmd) {
		t.Errorf("G20: err = %v, want unknown command", err)
	}
	// Spindle and coolant words are accepted and ignored.
	if err := in.ExecuteLine("M3 S1000"); err != nil {
		t.Errorf("M3: %v", err)
	}
	if err := in.ExecuteLine("G21"); err != nil {
		t.Errorf("G21: %v", err)
	}
}

func TestProgramEnd(t *testing.T) {
	in, m, _ := newTestInterp()
	in.ExecuteLine("G1 X10 F600")
	if !m.CycleRunning() {
		t.Fatal("cycle not started by move")
	}
	if err := in.ExecuteLine("M2"); err != nil {
		t.Fatal(err)
	}
	if m.CycleRunning() {
		t.Error("M2 did not end the cycle")
	}
}
