package controller

import (
	"context"
	"testing"
	"time"
)

func TestRunOncePriorityRestart(t *testing.T) {
	c := New()
	var order []string

	highRemaining := 2
	c.Register("high", func() Status {
		if highRemaining > 0 {
			highRemaining--
			order = append(order, "high")
			return StatusDone
		}
		return StatusNoop
	})
	c.Register("low", func() Status {
		order = append(order, "low")
		return StatusDone
	})

	// Each pass returns after the first productive task, so high runs
	// to exhaustion before low is ever reached.
	for i := 0; i < 3; i++ {
		if s := c.RunOnce(); s != StatusDone {
			t.Fatalf("pass %d: status = %v", i, s)
		}
	}

	want := []string{"high", "high", "low"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRunOnceAllIdle(t *testing.T) {
	c := New()
	c.Register("idle", func() Status { return StatusNoop })
	if s := c.RunOnce(); s != StatusNoop {
		t.Errorf("status = %v, want noop", s)
	}
}

func TestRunOnceAgainPropagates(t *testing.T) {
	c := New()
	c.Register("busy", func() Status { return StatusAgain })
	if s := c.RunOnce(); s != StatusAgain {
		t.Errorf("status = %v, want again", s)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	c := New()
	polls := 0
	ctx, cancel := context.WithCancel(context.Background())
	c.Register("work", func() Status {
		polls++
		if polls >= 5 {
			cancel()
		}
		return StatusDone
	})

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx, time.Millisecond) }()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if polls < 5 {
		t.Errorf("polls = %d, want >= 5", polls)
	}
}

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		StatusNoop:  "noop",
		StatusAgain: "again",
		StatusDone:  "done",
	}
	for s, want := range cases {
		if s.String() != want {
			t.Errorf("Status(%d).String() = %q, want %q", s, s.String(), want)
		}
	}
}
