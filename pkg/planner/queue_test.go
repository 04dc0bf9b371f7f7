package planner

import (
	"testing"

	"tinyg-go-migration/pkg/errors"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(4)

	for i := 0; i < 3; i++ {
		m := Move{Target: [3]float64{float64(i), 0, 0}, MoveTime: 0.01}
		if err := q.Append(m); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("len = %d, want 3", q.Len())
	}

	for i := 0; i < 3; i++ {
		m, ok := q.Next()
		if !ok {
			t.Fatalf("next %d: queue empty", i)
		}
		if m.Target[0] != float64(i) {
			t.Errorf("move %d target = %v", i, m.Target)
		}
	}
	if _, ok := q.Next(); ok {
		t.Error("next on empty queue returned a move")
	}
}

func TestQueueFull(t *testing.T) {
	q := NewQueue(2)
	if err := q.Append(Move{}); err != nil {
		t.Fatal(err)
	}
	if err := q.Append(Move{}); err != nil {
		t.Fatal(err)
	}
	err := q.Append(Move{})
	if !errors.Is(err, errors.ErrRuntimeQueue) {
		t.Errorf("append to full queue: err = %v, want queue error", err)
	}
}

func TestQueueAvailable(t *testing.T) {
	q := NewQueue(4)
	if q.Available() != 4 {
		t.Fatalf("available = %d, want 4", q.Available())
	}
	q.Append(Move{})
	q.Append(Move{})
	if q.Available() != 2 {
		t.Errorf("available = %d, want 2", q.Available())
	}
	q.Next()
	if q.Available() != 3 {
		t.Errorf("available = %d after drain, want 3", q.Available())
	}
}

func TestQueueWrapAround(t *testing.T) {
	q := NewQueue(3)
	// Cycle enough moves through to wrap the ring several times.
	for i := 0; i < 10; i++ {
		if err := q.Append(Move{MoveTime: float64(i)}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		m, ok := q.Next()
		if !ok || m.MoveTime != float64(i) {
			t.Fatalf("cycle %d: got %v ok=%v", i, m.MoveTime, ok)
		}
	}
}

func TestQueueFlush(t *testing.T) {
	q := NewQueue(4)
	q.Append(Move{})
	q.Append(Move{})
	q.Flush()
	if q.Len() != 0 {
		t.Errorf("len = %d after flush", q.Len())
	}
	if _, ok := q.Next(); ok {
		t.Error("next after flush returned a move")
	}
}
