package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounter(t *testing.T) {
	r := NewRegistry()
	c := r.Counter("arc_segments_total", "Segments emitted")
	c.Inc()
	c.Add(4)
	if c.Get() != 5 {
		t.Errorf("count = %d, want 5", c.Get())
	}

	// Same name returns the same counter.
	if r.Counter("arc_segments_total", "") != c {
		t.Error("re-registration created a new counter")
	}
}

func TestGauge(t *testing.T) {
	r := NewRegistry()
	g := r.Gauge("queue_depth", "Queued moves")
	g.Set(12.5)
	if g.Get() != 12.5 {
		t.Errorf("gauge = %v", g.Get())
	}
}

func TestKindCollision(t *testing.T) {
	r := NewRegistry()
	g := r.Gauge("depth", "Queued moves")
	g.Set(3)

	// Registering the same name as a counter must not panic; the caller
	// gets a usable detached counter and the gauge keeps rendering.
	c := r.Counter("depth", "wrong kind")
	c.Inc()
	if c.Get() != 1 {
		t.Errorf("detached counter = %d, want 1", c.Get())
	}

	out := r.Render()
	if !strings.Contains(out, "# TYPE depth gauge") || !strings.Contains(out, "depth 3") {
		t.Errorf("original gauge lost:\n%s", out)
	}
	if strings.Contains(out, "# TYPE depth counter") {
		t.Errorf("detached counter rendered:\n%s", out)
	}

	// And the reverse direction.
	if g2 := r.Gauge("depth", ""); g2 != g {
		t.Error("re-registration created a new gauge")
	}
	r2 := NewRegistry()
	r2.Counter("lines", "Lines")
	r2.Gauge("lines", "wrong kind").Set(5) // must not panic
}

func TestGaugeFunc(t *testing.T) {
	r := NewRegistry()
	live := 3.0
	g := r.GaugeFunc("queue_free", "Free slots", func() float64 { return live })
	live = 7
	if g.Get() != 7 {
		t.Errorf("sampled gauge = %v, want 7", g.Get())
	}
}

func TestRender(t *testing.T) {
	r := NewRegistry()
	r.Counter("b_total", "second").Inc()
	r.Gauge("a_depth", "first").Set(2)

	out := r.Render()
	if !strings.Contains(out, "# TYPE a_depth gauge") ||
		!strings.Contains(out, "a_depth 2") {
		t.Errorf("missing gauge exposition:\n%s", out)
	}
	if !strings.Contains(out, "# TYPE b_total counter") ||
		!strings.Contains(out, "b_total 1") {
		t.Errorf("missing counter exposition:\n%s", out)
	}
	// Sorted by name.
	if strings.Index(out, "a_depth") > strings.Index(out, "b_total") {
		t.Error("metrics not sorted by name")
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.Counter("lines_total", "Lines executed").Add(9)

	rec := httptest.NewRecorder()
	r.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "lines_total 9") {
		t.Errorf("body = %q", rec.Body.String())
	}
}
