// Motion metrics in Prometheus text exposition format
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package metrics is a small counter/gauge registry exposed as a
// Prometheus text endpoint by the report server.
package metrics

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"tinyg-go-migration/pkg/log"
)

// Counter is a monotonically increasing value.
type Counter struct {
	name string
	help string
	v    atomic.Uint64
}

// Inc adds one.
func (c *Counter) Inc() { c.v.Add(1) }

// Add adds delta.
func (c *Counter) Add(delta uint64) { c.v.Add(delta) }

// Get returns the current count.
func (c *Counter) Get() uint64 { return c.v.Load() }

func (c *Counter) write(sb *strings.Builder) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s counter\n%s %d\n",
		c.name, c.help, c.name, c.name, c.v.Load())
}

// Gauge is a value that can go up and down. A Gauge may carry a
// sample function that reads the live value at scrape time.
type Gauge struct {
	name   string
	help   string
	bits   atomic.Uint64
	sample func() float64
}

// Set stores the value.
func (g *Gauge) Set(v float64) { g.bits.Store(math.Float64bits(v)) }

// Get returns the stored or sampled value.
func (g *Gauge) Get() float64 {
	if g.sample != nil {
		return g.sample()
	}
	return math.Float64frombits(g.bits.Load())
}

func (g *Gauge) write(sb *strings.Builder) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n",
		g.name, g.help, g.name, g.name, g.Get())
}

type metric interface {
	write(sb *strings.Builder)
}

// Registry holds the process's metrics and renders them for scraping.
type Registry struct {
	log     *log.Logger
	mu      sync.Mutex
	byName  map[string]metric
	ordered []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		log:    log.GetLogger("metrics"),
		byName: make(map[string]metric),
	}
}

// Counter registers (or returns the existing) counter with this name.
// A name already registered as a gauge yields a detached counter that
// never renders, so the caller keeps working while the collision is
// logged.
func (r *Registry) Counter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.byName[name]; ok {
		if c, ok := m.(*Counter); ok {
			return c
		}
		r.log.Error("metric %q already registered as a gauge", name)
		return &Counter{name: name, help: help}
	}
	c := &Counter{name: name, help: help}
	r.byName[name] = c
	r.ordered = append(r.ordered, name)
	return c
}

// Gauge registers (or returns the existing) gauge with this name.
// A name already registered as a counter yields a detached gauge, the
// same way Counter handles the reverse collision.
func (r *Registry) Gauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.byName[name]; ok {
		if g, ok := m.(*Gauge); ok {
			return g
		}
		r.log.Error("metric %q already registered as a counter", name)
		return &Gauge{name: name, help: help}
	}
	g := &Gauge{name: name, help: help}
	r.byName[name] = g
	r.ordered = append(r.ordered, name)
	return g
}

// GaugeFunc registers a gauge whose value is sampled at scrape time.
func (r *Registry) GaugeFunc(name, help string, sample func() float64) *Gauge {
	g := r.Gauge(name, help)
	g.sample = sample
	return g
}

// Render returns the registry in Prometheus text exposition format,
// metrics sorted by name.
func (r *Registry) Render() string {
	r.mu.Lock()
	names := append([]string(nil), r.ordered...)
	r.mu.Unlock()
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		r.mu.Lock()
		m := r.byName[name]
		r.mu.Unlock()
		m.write(&sb)
	}
	return sb.String()
}

// Handler serves the registry over HTTP.
func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprint(w, r.Render())
	}
}
