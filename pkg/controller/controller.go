// Package controller runs the cooperative main loop. Tasks are polled
// in priority order; a task does a bounded slice of work per call and
// reports whether it progressed, so no task ever blocks the loop.
package controller

import (
	"context"
	"time"

	"tinyg-go-migration/pkg/log"
)

// Status is the flow-control result of one task poll.
type Status int

const (
	// StatusNoop means the task had nothing to do.
	StatusNoop Status = iota
	// StatusAgain means the task made partial progress and wants to be
	// polled again soon (blocked on a resource or mid-operation).
	StatusAgain
	// StatusDone means the task completed a unit of work this pass.
	StatusDone
)

// String returns a short name for the status.
func (s Status) String() string {
	switch s {
	case StatusNoop:
		return "noop"
	case StatusAgain:
		return "again"
	case StatusDone:
		return "done"
	default:
		return "unknown"
	}
}

// TaskFunc is one pollable unit of the main loop. It must not block.
type TaskFunc func() Status

type task struct {
	name string
	fn   TaskFunc
}

// Controller polls registered tasks in registration order. Whenever a
// task reports progress the pass restarts from the top, so earlier
// (higher priority) tasks always run before later ones continue.
type Controller struct {
	tasks []task
	log   *log.Logger
}

// New creates an empty controller.
func New() *Controller {
	return &Controller{log: log.GetLogger("controller")}
}

// Register appends a task. Registration order is priority order.
func (c *Controller) Register(name string, fn TaskFunc) {
	c.tasks = append(c.tasks, task{name: name, fn: fn})
}

// RunOnce polls tasks from highest priority down and returns after the
// first task that reports progress, or StatusNoop when every task was
// idle.
func (c *Controller) RunOnce() Status {
	for _, t := range c.tasks {
		if s := t.fn(); s != StatusNoop {
			return s
		}
	}
	return StatusNoop
}

// Run polls RunOnce until ctx is cancelled. After a pass that completed
// work it polls again immediately; otherwise (idle, or a task deferring
// on a busy resource) it sleeps for tick first, so a task stuck on
// backpressure cannot spin the loop while the resource it waits on is
// drained by a lower-priority task.
func (c *Controller) Run(ctx context.Context, tick time.Duration) error {
	if tick <= 0 {
		tick = time.Millisecond
	}
	timer := time.NewTimer(tick)
	defer timer.Stop()

	c.log.Debug("main loop started with %d tasks", len(c.tasks))
	for {
		select {
		case <-ctx.Done():
			c.log.Debug("main loop stopped: %v", ctx.Err())
			return ctx.Err()
		default:
		}

		if c.RunOnce() == StatusDone {
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(tick)
		select {
		case <-ctx.Done():
			c.log.Debug("main loop stopped: %v", ctx.Err())
			return ctx.Err()
		case <-timer.C:
		}
	}
}
