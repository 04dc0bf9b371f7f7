// tinyg-go is the Go implementation of the TinyG motion controller
// host. It reads G-code from a file, stdin, or a serial sender, plans
// arcs into linear segments, and drains them through a simulated
// stepper consumer while reporting status over HTTP/WebSocket.
//
// Usage:
//
//	tinyg-go -gcode part.nc [options]
//	tinyg-go -serial /dev/ttyUSB0 [options]
//
// Options:
//
//	-config string   Machine configuration file (INI)
//	-gcode string    G-code file path, or "-" for stdin
//	-serial string   Serial device to read G-code from
//	-baud int        Serial baud rate (default 115200)
//	-status string   Status server address (default ":7125", empty to disable)
//	-timescale float Real-time pacing factor for the simulated stepper
//	                 (0 drains instantly)
//	-trace           Enable debug tracing
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"tinyg-go-migration/pkg/arc"
	"tinyg-go-migration/pkg/canon"
	"tinyg-go-migration/pkg/config"
	"tinyg-go-migration/pkg/controller"
	"tinyg-go-migration/pkg/gcode"
	"tinyg-go-migration/pkg/log"
	"tinyg-go-migration/pkg/metrics"
	"tinyg-go-migration/pkg/planner"
	"tinyg-go-migration/pkg/report"
	"tinyg-go-migration/pkg/serial"
)

func main() {
	configFile := flag.String("config", "", "Machine configuration file (INI)")
	gcodeFile := flag.String("gcode", "", `G-code file path, or "-" for stdin`)
	serialDev := flag.String("serial", "", "Serial device to read G-code from")
	baud := flag.Int("baud", 115200, "Serial baud rate")
	statusAddr := flag.String("status", ":7125", "Status server address (empty to disable)")
	timescale := flag.Float64("timescale", 0, "Real-time pacing factor (0 drains instantly)")
	trace := flag.Bool("trace", false, "Enable debug tracing")
	flag.Parse()

	if *trace {
		log.SetDefaultLevel(log.DEBUG)
	}
	logger := log.GetLogger("main")

	if *gcodeFile == "" && *serialDev == "" {
		fmt.Fprintln(os.Stderr, "Error: one of -gcode or -serial is required")
		flag.Usage()
		os.Exit(1)
	}

	machineCfg := config.DefaultMachineConfig()
	if *configFile != "" {
		cfg, err := config.Load(*configFile)
		if err != nil {
			logger.Error("load config: %v", err)
			os.Exit(1)
		}
		machineCfg, err = config.MachineConfigFrom(cfg)
		if err != nil {
			logger.Error("parse config: %v", err)
			os.Exit(1)
		}
	}
	if err := machineCfg.Validate(); err != nil {
		logger.Error("invalid config: %v", err)
		os.Exit(1)
	}

	machine := canon.NewMachine(machineCfg)
	queue := planner.NewQueue(machineCfg.QueueSize)
	arcPlanner := arc.New(machine, queue)
	interp := gcode.NewInterpreter(machine, arcPlanner, queue)

	lines, closeSource, err := openLineSource(*gcodeFile, *serialDev, *baud)
	if err != nil {
		logger.Error("open G-code source: %v", err)
		os.Exit(1)
	}
	defer closeSource()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received %v, shutting down", sig)
		arcPlanner.Abort()
		queue.Flush()
		cancel()
	}()

	var linesExecuted atomic.Int64

	registry := metrics.NewRegistry()
	lineCounter := registry.Counter("gcode_lines_total", "G-code lines executed")
	lineErrors := registry.Counter("gcode_errors_total", "G-code lines rejected")
	arcsCompleted := registry.Counter("arcs_completed_total", "Arcs fully segmented")
	movesExecuted := registry.Counter("moves_executed_total", "Moves drained by the stepper")
	registry.GaugeFunc("queue_depth", "Moves waiting in the motion queue",
		func() float64 { return float64(queue.Len()) })
	registry.GaugeFunc("arc_segments_remaining", "Segments left in the running arc",
		func() float64 { return float64(arcPlanner.SegmentsRemaining()) })

	if *statusAddr != "" {
		statusServer := report.NewServer(*statusAddr, &statusSource{
			machine: machine,
			arc:     arcPlanner,
			queue:   queue,
			lines:   &linesExecuted,
		}, 250*time.Millisecond)
		statusServer.SetMetrics(registry)
		statusServer.Start()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			statusServer.Stop(shutdownCtx)
		}()
	}

	sourceDone := false
	stepper := &simStepper{queue: queue, timescale: *timescale}

	loop := controller.New()
	// The consumer outranks the producers: when the queue is full the
	// arc and gcode tasks defer, and the stepper must get the next poll
	// to drain it.
	loop.Register("stepper", func() controller.Status {
		s := stepper.task()
		if s == controller.StatusDone {
			movesExecuted.Inc()
		}
		return s
	})
	loop.Register("arc", func() controller.Status {
		s := arcPlanner.Callback()
		if s == controller.StatusDone {
			arcsCompleted.Inc()
		}
		return s
	})
	loop.Register("gcode", func() controller.Status {
		// Never start a new line while the arc planner is mid-arc or
		// the queue lacks room for at least one move.
		if interp.ArcBusy() {
			return controller.StatusNoop
		}
		if queue.Available() < machineCfg.QueueHeadroom {
			return controller.StatusAgain
		}
		select {
		case line, ok := <-lines:
			if !ok {
				if !sourceDone {
					sourceDone = true
					logger.Info("G-code source exhausted")
				}
				return controller.StatusNoop
			}
			if err := interp.ExecuteLine(line); err != nil {
				lineErrors.Inc()
				logger.WithError(err).Error("line rejected: %s", line)
			} else {
				linesExecuted.Add(1)
				lineCounter.Inc()
			}
			return controller.StatusDone
		default:
			return controller.StatusNoop
		}
	})
	loop.Register("shutdown", func() controller.Status {
		if sourceDone && !interp.ArcBusy() && queue.Len() == 0 {
			machine.CycleEnd()
			cancel()
			return controller.StatusDone
		}
		return controller.StatusNoop
	})

	logger.Info("controller starting")
	if err := loop.Run(ctx, time.Millisecond); err != context.Canceled {
		logger.Error("controller: %v", err)
		os.Exit(1)
	}
	logger.Info("done: %d lines executed, final position %v",
		linesExecuted.Load(), machine.Position())
}

// openLineSource returns a channel of G-code lines from the file,
// stdin, or serial device, plus a close function for the underlying
// reader.
func openLineSource(path, device string, baud int) (<-chan string, func(), error) {
	var r io.ReadCloser
	switch {
	case device != "":
		cfg := serial.DefaultConfig(device)
		cfg.Baud = baud
		port, err := serial.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		r = port
	case path == "-":
		r = io.NopCloser(os.Stdin)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		r = f
	}

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines, func() { r.Close() }, nil
}

// simStepper is the queue consumer standing in for pulse generation.
// With a timescale it paces moves against the wall clock; otherwise it
// drains one move per poll.
type simStepper struct {
	queue     *planner.Queue
	timescale float64
	busyUntil time.Time
}

func (s *simStepper) task() controller.Status {
	if s.timescale > 0 && time.Now().Before(s.busyUntil) {
		return controller.StatusNoop
	}
	m, ok := s.queue.Next()
	if !ok {
		return controller.StatusNoop
	}
	if s.timescale > 0 {
		d := time.Duration(m.MoveTime * s.timescale * float64(time.Minute))
		s.busyUntil = time.Now().Add(d)
	}
	return controller.StatusDone
}

// statusSource snapshots live machine state for the report server.
type statusSource struct {
	machine *canon.Machine
	arc     *arc.Planner
	queue   *planner.Queue
	lines   *atomic.Int64
}

func (s *statusSource) Snapshot() report.Status {
	state := s.machine.State()
	return report.Status{
		Position:          s.machine.Position(),
		Plane:             s.machine.Plane().String(),
		FeedRate:          state.FeedRate,
		CycleRunning:      s.machine.CycleRunning(),
		ArcRunning:        s.arc.RunState() == arc.StateRunning,
		SegmentsRemaining: s.arc.SegmentsRemaining(),
		QueueDepth:        s.queue.Len(),
		QueueCapacity:     s.queue.Cap(),
		LinesExecuted:     s.lines.Load(),
	}
}
