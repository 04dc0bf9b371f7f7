package config

import (
	"fmt"

	"tinyg-go-migration/pkg/errors"
)

// Default machine settings, used when the config file omits an option.
const (
	DefaultFeedRateMax      = 16000.0 // mm/min
	DefaultTravelMin        = 0.0     // mm
	DefaultTravelMax        = 220.0   // mm
	DefaultChordalTolerance = 0.01    // mm
	DefaultArcSegmentLen    = 0.1     // mm
	DefaultMinSegmentUsec   = 10000.0 // microseconds
	DefaultQueueSize        = 28
	DefaultQueueHeadroom    = 4
)

// AxisConfig holds the per-axis machine settings.
type AxisConfig struct {
	Enabled     bool    // disabled axes are exempt from soft limits
	FeedRateMax float64 // maximum feed rate (mm/min)
	TravelMin   float64 // soft limit minimum (mm)
	TravelMax   float64 // soft limit maximum (mm)
}

// MachineConfig holds the typed machine settings consumed by the
// motion planner. All lengths are millimeters, rates mm/min, times
// minutes unless stated otherwise.
type MachineConfig struct {
	// Per-axis settings, indexed X=0, Y=1, Z=2.
	Axes [3]AxisConfig

	// ChordalTolerance is the maximum allowed deviation between an arc
	// and the line segments that approximate it (mm).
	ChordalTolerance float64

	// ArcSegmentLen is the minimum length of an arc segment (mm).
	ArcSegmentLen float64

	// MinSegmentUsec is the minimum duration of one segment (microseconds).
	MinSegmentUsec float64

	// QueueSize is the capacity of the motion queue in segments.
	QueueSize int

	// QueueHeadroom is the number of free queue slots required before
	// the arc feeder will submit another segment.
	QueueHeadroom int
}

// axisSections maps axis index to config section name.
var axisSections = [3]string{"axis_x", "axis_y", "axis_z"}

// DefaultMachineConfig returns a MachineConfig populated with defaults.
func DefaultMachineConfig() *MachineConfig {
	mc := &MachineConfig{
		ChordalTolerance: DefaultChordalTolerance,
		ArcSegmentLen:    DefaultArcSegmentLen,
		MinSegmentUsec:   DefaultMinSegmentUsec,
		QueueSize:        DefaultQueueSize,
		QueueHeadroom:    DefaultQueueHeadroom,
	}
	for i := range mc.Axes {
		mc.Axes[i] = AxisConfig{
			Enabled:     true,
			FeedRateMax: DefaultFeedRateMax,
			TravelMin:   DefaultTravelMin,
			TravelMax:   DefaultTravelMax,
		}
	}
	return mc
}

// MachineConfigFrom builds a validated MachineConfig from a parsed Config.
// Missing sections and options fall back to defaults.
func MachineConfigFrom(c *Config) (*MachineConfig, error) {
	mc := DefaultMachineConfig()

	for i, name := range axisSections {
		s := c.Section(name)
		var err error
		if mc.Axes[i].Enabled, err = s.GetBool("enabled", true); err != nil {
			return nil, err
		}
		if mc.Axes[i].FeedRateMax, err = s.GetFloat("feedrate_max", DefaultFeedRateMax); err != nil {
			return nil, err
		}
		if mc.Axes[i].TravelMin, err = s.GetFloat("travel_min", DefaultTravelMin); err != nil {
			return nil, err
		}
		if mc.Axes[i].TravelMax, err = s.GetFloat("travel_max", DefaultTravelMax); err != nil {
			return nil, err
		}
	}

	arc := c.Section("arc")
	var err error
	if mc.ChordalTolerance, err = arc.GetFloat("chordal_tolerance", DefaultChordalTolerance); err != nil {
		return nil, err
	}
	if mc.ArcSegmentLen, err = arc.GetFloat("segment_length", DefaultArcSegmentLen); err != nil {
		return nil, err
	}
	if mc.MinSegmentUsec, err = arc.GetFloat("min_segment_usec", DefaultMinSegmentUsec); err != nil {
		return nil, err
	}

	planner := c.Section("planner")
	if mc.QueueSize, err = planner.GetInt("queue_size", DefaultQueueSize); err != nil {
		return nil, err
	}
	if mc.QueueHeadroom, err = planner.GetInt("headroom", DefaultQueueHeadroom); err != nil {
		return nil, err
	}

	if err := mc.Validate(); err != nil {
		return nil, err
	}
	return mc, nil
}

// Validate checks the settings for internal consistency.
func (mc *MachineConfig) Validate() error {
	for i, a := range mc.Axes {
		section := axisSections[i]
		if a.FeedRateMax <= 0 {
			return errors.ConfigValidationError(section, "feedrate_max", "must be positive")
		}
		if !a.Enabled {
			continue // travel range is meaningless on a disabled axis
		}
		if a.TravelMax <= a.TravelMin {
			return errors.ConfigValidationError(section, "travel_max",
				fmt.Sprintf("must be above travel_min (%.3f)", a.TravelMin))
		}
	}
	if mc.ChordalTolerance <= 0 {
		return errors.ConfigValidationError("arc", "chordal_tolerance", "must be positive")
	}
	if mc.ArcSegmentLen <= 0 {
		return errors.ConfigValidationError("arc", "segment_length", "must be positive")
	}
	if mc.MinSegmentUsec <= 0 {
		return errors.ConfigValidationError("arc", "min_segment_usec", "must be positive")
	}
	if mc.QueueSize < 2 {
		return errors.ConfigValidationError("planner", "queue_size", "must be at least 2")
	}
	if mc.QueueHeadroom < 1 || mc.QueueHeadroom >= mc.QueueSize {
		return errors.ConfigValidationError("planner", "headroom",
			fmt.Sprintf("must be in [1, queue_size) = [1, %d)", mc.QueueSize))
	}
	return nil
}
