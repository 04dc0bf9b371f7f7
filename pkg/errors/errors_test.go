package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := SoftLimitError("x", 250.0, 0.0, 220.0)
	s := err.Error()
	if !strings.Contains(s, "SOFT_LIMIT") {
		t.Errorf("error string missing code: %s", s)
	}
	if !strings.Contains(s, "x") {
		t.Errorf("error string missing axis: %s", s)
	}
}

func TestIs(t *testing.T) {
	cases := []struct {
		err  error
		code ErrorCode
	}{
		{FeedRateError(), ErrFeedRate},
		{ArcSpecificationError("theta is NaN"), ErrArcSpecification},
		{FloatingPointError("radius too small for chord"), ErrFloatingPoint},
		{MinimumLengthMoveError(0.001, 0.05), ErrMinimumLengthMove},
		{SoftLimitError("y", -3, 0, 200), ErrSoftLimit},
		{ConfigSectionError("axis_x"), ErrConfigSection},
	}
	for _, c := range cases {
		if !Is(c.err, c.code) {
			t.Errorf("Is(%v, %s) = false, want true", c.err, c.code)
		}
	}
	if Is(FeedRateError(), ErrSoftLimit) {
		t.Error("Is matched the wrong code")
	}
	if Is(stderrors.New("plain"), ErrRuntime) {
		t.Error("Is matched a non-MachineError")
	}
}

func TestIsMatchesWrapped(t *testing.T) {
	inner := FloatingPointError("sqrt of negative discriminant")
	outer := fmt.Errorf("arc rejected: %w", inner)
	if !Is(outer, ErrFloatingPoint) {
		t.Error("Is should unwrap through fmt.Errorf %w")
	}
	if !IsMotion(outer) {
		t.Error("IsMotion should unwrap through fmt.Errorf %w")
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("open failed")
	err := Wrap(cause, ErrConfigSection, "loading machine config")
	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
}

func TestCategoryHelpers(t *testing.T) {
	if !IsMotion(MinimumLengthMoveError(0.0001, 0.05)) {
		t.Error("IsMotion(MinimumLengthMoveError) = false")
	}
	if IsMotion(ConfigOptionError("arc", "chordal_tolerance")) {
		t.Error("IsMotion matched a config error")
	}
	if !IsConfig(ConfigValidationError("axis_x", "feedrate_max", "must be positive")) {
		t.Error("IsConfig(ConfigValidationError) = false")
	}
}
