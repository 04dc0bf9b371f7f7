// Unified error handling for the TinyG Go migration
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Motion planning errors
	ErrFeedRate          ErrorCode = "FEEDRATE"
	ErrArcSpecification  ErrorCode = "ARC_SPECIFICATION"
	ErrFloatingPoint     ErrorCode = "FLOATING_POINT"
	ErrMinimumLengthMove ErrorCode = "MINIMUM_LENGTH_MOVE"
	ErrSoftLimit         ErrorCode = "SOFT_LIMIT"

	// Configuration errors
	ErrConfigSection    ErrorCode = "CONFIG_SECTION"
	ErrConfigOption     ErrorCode = "CONFIG_OPTION"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// G-code errors
	ErrGCodeParse      ErrorCode = "GCODE_PARSE"
	ErrGCodeUnknownCmd ErrorCode = "GCODE_UNKNOWN_CMD"

	// Runtime errors
	ErrRuntime      ErrorCode = "RUNTIME"
	ErrRuntimeQueue ErrorCode = "RUNTIME_QUEUE"
)

// MachineError is the unified error type for the motion controller host.
type MachineError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Axis is the machine axis involved, if any ("x", "y", "z")
	Axis string

	// Err wraps the underlying error
	Err error
}

// Error implements the error interface
func (e *MachineError) Error() string {
	if e.Axis != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Code, e.Axis, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *MachineError) Unwrap() error {
	return e.Err
}

// SetAxis records the axis the error relates to
func (e *MachineError) SetAxis(axis string) *MachineError {
	e.Axis = axis
	return e
}

// New creates a new MachineError
func New(code ErrorCode, message string) *MachineError {
	return &MachineError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *MachineError {
	return &MachineError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Motion planning errors

// FeedRateError reports a zero feed rate in units-per-minute mode.
func FeedRateError() *MachineError {
	return New(ErrFeedRate, "feed rate is zero and feed mode is not inverse time")
}

// ArcSpecificationError reports an arc whose angle computation is undefined.
func ArcSpecificationError(detail string) *MachineError {
	return New(ErrArcSpecification, fmt.Sprintf("arc specification invalid: %s", detail))
}

// FloatingPointError reports a numerical domain failure during geometry solving.
func FloatingPointError(detail string) *MachineError {
	return New(ErrFloatingPoint, fmt.Sprintf("floating point domain error: %s", detail))
}

// MinimumLengthMoveError reports a move too short to plan.
func MinimumLengthMoveError(length, minimum float64) *MachineError {
	return New(ErrMinimumLengthMove,
		fmt.Sprintf("move length %.6fmm below minimum %.6fmm", length, minimum))
}

// SoftLimitError reports an endpoint outside machine travel.
func SoftLimitError(axis string, coord, min, max float64) *MachineError {
	return New(ErrSoftLimit,
		fmt.Sprintf("coordinate %.3f out of travel [%.3f, %.3f]", coord, min, max)).
		SetAxis(axis)
}

// Config errors

// ConfigSectionError creates an error for a missing config section
func ConfigSectionError(section string) *MachineError {
	return New(ErrConfigSection, fmt.Sprintf("section '%s' not found", section))
}

// ConfigOptionError creates an error for a missing or invalid config option
func ConfigOptionError(section, option string) *MachineError {
	return New(ErrConfigOption, fmt.Sprintf("option '%s' not found in section '%s'", option, section))
}

// ConfigValidationError creates an error for a config validation failure
func ConfigValidationError(section, option, reason string) *MachineError {
	return New(ErrConfigValidation, fmt.Sprintf("option '%s' in section '%s': %s", option, section, reason))
}

// G-code errors

// GCodeParseError creates an error for a G-code parsing failure
func GCodeParseError(line, reason string) *MachineError {
	return New(ErrGCodeParse, fmt.Sprintf("failed to parse G-code: %s (reason: %s)", line, reason))
}

// GCodeUnknownCommandError creates an error for an unknown G-code command
func GCodeUnknownCommandError(command string) *MachineError {
	return New(ErrGCodeUnknownCmd, fmt.Sprintf("unknown G-code command: %s", command))
}

// Runtime errors

// RuntimeError creates a general runtime error
func RuntimeError(message string) *MachineError {
	return New(ErrRuntime, message)
}

// RuntimeQueueError creates an error for a queue operation failure
func RuntimeQueueError(operation, reason string) *MachineError {
	return New(ErrRuntimeQueue, fmt.Sprintf("queue %s failed: %s", operation, reason))
}

// Is checks if err (or anything it wraps) matches the given error code
func Is(err error, code ErrorCode) bool {
	var me *MachineError
	if errors.As(err, &me) {
		return me.Code == code
	}
	return false
}

// IsMotion checks if err is one of the motion planning errors
func IsMotion(err error) bool {
	return Is(err, ErrFeedRate) ||
		Is(err, ErrArcSpecification) ||
		Is(err, ErrFloatingPoint) ||
		Is(err, ErrMinimumLengthMove) ||
		Is(err, ErrSoftLimit)
}

// IsConfig checks if err is a config error
func IsConfig(err error) bool {
	return Is(err, ErrConfigSection) ||
		Is(err, ErrConfigOption) ||
		Is(err, ErrConfigValidation)
}
