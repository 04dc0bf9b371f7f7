// Package gcode parses G-code lines and dispatches them into the
// machine model, motion queue, and arc planner.
package gcode

import (
	"regexp"
	"strconv"
	"strings"

	"tinyg-go-migration/pkg/errors"
)

// Command is one parsed G-code line: a command word like "G1" plus its
// letter-valued arguments. Valueless letters (a bare "X") appear in
// Flags only.
type Command struct {
	Name  string
	Args  map[string]float64
	Flags map[string]bool
	Raw   string
}

// Has reports whether the letter appeared on the line, with or without
// a value.
func (c *Command) Has(letter string) bool {
	return c.Flags[letter]
}

// Value returns the argument value for letter, or fallback when the
// letter is absent.
func (c *Command) Value(letter string, fallback float64) float64 {
	if v, ok := c.Args[letter]; ok {
		return v
	}
	return fallback
}

var reParenComment = regexp.MustCompile(`\([^)]*\)`)

// ParseLine parses a single G-code line. Blank lines and comment-only
// lines return (nil, nil). Arguments are single letters followed by a
// number ("X10.5"); the first word names the command.
func ParseLine(line string) (*Command, error) {
	ln := strings.TrimSpace(line)
	if ln == "" {
		return nil, nil
	}
	if idx := strings.IndexByte(ln, ';'); idx >= 0 {
		ln = strings.TrimSpace(ln[:idx])
	}
	ln = strings.TrimSpace(reParenComment.ReplaceAllString(ln, " "))
	if ln == "" {
		return nil, nil
	}

	fields := strings.Fields(ln)
	cmd := &Command{
		Name:  strings.ToUpper(fields[0]),
		Args:  map[string]float64{},
		Flags: map[string]bool{},
		Raw:   line,
	}

	// "G2X10" style run-together words are not supported; words must be
	// whitespace separated, matching the host's own output format.
	for _, f := range fields[1:] {
		letter := strings.ToUpper(f[:1])
		if letter < "A" || letter > "Z" {
			return nil, errors.GCodeParseError(line, "bad word "+f)
		}
		cmd.Flags[letter] = true
		if len(f) == 1 {
			continue
		}
		v, err := strconv.ParseFloat(f[1:], 64)
		if err != nil {
			return nil, errors.GCodeParseError(line, "bad number in word "+f)
		}
		cmd.Args[letter] = v
	}
	return cmd, nil
}
