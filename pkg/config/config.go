// Package config provides the machine configuration file layer.
// Configuration is an INI-style file of [section] blocks with
// "option: value" lines, the same shape the host uses for printer
// configs elsewhere.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"tinyg-go-migration/pkg/errors"
)

// Config provides access to a parsed configuration file.
type Config struct {
	sections map[string]*Section
	order    []string // maintains section order
}

// New creates a new empty Config.
func New() *Config {
	return &Config{
		sections: make(map[string]*Section),
	}
}

// Load reads a configuration file and returns a Config.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigSection, fmt.Sprintf("unable to open %s", path))
	}
	defer f.Close()

	c := New()
	var current *Section

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Strip comments
		if idx := strings.IndexAny(line, "#;"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Section header
		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, errors.New(errors.ErrConfigSection,
					fmt.Sprintf("%s:%d: malformed section header %q", path, lineNum, line))
			}
			name := strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			if name == "" {
				return nil, errors.New(errors.ErrConfigSection,
					fmt.Sprintf("%s:%d: empty section name", path, lineNum))
			}
			current = c.getOrCreate(name)
			continue
		}

		// Option line: "key: value" or "key = value"
		sep := strings.IndexAny(line, ":=")
		if sep < 0 {
			return nil, errors.New(errors.ErrConfigOption,
				fmt.Sprintf("%s:%d: expected 'option: value', got %q", path, lineNum, line))
		}
		if current == nil {
			return nil, errors.New(errors.ErrConfigOption,
				fmt.Sprintf("%s:%d: option outside of any section", path, lineNum))
		}
		key := strings.ToLower(strings.TrimSpace(line[:sep]))
		value := strings.TrimSpace(line[sep+1:])
		current.options[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigSection, fmt.Sprintf("reading %s", path))
	}
	return c, nil
}

// getOrCreate returns the named section, creating it if needed.
func (c *Config) getOrCreate(name string) *Section {
	if s, ok := c.sections[name]; ok {
		return s
	}
	s := &Section{name: name, options: make(map[string]string)}
	c.sections[name] = s
	c.order = append(c.order, name)
	return s
}

// HasSection checks if a section exists.
func (c *Config) HasSection(name string) bool {
	_, ok := c.sections[strings.ToLower(name)]
	return ok
}

// GetSection returns the named section, or an error if it does not exist.
func (c *Config) GetSection(name string) (*Section, error) {
	s, ok := c.sections[strings.ToLower(name)]
	if !ok {
		return nil, errors.ConfigSectionError(name)
	}
	return s, nil
}

// Section returns the named section, or an empty section if it does not
// exist, so callers can rely on option fallbacks.
func (c *Config) Section(name string) *Section {
	if s, ok := c.sections[strings.ToLower(name)]; ok {
		return s
	}
	return &Section{name: strings.ToLower(name), options: map[string]string{}}
}

// SectionNames returns all section names in file order.
func (c *Config) SectionNames() []string {
	return append([]string{}, c.order...)
}

// Section provides typed access to the options of one config section.
type Section struct {
	name    string
	options map[string]string
}

// GetName returns the section name.
func (s *Section) GetName() string {
	return s.name
}

// HasOption checks if an option exists in this section.
func (s *Section) HasOption(option string) bool {
	_, ok := s.options[strings.ToLower(option)]
	return ok
}

// Get returns a string option value.
// If a fallback is provided and the option doesn't exist, it returns the
// fallback; with no fallback a missing option is an error.
func (s *Section) Get(option string, fallback ...string) (string, error) {
	if v, ok := s.options[strings.ToLower(option)]; ok {
		return v, nil
	}
	if len(fallback) > 0 {
		return fallback[0], nil
	}
	return "", errors.ConfigOptionError(s.name, option)
}

// GetInt returns an integer option value.
func (s *Section) GetInt(option string, fallback ...int) (int, error) {
	if v, ok := s.options[strings.ToLower(option)]; ok {
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, errors.ConfigValidationError(s.name, option, fmt.Sprintf("%q is not an integer", v))
		}
		return i, nil
	}
	if len(fallback) > 0 {
		return fallback[0], nil
	}
	return 0, errors.ConfigOptionError(s.name, option)
}

// GetFloat returns a float64 option value.
func (s *Section) GetFloat(option string, fallback ...float64) (float64, error) {
	if v, ok := s.options[strings.ToLower(option)]; ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, errors.ConfigValidationError(s.name, option, fmt.Sprintf("%q is not a float", v))
		}
		return f, nil
	}
	if len(fallback) > 0 {
		return fallback[0], nil
	}
	return 0, errors.ConfigOptionError(s.name, option)
}

// GetBool returns a boolean option value.
// Accepts: 1, true, yes, on (true) and 0, false, no, off (false).
func (s *Section) GetBool(option string, fallback ...bool) (bool, error) {
	if v, ok := s.options[strings.ToLower(option)]; ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true, nil
		case "0", "false", "no", "off":
			return false, nil
		default:
			return false, errors.ConfigValidationError(s.name, option, fmt.Sprintf("%q is not a boolean", v))
		}
	}
	if len(fallback) > 0 {
		return fallback[0], nil
	}
	return false, errors.ConfigOptionError(s.name, option)
}
