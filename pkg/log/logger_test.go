package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newTestLogger() (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New("test")
	l.SetWriter(&buf)
	l.SetColorize(false)
	return l, &buf
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newTestLogger()
	l.SetLevel(WARN)

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below WARN were emitted:\n%s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("WARN/ERROR messages missing:\n%s", out)
	}
}

func TestTextFormat(t *testing.T) {
	l, buf := newTestLogger()
	l.WithField("segments", 42).Info("arc armed")

	out := buf.String()
	if !strings.Contains(out, "[INFO ]") {
		t.Errorf("missing level tag: %s", out)
	}
	if !strings.Contains(out, "test: arc armed") {
		t.Errorf("missing prefix/message: %s", out)
	}
	if !strings.Contains(out, "{segments=42}") {
		t.Errorf("missing fields: %s", out)
	}
}

func TestTextFieldsSorted(t *testing.T) {
	l, buf := newTestLogger()
	l.WithField("zeta", 1).WithField("alpha", 2).Info("msg")

	out := buf.String()
	if strings.Index(out, "alpha") > strings.Index(out, "zeta") {
		t.Errorf("fields not sorted: %s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	l, buf := newTestLogger()
	l.SetFormat(FormatJSON)
	l.WithField("radius", 10.0).Info("arc accepted")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", entry["level"])
	}
	if entry["message"] != "arc accepted" {
		t.Errorf("message = %v", entry["message"])
	}
	fields, ok := entry["fields"].(map[string]interface{})
	if !ok || fields["radius"] != 10.0 {
		t.Errorf("fields = %v", entry["fields"])
	}
}

func TestFormatArgs(t *testing.T) {
	l, buf := newTestLogger()
	l.Info("queued %d of %d", 3, 7)
	if !strings.Contains(buf.String(), "queued 3 of 7") {
		t.Errorf("printf args not applied: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		"INFO":    INFO,
		"Warning": WARN,
		"error":   ERROR,
		"bogus":   INFO,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithPrefix(t *testing.T) {
	l, buf := newTestLogger()
	child := l.WithPrefix("arc")
	child.Info("hello")
	if !strings.Contains(buf.String(), "arc: hello") {
		t.Errorf("child prefix not used: %s", buf.String())
	}
}
