package log

import (
	"strings"
	"testing"
	"time"
)

type captureOutput struct {
	lines []string
}

func (o *captureOutput) Write(_ *Entry, formatted []byte) error {
	o.lines = append(o.lines, string(formatted))
	return nil
}

func (o *captureOutput) Close() error { return nil }

func TestLevelFiltering(t *testing.T) {
	out := &captureOutput{}
	l := NewLogger(WithLevel(WarnLevel), WithFormatter(&TextFormatter{}), WithOutput(out))
	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("visible")
	if len(out.lines) != 1 || !strings.Contains(out.lines[0], "visible") {
		t.Fatalf("level filter broken: %v", out.lines)
	}
}

func TestWithFieldsCarryForward(t *testing.T) {
	out := &captureOutput{}
	l := NewLogger(WithLevel(DebugLevel), WithFormatter(&TextFormatter{}), WithOutput(out))
	child := l.With(Component("branch-actor"), Str("entity", "b-1"))
	child.Info("turn complete", Duration("took", 5*time.Millisecond))

	if len(out.lines) != 1 {
		t.Fatalf("want one line, got %d", len(out.lines))
	}
	line := out.lines[0]
	for _, want := range []string{"component=branch-actor", "entity=b-1", "took=5ms", "turn complete"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line missing %q: %s", want, line)
		}
	}
}

func TestJSONFormatterShape(t *testing.T) {
	f := &JSONFormatter{}
	b, err := f.Format(&Entry{
		Level:     InfoLevel,
		Message:   "hello",
		Fields:    Fields{"k": "v"},
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"msg":"hello"`) || !strings.Contains(s, `"k":"v"`) || !strings.HasSuffix(s, "\n") {
		t.Fatalf("unexpected json line: %s", s)
	}
}

func TestParseLevelAndApplyConfig(t *testing.T) {
	if lvl, err := ParseLevel("debug"); err != nil || lvl != DebugLevel {
		t.Fatalf("parse debug: %v %v", lvl, err)
	}
	if _, err := ParseLevel("nope"); err == nil {
		t.Fatalf("unknown level must error")
	}
	l, err := ApplyConfig(&Config{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if l.GetLevel() != WarnLevel {
		t.Fatalf("config level not applied")
	}
	if _, err := ApplyConfig(&Config{Format: "xml"}); err == nil {
		t.Fatalf("unknown format must error")
	}
}
