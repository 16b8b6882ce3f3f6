package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func newCaptured(t *testing.T, level Level, f Formatter) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := NewLogger(WithLevel(level), WithFormatter(f), WithOutput(NewWriterOutput(&buf)))
	return l, &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		err  bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"loud", InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.err {
			t.Fatalf("ParseLevel(%q) err=%v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v want %v", tt.in, got, tt.want)
		}
	}
}

func TestTextFormatterFields(t *testing.T) {
	l, buf := newCaptured(t, InfoLevel, &TextFormatter{DisableTimestamp: true})
	l.With(Component("fanout")).Warn("delivery failed", Str("webhook", "https://hook/a"), Err(errors.New("status 500")))

	line := buf.String()
	for _, want := range []string{"WARN", "delivery failed", "component=fanout", "webhook=https://hook/a", `error="status 500"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %q in %q", want, line)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newCaptured(t, WarnLevel, &TextFormatter{DisableTimestamp: true})
	l.Info("hidden")
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %q", buf.String())
	}

	child := l.With(Str("k", "v"))
	l.SetLevel(DebugLevel)
	child.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("child should observe parent level change")
	}
}

func TestJSONFormatter(t *testing.T) {
	l, buf := newCaptured(t, DebugLevel, &JSONFormatter{})
	l.Info("subscribed", Int("attempt", 2))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v (%q)", err, buf.String())
	}
	if got["msg"] != "subscribed" || got["level"] != "INFO" {
		t.Fatalf("unexpected entry: %v", got)
	}
	if got["attempt"] != float64(2) {
		t.Fatalf("attempt field: %v", got["attempt"])
	}
}

func TestApplyConfigRedactAndSample(t *testing.T) {
	l, err := ApplyConfig(&Config{
		Level:    "info",
		Format:   "text",
		Outputs:  []OutputConfig{{Type: "null"}},
		Redact:   []string{"webhook"},
		Sampling: &SamplingConfig{Initial: 1, Thereafter: 10},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	bl := l.(*BaseLogger)
	var buf bytes.Buffer
	bl.outputs = []Output{NewWriterOutput(&buf)}

	for i := 0; i < 11; i++ {
		l.Warn("pruned", Str("webhook", "https://discord.com/api/webhooks/1/s3cr3t"))
	}
	out := buf.String()
	if strings.Contains(out, "s3cr3t") {
		t.Fatalf("webhook should be redacted: %q", out)
	}
	if !strings.Contains(out, "https://discord.com/[REDACTED]") {
		t.Fatalf("webhook host should survive redaction: %q", out)
	}
	if n := strings.Count(out, "pruned"); n != 2 {
		t.Fatalf("want 2 sampled lines, got %d", n)
	}
}

func TestApplyConfigRejectsUnknownFormat(t *testing.T) {
	if _, err := ApplyConfig(&Config{Format: "xml"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestToStdLogger(t *testing.T) {
	l, buf := newCaptured(t, InfoLevel, &TextFormatter{DisableTimestamp: true})
	std := ToStdLogger(l, ErrorLevel)
	std.Print("http: TLS handshake error")
	if !strings.Contains(buf.String(), "ERROR") || !strings.Contains(buf.String(), "TLS handshake") {
		t.Fatalf("unexpected: %q", buf.String())
	}
}
