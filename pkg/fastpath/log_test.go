package fastpath

import (
	"bytes"
	"strings"
	"testing"
)

func TestDebugLogger(t *testing.T) {
	tests := []struct {
		env  []string
		want bool
	}{
		{nil, false},
		{[]string{DebugEnvVar + "="}, false},
		{[]string{DebugEnvVar + "=0"}, false},
		{[]string{DebugEnvVar + "=1"}, true},
		{[]string{DebugEnvVar + "=yes"}, true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		DebugLogger(ParseEnv(tt.env), &buf).Debug("decided", "case", "fast-path")
		got := buf.Len() > 0
		if got != tt.want {
			t.Fatalf("env %v: expected output=%v, got %q", tt.env, tt.want, buf.String())
		}
		if got && !strings.Contains(buf.String(), "component=ssh-connect-fast") {
			t.Fatalf("expected component attribute, got %q", buf.String())
		}
	}
}
