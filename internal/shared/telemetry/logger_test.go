package telemetry

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	_ = w.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("read output: %v", err)
	}
	return buf.String()
}

func TestInfoWritesJSONLine(t *testing.T) {
	out := captureStdout(t, func() {
		Info("session.started", map[string]any{"session_id": "s-1", "is_guest": true})
	})
	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &payload); err != nil {
		t.Fatalf("decode log json: %v (%q)", err, out)
	}
	for _, key := range []string{"ts", "level", "msg", "session_id"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["level"] != "info" || payload["msg"] != "session.started" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestErrorLevel(t *testing.T) {
	out := captureStdout(t, func() {
		Error("dispatch.failed", map[string]any{"backend": "service_a"})
	})
	if !strings.Contains(out, `"level":"error"`) {
		t.Fatalf("expected error level, got %q", out)
	}
}
