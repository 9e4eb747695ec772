package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)

	l.Info().Str("cycle_id", "abc").Int("processed", 3).Msg("cycle finished")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["message"] != "cycle finished" {
		t.Errorf("unexpected message %v", entry["message"])
	}
	if entry["cycle_id"] != "abc" {
		t.Errorf("unexpected cycle_id %v", entry["cycle_id"])
	}
	if entry["processed"] != float64(3) {
		t.Errorf("unexpected processed %v", entry["processed"])
	}
	if _, ok := entry["caller"]; !ok {
		t.Error("expected caller field")
	}
}

func TestComponentTagsLogger(t *testing.T) {
	if Component("scheduler") == nil {
		t.Fatal("expected a logger")
	}
}
