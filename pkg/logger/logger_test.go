package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestFromContextCarriesProjectFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "debug", "json")

	ctx := WithContext(context.Background(), RequestIDKey, "req-1")
	ctx = WithProject(ctx, "p1", "c1")
	Error(ctx, "stage failed", errors.New("boom"), "role", "writer")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	for k, want := range map[string]string{
		"request_id": "req-1",
		"project_id": "p1",
		"chapter_id": "c1",
		"error":      "boom",
		"role":       "writer",
		"msg":        "stage failed",
	} {
		if got, _ := entry[k].(string); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "warn", "text")

	Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %s", buf.String())
	}
	Warn(context.Background(), "shown")
	if buf.Len() == 0 {
		t.Fatal("warn should be written")
	}
}
