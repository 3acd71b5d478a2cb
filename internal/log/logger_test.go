package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentAuth, Output: &buf})

	l.Info("user registered", FieldUserID, 7)
	l.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "component=auth") || !strings.Contains(out, "user_id=7") {
		t.Fatalf("unexpected log output: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record should be filtered at info level: %s", out)
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Output: &buf})

	ctx := NewContext(context.Background(), base.With(FieldRequestID, "req_abc"))
	FromContext(ctx).InfoContext(ctx, "handled")

	if !strings.Contains(buf.String(), "request_id=req_abc") {
		t.Fatalf("request id missing: %s", buf.String())
	}
}

func TestFromContextFallback(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Component() != "unknown" {
		t.Fatalf("unexpected fallback logger: %+v", l)
	}
}

func TestFieldsToSlice(t *testing.T) {
	f := NewFields().WithUser(3).WithOperation(OpDelete).WithError(nil)
	if len(f.ToSlice()) != 4 {
		t.Fatalf("unexpected slice %v", f.ToSlice())
	}
}
