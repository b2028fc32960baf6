package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentApp, Output: &buf})

	l.WithComponent(ComponentStorage).Info("stored", FieldProjectID, "p1")

	out := buf.String()
	if strings.Count(out, `"component"`) != 1 || !strings.Contains(out, `"component":"storage"`) {
		t.Fatalf("unexpected component fields: %s", out)
	}
	if !strings.Contains(out, `"project_id":"p1"`) {
		t.Fatalf("missing project id: %s", out)
	}
}

func TestContextCarriesLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelDebug, Format: "text", Component: ComponentApp, Output: &buf})

	ctx := WithContext(context.Background(), base.With(FieldRequestID, "req_42").WithComponent(ComponentHTTP))
	FromContext(ctx).DebugContext(ctx, "inside handler")

	out := buf.String()
	if !strings.Contains(out, "request_id=req_42") || !strings.Contains(out, "component=http") {
		t.Fatalf("expected request id and component in %q", out)
	}
}

func TestExplicitComponentWins(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentApp, Output: &buf})

	l.Info("exported", FieldComponent, ComponentWorker)

	out := buf.String()
	if strings.Count(out, `"component"`) != 1 || !strings.Contains(out, `"component":"worker"`) {
		t.Fatalf("unexpected component fields: %s", out)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Component() != ComponentApp {
		t.Fatalf("unexpected fallback logger: %+v", l)
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Output: &buf, Component: ComponentApp}))

	sl.LogLedgerMutation(context.Background(), OpAppend, "p1", "expense", 1500, "Painting")
	sl.LogError(context.Background(), "store failed", errors.New("boom"), ComponentStorage, OpRead, NewFields().WithProject("p1", "Mehta"))

	out := buf.String()
	for _, want := range []string{"entry_kind=expense", "amount_cents=1500", "category=Painting", "error=boom", "customer=Mehta"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}
