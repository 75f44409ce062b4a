package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "catalogue.load", "req-1")
	fetchCtx, fetch := StartChildSpan(ctx, "fetch")
	_, decode := StartChildSpan(fetchCtx, "decode")
	decode.End()
	fetch.SetAttr("records", 12)
	fetch.End()
	root.End()
	root.End()

	if SpanFromContext(fetchCtx) != fetch {
		t.Error("child span not stored in context")
	}
	if fetch.TraceID != "req-1" || decode.TraceID != "req-1" {
		t.Error("trace id not inherited")
	}
	if got := root.Children(); len(got) != 1 || got[0] != fetch {
		t.Errorf("root children = %v", got)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	root.Log(context.Background(), logger)
	out := buf.String()
	if strings.Count(out, "msg=span") != 3 {
		t.Errorf("expected three span lines, got:\n%s", out)
	}
	if !strings.Contains(out, "records=12") || !strings.Contains(out, "depth=2") {
		t.Errorf("missing attributes:\n%s", out)
	}
}

func TestChildWithoutParent(t *testing.T) {
	ctx, span := StartChildSpan(context.Background(), "orphan")
	span.End()
	if SpanFromContext(ctx) != span || span.TraceID != "" {
		t.Error("orphan span should still be usable")
	}
}
