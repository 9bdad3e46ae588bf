package logging

import (
	"context"
	"testing"
)

func TestGenerateTraceID(t *testing.T) {
	a := GenerateTraceID()
	b := GenerateTraceID()

	if len(a) != 32 {
		t.Errorf("expected 32 hex characters, got %d", len(a))
	}
	if a == b {
		t.Error("expected distinct trace ids")
	}
}

func TestFromContextDefault(t *testing.T) {
	if got := FromContext(context.Background()); got != Default() {
		t.Error("expected the default logger for a bare context")
	}
}

func TestNewContextRoundtrip(t *testing.T) {
	l := Default().WithComponent("roundtrip")
	ctx := NewContext(context.Background(), l)

	if got := FromContext(ctx); got != l {
		t.Error("expected the stored logger back from the context")
	}
}

func TestWithTraceContext(t *testing.T) {
	ctx, l := WithTraceContext(context.Background())

	id := TraceIDFromContext(ctx)
	if id == "" {
		t.Fatal("expected a trace id on the context")
	}
	if l == nil {
		t.Fatal("expected a trace-scoped logger")
	}
	if got := FromContext(ctx); got != l {
		t.Error("expected the trace-scoped logger back from the context")
	}
}

func TestTraceIDFromContextEmpty(t *testing.T) {
	if got := TraceIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty trace id, got %q", got)
	}
}
