package kernel_test

import (
	"context"
	"testing"

	"github.com/Abraxas-365/debouncex/pkg/kernel"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	if kernel.RequestID(ctx) != "" {
		t.Fatal("expected empty request id")
	}

	ctx = kernel.WithRequestID(ctx, "req-1")
	if got := kernel.RequestID(ctx); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
}

func TestCaller(t *testing.T) {
	ctx := kernel.WithCaller(context.Background(), "worker-7")
	if got := kernel.Caller(ctx); got != "worker-7" {
		t.Fatalf("expected worker-7, got %q", got)
	}
	if kernel.Caller(context.Background()) != "" {
		t.Fatal("expected empty caller")
	}
}
