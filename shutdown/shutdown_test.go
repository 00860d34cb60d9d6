package shutdown

import (
	"context"
	"testing"
	"time"
)

func TestContextCancelledByParent(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := Context(parent)
	defer cancel()

	cancelParent()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled with parent")
	}
}

func TestContextCancelFunc(t *testing.T) {
	ctx, cancel := Context(context.Background())
	cancel()
	if ctx.Err() == nil {
		t.Fatal("expected cancelled context")
	}
}
