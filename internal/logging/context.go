package logging

import (
	"context"
	"time"
)

// DetachContext creates a context that won't be cancelled when parent is.
// Uses Go 1.21+ context.WithoutCancel for clean implementation.
//
// This is critical for teardown operations — such as a final snapshot save
// — that must complete even though the parent context (e.g. a daemon's
// cycle-loop context) was just cancelled by an interrupt.
func DetachContext(parent context.Context) context.Context {
	return context.WithoutCancel(parent)
}

// DetachContextWithTimeout creates a detached context with its own timeout.
// This ensures a teardown operation has its own deadline independent of
// the parent context's cancellation status.
//
// Example usage:
//
//	saveCtx, cancel := logging.DetachContextWithTimeout(ctx, 5*time.Second)
//	defer cancel()
//	err := snapshot.Save(saveCtx, store, reasoner, codec)
func DetachContextWithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(parent)
	return context.WithTimeout(detached, timeout)
}
