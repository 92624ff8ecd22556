// Package throttle provides the small stateful collaborators behind
// abuse-throttling and duplicate-reminder suppression. Both are defined as
// interfaces so the in-memory implementations can be swapped for the
// Redis-backed ones at wiring time without touching business logic.
package throttle

import (
	"context"
	"time"
)

// Limiter enforces a per-key cooldown plus a rolling-window cap. Reserve
// returns zero when the action is allowed (and records it), or the duration
// the caller must wait before retrying.
type Limiter interface {
	Reserve(ctx context.Context, key string) (time.Duration, error)
}

// OnceSet records keys that have been acted on. MarkOnce returns true only
// the first time a key is seen.
type OnceSet interface {
	MarkOnce(ctx context.Context, key string) (bool, error)
}
