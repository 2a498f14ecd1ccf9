package bridge

import "context"

// Adapter translates frames between the two sides of a bridge. An adapter
// instance belongs to exactly one bridge; its translation methods are the
// only writers of its state. ProcessIncoming runs on the inbound pump
// goroutine and ProcessOutgoing on the outbound one, so an implementation
// must not assume the two are called from the same goroutine.
type Adapter interface {
	// ProcessIncoming translates one frame read from the source
	// connection. Per-frame parse errors are absorbed (Drop), never
	// escalated.
	ProcessIncoming(ctx context.Context, frame string) Outcome

	// ProcessOutgoing translates one frame read from the target
	// connection. It may perform its own out-of-band sends to the target
	// (tool dispatch) before returning Drop.
	ProcessOutgoing(ctx context.Context, frame string) Outcome

	// OnConnect resets per-stream state when the bridge starts.
	OnConnect()

	// OnDisconnect reports final counters when the bridge ends.
	OnDisconnect()

	// ShouldTerminate reports whether a clean shutdown was requested.
	// Safe to call concurrently with the translation methods.
	ShouldTerminate() bool
}
