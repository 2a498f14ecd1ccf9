package bridge

// OutcomeKind discriminates the result of translating a single frame.
type OutcomeKind int

const (
	// KindForward carries a translated frame for the other connection.
	KindForward OutcomeKind = iota
	// KindDrop means the frame was consumed (filtered, malformed, or
	// handled out-of-band) and nothing is forwarded.
	KindDrop
	// KindTerminate means the stream should wind down cleanly even though
	// no transport error occurred.
	KindTerminate
	// KindFail carries a hard failure that must end the bridge.
	KindFail
)

// Outcome is the result of one translation call. Every call site switches
// on Kind so all four cases are handled explicitly instead of relying on
// nil checks.
type Outcome struct {
	Kind OutcomeKind
	Msg  string
	Err  error
}

// Forward wraps a translated frame destined for the other connection.
func Forward(msg string) Outcome { return Outcome{Kind: KindForward, Msg: msg} }

// Drop consumes a frame without forwarding anything.
func Drop() Outcome { return Outcome{Kind: KindDrop} }

// Terminate requests a clean shutdown of the bridge.
func Terminate() Outcome { return Outcome{Kind: KindTerminate} }

// FailWith escalates err as a bridge-fatal failure.
func FailWith(err error) Outcome { return Outcome{Kind: KindFail, Err: err} }
