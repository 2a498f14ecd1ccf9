// Package bridge owns the lifetime of one source/target connection pair:
// it runs the two translation pump loops concurrently, races their
// completion, and guarantees both connections end up closed no matter
// which side failed.
package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/voxbridge/voxbridge/internal/wsconn"
)

// DefaultGraceTimeout bounds how long Run waits for the losing pump
// direction to unwind after cancellation.
const DefaultGraceTimeout = 500 * time.Millisecond

// Pump drives one bridge: frames from source are translated and forwarded
// to target, frames from target are translated and forwarded back.
type Pump struct {
	source  wsconn.FrameConn
	target  wsconn.FrameConn
	adapter Adapter
	grace   time.Duration
	log     zerolog.Logger
}

// New builds a pump over the given connection pair. The pump takes
// ownership of both connections for the duration of Run.
func New(source, target wsconn.FrameConn, adapter Adapter, log zerolog.Logger) *Pump {
	return &Pump{source: source, target: target, adapter: adapter, grace: DefaultGraceTimeout, log: log}
}

// SetGrace overrides the shutdown grace timeout.
func (p *Pump) SetGrace(d time.Duration) {
	if d > 0 {
		p.grace = d
	}
}

// Run processes both stream directions until one of them completes, then
// cancels the other, waits briefly for it to unwind, and closes both
// connections. At most one error is returned, and only after cleanup has
// run; a normal disconnect on either side is not an error.
func (p *Pump) Run(ctx context.Context) error {
	p.adapter.OnConnect()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inbound := make(chan error, 1)
	outbound := make(chan error, 1)
	go func() { inbound <- p.pumpInbound(ctx) }()
	go func() { outbound <- p.pumpOutbound(ctx) }()

	var first error
	var pending chan error
	var winner string
	select {
	case first = <-inbound:
		pending, winner = outbound, "inbound"
	case first = <-outbound:
		pending, winner = inbound, "outbound"
	}
	p.log.Debug().Str("direction", winner).AnErr("result", first).Msg("pump direction completed")

	cancel()
	select {
	case err := <-pending:
		if err != nil && !errors.Is(err, context.Canceled) {
			p.log.Debug().Err(err).Msg("cancelled pump direction ended with error")
		}
	case <-time.After(p.grace):
		p.log.Warn().Dur("grace", p.grace).Msg("timeout waiting for graceful shutdown")
	}

	p.closeBoth()
	p.adapter.OnDisconnect()

	if first != nil && !errors.Is(first, context.Canceled) {
		return first
	}
	return nil
}

// pumpInbound moves frames source -> target until the source disconnects,
// the adapter requests termination, or a hard failure occurs.
func (p *Pump) pumpInbound(ctx context.Context) error {
	for {
		frame, err := p.source.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, wsconn.ErrClosed) {
				p.log.Info().Msg("source disconnected normally")
				p.closeTarget("source disconnected")
				return nil
			}
			p.closeTarget("bridge error")
			return err
		}

		out := p.adapter.ProcessIncoming(ctx, frame)
		switch out.Kind {
		case KindForward:
			if err := p.target.WriteFrames(ctx, out.Msg); err != nil {
				p.closeTarget("bridge error")
				return err
			}
		case KindDrop:
		case KindTerminate:
			p.log.Info().Msg("source requested stream termination")
			p.closeTarget("stream stopped")
			return nil
		case KindFail:
			p.closeTarget("bridge error")
			return out.Err
		}
	}
}

// pumpOutbound moves frames target -> source. A close from the target,
// normal or not, ends the direction without error: the target's own close
// code carries the diagnosis. The target connection is closed on every
// exit path; close is idempotent, so overlapping with pumpInbound's close
// attempts is harmless.
func (p *Pump) pumpOutbound(ctx context.Context) error {
	defer p.closeTarget("outbound done")
	for {
		frame, err := p.target.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, wsconn.ErrClosed) {
				p.log.Info().Msg("target closed normally")
				return nil
			}
			var ce *wsconn.CloseError
			if errors.As(err, &ce) {
				p.log.Error().Str("reason", ce.Reason).Int("code", int(ce.Code)).Msg("target closed with error")
				return nil
			}
			return err
		}

		out := p.adapter.ProcessOutgoing(ctx, frame)
		switch out.Kind {
		case KindForward:
			if err := p.source.WriteFrames(ctx, out.Msg); err != nil {
				return err
			}
		case KindDrop:
		case KindTerminate:
			p.log.Info().Msg("target requested stream termination")
			return nil
		case KindFail:
			return out.Err
		}
	}
}

func (p *Pump) closeTarget(reason string) {
	if err := p.target.Close(websocket.StatusNormalClosure, reason); err != nil {
		p.log.Debug().Err(err).Msg("error closing target")
	}
}

func (p *Pump) closeBoth() {
	if err := p.source.Close(websocket.StatusNormalClosure, "bridge closed"); err != nil {
		p.log.Debug().Err(err).Msg("error closing source")
	}
	p.closeTarget("bridge closed")
}
