// Package relay translates between the telephony media-stream protocol and
// the realtime conversational protocol: audio frames in both directions,
// stream lifecycle events, and tool calls requested by the model.
package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/voxbridge/voxbridge/internal/bridge"
	"github.com/voxbridge/voxbridge/internal/metrics"
	"github.com/voxbridge/voxbridge/internal/realtime"
	"github.com/voxbridge/voxbridge/internal/tool"
	"github.com/voxbridge/voxbridge/internal/twilio"
	"github.com/voxbridge/voxbridge/internal/wsconn"
)

// continueInstructions resumes generation after a tool result has been
// delivered to the conversation.
const continueInstructions = "Please respond to the user based on the tool call result."

// Adapter converts media-stream frames to realtime events and back. One
// adapter serves one bridge; the inbound and outbound translation paths
// run on separate goroutines, so shared state is atomic.
type Adapter struct {
	target    wsconn.FrameConn
	registry  *tool.Registry
	streamSid string
	log       zerolog.Logger

	mediaPackets    atomic.Uint64
	responsePackets atomic.Uint64
	terminate       atomic.Bool
}

// Stats reports the packet counters of a stream.
type Stats struct {
	StreamSid       string
	MediaPackets    uint64
	ResponsePackets uint64
}

// NewAdapter builds the adapter for one stream. target is the realtime
// connection, needed for the out-of-band tool dispatch sends.
func NewAdapter(target wsconn.FrameConn, registry *tool.Registry, streamSid string, log zerolog.Logger) *Adapter {
	return &Adapter{target: target, registry: registry, streamSid: streamSid, log: log}
}

// ProcessIncoming translates one media-stream frame. Malformed frames and
// unhandled event types are dropped, never escalated: a bad frame must not
// kill the pump.
func (a *Adapter) ProcessIncoming(_ context.Context, frame string) bridge.Outcome {
	msg, err := twilio.ParseMessage(frame)
	if err != nil {
		a.log.Error().Err(err).Msg("malformed media-stream frame")
		return bridge.Drop()
	}

	switch msg.Event {
	case twilio.EventMedia:
		count := a.mediaPackets.Add(1)
		metrics.RecordMediaPacket()
		if msg.Media == nil {
			a.log.Error().Msg("media event missing media section")
			return bridge.Drop()
		}
		decoded, err := base64.StdEncoding.DecodeString(msg.Media.Payload)
		if err != nil {
			a.log.Error().Err(err).Msg("media payload is not valid base64")
			return bridge.Drop()
		}
		if len(decoded) == 0 {
			a.log.Warn().Msg("empty audio payload received")
			return bridge.Drop()
		}
		a.log.Debug().Uint64("packet", count).Int("bytes", len(decoded)).Msg("forwarding media packet")
		// The realtime side expects the same base64 encoding, so the
		// payload is forwarded as received.
		out, err := realtime.AudioAppendFrame(msg.Media.Payload)
		if err != nil {
			a.log.Error().Err(err).Msg("encoding audio append")
			return bridge.Drop()
		}
		return bridge.Forward(out)

	case twilio.EventStop:
		a.log.Info().Uint64("media_packets", a.mediaPackets.Load()).Msg("received stop event")
		a.terminate.Store(true)
		return bridge.Terminate()

	default:
		a.log.Debug().Str("event", msg.Event).Msg("media-stream event filtered")
		return bridge.Drop()
	}
}

// ProcessOutgoing translates one realtime frame. The endpoint's error
// event is the one outgoing case that escalates: the realtime side is
// authoritative about fatal conditions.
func (a *Adapter) ProcessOutgoing(ctx context.Context, frame string) bridge.Outcome {
	ev, err := realtime.ParseServerEvent(frame)
	if err != nil {
		a.log.Error().Err(err).Msg("malformed realtime frame")
		return bridge.Drop()
	}

	switch ev.Type {
	case realtime.TypeResponseDone:
		if ev.Response != nil {
			for _, item := range ev.Response.Output {
				if item.Type == realtime.ItemFunctionCall {
					if err := a.dispatchToolCall(ctx, item); err != nil {
						return bridge.FailWith(err)
					}
					return bridge.Drop()
				}
			}
		}
		return bridge.Drop()

	case realtime.TypeError:
		message := "unknown error"
		if ev.Error != nil && ev.Error.Message != "" {
			message = ev.Error.Message
		}
		a.log.Error().Str("message", message).Msg("realtime endpoint reported an error")
		a.terminate.Store(true)
		return bridge.FailWith(fmt.Errorf("realtime error: %s", message))

	case realtime.TypeItemCreated:
		itemType := ""
		if ev.Item != nil {
			itemType = ev.Item.Type
		}
		a.log.Debug().Str("item_type", itemType).Msg("conversation item acknowledged")
		return bridge.Drop()

	case realtime.TypeAudioDelta:
		if ev.Delta == "" {
			return bridge.Drop()
		}
		count := a.responsePackets.Add(1)
		metrics.RecordResponsePacket()
		if _, err := base64.StdEncoding.DecodeString(ev.Delta); err != nil {
			a.log.Error().Err(err).Msg("audio delta is not valid base64")
			return bridge.Drop()
		}
		out, err := twilio.MediaFrame(a.streamSid, ev.Delta)
		if err != nil {
			a.log.Error().Err(err).Msg("encoding media frame")
			return bridge.Drop()
		}
		a.log.Debug().Uint64("packet", count).Msg("forwarding audio delta")
		return bridge.Forward(out)

	default:
		a.log.Debug().Str("type", ev.Type).Msg("realtime event filtered")
		return bridge.Drop()
	}
}

// dispatchToolCall runs the synchronous tool sub-protocol: invoke the
// handler, then deliver the result and a continue prompt to the realtime
// side back to back, with nothing interleaved between them. An unknown
// tool is escalated; silently dropping the call would desynchronize the
// conversation. Handler failures are absorbed after logging.
func (a *Adapter) dispatchToolCall(ctx context.Context, item realtime.OutputItem) error {
	a.log.Info().Str("tool", item.Name).Str("call_id", item.CallID).Msg("dispatching tool call")

	result, err := a.registry.Dispatch(ctx, item.Name, item.Arguments)
	if err != nil {
		metrics.RecordToolCall(item.Name, false)
		if errors.Is(err, tool.ErrUnknownTool) {
			return err
		}
		a.log.Error().Err(err).Str("tool", item.Name).Msg("tool call failed")
		return nil
	}
	metrics.RecordToolCall(item.Name, true)

	output, err := realtime.FunctionOutputFrame(item.CallID, result)
	if err != nil {
		return fmt.Errorf("encode tool output: %w", err)
	}
	resume, err := realtime.ResponseCreateFrame(continueInstructions)
	if err != nil {
		return fmt.Errorf("encode continue prompt: %w", err)
	}
	if err := a.target.WriteFrames(ctx, output, resume); err != nil {
		return fmt.Errorf("send tool result: %w", err)
	}
	a.log.Info().Str("tool", item.Name).Msg("tool result and continue prompt sent")
	return nil
}

// OnConnect resets the per-stream counters and the terminate flag.
func (a *Adapter) OnConnect() {
	a.mediaPackets.Store(0)
	a.responsePackets.Store(0)
	a.terminate.Store(false)
}

// OnDisconnect reports the final packet counts.
func (a *Adapter) OnDisconnect() {
	a.log.Info().
		Uint64("media_packets", a.mediaPackets.Load()).
		Uint64("response_packets", a.responsePackets.Load()).
		Msg("stream finished")
}

// ShouldTerminate reports whether a clean shutdown was requested.
func (a *Adapter) ShouldTerminate() bool { return a.terminate.Load() }

// Stats returns the stream's packet counters.
func (a *Adapter) Stats() Stats {
	return Stats{
		StreamSid:       a.streamSid,
		MediaPackets:    a.mediaPackets.Load(),
		ResponsePackets: a.responsePackets.Load(),
	}
}
