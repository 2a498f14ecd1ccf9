package relay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/voxbridge/voxbridge/internal/bridge"
	"github.com/voxbridge/voxbridge/internal/realtime"
	"github.com/voxbridge/voxbridge/internal/tool"
)

type fakeTarget struct {
	mu       sync.Mutex
	frames   []string
	writeErr error
}

func (c *fakeTarget) ReadFrame(ctx context.Context) (string, error) {
	return "", context.Canceled
}

func (c *fakeTarget) WriteFrames(ctx context.Context, frames ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.frames = append(c.frames, frames...)
	return nil
}

func (c *fakeTarget) Close(code websocket.StatusCode, reason string) error { return nil }

func (c *fakeTarget) sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}

type fixedTool struct {
	name   string
	result any
	err    error
}

func (t fixedTool) Definition() tool.Definition {
	return tool.Definition{Type: "function", Name: t.name, Description: "test tool"}
}

func (t fixedTool) Invoke(_ context.Context, _ map[string]any) (any, error) {
	return t.result, t.err
}

func newTestAdapter(tools ...tool.Tool) (*Adapter, *fakeTarget) {
	target := &fakeTarget{}
	a := NewAdapter(target, tool.NewRegistry(tools...), "MZ123", zerolog.Nop())
	a.OnConnect()
	return a, target
}

func TestIncomingMediaForwardsAudioAppend(t *testing.T) {
	a, _ := newTestAdapter()
	out := a.ProcessIncoming(context.Background(), `{"event":"media","media":{"payload":"AAAA"}}`)
	if out.Kind != bridge.KindForward {
		t.Fatalf("expected forward, got %+v", out)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out.Msg), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["type"] != "input_audio_buffer.append" || got["audio"] != "AAAA" {
		t.Fatalf("unexpected translated frame: %s", out.Msg)
	}
	if stats := a.Stats(); stats.MediaPackets != 1 {
		t.Fatalf("expected 1 media packet, got %d", stats.MediaPackets)
	}
}

func TestIncomingEmptyPayloadDropped(t *testing.T) {
	a, _ := newTestAdapter()
	out := a.ProcessIncoming(context.Background(), `{"event":"media","media":{"payload":""}}`)
	if out.Kind != bridge.KindDrop {
		t.Fatalf("expected drop for empty payload, got %+v", out)
	}
	// The receive counter still increments; only forwarding is skipped.
	if stats := a.Stats(); stats.MediaPackets != 1 {
		t.Fatalf("expected media counter to increment, got %d", stats.MediaPackets)
	}
}

func TestIncomingInvalidBase64Dropped(t *testing.T) {
	a, _ := newTestAdapter()
	out := a.ProcessIncoming(context.Background(), `{"event":"media","media":{"payload":"!!not-base64!!"}}`)
	if out.Kind != bridge.KindDrop {
		t.Fatalf("expected drop, got %+v", out)
	}
}

func TestIncomingStopTerminates(t *testing.T) {
	a, _ := newTestAdapter()
	out := a.ProcessIncoming(context.Background(), `{"event":"stop","stop":{"callSid":"CA1"}}`)
	if out.Kind != bridge.KindTerminate {
		t.Fatalf("expected terminate, got %+v", out)
	}
	if !a.ShouldTerminate() {
		t.Fatal("expected terminate flag set")
	}
}

func TestIncomingMalformedFrameDropped(t *testing.T) {
	a, _ := newTestAdapter()
	out := a.ProcessIncoming(context.Background(), "not json at all")
	if out.Kind != bridge.KindDrop {
		t.Fatalf("expected drop, got %+v", out)
	}
	if stats := a.Stats(); stats.MediaPackets != 0 {
		t.Fatalf("malformed frame must not bump media counter, got %d", stats.MediaPackets)
	}
}

func TestIncomingOtherEventsFiltered(t *testing.T) {
	a, _ := newTestAdapter()
	out := a.ProcessIncoming(context.Background(), `{"event":"mark","mark":{"name":"greeting"}}`)
	if out.Kind != bridge.KindDrop {
		t.Fatalf("expected drop, got %+v", out)
	}
}

func TestOutgoingAudioDeltaForwardsMedia(t *testing.T) {
	a, _ := newTestAdapter()
	out := a.ProcessOutgoing(context.Background(), `{"type":"response.audio.delta","delta":"AAAA"}`)
	if out.Kind != bridge.KindForward {
		t.Fatalf("expected forward, got %+v", out)
	}
	var got struct {
		Event     string `json:"event"`
		StreamSid string `json:"streamSid"`
		Media     struct {
			Payload string `json:"payload"`
		} `json:"media"`
	}
	if err := json.Unmarshal([]byte(out.Msg), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Event != "media" || got.StreamSid != "MZ123" || got.Media.Payload != "AAAA" {
		t.Fatalf("unexpected translated frame: %s", out.Msg)
	}
	if stats := a.Stats(); stats.ResponsePackets != 1 {
		t.Fatalf("expected 1 response packet, got %d", stats.ResponsePackets)
	}
}

func TestOutgoingEmptyDeltaDropped(t *testing.T) {
	a, _ := newTestAdapter()
	out := a.ProcessOutgoing(context.Background(), `{"type":"response.audio.delta","delta":""}`)
	if out.Kind != bridge.KindDrop {
		t.Fatalf("expected drop, got %+v", out)
	}
	if stats := a.Stats(); stats.ResponsePackets != 0 {
		t.Fatalf("empty delta must not count, got %d", stats.ResponsePackets)
	}
}

func TestOutgoingBadDeltaDegradesToDrop(t *testing.T) {
	a, _ := newTestAdapter()
	out := a.ProcessOutgoing(context.Background(), `{"type":"response.audio.delta","delta":"%%%"}`)
	if out.Kind != bridge.KindDrop {
		t.Fatalf("expected drop for undecodable delta, got %+v", out)
	}
}

func TestOutgoingErrorEventEscalates(t *testing.T) {
	a, _ := newTestAdapter()
	out := a.ProcessOutgoing(context.Background(), `{"type":"error","error":{"message":"boom"}}`)
	if out.Kind != bridge.KindFail {
		t.Fatalf("expected fail, got %+v", out)
	}
	if out.Err == nil || !strings.Contains(out.Err.Error(), "boom") {
		t.Fatalf("expected error to carry upstream message, got %v", out.Err)
	}
	if !a.ShouldTerminate() {
		t.Fatal("expected terminate flag set")
	}
}

func TestOutgoingToolCallDispatch(t *testing.T) {
	a, target := newTestAdapter(fixedTool{name: "check_availability", result: map[string]any{"available": true}})
	frame := `{"type":"response.done","response":{"output":[` +
		`{"type":"message"},` +
		`{"type":"function_call","name":"check_availability","arguments":"{\"date\":\"2026-09-01\"}","call_id":"call_7"}]}}`
	out := a.ProcessOutgoing(context.Background(), frame)
	if out.Kind != bridge.KindDrop {
		t.Fatalf("expected drop after dispatch, got %+v", out)
	}

	sent := target.sent()
	if len(sent) != 2 {
		t.Fatalf("expected exactly two frames sent, got %d: %v", len(sent), sent)
	}
	var first struct {
		Type string `json:"type"`
		Item struct {
			Type   string `json:"type"`
			CallID string `json:"call_id"`
			Output string `json:"output"`
		} `json:"item"`
	}
	if err := json.Unmarshal([]byte(sent[0]), &first); err != nil {
		t.Fatalf("unmarshal first frame: %v", err)
	}
	if first.Type != realtime.TypeItemCreate || first.Item.Type != realtime.ItemFunctionCallOutput || first.Item.CallID != "call_7" {
		t.Fatalf("unexpected first frame: %s", sent[0])
	}
	var result map[string]any
	if err := json.Unmarshal([]byte(first.Item.Output), &result); err != nil || result["available"] != true {
		t.Fatalf("unexpected tool output: %s", first.Item.Output)
	}
	var second struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(sent[1]), &second); err != nil {
		t.Fatalf("unmarshal second frame: %v", err)
	}
	if second.Type != realtime.TypeResponseCreate {
		t.Fatalf("expected continue prompt second, got %s", sent[1])
	}
}

func TestOutgoingUnknownToolEscalates(t *testing.T) {
	a, target := newTestAdapter()
	frame := `{"type":"response.done","response":{"output":[` +
		`{"type":"function_call","name":"nope","arguments":"{}","call_id":"call_1"}]}}`
	out := a.ProcessOutgoing(context.Background(), frame)
	if out.Kind != bridge.KindFail {
		t.Fatalf("expected fail for unknown tool, got %+v", out)
	}
	if !errors.Is(out.Err, tool.ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", out.Err)
	}
	if len(target.sent()) != 0 {
		t.Fatal("no frames should be sent for an unknown tool")
	}
}

func TestOutgoingToolHandlerFailureAbsorbed(t *testing.T) {
	a, target := newTestAdapter(fixedTool{name: "flaky", err: errors.New("backend down")})
	frame := `{"type":"response.done","response":{"output":[` +
		`{"type":"function_call","name":"flaky","arguments":"{}","call_id":"call_2"}]}}`
	out := a.ProcessOutgoing(context.Background(), frame)
	if out.Kind != bridge.KindDrop {
		t.Fatalf("expected handler failure to be absorbed, got %+v", out)
	}
	if len(target.sent()) != 0 {
		t.Fatal("no frames should be sent when the handler fails")
	}
}

func TestOutgoingResponseDoneWithoutToolCall(t *testing.T) {
	a, target := newTestAdapter()
	out := a.ProcessOutgoing(context.Background(), `{"type":"response.done","response":{"output":[{"type":"message"}]}}`)
	if out.Kind != bridge.KindDrop {
		t.Fatalf("expected drop, got %+v", out)
	}
	if len(target.sent()) != 0 {
		t.Fatal("nothing should be sent without a function call")
	}
}

func TestOutgoingAcknowledgementLoggedOnly(t *testing.T) {
	a, _ := newTestAdapter()
	out := a.ProcessOutgoing(context.Background(), `{"type":"conversation.item.created","item":{"type":"function_call_output"}}`)
	if out.Kind != bridge.KindDrop {
		t.Fatalf("expected drop, got %+v", out)
	}
}

func TestOnConnectResetsState(t *testing.T) {
	a, _ := newTestAdapter()
	a.ProcessIncoming(context.Background(), `{"event":"media","media":{"payload":"AAAA"}}`)
	a.ProcessIncoming(context.Background(), `{"event":"stop"}`)
	a.OnConnect()
	if a.ShouldTerminate() {
		t.Fatal("expected terminate flag cleared")
	}
	if stats := a.Stats(); stats.MediaPackets != 0 || stats.ResponsePackets != 0 {
		t.Fatalf("expected counters reset, got %+v", stats)
	}
}
