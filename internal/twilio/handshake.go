package twilio

import (
	"context"
	"fmt"

	"github.com/voxbridge/voxbridge/internal/wsconn"
)

// Handshake performs the two-step media-stream setup: Twilio sends a
// "connected" event followed by a "start" event carrying the stream sid.
// The returned sid identifies the stream for the rest of the bridge's
// life.
func Handshake(ctx context.Context, conn wsconn.FrameConn) (string, error) {
	if _, err := receiveEvent(ctx, conn, EventConnected); err != nil {
		return "", err
	}
	msg, err := receiveEvent(ctx, conn, EventStart)
	if err != nil {
		return "", err
	}
	if msg.Start == nil || msg.Start.StreamSid == "" {
		return "", fmt.Errorf("start event missing streamSid")
	}
	return msg.Start.StreamSid, nil
}

func receiveEvent(ctx context.Context, conn wsconn.FrameConn, expected string) (Message, error) {
	frame, err := conn.ReadFrame(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("waiting for %s event: %w", expected, err)
	}
	msg, err := ParseMessage(frame)
	if err != nil {
		return Message{}, fmt.Errorf("parsing %s event: %w", expected, err)
	}
	if msg.Event != expected {
		return Message{}, fmt.Errorf("expected %s event, got %q", expected, msg.Event)
	}
	return msg, nil
}
