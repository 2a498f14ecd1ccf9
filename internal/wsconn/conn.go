// Package wsconn wraps websocket connections behind a uniform frame channel
// so the rest of the bridge does not care which side of a connection was
// dialed and which was accepted.
package wsconn

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

// ErrClosed is returned by ReadFrame when the peer closed the connection
// normally. It marks a clean end of stream, not a failure.
var ErrClosed = errors.New("connection closed")

// CloseError is returned by ReadFrame when the peer closed the connection
// with a non-normal status code. The peer's close code carries the
// diagnosis, so callers usually log it rather than escalate.
type CloseError struct {
	Code   websocket.StatusCode
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("connection closed with status %v: %s", e.Code, e.Reason)
}

// FrameConn is a full-duplex channel of text frames. Implementations must
// make Close idempotent and safe under concurrent invocation, and must
// serialize concurrent writers so frames never interleave on the wire.
type FrameConn interface {
	ReadFrame(ctx context.Context) (string, error)
	// WriteFrames sends the given frames back to back; no frame from
	// another writer is interleaved between them.
	WriteFrames(ctx context.Context, frames ...string) error
	Close(code websocket.StatusCode, reason string) error
}

// Conn adapts a coder/websocket connection to FrameConn. The same wrapper
// serves both the server-accepted and the client-dialed leg.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// Wrap returns a FrameConn backed by ws.
func Wrap(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// ReadFrame blocks until the next text frame arrives. A normal peer close
// yields ErrClosed; an abnormal close yields *CloseError; anything else
// (including context cancellation) passes through unchanged.
func (c *Conn) ReadFrame(ctx context.Context) (string, error) {
	_, data, err := c.ws.Read(ctx)
	if err != nil {
		var ce websocket.CloseError
		if errors.As(err, &ce) {
			if ce.Code == websocket.StatusNormalClosure || ce.Code == websocket.StatusGoingAway {
				return "", ErrClosed
			}
			return "", &CloseError{Code: ce.Code, Reason: ce.Reason}
		}
		return "", err
	}
	return string(data), nil
}

// WriteFrames sends frames as text messages while holding the send lock,
// so a multi-frame sequence (e.g. a tool result followed by its continue
// prompt) cannot be split by a concurrent writer.
func (c *Conn) WriteFrames(ctx context.Context, frames ...string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	for _, f := range frames {
		if err := c.ws.Write(ctx, websocket.MessageText, []byte(f)); err != nil {
			return err
		}
	}
	return nil
}

// Close performs the websocket close handshake once; repeated or concurrent
// calls return the first call's result without touching the connection
// again.
func (c *Conn) Close(code websocket.StatusCode, reason string) error {
	c.closeOnce.Do(func() {
		c.closeErr = c.ws.Close(code, reason)
	})
	return c.closeErr
}
