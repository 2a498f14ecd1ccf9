package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coder/websocket"

	"github.com/voxbridge/voxbridge/internal/tool"
	"github.com/voxbridge/voxbridge/internal/wsconn"
)

// Config describes one realtime session to establish.
type Config struct {
	URL          string
	APIKey       string
	Model        string
	Voice        string
	Instructions string
	// Greeting overrides the default opening prompt. When empty, the
	// endpoint is asked to greet the caller from the instructions, since
	// the first response is not guaranteed to reference them otherwise.
	Greeting string
	Tools    []tool.Definition
}

// Dial connects to the realtime endpoint, configures the session (audio
// formats, voice, instructions, tools), and requests the opening
// greeting. The returned connection is ready to bridge.
func Dial(ctx context.Context, cfg Config) (*wsconn.Conn, error) {
	u := cfg.URL
	if cfg.Model != "" {
		u += "?model=" + url.QueryEscape(cfg.Model)
	}
	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+cfg.APIKey)
	hdr.Set("OpenAI-Beta", "realtime=v1")

	ws, resp, err := websocket.Dial(ctx, u, &websocket.DialOptions{HTTPHeader: hdr})
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, fmt.Errorf("dial realtime endpoint: %w", err)
	}
	conn := wsconn.Wrap(ws)

	update, err := SessionUpdateFrame(Session{
		TurnDetection:     &TurnDetection{Type: "server_vad"},
		InputAudioFormat:  "g711_ulaw",
		OutputAudioFormat: "g711_ulaw",
		Voice:             cfg.Voice,
		Instructions:      cfg.Instructions,
		Modalities:        []string{"text", "audio"},
		Temperature:       0.8,
		Tools:             cfg.Tools,
		ToolChoice:        "auto",
	})
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "setup failed")
		return nil, err
	}

	greeting := cfg.Greeting
	if greeting == "" {
		greeting = "Greet the caller with the greeting based on the following system prompt.\n\n" + cfg.Instructions
	}
	hello, err := ResponseCreateFrame(greeting)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "setup failed")
		return nil, err
	}

	if err := conn.WriteFrames(ctx, update, hello); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "setup failed")
		return nil, fmt.Errorf("configure realtime session: %w", err)
	}
	return conn, nil
}
