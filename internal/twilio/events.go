// Package twilio implements the media-stream leg of the bridge: the wire
// messages of Twilio's Media Streams websocket protocol, the call-setup
// handshake, TwiML generation, and request signature validation.
package twilio

import "encoding/json"

// Media stream event discriminants.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventStop      = "stop"
	EventMark      = "mark"
)

// Message is one frame of the media-stream protocol. Only the section
// matching Event is populated.
type Message struct {
	Event          string `json:"event"`
	SequenceNumber string `json:"sequenceNumber,omitempty"`
	StreamSid      string `json:"streamSid,omitempty"`
	Start          *Start `json:"start,omitempty"`
	Media          *Media `json:"media,omitempty"`
	Stop           *Stop  `json:"stop,omitempty"`
	Mark           *Mark  `json:"mark,omitempty"`
}

// Start carries the stream metadata sent once after the connection opens.
type Start struct {
	AccountSid string   `json:"accountSid"`
	CallSid    string   `json:"callSid"`
	StreamSid  string   `json:"streamSid"`
	Tracks     []string `json:"tracks,omitempty"`
}

// Media carries one chunk of base64-encoded audio.
type Media struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

// Stop marks the end of the stream.
type Stop struct {
	AccountSid string `json:"accountSid,omitempty"`
	CallSid    string `json:"callSid,omitempty"`
}

// Mark acknowledges playback of a named audio segment.
type Mark struct {
	Name string `json:"name"`
}

// ParseMessage decodes one media-stream frame.
func ParseMessage(frame string) (Message, error) {
	var m Message
	if err := json.Unmarshal([]byte(frame), &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// MediaFrame encodes an outbound media frame carrying payload (already
// base64) for the given stream.
func MediaFrame(streamSid, payload string) (string, error) {
	b, err := json.Marshal(Message{
		Event:     EventMedia,
		StreamSid: streamSid,
		Media:     &Media{Payload: payload},
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
