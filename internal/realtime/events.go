// Package realtime implements the conversational-AI leg of the bridge:
// the realtime protocol's wire events and the client that dials and
// configures a session.
package realtime

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/voxbridge/voxbridge/internal/tool"
)

// Event type discriminants used by the bridge. The protocol has many more;
// anything not listed here is passed over.
const (
	TypeSessionUpdate  = "session.update"
	TypeAudioAppend    = "input_audio_buffer.append"
	TypeResponseCreate = "response.create"
	TypeResponseDone   = "response.done"
	TypeAudioDelta     = "response.audio.delta"
	TypeError          = "error"
	TypeItemCreate     = "conversation.item.create"
	TypeItemCreated    = "conversation.item.created"
)

// Conversation item types.
const (
	ItemFunctionCall       = "function_call"
	ItemFunctionCallOutput = "function_call_output"
)

// ServerEvent is the envelope of a frame received from the realtime
// endpoint. Only the fields relevant to Type are populated.
type ServerEvent struct {
	Type     string       `json:"type"`
	EventID  string       `json:"event_id,omitempty"`
	Delta    string       `json:"delta,omitempty"`
	Error    *ErrorDetail `json:"error,omitempty"`
	Item     *OutputItem  `json:"item,omitempty"`
	Response *Response    `json:"response,omitempty"`
}

// ErrorDetail carries the endpoint's description of a fatal condition.
type ErrorDetail struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Response is the completed-response section of a response.done event.
type Response struct {
	Output []OutputItem `json:"output,omitempty"`
}

// OutputItem is one item of a completed response's output list. For
// function calls, Arguments holds the JSON-encoded call arguments.
type OutputItem struct {
	Type      string `json:"type,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`
}

// ParseServerEvent decodes one frame from the realtime endpoint.
func ParseServerEvent(frame string) (ServerEvent, error) {
	var ev ServerEvent
	if err := json.Unmarshal([]byte(frame), &ev); err != nil {
		return ServerEvent{}, err
	}
	return ev, nil
}

// Session is the session-configuration payload of a session.update event.
type Session struct {
	TurnDetection     *TurnDetection    `json:"turn_detection,omitempty"`
	InputAudioFormat  string            `json:"input_audio_format,omitempty"`
	OutputAudioFormat string            `json:"output_audio_format,omitempty"`
	Voice             string            `json:"voice,omitempty"`
	Instructions      string            `json:"instructions,omitempty"`
	Modalities        []string          `json:"modalities,omitempty"`
	Temperature       float64           `json:"temperature,omitempty"`
	Tools             []tool.Definition `json:"tools,omitempty"`
	ToolChoice        string            `json:"tool_choice,omitempty"`
}

// TurnDetection configures how the endpoint detects end of speech.
type TurnDetection struct {
	Type string `json:"type"`
}

type sessionUpdate struct {
	Type    string  `json:"type"`
	Session Session `json:"session"`
}

type audioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type responseCreate struct {
	EventID  string         `json:"event_id,omitempty"`
	Type     string         `json:"type"`
	Response responseParams `json:"response"`
}

type responseParams struct {
	Modalities   []string `json:"modalities"`
	Instructions string   `json:"instructions"`
}

type functionOutputItem struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

type functionOutputCreate struct {
	Type string             `json:"type"`
	Item functionOutputItem `json:"item"`
}

// SessionUpdateFrame encodes a session.update event.
func SessionUpdateFrame(s Session) (string, error) {
	return marshalFrame(sessionUpdate{Type: TypeSessionUpdate, Session: s})
}

// AudioAppendFrame encodes an input_audio_buffer.append event carrying
// audio, which is already base64 on the wire and is not re-encoded.
func AudioAppendFrame(audio string) (string, error) {
	return marshalFrame(audioAppend{Type: TypeAudioAppend, Audio: audio})
}

// ResponseCreateFrame encodes a response.create event asking the endpoint
// to generate a spoken reply following the given instructions.
func ResponseCreateFrame(instructions string) (string, error) {
	return marshalFrame(responseCreate{
		EventID: "evt_" + uuid.NewString()[:8],
		Type:    TypeResponseCreate,
		Response: responseParams{
			Modalities:   []string{"text", "audio"},
			Instructions: instructions,
		},
	})
}

// FunctionOutputFrame encodes a conversation.item.create event delivering
// a tool result for the given call id. Output must already be JSON.
func FunctionOutputFrame(callID, output string) (string, error) {
	return marshalFrame(functionOutputCreate{
		Type: TypeItemCreate,
		Item: functionOutputItem{Type: ItemFunctionCallOutput, CallID: callID, Output: output},
	})
}

func marshalFrame(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
