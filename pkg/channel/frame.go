package channel

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// FrameType tags one discrete message exchanged over the channel.
type FrameType string

const (
	// outbound
	FrameMessage FrameType = "message"
	// inbound
	FrameResponse FrameType = "response"
	FrameTyping   FrameType = "typing"
	FrameError    FrameType = "error"
	FramePing     FrameType = "ping"
	FramePong     FrameType = "pong"
)

// Frame is the wire envelope. The type fully determines which fields are
// meaningful; Message is empty for typing/ping/pong.
type Frame struct {
	Type    FrameType `json:"type"`
	Message string    `json:"message,omitempty"`
}

// ParseFrame decodes an inbound payload. Payloads that are not JSON objects or
// carry no type are rejected; the caller drops them without tearing down the
// channel.
func ParseFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, errors.Wrap(err, "decode frame")
	}
	if f.Type == "" {
		return Frame{}, errors.New("frame has no type")
	}
	return f, nil
}
