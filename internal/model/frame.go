package model

import (
	"time"
)

// FrameType identifies a websocket frame flowing between client and server.
type FrameType string

const (
	FrameConnected FrameType = "connected"
	FrameMessage   FrameType = "message"
	FrameResponse  FrameType = "response"
	FrameError     FrameType = "error"
	FrameClosed    FrameType = "closed"
)

// ClientFrame is a frame received from the client.
type ClientFrame struct {
	Type    FrameType `json:"type"`
	Message string    `json:"message,omitempty"`
}

// ServerFrame is a frame sent to the client. Exactly one of the payload
// fields is populated depending on Type.
type ServerFrame struct {
	Type      FrameType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	TurnID    string    `json:"turn_id,omitempty"`
	Content   string    `json:"content,omitempty"`
	Response  *Response `json:"response,omitempty"`
	Error     string    `json:"error,omitempty"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
