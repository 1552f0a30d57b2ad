package types

import pub "github.com/DoyleJ11/live-poll-backend/pkg/types"

// ClientMessage is one inbound websocket frame. Only the fields relevant to
// Type are read.
type ClientMessage struct {
	Type          string   `json:"type"`
	Name          string   `json:"name,omitempty"`
	Question      string   `json:"question,omitempty"`
	Options       []string `json:"options,omitempty"`
	TimeLimit     *int     `json:"timeLimit,omitempty"`
	OptionIndex   *int     `json:"optionIndex,omitempty"`
	ParticipantID string   `json:"participantId,omitempty"`
	Text          string   `json:"text,omitempty"`
}

// ServerMessage is the success/failure envelope every outbound event uses.
type ServerMessage struct {
	Type    string   `json:"type"`
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
	Data    any      `json:"data,omitempty"`
	Details []string `json:"details,omitempty"`
}

func Success(event, message string, data any) ServerMessage {
	return ServerMessage{Type: event, Success: true, Message: message, Data: data}
}

func Failure(event, code, message string, details []string) ServerMessage {
	return ServerMessage{Type: event, Success: false, Code: code, Message: message, Details: details}
}

// Error is shorthand for a failure on the generic error event.
func Error(code, message string, details ...string) ServerMessage {
	return Failure(pub.EventError, code, message, details)
}
