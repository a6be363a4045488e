// Package protocol defines the WebSocket message types exchanged between
// the voicewire gateway and its clients.
//
// Inbound frames are either raw binary audio or JSON control messages;
// outbound frames are always JSON. Every JSON frame shares the same
// envelope: a type discriminator, a millisecond timestamp, and a
// type-specific data payload.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Client → Server control messages
	TypePing       MessageType = "ping"        // Health check
	TypeAudioEnd   MessageType = "audio_end"   // End of utterance, process buffered audio
	TypeSessionEnd MessageType = "session_end" // Close the session

	// Server → Client messages
	TypeSessionStart     MessageType = "session_start"      // Session id assignment
	TypeTranscript       MessageType = "transcript"         // Recognized user speech
	TypeResponseText     MessageType = "response_text"      // Assistant text delta
	TypeResponseAudio    MessageType = "response_audio"     // Synthesized audio chunk
	TypeResponseAudioEnd MessageType = "response_audio_end" // End of synthesized audio
	TypeError            MessageType = "error"              // Turn-level error
	TypePong             MessageType = "pong"               // Health check response
)

// Message is the envelope for all JSON WebSocket messages.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct.
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message.
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Server → Client payloads
// =============================================================================

// SessionStartData carries the generated session id.
type SessionStartData struct {
	SessionID string `json:"session_id"`
}

// TranscriptData carries recognized user speech.
type TranscriptData struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

// ResponseTextData carries an assistant text delta. An empty text with
// IsFinal=true marks the end of the response.
type ResponseTextData struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

// ResponseAudioData carries one chunk of synthesized audio.
type ResponseAudioData struct {
	Audio      string `json:"audio"` // base64 encoded
	SampleRate int    `json:"sample_rate"`
}

// ErrorData carries a turn-level error message.
type ErrorData struct {
	Message string `json:"message"`
}

// PongData echoes the timestamp of the ping it answers.
type PongData struct {
	PingTS int64 `json:"ping_ts"`
}
