package protocol

import (
	"encoding/base64"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewSessionStartMessage creates a session_start message.
func NewSessionStartMessage(sessionID string) (*Message, error) {
	return NewMessage(TypeSessionStart, SessionStartData{SessionID: sessionID})
}

// NewTranscriptMessage creates a transcript message.
func NewTranscriptMessage(text string, isFinal bool) (*Message, error) {
	return NewMessage(TypeTranscript, TranscriptData{Text: text, IsFinal: isFinal})
}

// NewResponseTextMessage creates a response_text message.
func NewResponseTextMessage(text string, isFinal bool) (*Message, error) {
	return NewMessage(TypeResponseText, ResponseTextData{Text: text, IsFinal: isFinal})
}

// NewResponseAudioMessage creates a response_audio message from raw audio bytes.
func NewResponseAudioMessage(audio []byte, sampleRate int) (*Message, error) {
	return NewMessage(TypeResponseAudio, ResponseAudioData{
		Audio:      base64.StdEncoding.EncodeToString(audio),
		SampleRate: sampleRate,
	})
}

// NewResponseAudioEndMessage creates a response_audio_end message.
func NewResponseAudioEndMessage() (*Message, error) {
	return NewMessage(TypeResponseAudioEnd, nil)
}

// NewErrorMessage creates an error message.
func NewErrorMessage(text string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: text})
}

// NewPongMessage creates a pong response echoing the ping timestamp.
func NewPongMessage(pingTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{PingTS: pingTS})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetSessionStartData extracts session start data from a message.
func (m *Message) GetSessionStartData() (*SessionStartData, error) {
	var data SessionStartData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTranscriptData extracts transcript data from a message.
func (m *Message) GetTranscriptData() (*TranscriptData, error) {
	var data TranscriptData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetResponseTextData extracts response text data from a message.
func (m *Message) GetResponseTextData() (*ResponseTextData, error) {
	var data ResponseTextData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetResponseAudioData extracts response audio data from a message.
func (m *Message) GetResponseAudioData() (*ResponseAudioData, error) {
	var data ResponseAudioData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeAudio decodes the base64 audio payload.
func (r *ResponseAudioData) DecodeAudio() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Audio)
}

// GetErrorData extracts error data from a message.
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message.
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
