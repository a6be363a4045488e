package protocol

import (
	"bytes"
	"testing"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "transcript message",
			msgType: TypeTranscript,
			data:    TranscriptData{Text: "hello", IsFinal: true},
			wantErr: false,
		},
		{
			name:    "error message",
			msgType: TypeError,
			data:    ErrorData{Message: "something broke"},
			wantErr: false,
		},
		{
			name:    "nil data",
			msgType: TypeAudioEnd,
			data:    nil,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestResponseAudioRoundTrip(t *testing.T) {
	audio := []byte{0x01, 0x02, 0x03, 0xff, 0x00, 0x7f}

	msg, err := NewResponseAudioMessage(audio, 24000)
	if err != nil {
		t.Fatalf("NewResponseAudioMessage() error = %v", err)
	}

	raw, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeResponseAudio {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeResponseAudio)
	}

	data, err := parsed.GetResponseAudioData()
	if err != nil {
		t.Fatalf("GetResponseAudioData() error = %v", err)
	}
	if data.SampleRate != 24000 {
		t.Errorf("SampleRate = %d, want 24000", data.SampleRate)
	}

	decoded, err := data.DecodeAudio()
	if err != nil {
		t.Fatalf("DecodeAudio() error = %v", err)
	}
	if !bytes.Equal(decoded, audio) {
		t.Errorf("DecodeAudio() = %v, want %v", decoded, audio)
	}
}

func TestPongCarriesPingTimestamp(t *testing.T) {
	msg, err := NewPongMessage(1700000000000)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}

	raw, _ := msg.Bytes()
	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	pong, err := parsed.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}
	if pong.PingTS != 1700000000000 {
		t.Errorf("PingTS = %d, want 1700000000000", pong.PingTS)
	}
}

func TestParseMessageInvalid(t *testing.T) {
	if _, err := ParseMessage([]byte("{not json")); err == nil {
		t.Error("ParseMessage() should fail on malformed JSON")
	}
}

func TestFinalResponseText(t *testing.T) {
	msg, err := NewResponseTextMessage("", true)
	if err != nil {
		t.Fatalf("NewResponseTextMessage() error = %v", err)
	}

	data, err := msg.GetResponseTextData()
	if err != nil {
		t.Fatalf("GetResponseTextData() error = %v", err)
	}
	if !data.IsFinal {
		t.Error("IsFinal should be true")
	}
	if data.Text != "" {
		t.Errorf("Text = %q, want empty", data.Text)
	}
}
