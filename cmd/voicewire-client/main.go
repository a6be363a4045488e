// Command voicewire-client is a test client for the voicewire server.
//
// It streams a raw PCM16 audio file over the WebSocket, signals end of
// utterance, and prints the frames that come back. Response audio can be
// written to a file for playback.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicewire/go-voicewire/pkg/protocol"
)

func main() {
	var (
		serverURL = flag.String("url", "ws://localhost:8000/ws/voice", "server WebSocket URL")
		audioFile = flag.String("audio", "", "raw PCM16 audio file to send (required)")
		outFile   = flag.String("out", "", "write response audio (raw PCM16) to this file")
		chunkSize = flag.Int("chunk", 3200, "audio chunk size in bytes (3200 = 100ms at 16kHz)")
	)
	flag.Parse()

	if *audioFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*serverURL, *audioFile, *outFile, *chunkSize); err != nil {
		fmt.Fprintf(os.Stderr, "voicewire-client: %v\n", err)
		os.Exit(1)
	}
}

func run(serverURL, audioFile, outFile string, chunkSize int) error {
	audio, err := os.ReadFile(audioFile)
	if err != nil {
		return err
	}

	ws, _, err := websocket.DefaultDialer.Dial(serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", serverURL, err)
	}
	defer ws.Close()

	// First frame is the session assignment.
	msg, err := readFrame(ws)
	if err != nil {
		return err
	}
	if msg.Type == protocol.TypeSessionStart {
		if start, err := msg.GetSessionStartData(); err == nil {
			fmt.Printf("session: %s\n", start.SessionID)
		}
	}

	// Stream the audio in paced chunks, roughly real time.
	fmt.Printf("sending %d bytes of audio...\n", len(audio))
	for off := 0; off < len(audio); off += chunkSize {
		end := off + chunkSize
		if end > len(audio) {
			end = len(audio)
		}
		if err := ws.WriteMessage(websocket.BinaryMessage, audio[off:end]); err != nil {
			return fmt.Errorf("send audio: %w", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	endMsg, err := protocol.NewMessage(protocol.TypeAudioEnd, nil)
	if err != nil {
		return err
	}
	data, err := endMsg.Bytes()
	if err != nil {
		return err
	}
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send audio_end: %w", err)
	}

	var out *os.File
	if outFile != "" {
		out, err = os.Create(outFile)
		if err != nil {
			return err
		}
		defer out.Close()
	}

	var audioBytes int
	for {
		msg, err := readFrame(ws)
		if err != nil {
			return err
		}

		switch msg.Type {
		case protocol.TypeTranscript:
			if tr, err := msg.GetTranscriptData(); err == nil {
				fmt.Printf("transcript: %s\n", tr.Text)
			}

		case protocol.TypeResponseText:
			rt, err := msg.GetResponseTextData()
			if err != nil {
				continue
			}
			if rt.IsFinal {
				fmt.Println()
				fmt.Printf("received %d bytes of response audio\n", audioBytes)
				return nil
			}
			fmt.Print(rt.Text)

		case protocol.TypeResponseAudio:
			ra, err := msg.GetResponseAudioData()
			if err != nil {
				continue
			}
			chunk, err := ra.DecodeAudio()
			if err != nil {
				continue
			}
			audioBytes += len(chunk)
			if out != nil {
				out.Write(chunk)
			}

		case protocol.TypeError:
			if ed, err := msg.GetErrorData(); err == nil {
				return fmt.Errorf("server error: %s", ed.Message)
			}
			return fmt.Errorf("server error")
		}
	}
}

func readFrame(ws *websocket.Conn) (*protocol.Message, error) {
	ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	return protocol.ParseMessage(data)
}
