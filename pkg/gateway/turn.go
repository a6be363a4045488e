package gateway

import (
	"context"
	"log/slog"

	"github.com/voicewire/go-voicewire/pkg/agent"
	"github.com/voicewire/go-voicewire/pkg/protocol"
)

// runTurn drives one turn of the pipeline and bridges its events onto the
// socket. Exactly one of an error frame or the end-of-turn frame pair
// (response_audio_end plus a final response_text) closes the turn. Send
// failures are ignored here; a dead socket is detected by the read loop.
func (g *Gateway) runTurn(ctx context.Context, sess *session, logger *slog.Logger) {
	logger.Info("processing turn", "buffered_bytes", sess.agent.BufferedBytes())

	errored := false
	for ev := range sess.agent.Process(ctx) {
		switch ev.Type {
		case agent.EventTranscript:
			if msg, err := protocol.NewTranscriptMessage(ev.Transcript, true); err == nil {
				sess.send(msg)
			}

		case agent.EventTextDelta:
			if msg, err := protocol.NewResponseTextMessage(ev.Text, false); err == nil {
				sess.send(msg)
			}

		case agent.EventAudioChunk:
			if msg, err := protocol.NewResponseAudioMessage(ev.Audio, ev.SampleRate); err == nil {
				sess.send(msg)
			}

		case agent.EventError:
			errored = true
			logger.Warn("turn error", "error", ev.Err)
			if msg, err := protocol.NewErrorMessage(ev.Err.Error()); err == nil {
				sess.send(msg)
			}

		case agent.EventDone:
			logger.Info("turn complete",
				"transcript_len", len(ev.Result.Transcript),
				"response_len", len(ev.Result.Response),
				"context_used", ev.Result.ContextUsed)
		}
	}

	if errored {
		return
	}

	if msg, err := protocol.NewResponseAudioEndMessage(); err == nil {
		sess.send(msg)
	}
	if msg, err := protocol.NewResponseTextMessage("", true); err == nil {
		sess.send(msg)
	}
}
