// Package agent orchestrates a single conversational turn: buffered audio
// in, transcription, context retrieval, streaming generation, and
// sentence-by-sentence speech synthesis out.
//
// Process returns a channel of tagged events that the transport layer
// consumes. Each turn's stream ends with exactly one terminal event
// (EventDone or EventError) and the channel is then closed.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/voicewire/go-voicewire/internal/log"
	"github.com/voicewire/go-voicewire/pkg/inference"
	"github.com/voicewire/go-voicewire/pkg/memory"
	"github.com/voicewire/go-voicewire/pkg/prompt"
	"github.com/voicewire/go-voicewire/pkg/rag"
	"github.com/voicewire/go-voicewire/pkg/stt"
	"github.com/voicewire/go-voicewire/pkg/tts"
)

// State is the agent's place in the turn lifecycle.
type State string

// Agent states.
const (
	StateIdle         State = "idle"
	StateTranscribing State = "transcribing"
	StateThinking     State = "thinking"
	StateSpeaking     State = "speaking"
	StateError        State = "error"
)

// Turn-level errors surfaced as EventError.
var (
	// ErrNoAudio is returned when a turn is processed with an empty buffer.
	ErrNoAudio = errors.New("agent: no audio data")

	// ErrNoSpeech is returned when transcription produces no text.
	ErrNoSpeech = errors.New("agent: could not transcribe audio")

	// ErrBusy is returned when a turn is already in flight.
	ErrBusy = errors.New("agent: turn already in progress")
)

// eventBuffer bounds the per-turn event channel.
const eventBuffer = 256

// Options wires an Agent's collaborators.
type Options struct {
	Transcriber stt.Transcriber
	LLM         inference.Provider
	TTS         tts.Provider
	Retriever   rag.Retriever
	Store       *memory.Store
	Assembler   *memory.Assembler

	// InputSampleRate is the PCM16 sample rate of incoming audio.
	InputSampleRate int

	Logger *slog.Logger
}

// Agent runs the voice pipeline for one session.
type Agent struct {
	sessionID string

	transcriber stt.Transcriber
	llm         inference.Provider
	tts         tts.Provider
	retriever   rag.Retriever
	store       *memory.Store
	assembler   *memory.Assembler

	inputRate int
	logger    *slog.Logger

	mu         sync.Mutex
	state      State
	buffer     []byte
	processing bool
}

// New creates an agent for the given session.
func New(sessionID string, opts Options) *Agent {
	if opts.InputSampleRate <= 0 {
		opts.InputSampleRate = 16000
	}
	if opts.Logger == nil {
		opts.Logger = log.L()
	}
	return &Agent{
		sessionID:   sessionID,
		transcriber: opts.Transcriber,
		llm:         opts.LLM,
		tts:         opts.TTS,
		retriever:   opts.Retriever,
		store:       opts.Store,
		assembler:   opts.Assembler,
		inputRate:   opts.InputSampleRate,
		logger:      opts.Logger.With("component", "agent", "session_id", shortID(sessionID)),
		state:       StateIdle,
	}
}

// SessionID returns the session this agent serves.
func (a *Agent) SessionID() string { return a.sessionID }

// State returns the current lifecycle state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// AppendAudio accumulates incoming audio bytes for the next turn.
func (a *Agent) AppendAudio(chunk []byte) {
	a.mu.Lock()
	a.buffer = append(a.buffer, chunk...)
	a.mu.Unlock()
}

// ClearAudio discards any buffered audio.
func (a *Agent) ClearAudio() {
	a.mu.Lock()
	a.buffer = nil
	a.mu.Unlock()
}

// BufferedBytes returns the size of the pending audio buffer.
func (a *Agent) BufferedBytes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffer)
}

// Process runs the buffered audio through the pipeline. It takes ownership
// of the current buffer and returns the turn's event stream. The returned
// channel is closed after the terminal event. Only one turn may be in
// flight at a time; concurrent calls receive an immediate error stream.
func (a *Agent) Process(ctx context.Context) <-chan Event {
	events := make(chan Event, eventBuffer)

	a.mu.Lock()
	if a.processing {
		a.mu.Unlock()
		events <- Event{Type: EventError, Err: ErrBusy}
		close(events)
		return events
	}
	a.processing = true
	audio := a.buffer
	a.buffer = nil
	a.mu.Unlock()

	go func() {
		defer close(events)
		defer func() {
			a.mu.Lock()
			a.processing = false
			a.mu.Unlock()
		}()
		a.run(ctx, audio, events)
	}()

	return events
}

// run executes one turn. It emits events and guarantees exactly one
// terminal event before returning.
func (a *Agent) run(ctx context.Context, audio []byte, events chan<- Event) {
	if len(audio) == 0 {
		a.setState(StateIdle)
		a.emit(ctx, events, Event{Type: EventError, Err: ErrNoAudio})
		return
	}

	// Transcribe.
	a.setState(StateTranscribing)
	a.logger.Info("transcribing", "bytes", len(audio))

	sttResult, err := a.transcriber.Transcribe(ctx, audio, a.inputRate)
	if err != nil {
		a.fail(ctx, events, err)
		return
	}
	transcript := strings.TrimSpace(sttResult.Text)
	if transcript == "" {
		a.setState(StateIdle)
		a.emit(ctx, events, Event{Type: EventError, Err: ErrNoSpeech})
		return
	}

	a.logger.Info("transcript ready", "text", transcript)
	a.emit(ctx, events, Event{Type: EventTranscript, Transcript: transcript})

	// Gather retrieval and memory context concurrently. Failures degrade
	// to empty context rather than aborting the turn.
	a.setState(StateThinking)

	var (
		ragContext    string
		memoryContext string
		wg            sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		text, err := a.retriever.Query(ctx, transcript)
		if err != nil {
			a.logger.Warn("retrieval failed", "error", err)
			return
		}
		ragContext = text
	}()
	go func() {
		defer wg.Done()
		memoryContext = a.assembler.Context(ctx, a.sessionID)
	}()
	wg.Wait()

	// Build the prompt from stored history plus the fresh transcript.
	system := prompt.System(memoryContext, ragContext)
	history := historyMessages(a.store.History(ctx, a.sessionID))
	messages := prompt.Messages(history, transcript, system)

	// Stream the response, synthesizing sentence by sentence.
	a.logger.Info("generating response")
	stream, err := a.llm.Stream(ctx, &inference.ChatRequest{Messages: messages})
	if err != nil {
		a.fail(ctx, events, err)
		return
	}
	defer stream.Close()

	a.setState(StateSpeaking)

	var (
		response       strings.Builder
		sentenceBuffer strings.Builder
		synth          sync.WaitGroup
	)
	for {
		chunk, err := stream.Recv()
		if err != nil {
			synth.Wait()
			a.fail(ctx, events, err)
			return
		}
		if chunk.Done {
			break
		}

		response.WriteString(chunk.Delta)
		sentenceBuffer.WriteString(chunk.Delta)
		a.emit(ctx, events, Event{Type: EventTextDelta, Text: chunk.Delta})

		if isSentenceBoundary(sentenceBuffer.String()) {
			sentence := strings.TrimSpace(sentenceBuffer.String())
			sentenceBuffer.Reset()
			synth.Add(1)
			go func() {
				defer synth.Done()
				a.speak(ctx, sentence, events)
			}()
		}
	}

	// Flush whatever trailed the last boundary.
	if remainder := strings.TrimSpace(sentenceBuffer.String()); remainder != "" {
		a.speak(ctx, remainder, events)
	}
	synth.Wait()

	// Record the exchange and let the memory layer decide whether the
	// history has grown enough to summarize.
	a.store.Append(ctx, a.sessionID, memory.RoleUser, transcript)
	a.store.Append(ctx, a.sessionID, memory.RoleAssistant, response.String())
	a.assembler.MaybeSummarize(ctx, a.sessionID)

	a.setState(StateIdle)
	a.emit(ctx, events, Event{Type: EventDone, Result: &Result{
		Transcript:  transcript,
		Response:    response.String(),
		ContextUsed: ragContext != "",
	}})
}

// speak synthesizes one sentence and emits its audio chunks. Synthesis
// failures are logged and swallowed so one bad sentence cannot sink the
// turn.
func (a *Agent) speak(ctx context.Context, text string, events chan<- Event) {
	stream, err := a.tts.Stream(ctx, text)
	if err != nil {
		a.logger.Error("speech synthesis failed", "error", err)
		return
	}
	defer stream.Close()

	rate := stream.Format().SampleRate
	for {
		chunk, err := stream.Read()
		if err != nil {
			a.logger.Error("speech stream failed", "error", err)
			return
		}
		if chunk == nil {
			return
		}
		a.emit(ctx, events, Event{Type: EventAudioChunk, Audio: chunk, SampleRate: rate})
	}
}

// fail transitions through the error state and emits the terminal error.
func (a *Agent) fail(ctx context.Context, events chan<- Event, err error) {
	a.setState(StateError)
	a.logger.Error("turn failed", "error", err)
	a.emit(ctx, events, Event{Type: EventError, Err: err})
	a.setState(StateIdle)
}

// emit sends an event unless the consumer's context is gone.
func (a *Agent) emit(ctx context.Context, events chan<- Event, ev Event) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

// historyMessages converts stored turns into chat messages.
func historyMessages(turns []memory.Turn) []inference.Message {
	msgs := make([]inference.Message, 0, len(turns))
	for _, turn := range turns {
		msgs = append(msgs, inference.Message{Role: inference.Role(turn.Role), Content: turn.Content})
	}
	return msgs
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
