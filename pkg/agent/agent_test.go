package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/voicewire/go-voicewire/pkg/cache"
	"github.com/voicewire/go-voicewire/pkg/inference"
	"github.com/voicewire/go-voicewire/pkg/memory"
	"github.com/voicewire/go-voicewire/pkg/rag"
	"github.com/voicewire/go-voicewire/pkg/stt"
	"github.com/voicewire/go-voicewire/pkg/tts"
)

// testAgent bundles an agent with its mocks for inspection.
type testAgent struct {
	agent       *Agent
	transcriber *stt.Mock
	llm         *inference.Mock
	tts         *tts.Mock
	retriever   *rag.Mock
	store       *memory.Store
}

func newTestAgent(t *testing.T, transcript string, fragments ...string) *testAgent {
	t.Helper()

	transcriber := stt.NewMock(transcript)
	llm := inference.NewMockStreaming(fragments...)
	speech := tts.NewMock()
	retriever := rag.NewMock("")
	store := memory.NewStore(cache.NewMemory(), memory.StoreOptions{MaxTurns: 20, TTL: time.Hour})
	assembler := memory.NewAssembler(store, llm, memory.AssemblerOptions{SummaryThreshold: 15})

	a := New("test-session", Options{
		Transcriber: transcriber,
		LLM:         llm,
		TTS:         speech,
		Retriever:   retriever,
		Store:       store,
		Assembler:   assembler,
	})

	return &testAgent{
		agent:       a,
		transcriber: transcriber,
		llm:         llm,
		tts:         speech,
		retriever:   retriever,
		store:       store,
	}
}

// collect drains the event stream with a timeout guard.
func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatal("event stream did not terminate")
		}
	}
}

func terminal(t *testing.T, events []Event) Event {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("no events emitted")
	}
	last := events[len(events)-1]
	if last.Type != EventDone && last.Type != EventError {
		t.Fatalf("stream ended with non-terminal event %q", last.Type)
	}
	for _, ev := range events[:len(events)-1] {
		if ev.Type == EventDone || ev.Type == EventError {
			t.Fatalf("terminal event %q emitted before end of stream", ev.Type)
		}
	}
	return last
}

func TestProcessHappyPath(t *testing.T) {
	ta := newTestAgent(t, "what's the weather like?",
		"It's sunny and warm outside today. ", "Enjoy your afternoon walk!")
	ta.agent.AppendAudio(make([]byte, 3200))

	events := collect(t, ta.agent.Process(context.Background()))
	last := terminal(t, events)

	if last.Type != EventDone {
		t.Fatalf("expected done, got error: %v", last.Err)
	}
	if last.Result.Transcript != "what's the weather like?" {
		t.Errorf("transcript = %q", last.Result.Transcript)
	}
	want := "It's sunny and warm outside today. Enjoy your afternoon walk!"
	if last.Result.Response != want {
		t.Errorf("response = %q, want %q", last.Result.Response, want)
	}
	if last.Result.ContextUsed {
		t.Error("no retrieval context was configured, ContextUsed should be false")
	}

	var sawTranscript, sawAudio bool
	var text strings.Builder
	for _, ev := range events {
		switch ev.Type {
		case EventTranscript:
			sawTranscript = true
		case EventTextDelta:
			text.WriteString(ev.Text)
		case EventAudioChunk:
			sawAudio = true
			if ev.SampleRate != 24000 {
				t.Errorf("audio sample rate = %d, want 24000", ev.SampleRate)
			}
		}
	}
	if !sawTranscript {
		t.Error("transcript event missing")
	}
	if !sawAudio {
		t.Error("audio chunk events missing")
	}
	if text.String() != want {
		t.Errorf("concatenated deltas = %q, want %q", text.String(), want)
	}

	if ta.agent.State() != StateIdle {
		t.Errorf("state after completion = %q, want idle", ta.agent.State())
	}

	// The exchange is recorded as one user and one assistant turn.
	history := ta.store.History(context.Background(), "test-session")
	if len(history) != 2 {
		t.Fatalf("expected 2 recorded turns, got %d", len(history))
	}
	if history[0].Role != memory.RoleUser || history[1].Role != memory.RoleAssistant {
		t.Error("recorded turn roles wrong")
	}
}

func TestProcessSegmentsSentencesForSynthesis(t *testing.T) {
	ta := newTestAgent(t, "tell me two things",
		"The first thing is quite interesting. ",
		"And the second ", "thing is even better!")
	ta.agent.AppendAudio(make([]byte, 1600))

	events := collect(t, ta.agent.Process(context.Background()))
	if last := terminal(t, events); last.Type != EventDone {
		t.Fatalf("turn failed: %v", last.Err)
	}

	texts := ta.tts.StreamTexts()
	if len(texts) != 2 {
		t.Fatalf("expected 2 synthesis units, got %d: %v", len(texts), texts)
	}
	// Units run concurrently, so compare as a set.
	want := map[string]bool{
		"The first thing is quite interesting.": true,
		"And the second thing is even better!":  true,
	}
	for _, text := range texts {
		if !want[text] {
			t.Errorf("unexpected synthesis unit %q", text)
		}
		delete(want, text)
	}
}

func TestProcessEmptyBuffer(t *testing.T) {
	ta := newTestAgent(t, "unused")

	events := collect(t, ta.agent.Process(context.Background()))
	last := terminal(t, events)

	if last.Type != EventError || !errors.Is(last.Err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %+v", last)
	}
	if len(events) != 1 {
		t.Errorf("expected only the error event, got %d events", len(events))
	}
	if ta.agent.State() != StateIdle {
		t.Errorf("state = %q, want idle", ta.agent.State())
	}
	if got := len(ta.store.History(context.Background(), "test-session")); got != 0 {
		t.Errorf("empty turn must not write memory, got %d turns", got)
	}
	if ta.transcriber.CallCount("Transcribe") != 0 {
		t.Error("transcriber should not be called with no audio")
	}
}

func TestProcessEmptyTranscript(t *testing.T) {
	ta := newTestAgent(t, "   ")
	ta.agent.AppendAudio(make([]byte, 1600))

	events := collect(t, ta.agent.Process(context.Background()))
	last := terminal(t, events)

	if last.Type != EventError || !errors.Is(last.Err, ErrNoSpeech) {
		t.Fatalf("expected ErrNoSpeech, got %+v", last)
	}
	if got := len(ta.store.History(context.Background(), "test-session")); got != 0 {
		t.Errorf("silent turn must not write memory, got %d turns", got)
	}
	if ta.llm.CallCount("Stream") != 0 {
		t.Error("generation should not run without a transcript")
	}
}

func TestProcessTranscriptionFailure(t *testing.T) {
	ta := newTestAgent(t, "unused")
	ta.transcriber.TranscribeFunc = func(ctx context.Context, audio []byte, rate int) (*stt.Result, error) {
		return nil, errors.New("whisper offline")
	}
	ta.agent.AppendAudio(make([]byte, 1600))

	events := collect(t, ta.agent.Process(context.Background()))
	last := terminal(t, events)

	if last.Type != EventError {
		t.Fatal("expected error event")
	}
	if !strings.Contains(last.Err.Error(), "whisper offline") {
		t.Errorf("error = %v", last.Err)
	}
	if ta.agent.State() != StateIdle {
		t.Errorf("state = %q, want idle after error", ta.agent.State())
	}
}

func TestProcessGenerationFailure(t *testing.T) {
	ta := newTestAgent(t, "hello there")
	ta.llm.StreamFunc = func(ctx context.Context, req *inference.ChatRequest) (inference.Stream, error) {
		return nil, errors.New("model offline")
	}
	ta.agent.AppendAudio(make([]byte, 1600))

	events := collect(t, ta.agent.Process(context.Background()))
	last := terminal(t, events)

	if last.Type != EventError {
		t.Fatal("expected error event")
	}
	if got := len(ta.store.History(context.Background(), "test-session")); got != 0 {
		t.Errorf("failed turn must not write memory, got %d turns", got)
	}
}

func TestProcessSynthesisFailureIsSwallowed(t *testing.T) {
	ta := newTestAgent(t, "say something",
		"This sentence will fail to synthesize. ", "But the turn still completes fine.")
	ta.tts.StreamFunc = func(ctx context.Context, text string) (tts.AudioStream, error) {
		return nil, errors.New("speaker on fire")
	}
	ta.agent.AppendAudio(make([]byte, 1600))

	events := collect(t, ta.agent.Process(context.Background()))
	last := terminal(t, events)

	if last.Type != EventDone {
		t.Fatalf("synthesis failures must not fail the turn: %v", last.Err)
	}
	for _, ev := range events {
		if ev.Type == EventAudioChunk {
			t.Error("no audio should be emitted when synthesis fails")
		}
	}
	if got := len(ta.store.History(context.Background(), "test-session")); got != 2 {
		t.Errorf("exchange should still be recorded, got %d turns", got)
	}
}

func TestProcessRetrievalFailureDegrades(t *testing.T) {
	ta := newTestAgent(t, "what do you know?", "Not much, honestly speaking today.")
	ta.retriever.QueryFunc = func(ctx context.Context, text string) (string, error) {
		return "", errors.New("vector store down")
	}
	ta.agent.AppendAudio(make([]byte, 1600))

	events := collect(t, ta.agent.Process(context.Background()))
	last := terminal(t, events)

	if last.Type != EventDone {
		t.Fatalf("retrieval failure must not fail the turn: %v", last.Err)
	}
	if last.Result.ContextUsed {
		t.Error("ContextUsed should be false when retrieval fails")
	}
}

func TestProcessIncludesRetrievedContext(t *testing.T) {
	var systemPrompt string
	ta := newTestAgent(t, "tell me about Go", "Go is a compiled language, yes.")
	ta.retriever.Context = "Go was announced in 2009."
	base := ta.llm.StreamFunc
	ta.llm.StreamFunc = func(ctx context.Context, req *inference.ChatRequest) (inference.Stream, error) {
		if len(req.Messages) > 0 && req.Messages[0].Role == inference.RoleSystem {
			systemPrompt = req.Messages[0].Content
		}
		return base(ctx, req)
	}
	ta.agent.AppendAudio(make([]byte, 1600))

	events := collect(t, ta.agent.Process(context.Background()))
	last := terminal(t, events)

	if last.Type != EventDone {
		t.Fatalf("turn failed: %v", last.Err)
	}
	if !last.Result.ContextUsed {
		t.Error("ContextUsed should be true when retrieval returns context")
	}
	if !strings.Contains(systemPrompt, "## Relevant Knowledge\nGo was announced in 2009.") {
		t.Errorf("retrieved context missing from system prompt:\n%s", systemPrompt)
	}
}

// Scenario A: a brand-new session has no memory and no knowledge, so the
// system prompt carries neither optional section.
func TestFreshSessionPromptHasNoContextSections(t *testing.T) {
	var systemPrompt string
	ta := newTestAgent(t, "hi there friend", "Hello! Nice to meet you today.")
	base := ta.llm.StreamFunc
	ta.llm.StreamFunc = func(ctx context.Context, req *inference.ChatRequest) (inference.Stream, error) {
		if len(req.Messages) > 0 && req.Messages[0].Role == inference.RoleSystem {
			systemPrompt = req.Messages[0].Content
		}
		return base(ctx, req)
	}
	ta.agent.AppendAudio(make([]byte, 1600))

	events := collect(t, ta.agent.Process(context.Background()))
	if last := terminal(t, events); last.Type != EventDone {
		t.Fatalf("turn failed: %v", last.Err)
	}

	if strings.Contains(systemPrompt, "## Conversation Memory") {
		t.Error("fresh session should have no memory section")
	}
	if strings.Contains(systemPrompt, "## Relevant Knowledge") {
		t.Error("fresh session should have no knowledge section")
	}
}

// Scenario C: once the recorded history reaches the summary threshold,
// completing a turn triggers exactly one summarization call.
func TestSummarizationTriggersAtThreshold(t *testing.T) {
	ta := newTestAgent(t, "and another thing", "Noted, that makes fifteen now.")

	// Pre-load 13 turns; the completed turn adds 2, reaching the
	// threshold of 15.
	ctx := context.Background()
	for i := 0; i < 13; i++ {
		role := memory.RoleUser
		if i%2 == 1 {
			role = memory.RoleAssistant
		}
		ta.store.Append(ctx, "test-session", role, "earlier chatter")
	}

	ta.agent.AppendAudio(make([]byte, 1600))
	events := collect(t, ta.agent.Process(ctx))
	if last := terminal(t, events); last.Type != EventDone {
		t.Fatalf("turn failed: %v", last.Err)
	}

	if got := ta.llm.CallCount("Chat"); got != 1 {
		t.Errorf("expected exactly one summarization call, got %d", got)
	}
	if got := ta.store.Summary(ctx, "test-session"); got == "" {
		t.Error("summary should be written at threshold")
	}
}

func TestProcessRejectsConcurrentTurns(t *testing.T) {
	ta := newTestAgent(t, "slow turn", "A leisurely reply, in due course.")
	release := make(chan struct{})
	ta.transcriber.TranscribeFunc = func(ctx context.Context, audio []byte, rate int) (*stt.Result, error) {
		<-release
		return &stt.Result{Text: "slow turn"}, nil
	}
	ta.agent.AppendAudio(make([]byte, 1600))

	first := ta.agent.Process(context.Background())

	second := collect(t, ta.agent.Process(context.Background()))
	if last := terminal(t, second); !errors.Is(last.Err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %+v", last)
	}

	close(release)
	if last := terminal(t, collect(t, first)); last.Type != EventDone {
		t.Fatalf("first turn should complete: %v", last.Err)
	}
}
