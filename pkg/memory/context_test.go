package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/voicewire/go-voicewire/pkg/cache"
	"github.com/voicewire/go-voicewire/pkg/inference"
)

func newTestAssembler(t *testing.T, threshold int, provider inference.Provider) (*Assembler, *Store) {
	t.Helper()
	store := NewStore(cache.NewMemory(), StoreOptions{MaxTurns: 20, TTL: time.Hour})
	return NewAssembler(store, provider, AssemblerOptions{SummaryThreshold: threshold}), store
}

func TestContextEmptySession(t *testing.T) {
	asm, _ := newTestAssembler(t, 15, inference.NewMock())

	if got := asm.Context(context.Background(), "empty"); got != "" {
		t.Errorf("empty session should produce empty context, got %q", got)
	}
}

func TestContextSummaryAndRecent(t *testing.T) {
	ctx := context.Background()
	asm, store := newTestAssembler(t, 15, inference.NewMock())

	store.SetSummary(ctx, "s1", "user likes jazz")
	store.Append(ctx, "s1", RoleUser, "any recommendations?")
	store.Append(ctx, "s1", RoleAssistant, "Try Kind of Blue.")

	got := asm.Context(ctx, "s1")

	if !strings.Contains(got, "Previous conversation summary:\nuser likes jazz") {
		t.Errorf("summary block missing:\n%s", got)
	}
	if !strings.Contains(got, "Recent exchanges:\nUser: any recommendations?\nAssistant: Try Kind of Blue.") {
		t.Errorf("recent exchanges block missing or malformed:\n%s", got)
	}
	if parts := strings.Split(got, "\n\n"); len(parts) != 2 {
		t.Errorf("expected two blocks separated by a blank line:\n%s", got)
	}
}

func TestContextLimitsRecentExchanges(t *testing.T) {
	ctx := context.Background()
	asm, store := newTestAssembler(t, 100, inference.NewMock())

	for i := 0; i < 10; i++ {
		store.Append(ctx, "s1", RoleUser, fmt.Sprintf("msg %d", i))
	}

	got := asm.Context(ctx, "s1")
	if strings.Contains(got, "msg 3") {
		t.Error("turns beyond the recent window should not appear")
	}
	if !strings.Contains(got, "msg 4") || !strings.Contains(got, "msg 9") {
		t.Errorf("last six turns should appear:\n%s", got)
	}
}

func TestContextIsIdempotent(t *testing.T) {
	ctx := context.Background()
	asm, store := newTestAssembler(t, 15, inference.NewMock())

	store.Append(ctx, "s1", RoleUser, "hello")
	store.Append(ctx, "s1", RoleAssistant, "hi")

	first := asm.Context(ctx, "s1")
	second := asm.Context(ctx, "s1")
	if first != second {
		t.Errorf("repeated reads diverged:\nfirst:  %q\nsecond: %q", first, second)
	}
	if got := len(store.History(ctx, "s1")); got != 2 {
		t.Errorf("reading context mutated history: %d turns", got)
	}
}

func TestMaybeSummarizeBelowThreshold(t *testing.T) {
	ctx := context.Background()
	mock := inference.NewMock()
	asm, store := newTestAssembler(t, 15, mock)

	for i := 0; i < 14; i++ {
		store.Append(ctx, "s1", RoleUser, fmt.Sprintf("turn %d", i))
	}

	asm.MaybeSummarize(ctx, "s1")

	if got := mock.CallCount("Chat"); got != 0 {
		t.Errorf("below threshold should not call the model, got %d calls", got)
	}
	if got := store.Summary(ctx, "s1"); got != "" {
		t.Errorf("no summary should be written below threshold, got %q", got)
	}
}

func TestMaybeSummarizeAtThreshold(t *testing.T) {
	ctx := context.Background()
	mock := inference.NewMock()
	mock.ChatFunc = func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		if req.Temperature != 0.3 {
			t.Errorf("summary request temperature = %v, want 0.3", req.Temperature)
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "User: turn 0") {
			t.Error("summary prompt should flatten the full history")
		}
		return &inference.ChatResponse{Message: inference.NewAssistantMessage("condensed")}, nil
	}
	asm, store := newTestAssembler(t, 15, mock)

	for i := 0; i < 15; i++ {
		store.Append(ctx, "s1", RoleUser, fmt.Sprintf("turn %d", i))
	}

	asm.MaybeSummarize(ctx, "s1")

	if got := mock.CallCount("Chat"); got != 1 {
		t.Fatalf("expected exactly one model call at threshold, got %d", got)
	}
	if got := store.Summary(ctx, "s1"); got != "condensed" {
		t.Errorf("summary not written back: %q", got)
	}
}

func TestMaybeSummarizeSwallowsFailure(t *testing.T) {
	ctx := context.Background()
	mock := inference.NewMock()
	mock.ChatFunc = func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		return nil, errors.New("model offline")
	}
	asm, store := newTestAssembler(t, 5, mock)

	for i := 0; i < 6; i++ {
		store.Append(ctx, "s1", RoleUser, fmt.Sprintf("turn %d", i))
	}
	store.SetSummary(ctx, "s1", "existing")

	asm.MaybeSummarize(ctx, "s1")

	if got := store.Summary(ctx, "s1"); got != "existing" {
		t.Errorf("failed summarization must not clobber the summary, got %q", got)
	}
}
