package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voicewire/go-voicewire/internal/log"
	"github.com/voicewire/go-voicewire/pkg/inference"
	"github.com/voicewire/go-voicewire/pkg/prompt"
)

// recentWindow is how many turns (3 exchanges) feed the context block.
const recentWindow = 6

// summaryTemperature keeps summarization output deterministic.
const summaryTemperature = 0.3

// Assembler produces memory context blocks and triggers summarization
// when a session's history grows past the configured threshold.
type Assembler struct {
	store     *Store
	provider  inference.Provider
	threshold int
	logger    *slog.Logger
}

// AssemblerOptions configures an Assembler.
type AssemblerOptions struct {
	// SummaryThreshold is the turn count at which MaybeSummarize condenses
	// the history. Zero or negative disables summarization.
	SummaryThreshold int

	Logger *slog.Logger
}

// NewAssembler creates a memory context assembler.
func NewAssembler(store *Store, provider inference.Provider, opts AssemblerOptions) *Assembler {
	if opts.Logger == nil {
		opts.Logger = log.L()
	}
	return &Assembler{
		store:     store,
		provider:  provider,
		threshold: opts.SummaryThreshold,
		logger:    opts.Logger.With("component", "memory.assembler"),
	}
}

// Context returns the memory context for a session: the previous summary
// (if any) followed by the most recent exchanges. Empty when the session
// has neither. Reading context never mutates session state.
func (a *Assembler) Context(ctx context.Context, sessionID string) string {
	summary := a.store.Summary(ctx, sessionID)
	history := a.store.History(ctx, sessionID)

	var parts []string

	if summary != "" {
		parts = append(parts, "Previous conversation summary:\n"+summary)
	}

	if len(history) > 0 {
		recent := history
		if len(recent) > recentWindow {
			recent = recent[len(recent)-recentWindow:]
		}
		lines := make([]string, 0, len(recent))
		for _, turn := range recent {
			label := "Assistant"
			if turn.Role == RoleUser {
				label = "User"
			}
			lines = append(lines, fmt.Sprintf("%s: %s", label, turn.Content))
		}
		parts = append(parts, "Recent exchanges:\n"+strings.Join(lines, "\n"))
	}

	return strings.Join(parts, "\n\n")
}

// MaybeSummarize condenses the session history into a summary once the turn
// count reaches the threshold. Below the threshold it is a no-op. Failures
// are logged and swallowed; the existing summary and history stay intact.
func (a *Assembler) MaybeSummarize(ctx context.Context, sessionID string) {
	if a.threshold <= 0 {
		return
	}

	history := a.store.History(ctx, sessionID)
	if len(history) < a.threshold {
		return
	}

	a.logger.Info("summarizing conversation", "session_id", sessionID, "turns", len(history))

	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", capitalize(turn.Role), turn.Content))
	}

	resp, err := a.provider.Chat(ctx, &inference.ChatRequest{
		Messages:    prompt.SummaryRequest(strings.Join(lines, "\n")),
		Temperature: summaryTemperature,
	})
	if err != nil {
		a.logger.Error("conversation summarization failed", "session_id", sessionID, "error", err)
		return
	}

	a.store.SetSummary(ctx, sessionID, resp.Message.Content)
	a.logger.Info("conversation summarized", "session_id", sessionID)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
