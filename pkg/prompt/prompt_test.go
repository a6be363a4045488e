package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/voicewire/go-voicewire/pkg/inference"
)

func TestSystemOmitsEmptySections(t *testing.T) {
	got := System("", "")

	if strings.Contains(got, "## Conversation Memory") {
		t.Error("empty memory context should omit the memory section")
	}
	if strings.Contains(got, "## Relevant Knowledge") {
		t.Error("empty rag context should omit the knowledge section")
	}
	if !strings.Contains(got, "voice assistant") {
		t.Error("base system prompt missing")
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("system prompt should be trimmed")
	}
}

func TestSystemIncludesSections(t *testing.T) {
	got := System("User's name is Ada.", "Go 1.25 was released in 2025.")

	if !strings.Contains(got, "## Conversation Memory\nUser's name is Ada.") {
		t.Errorf("memory section missing or malformed:\n%s", got)
	}
	if !strings.Contains(got, "## Relevant Knowledge\nGo 1.25 was released in 2025.") {
		t.Errorf("knowledge section missing or malformed:\n%s", got)
	}
}

func TestSystemMemoryOnly(t *testing.T) {
	got := System("Prefers short answers.", "")

	if !strings.Contains(got, "## Conversation Memory") {
		t.Error("memory section missing")
	}
	if strings.Contains(got, "## Relevant Knowledge") {
		t.Error("knowledge section should be omitted")
	}
}

func TestMessagesOrder(t *testing.T) {
	history := []inference.Message{
		inference.NewUserMessage("hi"),
		inference.NewAssistantMessage("hello"),
	}

	msgs := Messages(history, "what's up?", "system text")

	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[0].Role != inference.RoleSystem || msgs[0].Content != "system text" {
		t.Errorf("first message should be system, got %+v", msgs[0])
	}
	if msgs[1].Content != "hi" || msgs[2].Content != "hello" {
		t.Error("history order not preserved")
	}
	if msgs[3].Role != inference.RoleUser || msgs[3].Content != "what's up?" {
		t.Errorf("last message should be the user turn, got %+v", msgs[3])
	}
}

func TestMessagesTrimsHistory(t *testing.T) {
	var history []inference.Message
	for i := 0; i < 30; i++ {
		history = append(history, inference.NewUserMessage(fmt.Sprintf("turn %d", i)))
	}

	msgs := Messages(history, "latest", "sys")

	// system + 20 history + user
	if len(msgs) != 22 {
		t.Fatalf("expected 22 messages, got %d", len(msgs))
	}
	if msgs[1].Content != "turn 10" {
		t.Errorf("expected oldest kept turn to be 'turn 10', got %q", msgs[1].Content)
	}
}

func TestSummaryRequest(t *testing.T) {
	msgs := SummaryRequest("User: hi\nAssistant: hello")

	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Role != inference.RoleUser {
		t.Errorf("summary request should be a user message, got %s", msgs[0].Role)
	}
	if !strings.Contains(msgs[0].Content, "User: hi\nAssistant: hello") {
		t.Error("conversation transcript missing from summary prompt")
	}
	if !strings.Contains(msgs[0].Content, "Summarize the following conversation") {
		t.Error("summary instruction missing")
	}
}
