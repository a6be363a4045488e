// Package prompt assembles chat messages for the voice pipeline.
package prompt

import (
	"fmt"
	"strings"

	"github.com/voicewire/go-voicewire/pkg/inference"
)

// historyWindow caps how many prior turns are sent with each request.
const historyWindow = 20

const systemTemplate = `You are a helpful, conversational AI voice assistant. You are friendly, concise, and clear.

Key guidelines:
- Keep responses conversational and relatively brief (2-4 sentences when possible)
- Avoid markdown formatting, bullet points, or special characters that don't translate well to speech
- Speak naturally as if in conversation
- When referencing context from memory or documents, integrate it naturally
- If you don't know something, say so clearly
- Always be helpful and friendly

%s
%s`

const summaryTemplate = `Summarize the following conversation history concisely, preserving key facts, preferences, and context that would be useful for future interactions:

%s

Summary:`

// System builds the system prompt. The memory and knowledge sections are
// omitted entirely when their context strings are empty.
func System(memoryContext, ragContext string) string {
	var memorySection string
	if memoryContext != "" {
		memorySection = fmt.Sprintf("\n## Conversation Memory\n%s\n", memoryContext)
	}

	var ragSection string
	if ragContext != "" {
		ragSection = fmt.Sprintf("\n## Relevant Knowledge\n%s\n", ragContext)
	}

	return strings.TrimSpace(fmt.Sprintf(systemTemplate, memorySection, ragSection))
}

// Messages builds the chat request messages: system prompt, the most recent
// history turns, then the current user message.
func Messages(history []inference.Message, userMessage, system string) []inference.Message {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	messages := make([]inference.Message, 0, len(history)+2)
	messages = append(messages, inference.NewSystemMessage(system))
	messages = append(messages, history...)
	messages = append(messages, inference.NewUserMessage(userMessage))
	return messages
}

// SummaryRequest builds the single-message request used to condense a
// conversation transcript into a durable summary.
func SummaryRequest(conversation string) []inference.Message {
	return []inference.Message{
		inference.NewUserMessage(fmt.Sprintf(summaryTemplate, conversation)),
	}
}
