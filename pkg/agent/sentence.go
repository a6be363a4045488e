package agent

import "strings"

// minSentenceLen guards against synthesizing fragments like "Dr." or "1.".
const minSentenceLen = 10

// sentenceTerminators are the characters that end a speakable unit.
const sentenceTerminators = ".!?:;"

// isSentenceBoundary reports whether the accumulated text ends a speakable
// sentence: long enough to be worth synthesizing and terminated by
// sentence-ending punctuation.
func isSentenceBoundary(text string) bool {
	stripped := strings.TrimSpace(text)
	if len(stripped) <= minSentenceLen {
		return false
	}
	return strings.ContainsRune(sentenceTerminators, rune(stripped[len(stripped)-1]))
}
