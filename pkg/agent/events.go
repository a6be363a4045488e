package agent

// EventType identifies the kind of pipeline event.
type EventType string

// Pipeline event types, in the order they typically occur.
const (
	// EventTranscript carries the final transcript of the user's audio.
	EventTranscript EventType = "transcript"

	// EventTextDelta carries an incremental piece of the response text.
	EventTextDelta EventType = "text_delta"

	// EventAudioChunk carries a chunk of synthesized response audio.
	EventAudioChunk EventType = "audio_chunk"

	// EventError carries a fatal pipeline error. It is terminal.
	EventError EventType = "error"

	// EventDone carries the completed turn result. It is terminal.
	EventDone EventType = "done"
)

// Event is one item in a turn's event stream. Exactly one payload field is
// set, matching Type. A stream ends with a single EventError or EventDone,
// after which the channel is closed.
type Event struct {
	Type EventType

	// Transcript is set for EventTranscript.
	Transcript string

	// Text is set for EventTextDelta.
	Text string

	// Audio and SampleRate are set for EventAudioChunk.
	Audio      []byte
	SampleRate int

	// Err is set for EventError.
	Err error

	// Result is set for EventDone.
	Result *Result
}

// Result is the outcome of a completed turn.
type Result struct {
	// Transcript is the recognized user speech.
	Transcript string

	// Response is the full assistant response text.
	Response string

	// ContextUsed reports whether retrieved knowledge was included in the
	// prompt for this turn.
	ContextUsed bool
}
