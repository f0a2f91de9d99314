package tts

// Synthesizer is the host speech capability. Implementations speak one
// utterance at a time and report progress on the Events channel.
type Synthesizer interface {
	// Submit starts speaking the utterance.
	Submit(u Utterance) error

	// Cancel interrupts the current utterance, if any.
	Cancel() error

	// Voices returns the voices currently available on the host.
	Voices() []VoiceHandle

	// Events delivers start, end, error and voices-changed notifications.
	Events() <-chan SynthesisEvent
}

// TextProcessor turns raw document text into speakable segments.
type TextProcessor interface {
	// Process cleans, expands and segments text. An empty lang requests
	// language detection.
	Process(text string, lang Language) ProcessedText
}

// VoiceSelector maps personalities onto host voices.
type VoiceSelector interface {
	// Personality looks up a catalog entry by id.
	Personality(id string) (Personality, bool)

	// Match returns the personality for lang closest to like.
	Match(lang Language, like Personality) Personality

	// Select picks a host voice. A non-nil pinned voice always wins.
	Select(voices []VoiceHandle, p Personality, pinned *VoiceHandle) *VoiceHandle
}

// Utterance is a single submission to the synthesizer.
type Utterance struct {
	ID       string       // Unique per submission
	Text     string       // Text to speak
	Voice    *VoiceHandle // Nil lets the host choose
	Language Language     // Document language
	Rate     float64      // 1.0 is the voice default
	Pitch    float64      // 1.0 is the voice default
}

// SynthesisEventKind enumerates synthesizer notifications.
type SynthesisEventKind int

const (
	// SynthesisStarted fires when audio for an utterance begins.
	SynthesisStarted SynthesisEventKind = iota
	// SynthesisEnded fires when an utterance finished naturally.
	SynthesisEnded
	// SynthesisFailed fires when an utterance ended with an error code.
	SynthesisFailed
	// VoicesChanged fires when the host voice list changed.
	VoicesChanged
)

// String returns the string representation of the event kind.
func (k SynthesisEventKind) String() string {
	switch k {
	case SynthesisStarted:
		return "started"
	case SynthesisEnded:
		return "ended"
	case SynthesisFailed:
		return "failed"
	case VoicesChanged:
		return "voices-changed"
	default:
		return "unknown"
	}
}

// Error codes reported by synthesizers when an utterance is cut short by
// a cancel. They are never fatal.
const (
	CodeCanceled    = "canceled"
	CodeInterrupted = "interrupted"
)

// SynthesisEvent is a notification from the synthesizer.
type SynthesisEvent struct {
	UtteranceID string
	Kind        SynthesisEventKind
	Code        string // Error code for SynthesisFailed
}
