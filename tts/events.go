package tts

// Event is delivered to subscribers of an Engine.
type Event interface {
	eventName() string
}

// StateChangedEvent indicates the playback snapshot has changed.
type StateChangedEvent struct {
	Snapshot Snapshot
}

// CompletedEvent indicates the last segment finished.
type CompletedEvent struct {
	Snapshot Snapshot
}

// FailedEvent indicates a fatal error. The engine is Idle afterwards.
type FailedEvent struct {
	Err         error
	Recoverable bool
}

// VoicesLoadedEvent indicates the host voice list changed.
type VoicesLoadedEvent struct {
	Count int
}

// LanguageDetectedEvent reports the outcome of language detection.
type LanguageDetectedEvent struct {
	Language   Language
	Confidence float64
}

func (StateChangedEvent) eventName() string     { return "state-changed" }
func (CompletedEvent) eventName() string        { return "completed" }
func (FailedEvent) eventName() string           { return "failed" }
func (VoicesLoadedEvent) eventName() string     { return "voices-loaded" }
func (LanguageDetectedEvent) eventName() string { return "language-detected" }

// EventName returns a short name for logging.
func EventName(ev Event) string {
	if ev == nil {
		return ""
	}
	return ev.eventName()
}
