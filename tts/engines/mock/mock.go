// Package mock provides a silent synthesizer for tests and dry runs.
package mock

import (
	"strings"
	"sync"
	"time"

	"github.com/keczkasz/studywave/tts"
)

const eventBuffer = 1024

// Synthesizer implements tts.Synthesizer without producing audio. In
// manual mode tests drive utterances with Start, Finish and Fail. In
// paced mode every submission starts after the configured delay and ends
// after its estimated speaking time.
type Synthesizer struct {
	mu     sync.Mutex
	events chan tts.SynthesisEvent
	voices []tts.VoiceHandle

	// Paced mode
	paced   bool
	wpm     int
	speedup float64
	delay   time.Duration
	stop    chan struct{}

	// Control for testing
	shouldFail   bool
	failureError error

	// State
	current     string
	submissions []tts.Utterance
	callCount   int
	cancelCount int
	closed      bool
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// DefaultVoices is the voice list reported by new synthesizers.
func DefaultVoices() []tts.VoiceHandle {
	return []tts.VoiceHandle{
		{ID: "mock-en-female", Name: "Mock Emma", Language: "en-US", Gender: tts.GenderFemale, Default: true},
		{ID: "mock-en-male", Name: "Mock James", Language: "en-GB", Gender: tts.GenderMale},
		{ID: "mock-pl-female", Name: "Mock Zofia", Language: "pl-PL", Gender: tts.GenderFemale},
		{ID: "mock-pl-male", Name: "Mock Jan", Language: "pl-PL", Gender: tts.GenderMale},
	}
}

// New creates a manual mock synthesizer.
func New() *Synthesizer {
	return &Synthesizer{
		events: make(chan tts.SynthesisEvent, eventBuffer),
		voices: DefaultVoices(),
	}
}

// NewPaced creates a mock synthesizer that plays utterances on its own,
// speaking at cfg.WordsPerMinute sped up by cfg.Speedup.
func NewPaced(cfg tts.MockConfig) *Synthesizer {
	s := New()
	s.paced = true
	s.wpm = cfg.WordsPerMinute
	if s.wpm <= 0 {
		s.wpm = tts.WordsPerMinute
	}
	s.speedup = cfg.Speedup
	if s.speedup < 1 {
		s.speedup = 1
	}
	s.delay = 10 * time.Millisecond
	return s
}

// Submit records the utterance and, in paced mode, starts playing it.
func (s *Synthesizer) Submit(u tts.Utterance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	if s.shouldFail {
		return s.failureError
	}

	s.stopPlaybackLocked()
	s.current = u.ID
	s.submissions = append(s.submissions, u)

	if s.paced {
		s.stop = make(chan struct{})
		go s.play(u, s.stop, s.delay, s.durationOf(u))
	}
	return nil
}

// Cancel interrupts the current utterance and reports it as canceled.
func (s *Synthesizer) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelCount++
	s.stopPlaybackLocked()
	if s.current != "" {
		s.emitLocked(tts.SynthesisEvent{UtteranceID: s.current, Kind: tts.SynthesisFailed, Code: tts.CodeCanceled})
		s.current = ""
	}
	return nil
}

// Voices returns the current voice list.
func (s *Synthesizer) Voices() []tts.VoiceHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tts.VoiceHandle(nil), s.voices...)
}

// Events returns the notification channel.
func (s *Synthesizer) Events() <-chan tts.SynthesisEvent {
	return s.events
}

// Close stops playback and closes the event channel.
func (s *Synthesizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.stopPlaybackLocked()
	s.closed = true
	close(s.events)
	return nil
}

// Test control methods

// Start reports that utterance id began speaking.
func (s *Synthesizer) Start(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(tts.SynthesisEvent{UtteranceID: id, Kind: tts.SynthesisStarted})
}

// Finish reports that utterance id ended naturally.
func (s *Synthesizer) Finish(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == id {
		s.current = ""
	}
	s.emitLocked(tts.SynthesisEvent{UtteranceID: id, Kind: tts.SynthesisEnded})
}

// Fail reports that utterance id ended with code.
func (s *Synthesizer) Fail(id, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == id {
		s.current = ""
	}
	s.emitLocked(tts.SynthesisEvent{UtteranceID: id, Kind: tts.SynthesisFailed, Code: code})
}

// SetVoices replaces the voice list and reports the change.
func (s *Synthesizer) SetVoices(voices []tts.VoiceHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voices = append([]tts.VoiceHandle(nil), voices...)
	s.emitLocked(tts.SynthesisEvent{Kind: tts.VoicesChanged})
}

// SetDelay sets how long paced utterances wait before starting.
func (s *Synthesizer) SetDelay(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = delay
}

// SetFailure makes every following Submit return err.
func (s *Synthesizer) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFail = true
	s.failureError = err
}

// ClearFailure resets the synthesizer to normal operation.
func (s *Synthesizer) ClearFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFail = false
	s.failureError = nil
}

// GetCallCount returns the number of Submit calls.
func (s *Synthesizer) GetCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

// CancelCount returns the number of Cancel calls.
func (s *Synthesizer) CancelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelCount
}

// Submissions returns every accepted utterance in order.
func (s *Synthesizer) Submissions() []tts.Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tts.Utterance(nil), s.submissions...)
}

// Last returns the most recent accepted utterance.
func (s *Synthesizer) Last() (tts.Utterance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.submissions) == 0 {
		return tts.Utterance{}, false
	}
	return s.submissions[len(s.submissions)-1], true
}

// Current returns the id of the utterance in flight, or "".
func (s *Synthesizer) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Private helper methods

func (s *Synthesizer) play(u tts.Utterance, stop <-chan struct{}, delay, duration time.Duration) {
	select {
	case <-stop:
		return
	case <-time.After(delay):
	}

	s.mu.Lock()
	if s.current != u.ID {
		s.mu.Unlock()
		return
	}
	s.emitLocked(tts.SynthesisEvent{UtteranceID: u.ID, Kind: tts.SynthesisStarted})
	s.mu.Unlock()

	select {
	case <-stop:
		return
	case <-time.After(duration):
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != u.ID {
		return
	}
	s.current = ""
	s.emitLocked(tts.SynthesisEvent{UtteranceID: u.ID, Kind: tts.SynthesisEnded})
}

func (s *Synthesizer) durationOf(u tts.Utterance) time.Duration {
	words := len(strings.Fields(u.Text))
	if words == 0 {
		words = 1
	}
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	minutes := float64(words) / float64(s.wpm) / rate / s.speedup
	return time.Duration(minutes * float64(time.Minute))
}

func (s *Synthesizer) stopPlaybackLocked() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// emitLocked never blocks; events beyond the buffer are dropped.
func (s *Synthesizer) emitLocked(ev tts.SynthesisEvent) {
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}
