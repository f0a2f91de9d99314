// Package tts provides the playback engine that speaks processed documents
// through a host speech synthesizer, one segment at a time.
package tts

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// EngineConfig holds configuration for the playback engine.
type EngineConfig struct {
	Rate          float64       // Initial user rate multiplier
	PersonalityID string        // Initial voice personality
	StallTimeout  time.Duration // Base watchdog timeout per utterance, 0 disables
	StallRetries  int           // Resubmissions before a stall is fatal
	Logger        *log.Logger
}

// DefaultEngineConfig returns a sensible default configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Rate:          1.0,
		PersonalityID: "en-emma",
		StallTimeout:  10 * time.Second,
		StallRetries:  1,
	}
}

// SpeakRequest describes a document to speak.
type SpeakRequest struct {
	Text               string
	StartFraction      float64 // 0 starts at the beginning
	AutoDetectLanguage bool
}

type listener struct {
	id int
	fn func(Event)
}

// Engine plays processed text through a Synthesizer. All methods are safe
// for concurrent use. Observers are called in order, outside the engine
// lock, so they may call back into the engine.
type Engine struct {
	synth     Synthesizer
	processor TextProcessor
	voices    VoiceSelector
	config    EngineConfig
	logger    *log.Logger

	mu      sync.Mutex
	machine *StateMachine

	// Document and position
	text  *ProcessedText
	index int

	// Voice
	rate        float64
	personality Personality
	pinned      *VoiceHandle
	voice       *VoiceHandle

	// In-flight bookkeeping
	utterance  string
	generation uint64
	attempts   int
	pauseTimer *time.Timer
	watchdog   *time.Timer

	playingSince time.Time
	listened     time.Duration

	// Observers
	listeners []listener
	nextID    int
	pending   []Event
	draining  bool

	closed bool
	done   chan struct{}
}

// NewEngine creates a playback engine. A nil synth yields an engine that
// reports ErrUnsupportedEnvironment on Speak.
func NewEngine(synth Synthesizer, processor TextProcessor, voices VoiceSelector, config EngineConfig) (*Engine, error) {
	if processor == nil || voices == nil {
		return nil, fmt.Errorf("%w: text processor and voice selector are required", ErrInvalidConfig)
	}

	personality, ok := voices.Personality(config.PersonalityID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPersonality, config.PersonalityID)
	}

	logger := config.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("tts")
	}

	e := &Engine{
		synth:       synth,
		processor:   processor,
		voices:      voices,
		config:      config,
		logger:      logger,
		machine:     NewStateMachine(),
		rate:        ClampRate(config.Rate),
		personality: personality,
		done:        make(chan struct{}),
	}

	e.setupStateMachine()

	if synth != nil {
		go e.run(synth.Events())
	}

	return e, nil
}

// IsSupported reports whether a synthesizer with at least one voice is
// attached.
func (e *Engine) IsSupported() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.supportedLocked()
}

// Speak replaces any current document with text and starts playing it.
func (e *Engine) Speak(req SpeakRequest) error {
	return e.locked(func() error {
		return e.speakLocked(req)
	})
}

// Pause interrupts the current segment. Resume restarts it from its
// beginning.
func (e *Engine) Pause() error {
	return e.locked(func() error {
		if state := e.machine.Current(); state != StatePlaying {
			return fmt.Errorf("%w: cannot pause while %s", ErrInvalidState, state)
		}
		e.haltLocked()
		return e.transitionLocked(StatePaused)
	})
}

// Resume continues playback from the start of the current segment.
func (e *Engine) Resume() error {
	return e.locked(func() error {
		if state := e.machine.Current(); state != StatePaused {
			return fmt.Errorf("%w: cannot resume while %s", ErrInvalidState, state)
		}
		if err := e.transitionLocked(StatePlaying); err != nil {
			return err
		}
		e.submitLocked()
		return nil
	})
}

// Stop halts playback and discards the current document.
func (e *Engine) Stop() error {
	return e.locked(func() error {
		e.haltLocked()
		e.text = nil
		e.index = 0
		if e.machine.Current() == StateIdle {
			e.emitSnapshotLocked()
			return nil
		}
		return e.transitionLocked(StateIdle)
	})
}

// SeekTo moves to the segment at fraction of the document. Playback
// continues from there unless paused.
func (e *Engine) SeekTo(fraction float64) error {
	return e.locked(func() error {
		return e.seekLocked(fraction)
	})
}

// SkipForward moves ahead by roughly d of estimated speaking time.
func (e *Engine) SkipForward(d time.Duration) error {
	return e.skip(d)
}

// SkipBackward moves back by roughly d of estimated speaking time.
func (e *Engine) SkipBackward(d time.Duration) error {
	return e.skip(-d)
}

// SetRate changes the user rate multiplier, clamped to [MinRate, MaxRate].
// A segment being spoken restarts at the new rate.
func (e *Engine) SetRate(rate float64) error {
	return e.locked(func() error {
		e.rate = ClampRate(rate)
		if e.machine.Current() == StatePlaying && e.utterance != "" {
			e.haltLocked()
			e.submitLocked()
		}
		e.emitSnapshotLocked()
		return nil
	})
}

// SetPersonality selects a catalog personality for the next submission
// and clears any voice set with SetVoiceDirectly.
func (e *Engine) SetPersonality(id string) error {
	return e.locked(func() error {
		p, ok := e.voices.Personality(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPersonality, id)
		}
		e.personality = p
		e.pinned = nil
		e.emitSnapshotLocked()
		return nil
	})
}

// SetVoiceDirectly pins a host voice for every following submission.
func (e *Engine) SetVoiceDirectly(voice VoiceHandle) error {
	return e.locked(func() error {
		e.pinned = &voice
		e.emitSnapshotLocked()
		return nil
	})
}

// Personality returns the active personality.
func (e *Engine) Personality() Personality {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.personality
}

// Snapshot returns the current playback state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Subscribe registers fn for every engine event and returns a function
// that removes it.
func (e *Engine) Subscribe(fn func(Event)) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners = append(e.listeners, listener{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			for i, l := range e.listeners {
				if l.id == id {
					e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Close cancels playback and stops processing synthesizer events.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.haltLocked()
	e.closed = true
	close(e.done)
	e.logger.Debug("engine closed")
	return nil
}

// Private helper methods

func (e *Engine) setupStateMachine() {
	e.machine.OnEnter(StatePlaying, func() {
		e.playingSince = time.Now()
	})

	e.machine.OnExit(StatePlaying, func() {
		if !e.playingSince.IsZero() {
			e.listened += time.Since(e.playingSince)
			e.playingSince = time.Time{}
		}
	})
}

func (e *Engine) run(events <-chan SynthesisEvent) {
	for {
		select {
		case <-e.done:
			return
		case ev, ok := <-events:
			if !ok {
				e.logger.Debug("synthesizer event stream closed")
				return
			}
			e.handleEvent(ev)
		}
	}
}

// locked runs fn under the engine lock and then delivers queued events.
func (e *Engine) locked(fn func() error) error {
	e.mu.Lock()
	var err error
	if e.closed {
		err = ErrEngineClosed
	} else {
		err = fn()
	}
	e.mu.Unlock()
	e.flush()
	return err
}

func (e *Engine) supportedLocked() bool {
	return e.synth != nil && len(e.synth.Voices()) > 0
}

func (e *Engine) speakLocked(req SpeakRequest) error {
	if !e.supportedLocked() {
		return NewTTSError(ErrUnsupportedEnvironment, "engine", "speak").WithSeverity(SeverityCritical)
	}

	e.haltLocked()
	e.text = nil
	e.index = 0
	if err := e.transitionLocked(StatePreparing); err != nil {
		return err
	}
	e.listened = 0

	lang := e.personality.Language
	if req.AutoDetectLanguage {
		lang = ""
	}

	processed := e.processor.Process(req.Text, lang)
	if len(processed.Segments) == 0 {
		_ = e.transitionLocked(StateIdle)
		return ErrNoSpeakableText
	}
	e.text = &processed

	if req.AutoDetectLanguage {
		e.queue(LanguageDetectedEvent{Language: processed.Language, Confidence: processed.Confidence})
		if processed.Language != "" && processed.Language != e.personality.Language {
			prev := e.personality.ID
			e.personality = e.voices.Match(processed.Language, e.personality)
			e.logger.Debug("switched personality", "from", prev, "to", e.personality.ID, "language", processed.Language)
		}
	}

	e.index = IndexForFraction(req.StartFraction, len(processed.Segments))
	e.logger.Debug("speaking document",
		"segments", len(processed.Segments),
		"words", processed.Metadata.WordCount,
		"start", e.index,
	)

	if err := e.transitionLocked(StatePlaying); err != nil {
		return err
	}
	e.submitLocked()
	return nil
}

func (e *Engine) seekLocked(fraction float64) error {
	if e.text == nil {
		return ErrNothingLoaded
	}

	e.haltLocked()
	e.index = IndexForFraction(fraction, len(e.text.Segments))

	switch e.machine.Current() {
	case StatePaused:
		e.emitSnapshotLocked()
	case StateCompleted:
		if err := e.transitionLocked(StatePlaying); err != nil {
			return err
		}
		e.submitLocked()
	default:
		e.emitSnapshotLocked()
		e.submitLocked()
	}
	return nil
}

func (e *Engine) skip(d time.Duration) error {
	return e.locked(func() error {
		if e.text == nil {
			return ErrNothingLoaded
		}
		current := float64(e.index) / float64(len(e.text.Segments))
		total := e.text.Metadata.EstimatedDuration
		if total <= 0 {
			return e.seekLocked(current)
		}
		return e.seekLocked(current + float64(d)/float64(total))
	})
}

// submitLocked sends the current segment to the synthesizer.
func (e *Engine) submitLocked() {
	seg := e.text.Segments[e.index]
	e.voice = e.voices.Select(e.synth.Voices(), e.personality, e.pinned)
	rate, pitch := Prosody(seg, e.personality, e.rate)

	id := uuid.NewString()
	e.utterance = id

	err := e.synth.Submit(Utterance{
		ID:       id,
		Text:     seg.Text,
		Voice:    e.voice,
		Language: e.text.Language,
		Rate:     rate,
		Pitch:    pitch,
	})
	if err != nil {
		e.utterance = ""
		e.failLocked(NewTTSError(fmt.Errorf("%w: %v", ErrSynthesisFailure, err), "engine", "submit").
			WithContext("segment", e.index))
		return
	}

	e.armWatchdogLocked(id, seg, rate)
	e.logger.Debug("submitted segment", "index", e.index, "id", id, "rate", rate, "pitch", pitch)
}

// haltLocked cancels the utterance in flight and invalidates pending
// timers.
func (e *Engine) haltLocked() {
	e.generation++
	e.attempts = 0
	if e.pauseTimer != nil {
		e.pauseTimer.Stop()
		e.pauseTimer = nil
	}
	e.stopWatchdogLocked()
	if e.utterance != "" {
		e.utterance = ""
		if err := e.synth.Cancel(); err != nil {
			e.logger.Warn("unable to cancel utterance", "err", err)
		}
	}
}

func (e *Engine) failLocked(err error) {
	e.haltLocked()
	e.text = nil
	e.index = 0
	e.logger.Error("playback failed", "err", err)

	if terr := e.transitionLocked(StateError); terr != nil {
		e.logger.Warn("unable to enter error state", "err", terr)
	}
	e.queue(FailedEvent{Err: err, Recoverable: IsRecoverableError(err)})
	if terr := e.transitionLocked(StateIdle); terr != nil {
		e.logger.Warn("unable to recover to idle", "err", terr)
	}
}

func (e *Engine) handleEvent(ev SynthesisEvent) {
	e.mu.Lock()
	if !e.closed {
		e.handleEventLocked(ev)
	}
	e.mu.Unlock()
	e.flush()
}

func (e *Engine) handleEventLocked(ev SynthesisEvent) {
	if ev.Kind == VoicesChanged {
		count := 0
		if e.synth != nil {
			count = len(e.synth.Voices())
		}
		e.queue(VoicesLoadedEvent{Count: count})
		return
	}

	if ev.UtteranceID == "" || ev.UtteranceID != e.utterance {
		e.logger.Debug("ignoring stale synthesis event", "id", ev.UtteranceID, "kind", ev.Kind)
		return
	}

	switch ev.Kind {
	case SynthesisStarted:
		e.emitSnapshotLocked()
	case SynthesisEnded:
		e.finishSegmentLocked()
	case SynthesisFailed:
		if IsTransientCode(ev.Code) {
			e.logger.Debug("ignoring transient synthesis error", "code", ev.Code)
			return
		}
		e.utterance = ""
		e.failLocked(NewTTSError(&SynthesisError{UtteranceID: ev.UtteranceID, Code: ev.Code}, "synthesizer", "speak").
			WithContext("segment", e.index))
	}
}

func (e *Engine) finishSegmentLocked() {
	e.stopWatchdogLocked()
	e.utterance = ""
	e.attempts = 0

	seg := e.text.Segments[e.index]
	e.index++

	if e.index >= len(e.text.Segments) {
		e.index = len(e.text.Segments)
		_ = e.transitionLocked(StateCompleted)
		e.queue(CompletedEvent{Snapshot: e.snapshotLocked()})
		e.logger.Debug("playback completed")
		return
	}

	e.emitSnapshotLocked()

	if seg.PauseAfterMs <= 0 {
		e.submitLocked()
		return
	}

	gen := e.generation
	e.pauseTimer = time.AfterFunc(seg.Pause(), func() {
		e.afterPause(gen)
	})
}

func (e *Engine) afterPause(gen uint64) {
	e.mu.Lock()
	if !e.closed && gen == e.generation && e.machine.Current() == StatePlaying && e.text != nil && e.utterance == "" {
		e.pauseTimer = nil
		e.submitLocked()
	}
	e.mu.Unlock()
	e.flush()
}

func (e *Engine) armWatchdogLocked(id string, seg Segment, rate float64) {
	e.stopWatchdogLocked()
	if e.config.StallTimeout <= 0 {
		return
	}
	if rate <= 0 {
		rate = 1
	}
	timeout := e.config.StallTimeout + time.Duration(3*float64(seg.EstimatedDuration())/rate)
	e.watchdog = time.AfterFunc(timeout, func() {
		e.onStall(id)
	})
}

func (e *Engine) stopWatchdogLocked() {
	if e.watchdog != nil {
		e.watchdog.Stop()
		e.watchdog = nil
	}
}

func (e *Engine) onStall(id string) {
	e.mu.Lock()
	if !e.closed && id == e.utterance {
		e.watchdog = nil
		e.utterance = ""
		e.attempts++
		if err := e.synth.Cancel(); err != nil {
			e.logger.Warn("unable to cancel stalled utterance", "err", err)
		}

		if e.attempts <= e.config.StallRetries {
			e.logger.Warn("synthesis stalled, resubmitting", "index", e.index, "attempt", e.attempts)
			e.submitLocked()
		} else {
			e.failLocked(NewTTSError(ErrSynthesisStalled, "engine", "watchdog").
				WithContext("segment", e.index).
				WithContext("attempts", e.attempts))
		}
	}
	e.mu.Unlock()
	e.flush()
}

func (e *Engine) transitionLocked(to StateType) error {
	from := e.machine.Current()
	if from == to {
		return nil
	}
	if !e.machine.Transition(to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidState, from, to)
	}
	e.logger.Debug("state transition", "from", from, "to", to)
	e.emitSnapshotLocked()
	return nil
}

func (e *Engine) snapshotLocked() Snapshot {
	state := e.machine.Current()
	s := Snapshot{
		State:         state,
		IsPlaying:     state == StatePlaying,
		IsPaused:      state == StatePaused,
		Rate:          e.rate,
		PersonalityID: e.personality.ID,
		Listened:      e.listened,
	}
	if !e.playingSince.IsZero() {
		s.Listened += time.Since(e.playingSince)
	}

	// A pinned voice is used for the next submission, so report it at once.
	switch {
	case e.pinned != nil:
		s.CurrentVoiceName = e.pinned.Name
	case e.voice != nil:
		s.CurrentVoiceName = e.voice.Name
	}

	if e.text != nil {
		n := len(e.text.Segments)
		s.Index = e.index
		s.SegmentCount = n
		s.TotalTime = e.text.Metadata.EstimatedDuration
		s.Fraction = float64(e.index) / float64(n)
		s.CurrentTime = time.Duration(s.Fraction * float64(s.TotalTime))
		if e.index < n {
			s.CurrentSegmentText = e.text.Segments[e.index].Text
		}
		s.DetectedLanguage = e.text.Language
		s.Confidence = e.text.Confidence
	}

	return s
}

func (e *Engine) emitSnapshotLocked() {
	e.queue(StateChangedEvent{Snapshot: e.snapshotLocked()})
}

func (e *Engine) queue(ev Event) {
	e.pending = append(e.pending, ev)
}

// flush delivers queued events in order. Only one goroutine drains at a
// time; events queued by nested calls are picked up by the active drainer.
func (e *Engine) flush() {
	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()
		return
	}
	e.draining = true
	for len(e.pending) > 0 {
		ev := e.pending[0]
		e.pending = e.pending[1:]
		listeners := make([]listener, len(e.listeners))
		copy(listeners, e.listeners)
		e.mu.Unlock()

		for _, l := range listeners {
			l.fn(ev)
		}

		e.mu.Lock()
	}
	e.draining = false
	e.mu.Unlock()
}
