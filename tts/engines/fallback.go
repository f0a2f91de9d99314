// Package engines provides synthesizer decorators shared by the speech
// engines.
package engines

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/keczkasz/studywave/tts"
)

const eventBuffer = 1024

// Host is a synthesizer that owns external resources.
type Host interface {
	tts.Synthesizer
	Close() error
}

// Fallback wraps a primary synthesizer with automatic fallback to a
// secondary one when the primary fails consistently.
type Fallback struct {
	primary     Host
	fallback    Host
	maxFailures int
	logger      *log.Logger

	mu            sync.Mutex
	failures      int
	usingFallback bool
	inflight      *tts.Utterance
	closed        bool

	events chan tts.SynthesisEvent
	done   chan struct{}
	wg     sync.WaitGroup
}

var _ Host = (*Fallback)(nil)

// NewFallback creates a synthesizer that switches from primary to
// fallback after maxFailures consecutive non-transient failures. The
// utterance in flight when the switch happens is spoken again by the
// fallback.
func NewFallback(primary, fallback Host, maxFailures int, logger *log.Logger) *Fallback {
	if maxFailures < 1 {
		maxFailures = 1
	}
	if logger == nil {
		logger = log.Default()
	}

	f := &Fallback{
		primary:     primary,
		fallback:    fallback,
		maxFailures: maxFailures,
		logger:      logger,
		events:      make(chan tts.SynthesisEvent, eventBuffer),
		done:        make(chan struct{}),
	}

	f.wg.Add(2)
	go f.forward(primary.Events(), true)
	go f.forward(fallback.Events(), false)
	return f
}

// Submit speaks u on the active synthesizer. A primary that refuses the
// submission counts as a failure.
func (f *Fallback) Submit(u tts.Utterance) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return tts.ErrEngineClosed
	}
	f.inflight = &u
	usingFallback := f.usingFallback
	f.mu.Unlock()

	if usingFallback {
		return f.fallback.Submit(f.adapt(u))
	}

	err := f.primary.Submit(u)
	if err == nil {
		return nil
	}

	f.mu.Lock()
	switched := f.failLocked(err)
	if switched && !f.closed {
		select {
		case f.events <- tts.SynthesisEvent{Kind: tts.VoicesChanged}:
		default:
		}
	}
	f.mu.Unlock()
	if !switched {
		return err
	}
	return f.fallback.Submit(f.adapt(u))
}

// Cancel interrupts the active synthesizer.
func (f *Fallback) Cancel() error {
	f.mu.Lock()
	f.inflight = nil
	active := f.activeLocked()
	f.mu.Unlock()
	return active.Cancel()
}

// Voices returns the voices of the active synthesizer.
func (f *Fallback) Voices() []tts.VoiceHandle {
	f.mu.Lock()
	active := f.activeLocked()
	f.mu.Unlock()
	return active.Voices()
}

// Events merges the notifications of the active synthesizer.
func (f *Fallback) Events() <-chan tts.SynthesisEvent {
	return f.events
}

// UsingFallback reports whether the fallback synthesizer is active.
func (f *Fallback) UsingFallback() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usingFallback
}

// Failures returns the current run of primary failures.
func (f *Fallback) Failures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures
}

// Close closes both synthesizers and the merged event channel.
func (f *Fallback) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.done)
	f.mu.Unlock()

	err := errors.Join(f.primary.Close(), f.fallback.Close())
	f.wg.Wait()

	f.mu.Lock()
	close(f.events)
	f.mu.Unlock()
	return err
}

// Private helper methods

func (f *Fallback) activeLocked() Host {
	if f.usingFallback {
		return f.fallback
	}
	return f.primary
}

// failLocked records a primary failure and reports whether it caused the
// switch to the fallback.
func (f *Fallback) failLocked(cause any) bool {
	if f.usingFallback {
		return false
	}
	f.failures++
	f.logger.Warn("primary synthesizer failed", "attempt", f.failures, "max", f.maxFailures, "cause", cause)
	if f.failures < f.maxFailures {
		return false
	}
	f.usingFallback = true
	f.logger.Warn("switching to fallback synthesizer", "failures", f.failures)
	return true
}

// adapt drops a voice handle the fallback does not know.
func (f *Fallback) adapt(u tts.Utterance) tts.Utterance {
	if u.Voice == nil {
		return u
	}
	for _, v := range f.fallback.Voices() {
		if v.ID == u.Voice.ID {
			return u
		}
	}
	u.Voice = nil
	return u
}

func (f *Fallback) forward(events <-chan tts.SynthesisEvent, fromPrimary bool) {
	defer f.wg.Done()
	for {
		select {
		case <-f.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			f.handle(ev, fromPrimary)
		}
	}
}

func (f *Fallback) handle(ev tts.SynthesisEvent, fromPrimary bool) {
	f.mu.Lock()
	if f.closed || fromPrimary == f.usingFallback {
		// Inactive synthesizer
		f.mu.Unlock()
		return
	}

	var resubmit *tts.Utterance
	if fromPrimary {
		switch ev.Kind {
		case tts.SynthesisEnded:
			if f.failures > 0 {
				f.logger.Info("primary synthesizer recovered", "failures", f.failures)
				f.failures = 0
			}
		case tts.SynthesisFailed:
			if !tts.IsTransientCode(ev.Code) && f.failLocked(ev.Code) {
				if f.inflight != nil && f.inflight.ID == ev.UtteranceID {
					u := *f.inflight
					resubmit = &u
				}
			}
		}
	}
	if ev.Kind != tts.SynthesisStarted && ev.Kind != tts.VoicesChanged && f.inflight != nil && f.inflight.ID == ev.UtteranceID {
		f.inflight = nil
	}
	switched := fromPrimary && f.usingFallback
	f.mu.Unlock()

	if !switched {
		f.send(ev)
		return
	}

	f.send(tts.SynthesisEvent{Kind: tts.VoicesChanged})
	if resubmit == nil {
		f.send(ev)
		return
	}
	if err := f.fallback.Submit(f.adapt(*resubmit)); err != nil {
		f.logger.Error("fallback synthesizer refused utterance", "id", resubmit.ID, "err", err)
		f.send(ev)
	}
}

func (f *Fallback) send(ev tts.SynthesisEvent) {
	select {
	case f.events <- ev:
	case <-f.done:
	}
}
