package progress

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/keczkasz/studywave/tts"
)

// Recorder saves engine positions for one document. While playing it
// writes at most once per interval; pauses, stops, failures and completion
// are always written.
type Recorder struct {
	store   *Store
	docID   string
	title   string
	limiter *rate.Limiter
	logger  *log.Logger

	mu       sync.Mutex
	last     tts.Snapshot
	loaded   bool
	session  string
	listened time.Duration
	saves    int
}

// NewRecorder creates a recorder for the document id.
func NewRecorder(store *Store, docID, title string, interval time.Duration, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default().WithPrefix("progress")
	}
	if interval <= 0 {
		interval = tts.DefaultProgressConfig().SaveInterval
	}
	return &Recorder{
		store:   store,
		docID:   docID,
		title:   title,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger,
	}
}

// Subscribe attaches the recorder to an engine event source and returns
// the unsubscribe function.
func (r *Recorder) Subscribe(source interface {
	Subscribe(func(tts.Event)) func()
},
) func() {
	return source.Subscribe(r.Handle)
}

// Handle processes one engine event.
func (r *Recorder) Handle(ev tts.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev := ev.(type) {
	case tts.StateChangedEvent:
		r.handleSnapshot(ev.Snapshot)
	case tts.CompletedEvent:
		r.last = ev.Snapshot
		r.loaded = true
		_ = r.saveLocked(true)
		r.endSessionLocked()
	}
}

// Close writes the last known position and ends the session.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.loaded {
		err = r.saveLocked(false)
	}
	r.endSessionLocked()
	return err
}

// Saves returns the number of writes performed.
func (r *Recorder) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

// Private helper methods

func (r *Recorder) handleSnapshot(s tts.Snapshot) {
	if s.Loaded() {
		r.last = s
		r.loaded = true
		r.listened = s.Listened
	}

	switch s.State {
	case tts.StatePlaying:
		if r.session == "" {
			r.startSessionLocked()
		}
		if s.Loaded() && r.limiter.Allow() {
			_ = r.saveLocked(false)
		}
	case tts.StatePaused:
		_ = r.saveLocked(false)
	case tts.StateIdle:
		// Stop or failure; the snapshot no longer carries a position
		if r.loaded {
			_ = r.saveLocked(false)
		}
		r.endSessionLocked()
	}
}

func (r *Recorder) saveLocked(completed bool) error {
	if !r.loaded {
		return nil
	}

	e := Entry{
		DocumentID:  r.docID,
		Title:       r.title,
		Fraction:    r.last.Fraction,
		Rate:        r.last.Rate,
		Personality: r.last.PersonalityID,
		Language:    r.last.DetectedLanguage,
		Listened:    r.last.Listened,
		Completed:   completed || r.last.State == tts.StateCompleted,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.store.Save(ctx, e); err != nil {
		r.logger.Warn("unable to save progress", "document", r.docID, "err", err)
		return err
	}
	r.saves++
	r.logger.Debug("saved progress", "document", r.docID, "fraction", e.Fraction, "completed", e.Completed)
	return nil
}

func (r *Recorder) startSessionLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := r.store.StartSession(ctx, r.docID)
	if err != nil {
		r.logger.Warn("unable to start session", "err", err)
		return
	}
	r.session = id
}

func (r *Recorder) endSessionLocked() {
	if r.session == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.store.EndSession(ctx, r.session, r.listened); err != nil {
		r.logger.Warn("unable to end session", "err", err)
	}
	r.session = ""
}
