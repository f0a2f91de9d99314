package tts_test

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/keczkasz/studywave/tts"
	"github.com/keczkasz/studywave/tts/engines/mock"
	"github.com/keczkasz/studywave/tts/pipeline"
	"github.com/keczkasz/studywave/tts/voice"
)

const tenSentences = "The alpha bird sings. The bravo cat sleeps. The charlie dog barks. " +
	"The delta fish swims. The echo frog jumps. The foxtrot goat eats. " +
	"The golf horse runs. The hotel ibis flies. The india jackal hunts. " +
	"The juliet koala climbs."

// recorder collects engine events for assertions.
type recorder struct {
	mu     sync.Mutex
	events []tts.Event
}

func (r *recorder) record(ev tts.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []tts.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tts.Event(nil), r.events...)
}

func eventsOf[T tts.Event](r *recorder) []T {
	var out []T
	for _, ev := range r.all() {
		if typed, ok := ev.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newTestEngine(t *testing.T, modify func(*tts.EngineConfig)) (*tts.Engine, *mock.Synthesizer, *recorder) {
	t.Helper()

	config := tts.DefaultEngineConfig()
	config.StallTimeout = 0
	if modify != nil {
		modify(&config)
	}

	synth := mock.New()
	engine, err := tts.NewEngine(synth, pipeline.New(0), voice.New(), config)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	rec := &recorder{}
	engine.Subscribe(rec.record)

	t.Cleanup(func() {
		_ = engine.Close()
		_ = synth.Close()
	})
	return engine, synth, rec
}

func lastID(t *testing.T, synth *mock.Synthesizer) string {
	t.Helper()
	u, ok := synth.Last()
	if !ok {
		t.Fatal("nothing submitted")
	}
	return u.ID
}

// sync waits until the engine has handled every synthesizer event sent
// so far by queueing a voices-changed marker behind them.
func syncEvents(t *testing.T, synth *mock.Synthesizer, rec *recorder) {
	t.Helper()
	before := len(eventsOf[tts.VoicesLoadedEvent](rec))
	synth.SetVoices(mock.DefaultVoices())
	waitFor(t, "voices marker", func() bool {
		return len(eventsOf[tts.VoicesLoadedEvent](rec)) > before
	})
}

func TestNewEngineValidation(t *testing.T) {
	if _, err := tts.NewEngine(mock.New(), nil, voice.New(), tts.DefaultEngineConfig()); !errors.Is(err, tts.ErrInvalidConfig) {
		t.Errorf("nil processor: error = %v, want ErrInvalidConfig", err)
	}

	config := tts.DefaultEngineConfig()
	config.PersonalityID = "nobody"
	if _, err := tts.NewEngine(mock.New(), pipeline.New(0), voice.New(), config); !errors.Is(err, tts.ErrUnknownPersonality) {
		t.Errorf("unknown personality: error = %v, want ErrUnknownPersonality", err)
	}
}

func TestSpeakUnsupported(t *testing.T) {
	engine, err := tts.NewEngine(nil, pipeline.New(0), voice.New(), tts.DefaultEngineConfig())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	defer engine.Close()

	if engine.IsSupported() {
		t.Error("Engine without synthesizer reported as supported")
	}
	if err := engine.Speak(tts.SpeakRequest{Text: "Hello there."}); !errors.Is(err, tts.ErrUnsupportedEnvironment) {
		t.Errorf("Speak() error = %v, want ErrUnsupportedEnvironment", err)
	}
	if state := engine.Snapshot().State; state != tts.StateIdle {
		t.Errorf("State = %v, want idle", state)
	}

	e2, synth, _ := newTestEngine(t, nil)
	synth.SetVoices(nil)
	if e2.IsSupported() {
		t.Error("Engine without voices reported as supported")
	}
	if err := e2.Speak(tts.SpeakRequest{Text: "Hello there."}); !errors.Is(err, tts.ErrUnsupportedEnvironment) {
		t.Errorf("Speak() with no voices error = %v, want ErrUnsupportedEnvironment", err)
	}
}

func TestSpeakEmptyText(t *testing.T) {
	engine, synth, _ := newTestEngine(t, nil)

	for _, text := range []string{"", "   ", "[12] [13]"} {
		err := engine.Speak(tts.SpeakRequest{Text: text})
		if !errors.Is(err, tts.ErrNoSpeakableText) {
			t.Errorf("Speak(%q) error = %v, want ErrNoSpeakableText", text, err)
		}
		if state := engine.Snapshot().State; state != tts.StateIdle {
			t.Errorf("Speak(%q) left state %v, want idle", text, state)
		}
	}
	if synth.GetCallCount() != 0 {
		t.Errorf("Expected no submissions, got %d", synth.GetCallCount())
	}
}

func TestSpeakSubmitsFirstSegment(t *testing.T) {
	engine, synth, rec := newTestEngine(t, nil)

	if err := engine.Speak(tts.SpeakRequest{Text: "Dr. Smith arrived. He sat down."}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	u, _ := synth.Last()
	if u.Text != "Doctor Smith arrived." {
		t.Errorf("Submitted %q, want expanded first sentence", u.Text)
	}
	if u.Voice == nil || u.Voice.ID != "mock-en-female" {
		t.Errorf("Submitted voice %+v, want mock-en-female", u.Voice)
	}
	if u.Language != tts.LanguageEnglish {
		t.Errorf("Submitted language %q, want en", u.Language)
	}
	if u.Rate <= 0 || u.Pitch <= 0 {
		t.Errorf("Submitted rate %v pitch %v, want positive", u.Rate, u.Pitch)
	}

	s := engine.Snapshot()
	if s.State != tts.StatePlaying || !s.IsPlaying {
		t.Errorf("State = %v, want playing", s.State)
	}
	if s.SegmentCount != 2 || s.Index != 0 {
		t.Errorf("Index %d of %d, want 0 of 2", s.Index, s.SegmentCount)
	}
	if s.CurrentVoiceName != "Mock Emma" {
		t.Errorf("CurrentVoiceName = %q, want Mock Emma", s.CurrentVoiceName)
	}
	if s.TotalTime <= 0 {
		t.Error("TotalTime should be estimated")
	}

	var states []tts.StateType
	for _, ev := range eventsOf[tts.StateChangedEvent](rec) {
		states = append(states, ev.Snapshot.State)
	}
	if len(states) < 2 || states[0] != tts.StatePreparing || states[len(states)-1] != tts.StatePlaying {
		t.Errorf("State events = %v, want preparing then playing", states)
	}
}

func TestSpeakStartFraction(t *testing.T) {
	processed := pipeline.New(0).Process(tenSentences, tts.LanguageEnglish)
	if len(processed.Segments) != 10 {
		t.Fatalf("Fixture produced %d segments, want 10", len(processed.Segments))
	}

	engine, synth, _ := newTestEngine(t, nil)
	if err := engine.Speak(tts.SpeakRequest{Text: tenSentences, StartFraction: 0.5}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	if s := engine.Snapshot(); s.Index != 5 {
		t.Errorf("Index = %d, want 5", s.Index)
	}
	if u, _ := synth.Last(); u.Text != processed.Segments[5].Text {
		t.Errorf("Submitted %q, want %q", u.Text, processed.Segments[5].Text)
	}
}

func TestPauseResumeRestartsSegment(t *testing.T) {
	engine, synth, _ := newTestEngine(t, nil)

	if err := engine.Speak(tts.SpeakRequest{Text: tenSentences, StartFraction: 0.3}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	synth.Start(lastID(t, synth))

	before := engine.Snapshot().CurrentSegmentText
	first, _ := synth.Last()

	if err := engine.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	s := engine.Snapshot()
	if s.State != tts.StatePaused || !s.CanResume() {
		t.Errorf("State = %v, want paused", s.State)
	}
	if synth.CancelCount() != 1 {
		t.Errorf("Expected 1 cancel, got %d", synth.CancelCount())
	}
	if err := engine.Pause(); !errors.Is(err, tts.ErrInvalidState) {
		t.Errorf("Second Pause() error = %v, want ErrInvalidState", err)
	}

	if err := engine.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	second, _ := synth.Last()
	if len(synth.Submissions()) != 2 {
		t.Fatalf("Expected 2 submissions, got %d", len(synth.Submissions()))
	}
	if second.Text != first.Text {
		t.Errorf("Resumed with %q, want %q", second.Text, first.Text)
	}
	if second.ID == first.ID {
		t.Error("Resubmission reused the utterance id")
	}
	if after := engine.Snapshot().CurrentSegmentText; after != before {
		t.Errorf("CurrentSegmentText = %q, want %q", after, before)
	}
	if err := engine.Resume(); !errors.Is(err, tts.ErrInvalidState) {
		t.Errorf("Resume() while playing error = %v, want ErrInvalidState", err)
	}
}

func TestPlaybackCompletes(t *testing.T) {
	engine, synth, rec := newTestEngine(t, nil)

	if err := engine.Speak(tts.SpeakRequest{Text: "First alpha line. Second bravo line."}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	u1 := lastID(t, synth)
	synth.Start(u1)
	synth.Finish(u1)

	waitFor(t, "second segment", func() bool { return len(synth.Submissions()) == 2 })
	u2, _ := synth.Last()
	if u2.Text != "Second bravo line." {
		t.Errorf("Second submission %q", u2.Text)
	}

	synth.Start(u2.ID)
	synth.Finish(u2.ID)

	waitFor(t, "completion", func() bool { return engine.Snapshot().State == tts.StateCompleted })

	s := engine.Snapshot()
	if s.Index != 2 || s.Fraction != 1 || s.CurrentSegmentText != "" {
		t.Errorf("Completed snapshot = %+v", s)
	}
	if s.CurrentTime != s.TotalTime {
		t.Errorf("CurrentTime %v, want TotalTime %v", s.CurrentTime, s.TotalTime)
	}
	if got := len(eventsOf[tts.CompletedEvent](rec)); got != 1 {
		t.Errorf("Expected 1 completed event, got %d", got)
	}
	if s.Listened <= 0 {
		t.Error("Listened time should accumulate while playing")
	}

	// Seeking from Completed plays again
	if err := engine.SeekTo(0); err != nil {
		t.Fatalf("SeekTo() error = %v", err)
	}
	if state := engine.Snapshot().State; state != tts.StatePlaying {
		t.Errorf("State after seek = %v, want playing", state)
	}
	if len(synth.Submissions()) != 3 {
		t.Errorf("Expected 3 submissions, got %d", len(synth.Submissions()))
	}
}

func TestPauseDuringGap(t *testing.T) {
	engine, synth, _ := newTestEngine(t, nil)

	if err := engine.Speak(tts.SpeakRequest{Text: "First alpha line. Second bravo line."}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	synth.Finish(lastID(t, synth))
	waitFor(t, "segment advance", func() bool { return engine.Snapshot().Index == 1 })

	if err := engine.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	time.Sleep(time.Duration(2*segmenterPause) * time.Millisecond)
	if n := len(synth.Submissions()); n != 1 {
		t.Fatalf("Pause gap timer submitted while paused, %d submissions", n)
	}

	if err := engine.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if u, _ := synth.Last(); u.Text != "Second bravo line." {
		t.Errorf("Resumed with %q", u.Text)
	}
}

// segmenterPause is the sentence pause in milliseconds.
const segmenterPause = 400

func TestStaleEventsIgnored(t *testing.T) {
	engine, synth, rec := newTestEngine(t, nil)

	if err := engine.Speak(tts.SpeakRequest{Text: tenSentences}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	synth.Finish("stale-id")
	synth.Fail("stale-id", "synthesis-failed")
	synth.Start("")
	syncEvents(t, synth, rec)

	s := engine.Snapshot()
	if s.State != tts.StatePlaying || s.Index != 0 {
		t.Errorf("Stale events changed state: %v at %d", s.State, s.Index)
	}
	if len(synth.Submissions()) != 1 {
		t.Errorf("Expected 1 submission, got %d", len(synth.Submissions()))
	}
	if got := len(eventsOf[tts.FailedEvent](rec)); got != 0 {
		t.Errorf("Expected no failures, got %d", got)
	}
}

func TestTransientCancelIgnored(t *testing.T) {
	engine, synth, rec := newTestEngine(t, nil)

	if err := engine.Speak(tts.SpeakRequest{Text: tenSentences}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	id := lastID(t, synth)
	synth.Fail(id, tts.CodeInterrupted)
	syncEvents(t, synth, rec)

	if state := engine.Snapshot().State; state != tts.StatePlaying {
		t.Errorf("State = %v, want playing", state)
	}
	if got := len(eventsOf[tts.FailedEvent](rec)); got != 0 {
		t.Errorf("Transient error surfaced %d failures", got)
	}
}

func TestFatalFailure(t *testing.T) {
	engine, synth, rec := newTestEngine(t, nil)

	if err := engine.Speak(tts.SpeakRequest{Text: tenSentences}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	synth.Fail(lastID(t, synth), "synthesis-failed")

	waitFor(t, "failure", func() bool { return len(eventsOf[tts.FailedEvent](rec)) > 0 })

	failures := eventsOf[tts.FailedEvent](rec)
	if len(failures) != 1 {
		t.Fatalf("Expected 1 failure, got %d", len(failures))
	}
	if !errors.Is(failures[0].Err, tts.ErrSynthesisFailure) {
		t.Errorf("Failure error = %v, want ErrSynthesisFailure", failures[0].Err)
	}
	if failures[0].Recoverable {
		t.Error("Synthesis failure reported as recoverable")
	}

	waitFor(t, "idle", func() bool { return engine.Snapshot().State == tts.StateIdle })

	// Error is entered and left around the failure event
	var sawError bool
	for _, ev := range rec.all() {
		if sc, ok := ev.(tts.StateChangedEvent); ok && sc.Snapshot.State == tts.StateError {
			sawError = true
		}
		if _, ok := ev.(tts.FailedEvent); ok && !sawError {
			t.Error("Failure reported before entering the error state")
		}
	}

	if engine.Snapshot().Loaded() {
		t.Error("Failed document should be discarded")
	}
	if err := engine.Resume(); !errors.Is(err, tts.ErrInvalidState) {
		t.Errorf("Resume() error = %v, want ErrInvalidState", err)
	}
	if err := engine.SeekTo(0.5); !errors.Is(err, tts.ErrNothingLoaded) {
		t.Errorf("SeekTo() error = %v, want ErrNothingLoaded", err)
	}

	// The engine accepts a new document afterwards
	if err := engine.Speak(tts.SpeakRequest{Text: "Try again."}); err != nil {
		t.Errorf("Speak() after failure error = %v", err)
	}
}

func TestSubmitFailure(t *testing.T) {
	engine, synth, rec := newTestEngine(t, nil)
	synth.SetFailure(errors.New("device busy"))

	if err := engine.Speak(tts.SpeakRequest{Text: tenSentences}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	if state := engine.Snapshot().State; state != tts.StateIdle {
		t.Errorf("State = %v, want idle", state)
	}
	failures := eventsOf[tts.FailedEvent](rec)
	if len(failures) != 1 || !errors.Is(failures[0].Err, tts.ErrSynthesisFailure) {
		t.Fatalf("Failures = %+v, want one synthesis failure", failures)
	}
	if !strings.Contains(failures[0].Err.Error(), "device busy") {
		t.Errorf("Failure %q should carry the cause", failures[0].Err)
	}
}

func TestWatchdogRetriesThenFails(t *testing.T) {
	engine, synth, rec := newTestEngine(t, func(c *tts.EngineConfig) {
		c.StallTimeout = 50 * time.Millisecond
		c.StallRetries = 1
		c.Rate = 2.0
	})

	if err := engine.Speak(tts.SpeakRequest{Text: "Hello."}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	first, _ := synth.Last()

	waitFor(t, "resubmission", func() bool { return len(synth.Submissions()) == 2 })
	second, _ := synth.Last()
	if second.Text != first.Text || second.ID == first.ID {
		t.Errorf("Resubmitted %+v after %+v", second, first)
	}
	if state := engine.Snapshot().State; state != tts.StatePlaying {
		t.Errorf("State after first stall = %v, want playing", state)
	}

	waitFor(t, "stall failure", func() bool { return len(eventsOf[tts.FailedEvent](rec)) == 1 })
	failure := eventsOf[tts.FailedEvent](rec)[0]
	if !errors.Is(failure.Err, tts.ErrSynthesisStalled) {
		t.Errorf("Failure = %v, want ErrSynthesisStalled", failure.Err)
	}
	waitFor(t, "idle", func() bool { return engine.Snapshot().State == tts.StateIdle })
	if n := len(synth.Submissions()); n != 2 {
		t.Errorf("Expected 2 submissions, got %d", n)
	}
}

func TestWatchdogDisarmedOnEnd(t *testing.T) {
	engine, synth, rec := newTestEngine(t, func(c *tts.EngineConfig) {
		c.StallTimeout = 50 * time.Millisecond
		c.StallRetries = 0
		c.Rate = 2.0
	})

	if err := engine.Speak(tts.SpeakRequest{Text: "Hello."}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	synth.Finish(lastID(t, synth))
	waitFor(t, "completion", func() bool { return engine.Snapshot().State == tts.StateCompleted })

	time.Sleep(time.Second)
	if got := len(eventsOf[tts.FailedEvent](rec)); got != 0 {
		t.Errorf("Watchdog fired after completion: %d failures", got)
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	var mu sync.Mutex
	var a, b int
	var seen tts.StateType

	unsubA := engine.Subscribe(func(ev tts.Event) {
		mu.Lock()
		a++
		mu.Unlock()
	})
	engine.Subscribe(func(ev tts.Event) {
		// Observers may call back into the engine
		s := engine.Snapshot()
		mu.Lock()
		b++
		seen = s.State
		mu.Unlock()
	})

	if err := engine.SetRate(1.5); err != nil {
		t.Fatalf("SetRate() error = %v", err)
	}
	mu.Lock()
	if a != 1 || b != 1 {
		t.Errorf("Deliveries a=%d b=%d, want 1 each", a, b)
	}
	mu.Unlock()

	unsubA()
	unsubA()

	if err := engine.SetRate(1.0); err != nil {
		t.Fatalf("SetRate() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if a != 1 {
		t.Errorf("Unsubscribed observer still called, a=%d", a)
	}
	if b != 2 {
		t.Errorf("Remaining observer b=%d, want 2", b)
	}
	if seen != tts.StateIdle {
		t.Errorf("Observer saw %v, want idle", seen)
	}
}

func TestSeek(t *testing.T) {
	engine, synth, _ := newTestEngine(t, nil)

	if err := engine.SeekTo(0.5); !errors.Is(err, tts.ErrNothingLoaded) {
		t.Errorf("SeekTo() before Speak error = %v, want ErrNothingLoaded", err)
	}
	if err := engine.Speak(tts.SpeakRequest{Text: tenSentences}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	// Fractions derived from an index map back to it
	for i := 0; i < 10; i++ {
		if err := engine.SeekTo(float64(i) / 10); err != nil {
			t.Fatalf("SeekTo() error = %v", err)
		}
		s := engine.Snapshot()
		if s.Index != i {
			t.Errorf("SeekTo(%d/10) index = %d", i, s.Index)
		}
		if u, _ := synth.Last(); u.Text != s.CurrentSegmentText {
			t.Errorf("Submitted %q, current %q", u.Text, s.CurrentSegmentText)
		}
	}

	// Out of range fractions clamp
	tests := []struct {
		fraction float64
		want     int
	}{
		{-1, 0},
		{0, 0},
		{0.99, 9},
		{1, 9},
		{7, 9},
	}
	prev := -1
	for _, tt := range tests {
		if err := engine.SeekTo(tt.fraction); err != nil {
			t.Fatalf("SeekTo(%v) error = %v", tt.fraction, err)
		}
		got := engine.Snapshot().Index
		if got != tt.want {
			t.Errorf("SeekTo(%v) index = %d, want %d", tt.fraction, got, tt.want)
		}
		if got < prev {
			t.Errorf("SeekTo(%v) moved backwards to %d", tt.fraction, got)
		}
		prev = got
	}
}

func TestSeekMonotonic(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	if err := engine.Speak(tts.SpeakRequest{Text: tenSentences}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	prev := 0
	for k := 0; k <= 40; k++ {
		f := float64(k) / 40
		if err := engine.SeekTo(f); err != nil {
			t.Fatalf("SeekTo(%v) error = %v", f, err)
		}
		s := engine.Snapshot()
		if s.Index < prev {
			t.Errorf("SeekTo(%v) index = %d, below %d for a smaller fraction", f, s.Index, prev)
		}
		// The derived position stays within one segment of the target
		if f < 1 && (s.Fraction > f+1e-9 || f-s.Fraction >= 0.1+1e-9) {
			t.Errorf("SeekTo(%v) fraction = %v", f, s.Fraction)
		}
		prev = s.Index
	}
}

func TestSeekWhilePaused(t *testing.T) {
	engine, synth, _ := newTestEngine(t, nil)

	if err := engine.Speak(tts.SpeakRequest{Text: tenSentences}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if err := engine.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if err := engine.SeekTo(0.7); err != nil {
		t.Fatalf("SeekTo() error = %v", err)
	}

	s := engine.Snapshot()
	if s.State != tts.StatePaused || s.Index != 7 {
		t.Errorf("Snapshot %v at %d, want paused at 7", s.State, s.Index)
	}
	if n := len(synth.Submissions()); n != 1 {
		t.Errorf("Seek while paused submitted, %d submissions", n)
	}

	if err := engine.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if u, _ := synth.Last(); u.Text != s.CurrentSegmentText {
		t.Errorf("Resumed with %q, want %q", u.Text, s.CurrentSegmentText)
	}
}

func TestSkip(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	if err := engine.SkipForward(time.Second); !errors.Is(err, tts.ErrNothingLoaded) {
		t.Errorf("SkipForward() before Speak error = %v, want ErrNothingLoaded", err)
	}
	if err := engine.Speak(tts.SpeakRequest{Text: tenSentences}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	total := engine.Snapshot().TotalTime
	if err := engine.SkipForward(total * 15 / 100); err != nil {
		t.Fatalf("SkipForward() error = %v", err)
	}
	if got := engine.Snapshot().Index; got != 1 {
		t.Errorf("Index after small skip = %d, want 1", got)
	}

	if err := engine.SkipForward(time.Hour); err != nil {
		t.Fatalf("SkipForward() error = %v", err)
	}
	if got := engine.Snapshot().Index; got != 9 {
		t.Errorf("Index after long skip = %d, want 9", got)
	}

	if err := engine.SkipBackward(time.Hour); err != nil {
		t.Fatalf("SkipBackward() error = %v", err)
	}
	if got := engine.Snapshot().Index; got != 0 {
		t.Errorf("Index after skipping back = %d, want 0", got)
	}
}

func TestSetRate(t *testing.T) {
	engine, synth, _ := newTestEngine(t, nil)

	tests := []struct {
		rate float64
		want float64
	}{
		{5, tts.MaxRate},
		{0.1, tts.MinRate},
		{1.25, 1.25},
	}
	for _, tt := range tests {
		if err := engine.SetRate(tt.rate); err != nil {
			t.Fatalf("SetRate(%v) error = %v", tt.rate, err)
		}
		if got := engine.Snapshot().Rate; got != tt.want {
			t.Errorf("SetRate(%v) rate = %v, want %v", tt.rate, got, tt.want)
		}
	}
	if synth.GetCallCount() != 0 {
		t.Error("SetRate while idle should not submit")
	}

	if err := engine.Speak(tts.SpeakRequest{Text: tenSentences}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	first, _ := synth.Last()

	if err := engine.SetRate(2.0); err != nil {
		t.Fatalf("SetRate() error = %v", err)
	}
	second, _ := synth.Last()
	if len(synth.Submissions()) != 2 {
		t.Fatalf("Expected resubmission, got %d submissions", len(synth.Submissions()))
	}
	if second.Text != first.Text {
		t.Errorf("Resubmitted %q, want %q", second.Text, first.Text)
	}
	if second.Rate <= first.Rate {
		t.Errorf("Rate %v not above %v", second.Rate, first.Rate)
	}
}

func TestAutoDetectSwitchesPersonality(t *testing.T) {
	engine, synth, rec := newTestEngine(t, nil)

	text := "Wczoraj poszliśmy do sklepu i kupiliśmy świeży chleb. To był piękny dzień."
	if err := engine.Speak(tts.SpeakRequest{Text: text, AutoDetectLanguage: true}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	detected := eventsOf[tts.LanguageDetectedEvent](rec)
	if len(detected) != 1 || detected[0].Language != tts.LanguagePolish {
		t.Fatalf("Detection events = %+v, want one for pl", detected)
	}
	if detected[0].Confidence <= 0.8 {
		t.Errorf("Confidence = %v, want > 0.8", detected[0].Confidence)
	}

	if got := engine.Personality().ID; got != "pl-zofia" {
		t.Errorf("Personality = %s, want pl-zofia", got)
	}
	u, _ := synth.Last()
	if u.Voice == nil || u.Voice.ID != "mock-pl-female" {
		t.Errorf("Voice = %+v, want mock-pl-female", u.Voice)
	}
	if u.Language != tts.LanguagePolish {
		t.Errorf("Language = %s, want pl", u.Language)
	}

	s := engine.Snapshot()
	if s.DetectedLanguage != tts.LanguagePolish || s.PersonalityID != "pl-zofia" {
		t.Errorf("Snapshot language %s personality %s", s.DetectedLanguage, s.PersonalityID)
	}
}

func TestFixedLanguageSkipsDetection(t *testing.T) {
	engine, _, rec := newTestEngine(t, nil)

	if err := engine.Speak(tts.SpeakRequest{Text: "Wczoraj poszliśmy do sklepu."}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if got := len(eventsOf[tts.LanguageDetectedEvent](rec)); got != 0 {
		t.Errorf("Expected no detection, got %d events", got)
	}
	if got := engine.Personality().ID; got != "en-emma" {
		t.Errorf("Personality = %s, want en-emma", got)
	}
}

func TestVoiceOverrides(t *testing.T) {
	engine, synth, _ := newTestEngine(t, nil)

	if err := engine.SetPersonality("nobody"); !errors.Is(err, tts.ErrUnknownPersonality) {
		t.Errorf("SetPersonality() error = %v, want ErrUnknownPersonality", err)
	}

	pinned := tts.VoiceHandle{ID: "custom", Name: "Custom Voice", Language: "en-US"}
	if err := engine.SetVoiceDirectly(pinned); err != nil {
		t.Fatalf("SetVoiceDirectly() error = %v", err)
	}
	if err := engine.Speak(tts.SpeakRequest{Text: tenSentences}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if u, _ := synth.Last(); u.Voice == nil || u.Voice.ID != "custom" {
		t.Errorf("Voice = %+v, want pinned custom", u.Voice)
	}

	other := tts.VoiceHandle{ID: "other", Name: "Other Voice", Language: "en-GB"}
	if err := engine.SetVoiceDirectly(other); err != nil {
		t.Fatalf("SetVoiceDirectly() error = %v", err)
	}
	if got := engine.Snapshot().CurrentVoiceName; got != "Other Voice" {
		t.Errorf("CurrentVoiceName = %q right after pinning, want %q", got, "Other Voice")
	}

	if err := engine.SetPersonality("en-james"); err != nil {
		t.Fatalf("SetPersonality() error = %v", err)
	}
	if err := engine.SeekTo(0.2); err != nil {
		t.Fatalf("SeekTo() error = %v", err)
	}
	u, _ := synth.Last()
	if u.Voice == nil || u.Voice.ID != "mock-en-male" {
		t.Errorf("Voice = %+v, want mock-en-male", u.Voice)
	}
	if engine.Snapshot().PersonalityID != "en-james" {
		t.Errorf("PersonalityID = %s, want en-james", engine.Snapshot().PersonalityID)
	}
}

func TestStop(t *testing.T) {
	engine, synth, _ := newTestEngine(t, nil)

	if err := engine.Stop(); err != nil {
		t.Errorf("Stop() while idle error = %v", err)
	}

	if err := engine.Speak(tts.SpeakRequest{Text: tenSentences}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if err := engine.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	s := engine.Snapshot()
	if s.State != tts.StateIdle || s.Loaded() {
		t.Errorf("Snapshot after stop = %+v", s)
	}
	if synth.CancelCount() != 1 {
		t.Errorf("Expected 1 cancel, got %d", synth.CancelCount())
	}
	if err := engine.Resume(); !errors.Is(err, tts.ErrInvalidState) {
		t.Errorf("Resume() after stop error = %v, want ErrInvalidState", err)
	}
}

func TestSpeakReplacesDocument(t *testing.T) {
	engine, synth, _ := newTestEngine(t, nil)

	if err := engine.Speak(tts.SpeakRequest{Text: tenSentences}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if err := engine.Speak(tts.SpeakRequest{Text: "Something else entirely."}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	s := engine.Snapshot()
	if s.SegmentCount != 1 || s.State != tts.StatePlaying {
		t.Errorf("Snapshot = %+v, want the new document playing", s)
	}
	if synth.CancelCount() != 1 {
		t.Errorf("Expected previous utterance canceled, got %d cancels", synth.CancelCount())
	}
}

func TestVoicesLoaded(t *testing.T) {
	_, synth, rec := newTestEngine(t, nil)

	synth.SetVoices(mock.DefaultVoices()[:2])
	waitFor(t, "voices loaded", func() bool { return len(eventsOf[tts.VoicesLoadedEvent](rec)) == 1 })

	if got := eventsOf[tts.VoicesLoadedEvent](rec)[0].Count; got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
}

func TestClosedEngine(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	if err := engine.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Errorf("Second Close() error = %v", err)
	}
	if err := engine.Speak(tts.SpeakRequest{Text: "Hello."}); !errors.Is(err, tts.ErrEngineClosed) {
		t.Errorf("Speak() error = %v, want ErrEngineClosed", err)
	}
}

func TestConcurrentControl(t *testing.T) {
	engine, synth, _ := newTestEngine(t, nil)

	if err := engine.Speak(tts.SpeakRequest{Text: tenSentences}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				switch (i + j) % 4 {
				case 0:
					_ = engine.SeekTo(float64(j%10) / 10)
				case 1:
					_ = engine.SetRate(0.5 + float64(j%4)/4)
				case 2:
					if u, ok := synth.Last(); ok {
						synth.Start(u.ID)
					}
				case 3:
					_ = engine.Snapshot()
				}
			}
		}(i)
	}
	wg.Wait()

	s := engine.Snapshot()
	if s.Index < 0 || s.Index >= s.SegmentCount {
		t.Errorf("Index %d out of range %d", s.Index, s.SegmentCount)
	}
	if s.State != tts.StatePlaying {
		t.Errorf("State = %v, want playing", s.State)
	}
}

func ExampleEngine_Subscribe() {
	synth := mock.New()
	engine, _ := tts.NewEngine(synth, pipeline.New(0), voice.New(), tts.DefaultEngineConfig())
	defer engine.Close()

	engine.Subscribe(func(ev tts.Event) {
		if sc, ok := ev.(tts.StateChangedEvent); ok {
			fmt.Println(sc.Snapshot.State)
		}
	})
	_ = engine.Speak(tts.SpeakRequest{Text: "Hello world."})
	// Output:
	// preparing
	// playing
}
