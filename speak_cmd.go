package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/keczkasz/studywave/internal/progress"
	"github.com/keczkasz/studywave/tts"
)

const (
	skipStep = 10 * time.Second
	rateStep = 0.1
)

var (
	speakClipboard bool
	speakResume    bool
	speakVoice     string
	speakRate      float64
	speakFrom      float64

	speakCmd = &cobra.Command{
		Use:   "speak [SOURCE]",
		Short: "Read a document aloud",
		Long: paragraph(fmt.Sprintf("\n%s a text or Markdown file, stdin or the clipboard.\n\n"+
			"Keys: space pause/resume, ←/→ skip 10s, +/- rate, v next voice, q quit.", keyword("Read"))),
		Example: paragraph("studywave speak notes.md\nstudywave speak --resume notes.md\npbpaste | studywave speak -"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runSpeak,
	}
)

func init() {
	speakCmd.Flags().BoolVarP(&speakClipboard, "clipboard", "c", false, "read the clipboard")
	speakCmd.Flags().BoolVarP(&speakResume, "resume", "r", false, "continue where the document was left")
	speakCmd.Flags().StringVarP(&speakVoice, "voice", "v", "", "voice personality (id or name, fuzzy matched)")
	speakCmd.Flags().Float64Var(&speakRate, "rate", 1, "speaking rate from 0.5 to 2.0")
	speakCmd.Flags().Float64Var(&speakFrom, "from", 0, "start position as a fraction of the document")
}

func runSpeak(cmd *cobra.Command, args []string) error {
	doc, err := loadDocument(args, speakClipboard)
	if err != nil {
		return err
	}

	c := cfg
	if cmd.Flags().Changed("rate") {
		c.Rate = tts.ClampRate(speakRate)
	}

	var (
		store *progress.Store
		start float64
	)
	if c.Progress.Enabled {
		store, err = progress.Open(c.Progress.Path)
		if err != nil {
			log.Warn("progress tracking disabled", "err", err)
		} else {
			defer store.Close() //nolint:errcheck
		}
	}

	if speakResume && store != nil {
		entry, ok, err := store.Load(context.Background(), doc.ID)
		if err != nil {
			return err
		}
		if ok {
			start = entry.ResumeFraction()
			if !cmd.Flags().Changed("rate") && entry.Rate > 0 {
				c.Rate = entry.Rate
			}
			if speakVoice == "" && entry.Personality != "" {
				c.Personality = entry.Personality
			}
		}
	}
	if cmd.Flags().Changed("from") {
		start = speakFrom
	}

	s, err := newSession(c, speakVoice)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	if store != nil {
		rec := progress.NewRecorder(store, doc.ID, doc.Title, c.Progress.SaveInterval, log.Default().WithPrefix("progress"))
		unsubscribe := rec.Subscribe(s.engine)
		defer func() {
			unsubscribe()
			_ = rec.Close()
		}()
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	status := newStatusLine(os.Stdout, interactive)

	done := make(chan error, 1)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}

	unsubscribe := s.engine.Subscribe(func(ev tts.Event) {
		switch ev := ev.(type) {
		case tts.StateChangedEvent:
			status.Render(ev.Snapshot)
		case tts.LanguageDetectedEvent:
			status.Message(fmt.Sprintf("Detected %s (%.0f%%)", ev.Language.DisplayName(), ev.Confidence*100))
		case tts.CompletedEvent:
			finish(nil)
		case tts.FailedEvent:
			finish(ev.Err)
		}
	})
	defer unsubscribe()

	status.Message(fmt.Sprintf("%s %s", keyword("Reading"), doc.Title))

	quit := make(chan struct{})
	if interactive {
		fd := int(os.Stdin.Fd())
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("unable to set raw mode: %w", err)
		}
		defer term.Restore(fd, oldState) //nolint:errcheck

		go readKeys(os.Stdin, func(a action) bool {
			if a == actionQuit {
				close(quit)
				return false
			}
			if err := apply(s, a); err != nil && !tts.IsRecoverableError(err) {
				finish(err)
			}
			return true
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = s.engine.Speak(tts.SpeakRequest{
		Text:               doc.Text,
		StartFraction:      start,
		AutoDetectLanguage: c.AutoDetect(),
	})
	if errors.Is(err, tts.ErrNoSpeakableText) {
		return fmt.Errorf("%s has nothing to read", doc.Title)
	}
	if err != nil {
		return err
	}

	select {
	case err = <-done:
	case <-quit:
	case <-ctx.Done():
	}

	if snap := s.engine.Snapshot(); snap.State != tts.StateCompleted && snap.State != tts.StateIdle {
		_ = s.engine.Stop()
	}
	status.Done()
	return err
}

type action int

const (
	actionNone action = iota
	actionToggle
	actionForward
	actionBackward
	actionFaster
	actionSlower
	actionNextVoice
	actionQuit
)

// keyAction maps raw terminal input to an action.
func keyAction(key []byte) action {
	switch string(key) {
	case " ", "k":
		return actionToggle
	case "\x1b[C", "l":
		return actionForward
	case "\x1b[D", "h":
		return actionBackward
	case "+", "=":
		return actionFaster
	case "-", "_":
		return actionSlower
	case "v":
		return actionNextVoice
	case "q", "\x03", "\x1b":
		return actionQuit
	default:
		return actionNone
	}
}

// readKeys feeds key presses to handle until it returns false or r fails.
func readKeys(r io.Reader, handle func(action) bool) {
	buf := make([]byte, 8)
	for {
		n, err := r.Read(buf)
		if err != nil {
			return
		}
		a := keyAction(buf[:n])
		if a == actionNone {
			continue
		}
		if !handle(a) {
			return
		}
	}
}

func apply(s *session, a action) error {
	e := s.engine
	snap := e.Snapshot()

	switch a {
	case actionToggle:
		switch {
		case snap.CanPause():
			return e.Pause()
		case snap.CanResume():
			return e.Resume()
		case snap.State == tts.StateCompleted:
			return e.SeekTo(0)
		}
	case actionForward:
		return e.SkipForward(skipStep)
	case actionBackward:
		return e.SkipBackward(skipStep)
	case actionFaster:
		return e.SetRate(snap.Rate + rateStep)
	case actionSlower:
		return e.SetRate(snap.Rate - rateStep)
	case actionNextVoice:
		return e.SetPersonality(nextPersonality(s.selector.ForLanguage(e.Personality().Language), e.Personality().ID))
	}
	return nil
}

// nextPersonality cycles through ps starting after current.
func nextPersonality(ps []tts.Personality, current string) string {
	if len(ps) == 0 {
		return current
	}
	for i, p := range ps {
		if p.ID == current {
			return ps[(i+1)%len(ps)].ID
		}
	}
	return ps[0].ID
}

// statusLine renders engine snapshots. On a terminal it redraws a single
// line; otherwise it prints each segment once.
type statusLine struct {
	w   io.Writer
	tty bool

	mu        sync.Mutex
	lastIndex int
	drawn     bool
}

func newStatusLine(w io.Writer, tty bool) *statusLine {
	return &statusLine{w: w, tty: tty, lastIndex: -1}
}

func (l *statusLine) Render(s tts.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !s.Loaded() {
		return
	}

	if !l.tty {
		if s.Index == l.lastIndex || s.State != tts.StatePlaying {
			return
		}
		l.lastIndex = s.Index
		_, _ = fmt.Fprintf(l.w, "[%d/%d] %s\n", s.Index+1, s.SegmentCount, s.CurrentSegmentText)
		return
	}

	_, _ = fmt.Fprint(l.w, "\r"+formatStatus(s, terminalWidth()-1))
	l.drawn = true
}

func (l *statusLine) Message(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tty {
		_, _ = fmt.Fprint(l.w, "\r\x1b[K")
	}
	writeLine(l.w, l.tty, "%s\n", msg)
	l.drawn = false
}

func (l *statusLine) Done() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tty && l.drawn {
		_, _ = fmt.Fprint(l.w, "\r\n")
		l.drawn = false
	}
}

// formatStatus renders a snapshot padded or truncated to width cells.
func formatStatus(s tts.Snapshot, width int) string {
	index := min(s.Index+1, s.SegmentCount)
	line := fmt.Sprintf("%s %s / %s  %d/%d  %.1fx  %s  %s",
		stateIcon(s.State),
		clock(s.CurrentTime), clock(s.TotalTime),
		index, s.SegmentCount,
		s.Rate,
		s.CurrentVoiceName,
		s.CurrentSegmentText,
	)
	if width <= 0 {
		return line
	}
	return runewidth.FillRight(runewidth.Truncate(line, width, "…"), width)
}

func stateIcon(s tts.StateType) string {
	switch s {
	case tts.StatePlaying:
		return "▶"
	case tts.StatePaused:
		return "‖"
	case tts.StatePreparing:
		return "…"
	case tts.StateCompleted:
		return "■"
	case tts.StateError:
		return "!"
	default:
		return " "
	}
}

// clock formats d as m:ss, or h:mm:ss from an hour up.
func clock(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	sec := int(d % time.Minute / time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
