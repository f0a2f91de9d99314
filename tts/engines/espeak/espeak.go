// Package espeak speaks utterances through the espeak-ng command line
// synthesizer, one process per utterance.
package espeak

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/keczkasz/studywave/tts"
)

// Error code reported when the espeak process exits with an error.
const CodeProcessFailed = "process-failed"

const (
	eventBuffer  = 64
	voicesTimout = 5 * time.Second

	minWordsPerMinute = 80
	maxWordsPerMinute = 450
	defaultPitch      = 50
	maxPitch          = 99

	femaleVariant = "+f3"
)

// Synthesizer implements tts.Synthesizer on top of espeak-ng.
type Synthesizer struct {
	binary string
	config tts.EspeakConfig
	logger *log.Logger
	events chan tts.SynthesisEvent

	mu      sync.Mutex
	voices  []tts.VoiceHandle
	current string
	cancel  context.CancelFunc
	closed  bool
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// New locates the espeak binary, lists its voices and returns a ready
// synthesizer.
func New(cfg tts.EspeakConfig, logger *log.Logger) (*Synthesizer, error) {
	if logger == nil {
		logger = log.Default().WithPrefix("espeak")
	}

	binary := cfg.Binary
	if binary == "" {
		found, err := findExecutable()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", tts.ErrUnsupportedEnvironment, err)
		}
		binary = found
	}

	s := &Synthesizer{
		binary: binary,
		config: cfg,
		logger: logger,
		events: make(chan tts.SynthesisEvent, eventBuffer),
	}

	voices, err := s.listVoices()
	if err != nil {
		return nil, fmt.Errorf("%w: unable to list espeak voices: %v", tts.ErrUnsupportedEnvironment, err)
	}
	s.voices = voices
	logger.Debug("espeak ready", "binary", binary, "voices", len(voices))

	return s, nil
}

func findExecutable() (string, error) {
	for _, candidate := range []string{"espeak-ng", "espeak"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", errors.New("espeak executable not found in PATH")
}

// Submit starts an espeak process for u. Any utterance still playing is
// replaced.
func (s *Synthesizer) Submit(u tts.Utterance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("espeak synthesizer closed")
	}
	s.cancelLocked()

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, s.binary, buildArgs(s.config, u)...)
	cmd.Stdin = strings.NewReader(u.Text)

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("unable to start espeak: %w", err)
	}

	s.current = u.ID
	s.cancel = cancel
	s.emitLocked(tts.SynthesisEvent{UtteranceID: u.ID, Kind: tts.SynthesisStarted})

	go s.wait(cmd, u.ID, cancel)
	return nil
}

// Cancel kills the running process and reports the utterance as canceled.
func (s *Synthesizer) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	return nil
}

// Voices returns the voices reported by espeak at startup.
func (s *Synthesizer) Voices() []tts.VoiceHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tts.VoiceHandle(nil), s.voices...)
}

// Events returns the notification channel.
func (s *Synthesizer) Events() <-chan tts.SynthesisEvent {
	return s.events
}

// Close kills any running process and closes the event channel.
func (s *Synthesizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.cancelLocked()
	s.closed = true
	close(s.events)
	return nil
}

// Private helper methods

func (s *Synthesizer) wait(cmd *exec.Cmd, id string, cancel context.CancelFunc) {
	err := cmd.Wait()
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	// A canceled utterance was already reported by cancelLocked.
	if s.current != id {
		return
	}
	s.current = ""
	s.cancel = nil

	if err != nil {
		s.logger.Warn("espeak exited with error", "id", id, "err", err)
		s.emitLocked(tts.SynthesisEvent{UtteranceID: id, Kind: tts.SynthesisFailed, Code: CodeProcessFailed})
		return
	}
	s.emitLocked(tts.SynthesisEvent{UtteranceID: id, Kind: tts.SynthesisEnded})
}

func (s *Synthesizer) cancelLocked() {
	if s.current == "" {
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.emitLocked(tts.SynthesisEvent{UtteranceID: s.current, Kind: tts.SynthesisFailed, Code: tts.CodeCanceled})
	s.current = ""
}

func (s *Synthesizer) emitLocked(ev tts.SynthesisEvent) {
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("dropping synthesis event", "kind", ev.Kind, "id", ev.UtteranceID)
	}
}

func (s *Synthesizer) listVoices() ([]tts.VoiceHandle, error) {
	ctx, cancel := context.WithTimeout(context.Background(), voicesTimout)
	defer cancel()

	out, err := exec.CommandContext(ctx, s.binary, "--voices").Output()
	if err != nil {
		return nil, err
	}
	return parseVoices(string(out)), nil
}

// buildArgs maps an utterance onto espeak flags. Rate scales the
// configured words per minute and pitch scales espeak's default of 50.
func buildArgs(cfg tts.EspeakConfig, u tts.Utterance) []string {
	voice := string(u.Language)
	if u.Voice != nil && u.Voice.ID != "" {
		voice = u.Voice.ID
	}

	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	wpm := cfg.WordsPerMin
	if wpm <= 0 {
		wpm = tts.DefaultEspeakConfig().WordsPerMin
	}
	speed := clampInt(int(float64(wpm)*rate+0.5), minWordsPerMinute, maxWordsPerMinute)

	pitch := u.Pitch
	if pitch <= 0 {
		pitch = 1
	}
	p := clampInt(int(defaultPitch*pitch+0.5), 0, maxPitch)

	args := []string{}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	args = append(args,
		"-s", strconv.Itoa(speed),
		"-p", strconv.Itoa(p),
		"-a", strconv.Itoa(cfg.Amplitude),
	)
	if cfg.WordGapTenMs > 0 {
		args = append(args, "-g", strconv.Itoa(cfg.WordGapTenMs))
	}
	return append(args, "--stdin")
}

// parseVoices reads `espeak --voices` output:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  en-gb          --/M       English_(Great_Britain) gmw/en
//
// Every voice is listed as reported, followed by a female "+f3" variant
// for voices espeak marks as male.
func parseVoices(output string) []tts.VoiceHandle {
	var voices []tts.VoiceHandle

	for i, line := range strings.Split(output, "\n") {
		// Skip header line
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		lang := fields[1]
		name := strings.ReplaceAll(fields[3], "_", " ")
		gender := genderOf(fields[2])

		voices = append(voices, tts.VoiceHandle{
			ID:       lang,
			Name:     name,
			Language: lang,
			Gender:   gender,
			Default:  lang == "en" || lang == "en-us",
		})
		if gender != tts.GenderFemale {
			voices = append(voices, tts.VoiceHandle{
				ID:       lang + femaleVariant,
				Name:     name + " (female)",
				Language: lang,
				Gender:   tts.GenderFemale,
			})
		}
	}

	return voices
}

func genderOf(ageGender string) tts.Gender {
	_, g, ok := strings.Cut(ageGender, "/")
	if !ok {
		g = ageGender
	}
	switch strings.ToUpper(g) {
	case "F":
		return tts.GenderFemale
	case "M":
		return tts.GenderMale
	default:
		return ""
	}
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
