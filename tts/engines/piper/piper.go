// Package piper speaks utterances with the Piper neural synthesizer. A
// fresh piper process renders each utterance to raw PCM which is then
// played through an Output.
package piper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/keczkasz/studywave/tts"
)

// Error codes reported for utterances that could not be spoken.
const (
	CodeProcessFailed  = "process-failed"
	CodePlaybackFailed = "playback-failed"
)

const (
	eventBuffer = 64
	modelExt    = ".onnx"
)

// Output plays mono 16-bit PCM, blocking until playback ends or ctx is
// canceled.
type Output interface {
	Play(ctx context.Context, pcm []byte) error
	Close() error
}

// Synthesizer implements tts.Synthesizer on top of the piper binary.
type Synthesizer struct {
	binary string
	output Output
	logger *log.Logger
	events chan tts.SynthesisEvent
	voices []tts.VoiceHandle

	mu      sync.Mutex
	current string
	cancel  context.CancelFunc
	closed  bool
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// DefaultModelDir is where models are looked up when none is configured.
func DefaultModelDir() (string, error) {
	return gap.NewScope(gap.User, "studywave").DataPath("piper")
}

// New locates the piper binary and the voice models and returns a
// synthesizer playing through out.
func New(cfg tts.PiperConfig, out Output, logger *log.Logger) (*Synthesizer, error) {
	if logger == nil {
		logger = log.Default().WithPrefix("piper")
	}
	if out == nil {
		return nil, errors.New("piper needs an audio output")
	}

	binary := cfg.Binary
	if binary == "" {
		found, err := exec.LookPath("piper")
		if err != nil {
			return nil, fmt.Errorf("%w: piper executable not found in PATH", tts.ErrUnsupportedEnvironment)
		}
		binary = found
	}

	dir := cfg.ModelDir
	if dir == "" {
		var err error
		if dir, err = DefaultModelDir(); err != nil {
			return nil, err
		}
	}
	dir, err := homedir.Expand(dir)
	if err != nil {
		return nil, err
	}

	voices, err := scanModels(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read piper models: %v", tts.ErrUnsupportedEnvironment, err)
	}
	if len(voices) == 0 {
		return nil, fmt.Errorf("%w: no piper models in %s", tts.ErrUnsupportedEnvironment, dir)
	}
	logger.Debug("piper ready", "binary", binary, "models", len(voices))

	return &Synthesizer{
		binary: binary,
		output: out,
		logger: logger,
		events: make(chan tts.SynthesisEvent, eventBuffer),
		voices: voices,
	}, nil
}

// Submit renders and plays u in the background. Any utterance still in
// flight is replaced.
func (s *Synthesizer) Submit(u tts.Utterance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("piper synthesizer closed")
	}
	s.cancelLocked()

	ctx, cancel := context.WithCancel(context.Background())
	s.current = u.ID
	s.cancel = cancel

	go s.speak(ctx, u, s.modelFor(u))
	return nil
}

// Cancel stops rendering or playback and reports the utterance as
// canceled.
func (s *Synthesizer) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	return nil
}

// Voices returns one voice per model.
func (s *Synthesizer) Voices() []tts.VoiceHandle {
	return append([]tts.VoiceHandle(nil), s.voices...)
}

// Events returns the notification channel.
func (s *Synthesizer) Events() <-chan tts.SynthesisEvent {
	return s.events
}

// Close stops playback, closes the output and the event channel.
func (s *Synthesizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.cancelLocked()
	s.closed = true
	close(s.events)
	return s.output.Close()
}

// Private helper methods

func (s *Synthesizer) speak(ctx context.Context, u tts.Utterance, model string) {
	cmd := exec.CommandContext(ctx, s.binary, buildArgs(model, u)...)
	cmd.Stdin = strings.NewReader(u.Text + "\n")

	pcm, err := cmd.Output()
	if ctx.Err() != nil {
		return
	}
	if err == nil && len(pcm) == 0 {
		err = errors.New("no audio generated")
	}
	if err != nil {
		s.logger.Warn("piper failed", "id", u.ID, "err", err)
		s.finish(u.ID, CodeProcessFailed)
		return
	}

	s.mu.Lock()
	if s.current != u.ID {
		s.mu.Unlock()
		return
	}
	s.emitLocked(tts.SynthesisEvent{UtteranceID: u.ID, Kind: tts.SynthesisStarted})
	s.mu.Unlock()

	err = s.output.Play(ctx, pcm)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		s.logger.Warn("playback failed", "id", u.ID, "err", err)
		s.finish(u.ID, CodePlaybackFailed)
		return
	}
	s.finish(u.ID, "")
}

// finish reports the end of id unless it was replaced or canceled. An
// empty code means it ended naturally.
func (s *Synthesizer) finish(id, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != id {
		return
	}
	s.cancel()
	s.current = ""
	s.cancel = nil

	if code != "" {
		s.emitLocked(tts.SynthesisEvent{UtteranceID: id, Kind: tts.SynthesisFailed, Code: code})
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

// modelFor returns the model of the requested voice, else the first model
// speaking the utterance language, else the first model.
func (s *Synthesizer) modelFor(u tts.Utterance) string {
	if u.Voice != nil {
		for _, v := range s.voices {
			if v.ID == u.Voice.ID {
				return v.ID
			}
		}
	}
	if u.Language != "" {
		for _, v := range s.voices {
			if strings.HasPrefix(strings.ToLower(v.Language), string(u.Language)) {
				return v.ID
			}
		}
	}
	return s.voices[0].ID
}

// buildArgs maps an utterance onto piper flags. Piper has no pitch
// control; rate becomes the inverse length scale.
func buildArgs(model string, u tts.Utterance) []string {
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	return []string{
		"--model", model,
		"--output-raw",
		"--length_scale", strconv.FormatFloat(1/rate, 'f', 2, 64),
	}
}

// scanModels lists the .onnx models in dir. Piper model files are named
// <locale>-<voice>-<quality>.onnx, for example en_US-lessac-medium.onnx.
func scanModels(dir string) ([]tts.VoiceHandle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var voices []tts.VoiceHandle
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != modelExt {
			continue
		}
		voices = append(voices, parseModelName(filepath.Join(dir, e.Name())))
	}
	sort.Slice(voices, func(i, j int) bool { return voices[i].ID < voices[j].ID })
	return voices, nil
}

func parseModelName(path string) tts.VoiceHandle {
	base := strings.TrimSuffix(filepath.Base(path), modelExt)
	parts := strings.SplitN(base, "-", 3)

	v := tts.VoiceHandle{ID: path, Name: base}
	if len(parts) < 2 {
		return v
	}

	v.Language = strings.ReplaceAll(parts[0], "_", "-")
	name := cases.Title(language.Und).String(strings.ReplaceAll(parts[1], "_", " "))
	quality := "neural"
	if len(parts) == 3 {
		quality += ", " + parts[2]
	}
	v.Name = fmt.Sprintf("%s (%s)", name, quality)
	return v
}
