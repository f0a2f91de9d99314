package piper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/keczkasz/studywave/tts"
)

type fakeOutput struct {
	mu     sync.Mutex
	played [][]byte
	block  bool
	err    error
	closed bool
}

func (o *fakeOutput) Play(ctx context.Context, pcm []byte) error {
	o.mu.Lock()
	o.played = append(o.played, pcm)
	block, err := o.block, o.err
	o.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

func (o *fakeOutput) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.played)
}

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

// newTestSynth builds a synthesizer around a shell script standing in for
// piper.
func newTestSynth(t *testing.T, script string, out Output) *Synthesizer {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}

	dir := t.TempDir()
	binary := filepath.Join(dir, "piper")
	writeFile(t, binary, "#!/bin/sh\n"+script+"\n", 0o755)
	writeFile(t, filepath.Join(dir, "en_US-amy-low.onnx"), "", 0o644)
	writeFile(t, filepath.Join(dir, "pl_PL-gosia-medium.onnx"), "", 0o644)

	s, err := New(tts.PiperConfig{Binary: binary, ModelDir: dir, SampleRate: 16000}, out, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func nextEvent(t *testing.T, s *Synthesizer) tts.SynthesisEvent {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for a synthesis event")
		return tts.SynthesisEvent{}
	}
}

func TestScanModels(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pl_PL-darkman-medium.onnx"), "", 0o644)
	writeFile(t, filepath.Join(dir, "pl_PL-darkman-medium.onnx.json"), "{}", 0o644)
	writeFile(t, filepath.Join(dir, "en_GB-northern_english_male-medium.onnx"), "", 0o644)
	writeFile(t, filepath.Join(dir, "custom.onnx"), "", 0o644)
	writeFile(t, filepath.Join(dir, "README.md"), "", 0o644)
	if err := os.Mkdir(filepath.Join(dir, "nested.onnx"), 0o755); err != nil {
		t.Fatal(err)
	}

	voices, err := scanModels(dir)
	if err != nil {
		t.Fatalf("scanModels() error = %v", err)
	}

	want := []tts.VoiceHandle{
		{ID: filepath.Join(dir, "custom.onnx"), Name: "custom"},
		{ID: filepath.Join(dir, "en_GB-northern_english_male-medium.onnx"), Name: "Northern English Male (neural, medium)", Language: "en-GB"},
		{ID: filepath.Join(dir, "pl_PL-darkman-medium.onnx"), Name: "Darkman (neural, medium)", Language: "pl-PL"},
	}
	if !reflect.DeepEqual(voices, want) {
		t.Errorf("scanModels() =\n%+v\nwant\n%+v", voices, want)
	}
}

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want string
	}{
		{"normal", 1, "1.00"},
		{"fast", 2, "0.50"},
		{"slow", 0.5, "2.00"},
		{"unset", 0, "1.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildArgs("m.onnx", tts.Utterance{Rate: tt.rate})
			want := []string{"--model", "m.onnx", "--output-raw", "--length_scale", tt.want}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("buildArgs() = %v, want %v", got, want)
			}
		})
	}
}

func TestNewWithoutModels(t *testing.T) {
	_, err := New(tts.PiperConfig{Binary: "/bin/true", ModelDir: t.TempDir()}, &fakeOutput{}, nil)
	if !errors.Is(err, tts.ErrUnsupportedEnvironment) {
		t.Errorf("New() error = %v, want ErrUnsupportedEnvironment", err)
	}

	_, err = New(tts.PiperConfig{Binary: "/bin/true", ModelDir: filepath.Join(t.TempDir(), "missing")}, &fakeOutput{}, nil)
	if !errors.Is(err, tts.ErrUnsupportedEnvironment) {
		t.Errorf("New() missing dir error = %v, want ErrUnsupportedEnvironment", err)
	}

	if _, err := New(tts.PiperConfig{}, nil, nil); err == nil {
		t.Error("New() without output should fail")
	}
}

func TestModelFor(t *testing.T) {
	s := &Synthesizer{voices: []tts.VoiceHandle{
		{ID: "a.onnx", Language: "en-US"},
		{ID: "b.onnx", Language: "pl-PL"},
	}}

	tests := []struct {
		name string
		u    tts.Utterance
		want string
	}{
		{"pinned voice", tts.Utterance{Voice: &tts.VoiceHandle{ID: "b.onnx"}, Language: tts.LanguageEnglish}, "b.onnx"},
		{"language", tts.Utterance{Language: tts.LanguagePolish}, "b.onnx"},
		{"unknown voice", tts.Utterance{Voice: &tts.VoiceHandle{ID: "zz"}, Language: tts.LanguageEnglish}, "a.onnx"},
		{"no hints", tts.Utterance{}, "a.onnx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.modelFor(tt.u); got != tt.want {
				t.Errorf("modelFor() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSpeak(t *testing.T) {
	out := &fakeOutput{}
	s := newTestSynth(t, "cat >/dev/null\nprintf 'pcm!'", out)

	if err := s.Submit(tts.Utterance{ID: "u1", Text: "Hello", Language: tts.LanguageEnglish, Rate: 1}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if ev := nextEvent(t, s); ev.Kind != tts.SynthesisStarted || ev.UtteranceID != "u1" {
		t.Errorf("First event = %+v, want started", ev)
	}
	if ev := nextEvent(t, s); ev.Kind != tts.SynthesisEnded || ev.UtteranceID != "u1" {
		t.Errorf("Second event = %+v, want ended", ev)
	}

	out.mu.Lock()
	defer out.mu.Unlock()
	if len(out.played) != 1 || string(out.played[0]) != "pcm!" {
		t.Errorf("Played = %q", out.played)
	}
}

func TestSpeakProcessFailure(t *testing.T) {
	out := &fakeOutput{}
	s := newTestSynth(t, "exit 1", out)

	_ = s.Submit(tts.Utterance{ID: "u1", Text: "Hello", Rate: 1})

	ev := nextEvent(t, s)
	if ev.Kind != tts.SynthesisFailed || ev.Code != CodeProcessFailed {
		t.Errorf("Event = %+v, want process failure", ev)
	}
	if out.count() != 0 {
		t.Error("Nothing should be played when piper fails")
	}
}

func TestSpeakNoAudio(t *testing.T) {
	s := newTestSynth(t, "cat >/dev/null", &fakeOutput{})

	_ = s.Submit(tts.Utterance{ID: "u1", Text: "Hello", Rate: 1})

	if ev := nextEvent(t, s); ev.Kind != tts.SynthesisFailed || ev.Code != CodeProcessFailed {
		t.Errorf("Event = %+v, want process failure", ev)
	}
}

func TestSpeakPlaybackFailure(t *testing.T) {
	s := newTestSynth(t, "cat >/dev/null\nprintf 'pcm!'", &fakeOutput{err: errors.New("device gone")})

	_ = s.Submit(tts.Utterance{ID: "u1", Text: "Hello", Rate: 1})

	if ev := nextEvent(t, s); ev.Kind != tts.SynthesisStarted {
		t.Fatalf("Event = %+v, want started", ev)
	}
	if ev := nextEvent(t, s); ev.Kind != tts.SynthesisFailed || ev.Code != CodePlaybackFailed {
		t.Errorf("Event = %+v, want playback failure", ev)
	}
}

func TestCancelDuringPlayback(t *testing.T) {
	out := &fakeOutput{block: true}
	s := newTestSynth(t, "cat >/dev/null\nprintf 'pcm!'", out)

	_ = s.Submit(tts.Utterance{ID: "u1", Text: "Hello", Rate: 1})
	if ev := nextEvent(t, s); ev.Kind != tts.SynthesisStarted {
		t.Fatalf("Event = %+v, want started", ev)
	}

	if err := s.Cancel(); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	ev := nextEvent(t, s)
	if ev.Kind != tts.SynthesisFailed || ev.Code != tts.CodeCanceled || ev.UtteranceID != "u1" {
		t.Errorf("Event = %+v, want canceled", ev)
	}

	select {
	case ev := <-s.Events():
		t.Errorf("Unexpected event after cancel: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClose(t *testing.T) {
	out := &fakeOutput{}
	s := newTestSynth(t, "cat >/dev/null", out)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Second Close() error = %v", err)
	}
	if !out.closed {
		t.Error("Close should close the output")
	}
	if _, ok := <-s.Events(); ok {
		t.Error("Events channel should be closed")
	}
	if err := s.Submit(tts.Utterance{ID: "u1", Text: "Hello"}); err == nil {
		t.Error("Submit() after Close should fail")
	}
}
