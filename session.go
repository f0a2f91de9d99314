package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/keczkasz/studywave/internal/cache"
	"github.com/keczkasz/studywave/tts"
	"github.com/keczkasz/studywave/tts/audio"
	"github.com/keczkasz/studywave/tts/engines"
	"github.com/keczkasz/studywave/tts/engines/espeak"
	"github.com/keczkasz/studywave/tts/engines/mock"
	"github.com/keczkasz/studywave/tts/engines/piper"
	"github.com/keczkasz/studywave/tts/pipeline"
	"github.com/keczkasz/studywave/tts/voice"
)

type host = engines.Host

// session bundles an engine with the synthesizer and selector it was
// built from.
type session struct {
	engine   *tts.Engine
	synth    host
	selector *voice.Selector
	closers  []func() error
}

// newProcessor returns the preprocessing pipeline, cached when enabled.
// The returned func releases the cache.
func newProcessor(c tts.Config) (tts.TextProcessor, func() error) {
	p := pipeline.New(c.SampleBytes)
	if !c.Cache.Enabled {
		return p, func() error { return nil }
	}

	store, err := cache.Open(c.Cache.Path, int64(c.Cache.MaxSize))
	if err != nil {
		log.Warn("processed text cache disabled", "err", err)
		return p, func() error { return nil }
	}
	return cache.NewProcessor(p, store, log.Default().WithPrefix("cache")), store.Close
}

// newHost opens the configured engine, wrapped with the fallback engine
// when one is set. A primary that cannot start is replaced outright.
func newHost(c tts.Config) (host, error) {
	primary, err := openEngine(c.Engine, c)
	if c.Fallback == "" {
		return primary, err
	}

	secondary, ferr := openEngine(c.Fallback, c)
	switch {
	case err != nil && ferr != nil:
		return nil, fmt.Errorf("both engines failed: %w", errors.Join(err, ferr))
	case err != nil:
		log.Warn("using fallback engine", "engine", c.Fallback, "err", err)
		return secondary, nil
	case ferr != nil:
		log.Warn("fallback engine unavailable", "engine", c.Fallback, "err", ferr)
		return primary, nil
	}
	return engines.NewFallback(primary, secondary, c.FallbackAfter, log.Default().WithPrefix("fallback")), nil
}

func openEngine(name string, c tts.Config) (host, error) {
	switch name {
	case "mock":
		return mock.NewPaced(c.Mock), nil
	case "espeak":
		s, err := espeak.New(c.Espeak, log.Default().WithPrefix("espeak"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "piper":
		s, err := piper.New(c.Piper, audio.NewPlayer(c.Piper.SampleRate), log.Default().WithPrefix("piper"))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: engine %q", tts.ErrInvalidConfig, name)
	}
}

// resolvePersonality picks the starting personality: a --voice query wins
// over the configured id, and a fixed document language swaps in the
// closest personality speaking it.
func resolvePersonality(sel *voice.Selector, c tts.Config, query string) (tts.Personality, error) {
	var (
		p  tts.Personality
		ok bool
	)
	if query != "" {
		p, ok = sel.Find(query)
	} else {
		p, ok = sel.Personality(c.Personality)
	}
	if !ok {
		name := query
		if name == "" {
			name = c.Personality
		}
		return tts.Personality{}, fmt.Errorf("%w: %s", tts.ErrUnknownPersonality, name)
	}

	if !c.AutoDetect() {
		if lang, ok := tts.ParseLanguage(c.Language); ok && lang != p.Language {
			p = sel.Match(lang, p)
		}
	}
	return p, nil
}

func newSession(c tts.Config, voiceQuery string) (*session, error) {
	synth, err := newHost(c)
	if err != nil {
		return nil, err
	}

	sel := voice.New()
	p, err := resolvePersonality(sel, c, voiceQuery)
	if err != nil {
		_ = synth.Close()
		return nil, err
	}

	ec := c.ToEngineConfig()
	ec.PersonalityID = p.ID
	ec.Logger = log.Default().WithPrefix("tts")

	processor, closeCache := newProcessor(c)
	engine, err := tts.NewEngine(synth, processor, sel, ec)
	if err != nil {
		_ = closeCache()
		_ = synth.Close()
		return nil, err
	}

	return &session{engine: engine, synth: synth, selector: sel, closers: []func() error{closeCache}}, nil
}

func (s *session) Close() error {
	_ = s.engine.Close()
	err := s.synth.Close()
	for _, c := range s.closers {
		err = errors.Join(err, c())
	}
	return err
}
