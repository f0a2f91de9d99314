// Package pipeline chains the cleaner, language detector, expander and
// segmenter into a tts.TextProcessor.
package pipeline

import (
	"github.com/keczkasz/studywave/tts"
	"github.com/keczkasz/studywave/tts/cleaner"
	"github.com/keczkasz/studywave/tts/expander"
	"github.com/keczkasz/studywave/tts/langdetect"
	"github.com/keczkasz/studywave/tts/segmenter"
)

// Processor prepares raw document text for playback.
type Processor struct {
	cleaner   *cleaner.Cleaner
	detector  *langdetect.Detector
	expander  *expander.Expander
	segmenter *segmenter.Segmenter
}

var _ tts.TextProcessor = (*Processor)(nil)

// New creates a Processor whose detector reads at most sampleBytes.
func New(sampleBytes int) *Processor {
	return &Processor{
		cleaner:   cleaner.New(),
		detector:  langdetect.New(sampleBytes),
		expander:  expander.New(),
		segmenter: segmenter.New(),
	}
}

// Process cleans text, detects its language when lang is empty, expands
// abbreviations and numbers, and segments the result. A caller-supplied
// language has confidence 1.
func (p *Processor) Process(text string, lang tts.Language) tts.ProcessedText {
	cleaned := p.cleaner.Clean(text)

	confidence := 1.0
	if lang == "" {
		result := p.detector.Detect(cleaned)
		lang, confidence = result.Language, result.Confidence
	}

	segments, meta := p.segmenter.Segment(p.expander.Expand(cleaned, lang))
	return tts.ProcessedText{
		Segments:   segments,
		Language:   lang,
		Confidence: confidence,
		Metadata:   meta,
	}
}

// Prepare returns the cleaned and expanded text without segmenting it.
func (p *Processor) Prepare(text string, lang tts.Language) string {
	return p.expander.Expand(p.cleaner.Clean(text), lang)
}
