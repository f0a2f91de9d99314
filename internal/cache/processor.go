package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"

	"github.com/charmbracelet/log"

	"github.com/keczkasz/studywave/tts"
)

// formatVersion is part of every key. Bump it when preprocessing output
// changes so stale entries are never read.
const formatVersion = "v1"

// Processor wraps a tts.TextProcessor and caches its output by document
// text and language.
type Processor struct {
	next   tts.TextProcessor
	cache  *Cache
	logger *log.Logger
}

var _ tts.TextProcessor = (*Processor)(nil)

// NewProcessor returns a caching processor in front of next.
func NewProcessor(next tts.TextProcessor, c *Cache, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.Default()
	}
	return &Processor{next: next, cache: c, logger: logger}
}

// Key returns the cache key for text processed as lang.
func Key(text string, lang tts.Language) string {
	sum := sha256.Sum256([]byte(text))
	l := string(lang)
	if l == "" {
		l = "auto"
	}
	return formatVersion + "/" + l + "/" + hex.EncodeToString(sum[:])
}

// Process returns the cached result for text when there is one.
func (p *Processor) Process(text string, lang tts.Language) tts.ProcessedText {
	key := Key(text, lang)

	if data, level, ok := p.cache.Get(key); ok {
		var out tts.ProcessedText
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&out); err == nil {
			p.logger.Debug("processed text cache hit", "tier", level, "segments", len(out.Segments))
			return out
		}
		p.logger.Warn("dropping corrupt cache entry", "key", key)
		_ = p.cache.Delete(key)
	}

	out := p.next.Process(text, lang)
	if len(out.Segments) == 0 {
		return out
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(out); err != nil {
		p.logger.Warn("unable to encode processed text", "err", err)
		return out
	}
	if err := p.cache.Put(key, buf.Bytes()); err != nil {
		p.logger.Debug("processed text not cached", "err", err)
	}
	return out
}
