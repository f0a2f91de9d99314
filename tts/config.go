package tts

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Rate limits applied to the user rate multiplier.
const (
	MinRate = 0.5
	MaxRate = 2.0
)

// Config contains all speech configuration options.
type Config struct {
	// Global settings
	Engine      string  `yaml:"engine" mapstructure:"engine" env:"STUDYWAVE_ENGINE"`
	Language    string  `yaml:"language" mapstructure:"language" env:"STUDYWAVE_LANGUAGE"`
	Personality string  `yaml:"personality" mapstructure:"personality" env:"STUDYWAVE_PERSONALITY"`
	Rate        float64 `yaml:"rate" mapstructure:"rate" env:"STUDYWAVE_RATE"`

	// Secondary engine used after FallbackAfter consecutive failures, empty
	// to disable
	Fallback      string `yaml:"fallback" mapstructure:"fallback" env:"STUDYWAVE_FALLBACK"`
	FallbackAfter int    `yaml:"fallback_after" mapstructure:"fallback_after" env:"STUDYWAVE_FALLBACK_AFTER"`

	// Playback settings
	StallTimeout time.Duration `yaml:"stall_timeout" mapstructure:"stall_timeout" env:"STUDYWAVE_STALL_TIMEOUT"`
	StallRetries int           `yaml:"stall_retries" mapstructure:"stall_retries" env:"STUDYWAVE_STALL_RETRIES"`

	// Detection settings
	SampleBytes int `yaml:"sample_bytes" mapstructure:"sample_bytes" env:"STUDYWAVE_SAMPLE_BYTES"`

	// Engine-specific configurations
	Espeak   EspeakConfig   `yaml:"espeak" mapstructure:"espeak"`
	Mock     MockConfig     `yaml:"mock" mapstructure:"mock"`
	Piper    PiperConfig    `yaml:"piper" mapstructure:"piper"`
	Progress ProgressConfig `yaml:"progress" mapstructure:"progress"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
}

// EspeakConfig contains espeak-ng specific settings.
type EspeakConfig struct {
	Binary       string `yaml:"binary" mapstructure:"binary" env:"STUDYWAVE_ESPEAK_BINARY"`
	WordsPerMin  int    `yaml:"words_per_minute" mapstructure:"words_per_minute" env:"STUDYWAVE_ESPEAK_WPM"`
	Amplitude    int    `yaml:"amplitude" mapstructure:"amplitude" env:"STUDYWAVE_ESPEAK_AMPLITUDE"`
	WordGapTenMs int    `yaml:"word_gap" mapstructure:"word_gap" env:"STUDYWAVE_ESPEAK_WORD_GAP"`
}

// MockConfig contains settings for the silent mock synthesizer.
type MockConfig struct {
	WordsPerMinute int     `yaml:"words_per_minute" mapstructure:"words_per_minute" env:"STUDYWAVE_MOCK_WORDS_PER_MINUTE"`
	Speedup        float64 `yaml:"speedup" mapstructure:"speedup" env:"STUDYWAVE_MOCK_SPEEDUP"`
}

// PiperConfig contains Piper neural synthesizer settings.
type PiperConfig struct {
	Binary     string `yaml:"binary" mapstructure:"binary" env:"STUDYWAVE_PIPER_BINARY"`
	ModelDir   string `yaml:"model_dir" mapstructure:"model_dir" env:"STUDYWAVE_PIPER_MODEL_DIR"`
	SampleRate int    `yaml:"sample_rate" mapstructure:"sample_rate" env:"STUDYWAVE_PIPER_SAMPLE_RATE"`
}

// ProgressConfig contains listening progress persistence settings.
type ProgressConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled" env:"STUDYWAVE_PROGRESS_ENABLED"`
	Path         string        `yaml:"path" mapstructure:"path" env:"STUDYWAVE_PROGRESS_PATH"`
	SaveInterval time.Duration `yaml:"save_interval" mapstructure:"save_interval" env:"STUDYWAVE_PROGRESS_SAVE_INTERVAL"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:      "espeak",
		Language:    "auto",
		Personality: "en-emma",
		Rate:        1.0,

		FallbackAfter: 3,

		StallTimeout: 10 * time.Second,
		StallRetries: 1,

		SampleBytes: 2048,

		Espeak:   DefaultEspeakConfig(),
		Mock:     DefaultMockConfig(),
		Piper:    DefaultPiperConfig(),
		Progress: DefaultProgressConfig(),
		Cache:    DefaultCacheConfig(),
	}
}

// CacheConfig contains processed text cache settings.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled" env:"STUDYWAVE_CACHE_ENABLED"`
	Path    string `yaml:"path" mapstructure:"path" env:"STUDYWAVE_CACHE_PATH"`
	MaxSize uint64 `yaml:"max_size" mapstructure:"max_size"` // Bytes on disk
}

// DefaultEspeakConfig returns default espeak configuration.
func DefaultEspeakConfig() EspeakConfig {
	return EspeakConfig{
		Binary:      "",
		WordsPerMin: 175,
		Amplitude:   100,
	}
}

// DefaultMockConfig returns default mock configuration.
func DefaultMockConfig() MockConfig {
	return MockConfig{
		WordsPerMinute: WordsPerMinute,
		Speedup:        1.0,
	}
}

// DefaultPiperConfig returns default piper configuration.
func DefaultPiperConfig() PiperConfig {
	return PiperConfig{
		Binary:     "",
		ModelDir:   "",
		SampleRate: 22050,
	}
}

// DefaultProgressConfig returns default progress configuration.
func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{
		Enabled:      true,
		Path:         "",
		SaveInterval: 5 * time.Second,
	}
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: true,
		Path:    "",
		MaxSize: 64 * 1000 * 1000,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validEngines := []string{"mock", "espeak", "piper"}
	engineValid := false
	for _, e := range validEngines {
		if strings.EqualFold(c.Engine, e) {
			engineValid = true
			c.Engine = strings.ToLower(c.Engine)
			break
		}
	}
	if !engineValid {
		return fmt.Errorf("%w: engine '%s' must be one of %v", ErrInvalidConfig, c.Engine, validEngines)
	}

	if !strings.EqualFold(c.Language, "auto") {
		lang, ok := ParseLanguage(c.Language)
		if !ok {
			return fmt.Errorf("%w: language '%s' must be auto, en or pl", ErrInvalidConfig, c.Language)
		}
		c.Language = lang.String()
	} else {
		c.Language = "auto"
	}

	if c.Fallback != "" {
		c.Fallback = strings.ToLower(c.Fallback)
		if !slices.Contains(validEngines, c.Fallback) {
			return fmt.Errorf("%w: fallback '%s' must be empty or one of %v", ErrInvalidConfig, c.Fallback, validEngines)
		}
		if c.Fallback == c.Engine {
			return fmt.Errorf("%w: fallback must differ from engine '%s'", ErrInvalidConfig, c.Engine)
		}
	}

	if c.FallbackAfter < 1 || c.FallbackAfter > 10 {
		return fmt.Errorf("%w: fallback_after must be between 1 and 10, got %d", ErrInvalidConfig, c.FallbackAfter)
	}

	if c.Personality == "" {
		return fmt.Errorf("%w: personality cannot be empty", ErrInvalidConfig)
	}

	if c.Rate < MinRate || c.Rate > MaxRate {
		return fmt.Errorf("%w: rate must be between %.1f and %.1f, got %f", ErrInvalidConfig, MinRate, MaxRate, c.Rate)
	}

	if c.StallTimeout < time.Second {
		return fmt.Errorf("%w: stall_timeout must be at least 1 second, got %v", ErrInvalidConfig, c.StallTimeout)
	}

	if c.StallRetries < 0 || c.StallRetries > 5 {
		return fmt.Errorf("%w: stall_retries must be between 0 and 5, got %d", ErrInvalidConfig, c.StallRetries)
	}

	if c.SampleBytes < 64 || c.SampleBytes > 65536 {
		return fmt.Errorf("%w: sample_bytes must be between 64 and 65536, got %d", ErrInvalidConfig, c.SampleBytes)
	}

	for _, engine := range []string{c.Engine, c.Fallback} {
		switch engine {
		case "espeak":
			if err := c.Espeak.Validate(); err != nil {
				return fmt.Errorf("espeak config: %w", err)
			}
		case "mock":
			if err := c.Mock.Validate(); err != nil {
				return fmt.Errorf("mock config: %w", err)
			}
		case "piper":
			if err := c.Piper.Validate(); err != nil {
				return fmt.Errorf("piper config: %w", err)
			}
		}
	}

	if err := c.Progress.Validate(); err != nil {
		return fmt.Errorf("progress config: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	return nil
}

// Validate checks if the espeak configuration is valid.
func (c *EspeakConfig) Validate() error {
	if c.WordsPerMin < 80 || c.WordsPerMin > 450 {
		return fmt.Errorf("%w: words_per_minute must be between 80 and 450, got %d", ErrInvalidConfig, c.WordsPerMin)
	}
	if c.Amplitude < 0 || c.Amplitude > 200 {
		return fmt.Errorf("%w: amplitude must be between 0 and 200, got %d", ErrInvalidConfig, c.Amplitude)
	}
	if c.WordGapTenMs < 0 {
		return fmt.Errorf("%w: word_gap cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// Validate checks if the mock configuration is valid.
func (c *MockConfig) Validate() error {
	if c.WordsPerMinute < 50 || c.WordsPerMinute > 500 {
		return fmt.Errorf("%w: words_per_minute must be between 50 and 500, got %d", ErrInvalidConfig, c.WordsPerMinute)
	}
	if c.Speedup < 1 || c.Speedup > 100 {
		return fmt.Errorf("%w: speedup must be between 1 and 100, got %f", ErrInvalidConfig, c.Speedup)
	}
	return nil
}

// Validate checks if the piper configuration is valid.
func (c *PiperConfig) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 48000 {
		return fmt.Errorf("%w: sample_rate must be between 8000 and 48000, got %d", ErrInvalidConfig, c.SampleRate)
	}
	return nil
}

// Validate checks if the progress configuration is valid.
func (c *ProgressConfig) Validate() error {
	if c.Enabled && c.SaveInterval < 100*time.Millisecond {
		return fmt.Errorf("%w: save_interval must be at least 100ms, got %v", ErrInvalidConfig, c.SaveInterval)
	}
	return nil
}

// Validate checks if the cache configuration is valid.
func (c *CacheConfig) Validate() error {
	if c.Enabled && c.MaxSize < 1000*1000 {
		return fmt.Errorf("%w: max_size must be at least 1 MB, got %d bytes", ErrInvalidConfig, c.MaxSize)
	}
	return nil
}

// AutoDetect reports whether the document language should be detected.
func (c *Config) AutoDetect() bool {
	return strings.EqualFold(c.Language, "auto") || c.Language == ""
}

// ToEngineConfig converts the configuration to engine settings.
func (c *Config) ToEngineConfig() EngineConfig {
	ec := DefaultEngineConfig()
	ec.Rate = c.Rate
	ec.PersonalityID = c.Personality
	ec.StallTimeout = c.StallTimeout
	ec.StallRetries = c.StallRetries
	return ec
}
