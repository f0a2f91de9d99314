package tts

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LoadConfigFromViper loads configuration from the global Viper instance.
func LoadConfigFromViper() (Config, error) {
	return LoadConfig(viper.GetViper())
}

// LoadConfig reads tts.* keys from v, applies STUDYWAVE_* environment
// overrides and validates the result.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	// Global settings
	if v.IsSet("tts.engine") {
		cfg.Engine = v.GetString("tts.engine")
	}
	if v.IsSet("tts.language") {
		cfg.Language = v.GetString("tts.language")
	}
	if v.IsSet("tts.personality") {
		cfg.Personality = v.GetString("tts.personality")
	}
	if v.IsSet("tts.rate") {
		cfg.Rate = v.GetFloat64("tts.rate")
	}
	if v.IsSet("tts.fallback") {
		cfg.Fallback = v.GetString("tts.fallback")
	}
	if v.IsSet("tts.fallback_after") {
		cfg.FallbackAfter = v.GetInt("tts.fallback_after")
	}

	// Playback settings
	if v.IsSet("tts.stall_timeout") {
		if d, err := time.ParseDuration(v.GetString("tts.stall_timeout")); err == nil {
			cfg.StallTimeout = d
		}
	}
	if v.IsSet("tts.stall_retries") {
		cfg.StallRetries = v.GetInt("tts.stall_retries")
	}
	if v.IsSet("tts.sample_bytes") {
		cfg.SampleBytes = v.GetInt("tts.sample_bytes")
	}

	cfg.Espeak = loadEspeakConfig(v)
	cfg.Mock = loadMockConfig(v)
	cfg.Piper = loadPiperConfig(v)
	cfg.Progress = loadProgressConfig(v)
	cfg.Cache = loadCacheConfig(v)

	// Environment wins over the config file
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid speech configuration: %w", err)
	}

	return cfg, nil
}

func loadEspeakConfig(v *viper.Viper) EspeakConfig {
	cfg := DefaultEspeakConfig()

	if v.IsSet("tts.espeak.binary") {
		cfg.Binary = v.GetString("tts.espeak.binary")
	}
	if v.IsSet("tts.espeak.words_per_minute") {
		cfg.WordsPerMin = v.GetInt("tts.espeak.words_per_minute")
	}
	if v.IsSet("tts.espeak.amplitude") {
		cfg.Amplitude = v.GetInt("tts.espeak.amplitude")
	}
	if v.IsSet("tts.espeak.word_gap") {
		cfg.WordGapTenMs = v.GetInt("tts.espeak.word_gap")
	}

	return cfg
}

func loadMockConfig(v *viper.Viper) MockConfig {
	cfg := DefaultMockConfig()

	if v.IsSet("tts.mock.words_per_minute") {
		cfg.WordsPerMinute = v.GetInt("tts.mock.words_per_minute")
	}
	if v.IsSet("tts.mock.speedup") {
		cfg.Speedup = v.GetFloat64("tts.mock.speedup")
	}

	return cfg
}

func loadPiperConfig(v *viper.Viper) PiperConfig {
	cfg := DefaultPiperConfig()

	if v.IsSet("tts.piper.binary") {
		cfg.Binary = v.GetString("tts.piper.binary")
	}
	if v.IsSet("tts.piper.model_dir") {
		cfg.ModelDir = v.GetString("tts.piper.model_dir")
	}
	if v.IsSet("tts.piper.sample_rate") {
		cfg.SampleRate = v.GetInt("tts.piper.sample_rate")
	}

	return cfg
}

func loadProgressConfig(v *viper.Viper) ProgressConfig {
	cfg := DefaultProgressConfig()

	if v.IsSet("tts.progress.enabled") {
		cfg.Enabled = v.GetBool("tts.progress.enabled")
	}
	if v.IsSet("tts.progress.path") {
		cfg.Path = v.GetString("tts.progress.path")
	}
	if v.IsSet("tts.progress.save_interval") {
		if d, err := time.ParseDuration(v.GetString("tts.progress.save_interval")); err == nil {
			cfg.SaveInterval = d
		}
	}

	return cfg
}

func loadCacheConfig(v *viper.Viper) CacheConfig {
	cfg := DefaultCacheConfig()

	if v.IsSet("tts.cache.enabled") {
		cfg.Enabled = v.GetBool("tts.cache.enabled")
	}
	if v.IsSet("tts.cache.path") {
		cfg.Path = v.GetString("tts.cache.path")
	}
	if v.IsSet("tts.cache.max_size") {
		if n, err := humanize.ParseBytes(v.GetString("tts.cache.max_size")); err == nil {
			cfg.MaxSize = n
		}
	}

	return cfg
}

// SetDefaults sets default values in v for every tts.* key.
func SetDefaults(v *viper.Viper) {
	defaults := DefaultConfig()

	v.SetDefault("tts.engine", defaults.Engine)
	v.SetDefault("tts.language", defaults.Language)
	v.SetDefault("tts.personality", defaults.Personality)
	v.SetDefault("tts.rate", defaults.Rate)
	v.SetDefault("tts.fallback", defaults.Fallback)
	v.SetDefault("tts.fallback_after", defaults.FallbackAfter)

	v.SetDefault("tts.stall_timeout", defaults.StallTimeout.String())
	v.SetDefault("tts.stall_retries", defaults.StallRetries)
	v.SetDefault("tts.sample_bytes", defaults.SampleBytes)

	v.SetDefault("tts.espeak.binary", defaults.Espeak.Binary)
	v.SetDefault("tts.espeak.words_per_minute", defaults.Espeak.WordsPerMin)
	v.SetDefault("tts.espeak.amplitude", defaults.Espeak.Amplitude)
	v.SetDefault("tts.espeak.word_gap", defaults.Espeak.WordGapTenMs)

	v.SetDefault("tts.mock.words_per_minute", defaults.Mock.WordsPerMinute)
	v.SetDefault("tts.mock.speedup", defaults.Mock.Speedup)

	v.SetDefault("tts.piper.binary", defaults.Piper.Binary)
	v.SetDefault("tts.piper.model_dir", defaults.Piper.ModelDir)
	v.SetDefault("tts.piper.sample_rate", defaults.Piper.SampleRate)

	v.SetDefault("tts.progress.enabled", defaults.Progress.Enabled)
	v.SetDefault("tts.progress.path", defaults.Progress.Path)
	v.SetDefault("tts.progress.save_interval", defaults.Progress.SaveInterval.String())

	v.SetDefault("tts.cache.enabled", defaults.Cache.Enabled)
	v.SetDefault("tts.cache.path", defaults.Cache.Path)
	v.SetDefault("tts.cache.max_size", humanize.Bytes(defaults.Cache.MaxSize))
}

// fileConfig mirrors Config with durations spelled the way the config
// file accepts them.
type fileConfig struct {
	Engine        string       `yaml:"engine"`
	Language      string       `yaml:"language"`
	Personality   string       `yaml:"personality"`
	Rate          float64      `yaml:"rate"`
	Fallback      string       `yaml:"fallback"`
	FallbackAfter int          `yaml:"fallback_after"`
	StallTimeout  string       `yaml:"stall_timeout"`
	StallRetries  int          `yaml:"stall_retries"`
	SampleBytes   int          `yaml:"sample_bytes"`
	Espeak        EspeakConfig `yaml:"espeak"`
	Mock          MockConfig   `yaml:"mock"`
	Piper         PiperConfig  `yaml:"piper"`
	Progress      progressFile `yaml:"progress"`
	Cache         cacheFile    `yaml:"cache"`
}

type progressFile struct {
	Enabled      bool   `yaml:"enabled"`
	Path         string `yaml:"path"`
	SaveInterval string `yaml:"save_interval"`
}

type cacheFile struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	MaxSize string `yaml:"max_size"`
}

// MarshalYAML renders the configuration under a top-level tts key.
func (c Config) MarshalYAML() (interface{}, error) {
	return map[string]fileConfig{
		"tts": {
			Engine:        c.Engine,
			Language:      c.Language,
			Personality:   c.Personality,
			Rate:          c.Rate,
			Fallback:      c.Fallback,
			FallbackAfter: c.FallbackAfter,
			StallTimeout:  c.StallTimeout.String(),
			StallRetries:  c.StallRetries,
			SampleBytes:   c.SampleBytes,
			Espeak:        c.Espeak,
			Mock:          c.Mock,
			Piper:         c.Piper,
			Progress: progressFile{
				Enabled:      c.Progress.Enabled,
				Path:         c.Progress.Path,
				SaveInterval: c.Progress.SaveInterval.String(),
			},
			Cache: cacheFile{
				Enabled: c.Cache.Enabled,
				Path:    c.Cache.Path,
				MaxSize: humanize.Bytes(c.Cache.MaxSize),
			},
		},
	}, nil
}

// EncodeYAML renders c in config file format.
func EncodeYAML(c Config) ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("unable to encode configuration: %w", err)
	}
	return out, nil
}

// SaveConfig writes c to path, creating parent directories.
func SaveConfig(c Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := EncodeYAML(c)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
