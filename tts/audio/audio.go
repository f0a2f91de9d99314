// Package audio plays raw 16-bit little-endian mono PCM on the system
// audio device.
package audio

import (
	"errors"
	"time"
)

const (
	// BytesPerSample of signed 16-bit PCM.
	BytesPerSample = 2

	pollInterval = 10 * time.Millisecond
)

var (
	// ErrEmpty is returned when there is nothing to play.
	ErrEmpty = errors.New("audio data is empty")

	// ErrClosed is returned by a closed player.
	ErrClosed = errors.New("audio player is closed")

	// ErrUnavailable is returned when the binary was built without audio
	// output support.
	ErrUnavailable = errors.New("audio output not available in this build")
)

// Duration returns how long n bytes of mono PCM play at sampleRate.
func Duration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := n / BytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
