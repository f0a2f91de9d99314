//go:build cgo && !nocgo

package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Only one oto context may exist per process.
var (
	deviceMu   sync.Mutex
	device     *oto.Context
	deviceRate int
)

func openDevice(sampleRate int) (*oto.Context, error) {
	deviceMu.Lock()
	defer deviceMu.Unlock()

	if device != nil {
		if deviceRate != sampleRate {
			return nil, fmt.Errorf("audio device already opened at %d Hz", deviceRate)
		}
		return device, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   50 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	device, deviceRate = ctx, sampleRate
	return device, nil
}

// Player plays PCM buffers one at a time. The audio device is opened on
// first use.
type Player struct {
	sampleRate int

	mu     sync.Mutex
	closed bool
}

// NewPlayer returns a player for mono PCM at sampleRate.
func NewPlayer(sampleRate int) *Player {
	return &Player{sampleRate: sampleRate}
}

// Play blocks until pcm has been played or ctx is canceled.
func (p *Player) Play(ctx context.Context, pcm []byte) error {
	if len(pcm) == 0 {
		return ErrEmpty
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	dev, err := openDevice(p.sampleRate)
	if err != nil {
		return err
	}

	// The reader keeps pcm reachable until the player is closed.
	player := dev.NewPlayer(bytes.NewReader(pcm))
	defer player.Close() //nolint:errcheck
	player.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
			if !player.IsPlaying() {
				return player.Err()
			}
		}
	}
}

// Close rejects further playback. The shared device stays open.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
