//go:build nocgo || !cgo

package audio

import "context"

// Player is a stand-in for builds without audio output.
type Player struct{}

// NewPlayer returns a player that always fails.
func NewPlayer(int) *Player {
	return &Player{}
}

// Play returns ErrEmpty or ErrUnavailable.
func (p *Player) Play(_ context.Context, pcm []byte) error {
	if len(pcm) == 0 {
		return ErrEmpty
	}
	return ErrUnavailable
}

// Close does nothing.
func (p *Player) Close() error {
	return nil
}
