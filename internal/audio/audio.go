// Package audio plays the sound timer's beep.
package audio

import (
	"fmt"
	"log/slog"

	"github.com/ebitengine/oto/v3"
)

// Beeper plays a square wave through oto while the tone is on.
type Beeper struct {
	ctx    *oto.Context
	player *oto.Player
	tone   *tone
}

func NewBeeper(sampleRate, frequency int) (*Beeper, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio context: %w", err)
	}
	<-ready
	slog.Debug("audio: context ready", "rate", sampleRate, "freq", frequency)

	t := newTone(sampleRate, frequency)
	player := ctx.NewPlayer(t)
	player.Play()

	return &Beeper{
		ctx:    ctx,
		player: player,
		tone:   t,
	}, nil
}

func (b *Beeper) SetTone(on bool) {
	b.tone.SetTone(on)
}

func (b *Beeper) Close() {
	b.tone.SetTone(false)
	b.player.Pause()
	b.player.Close()
	slog.Debug("audio: closed")
}

// Mute is a speaker that never makes a sound.
type Mute struct{}

func (Mute) SetTone(bool) {}
