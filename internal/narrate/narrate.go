// Package narrate converts text to speech and plays it.
package narrate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Player outputs encoded audio.
type Player interface {
	Play(ctx context.Context, audio io.Reader) error
}

// Narrator speaks text with a synthesizer and a player.
type Narrator struct {
	tts    Synthesizer
	player Player
}

// New creates a Narrator.
func New(tts Synthesizer, player Player) *Narrator {
	return &Narrator{tts: tts, player: player}
}

// Narrate synthesises text and blocks until the player is done with it.
func (n *Narrator) Narrate(ctx context.Context, text string) error {
	audio, err := n.tts.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	if len(audio) == 0 {
		return fmt.Errorf("synthesize: empty audio")
	}

	slog.Debug("speech synthesized",
		"component", "narrate",
		"chars", len(text),
		"bytes", len(audio),
	)

	if err := n.player.Play(ctx, bytes.NewReader(audio)); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	return nil
}
