package narrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haguro/elevenlabs-go"
)

// ElevenLabs defaults.
const (
	DefaultModelID      = "eleven_multilingual_v2"
	DefaultOutputFormat = "mp3_44100_128"
	requestTimeout      = 2 * time.Minute
)

var _ Synthesizer = (*ElevenLabs)(nil)

// SpeechClient is the part of the ElevenLabs SDK client used for synthesis.
type SpeechClient interface {
	TextToSpeech(voiceID string, req elevenlabs.TextToSpeechRequest, queries ...elevenlabs.QueryFunc) ([]byte, error)
}

// ElevenLabs synthesizes speech through the ElevenLabs text-to-speech API.
type ElevenLabs struct {
	// SDK clients carry the request context, so one is built per call.
	connect      func(ctx context.Context) SpeechClient
	voiceID      string
	modelID      string
	outputFormat string
}

// NewElevenLabs creates a synthesizer for voiceID.
func NewElevenLabs(apiKey, voiceID string) *ElevenLabs {
	return newElevenLabs(func(ctx context.Context) SpeechClient {
		return elevenlabs.NewClient(ctx, apiKey, requestTimeout)
	}, voiceID)
}

func newElevenLabs(connect func(ctx context.Context) SpeechClient, voiceID string) *ElevenLabs {
	return &ElevenLabs{
		connect:      connect,
		voiceID:      voiceID,
		modelID:      DefaultModelID,
		outputFormat: DefaultOutputFormat,
	}
}

// Synthesize returns the encoded audio for text.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, error) {
	audio, err := e.connect(ctx).TextToSpeech(e.voiceID,
		elevenlabs.TextToSpeechRequest{Text: text, ModelID: e.modelID},
		elevenlabs.OutputFormat(e.outputFormat),
	)
	if err != nil {
		var apiErr *elevenlabs.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("text-to-speech rejected: %w", err)
		}
		return nil, fmt.Errorf("text-to-speech request: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("text-to-speech returned no audio")
	}
	return audio, nil
}
