package narrate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/haguro/elevenlabs-go"
)

type fakeSpeechClient struct {
	voiceID string
	req     elevenlabs.TextToSpeechRequest
	queries int
	audio   []byte
	err     error
}

func (f *fakeSpeechClient) TextToSpeech(voiceID string, req elevenlabs.TextToSpeechRequest, queries ...elevenlabs.QueryFunc) ([]byte, error) {
	f.voiceID = voiceID
	f.req = req
	f.queries = len(queries)
	return f.audio, f.err
}

func TestElevenLabs_Synthesize(t *testing.T) {
	type ctxKey struct{}
	fake := &fakeSpeechClient{audio: []byte("ID3-fake-mp3")}
	var connectCtx context.Context

	tts := newElevenLabs(func(ctx context.Context) SpeechClient {
		connectCtx = ctx
		return fake
	}, "voice123")

	ctx := context.WithValue(context.Background(), ctxKey{}, "req")
	audio, err := tts.Synthesize(ctx, "Hello there")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if string(audio) != "ID3-fake-mp3" {
		t.Errorf("audio = %q", audio)
	}
	if fake.voiceID != "voice123" {
		t.Errorf("voice = %q", fake.voiceID)
	}
	if fake.req.Text != "Hello there" || fake.req.ModelID != DefaultModelID {
		t.Errorf("request = %+v", fake.req)
	}
	if fake.queries != 1 {
		t.Errorf("queries = %d, want output format only", fake.queries)
	}
	if connectCtx == nil || connectCtx.Value(ctxKey{}) != "req" {
		t.Error("client not bound to the request context")
	}
}

func TestElevenLabs_Errors(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeSpeechClient
		want string
	}{
		{"api error", &fakeSpeechClient{err: &elevenlabs.APIError{}}, "text-to-speech rejected"},
		{"transport error", &fakeSpeechClient{err: errors.New("connection reset")}, "connection reset"},
		{"empty audio", &fakeSpeechClient{}, "no audio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tts := newElevenLabs(func(context.Context) SpeechClient { return tt.fake }, "voice")
			_, err := tts.Synthesize(context.Background(), "hi")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestNewElevenLabs_Defaults(t *testing.T) {
	tts := NewElevenLabs("k", "v")
	if tts.modelID != DefaultModelID || tts.outputFormat != DefaultOutputFormat {
		t.Errorf("model/format = %q/%q", tts.modelID, tts.outputFormat)
	}
	if tts.voiceID != "v" {
		t.Errorf("voice = %q", tts.voiceID)
	}
	if tts.connect(context.Background()) == nil {
		t.Error("connect returned nil client")
	}
}
