package recognition

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/playmixer/fala/listen"
)

// Transcriber turns one wav phrase into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// MicRecognizer records chunks until the first silent chunk after speech,
// joins them and hands the phrase to a Transcriber.
type MicRecognizer struct {
	Listener    *listen.Listener
	Transcriber Transcriber
	// MaxChunks bounds both the phrase length and the wait for speech.
	MaxChunks int
	Threshold int
	Available func() bool
	log       *zap.Logger
}

func NewMicRecognizer(l *listen.Listener, t Transcriber) *MicRecognizer {
	return &MicRecognizer{
		Listener:    l,
		Transcriber: t,
		MaxChunks:   20,
		Threshold:   listen.DefaultSilenceThreshold,
		Available: func() bool {
			devices, err := listen.GetMicrophons()
			return err == nil && len(devices) > 0
		},
		log: zap.NewNop(),
	}
}

func (m *MicRecognizer) SetLogger(log *zap.Logger) {
	m.log = log
}

func (m *MicRecognizer) Supported() bool {
	return m.Listener != nil && m.Transcriber != nil && m.Available != nil && m.Available()
}

func (m *MicRecognizer) Listen(ctx context.Context, locale string) (string, error) {
	captureCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks, err := m.Listener.Capture(captureCtx)
	if err != nil {
		return "", err
	}

	var phrase [][]byte
	waited := 0
collect:
	for chunk := range chunks {
		silent, err := listen.IsWavSilent(chunk, m.Threshold)
		if err != nil {
			m.log.Debug("skip chunk", zap.Error(err))
			continue
		}
		switch {
		case !silent:
			phrase = append(phrase, chunk)
			if len(phrase) >= m.MaxChunks {
				break collect
			}
		case len(phrase) > 0:
			break collect
		default:
			waited++
			if waited >= m.MaxChunks {
				break collect
			}
		}
	}
	cancel()
	for range chunks {
	}

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if len(phrase) == 0 {
		return "", nil
	}

	wav := phrase[0]
	for _, next := range phrase[1:] {
		joined, err := listen.ConcatWav(wav, next)
		if err != nil {
			return "", fmt.Errorf("join phrase chunks: %w", err)
		}
		wav = joined
	}
	m.log.Debug("phrase captured", zap.Int("chunks", len(phrase)), zap.String("locale", locale))
	return m.Transcriber.Transcribe(ctx, wav)
}
