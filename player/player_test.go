package player

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/stretchr/testify/assert"
)

func TestToneStaysInRange(t *testing.T) {
	s := Tone(beep.SampleRate(8000), 440)
	buf := make([][2]float64, 512)

	n, ok := s.Stream(buf)
	assert.True(t, ok)
	assert.Equal(t, len(buf), n)
	for _, sample := range buf {
		assert.LessOrEqual(t, sample[0], 0.5)
		assert.GreaterOrEqual(t, sample[0], -0.5)
		assert.Equal(t, sample[0], sample[1])
	}
}

func TestTakeLimitsCue(t *testing.T) {
	sr := beep.SampleRate(8000)
	s := beep.Take(100, Tone(sr, 440))
	buf := make([][2]float64, 512)

	n, _ := s.Stream(buf)
	assert.Equal(t, 100, n)
}

func TestPlayMp3FromBytesRejectsGarbage(t *testing.T) {
	err := PlayMp3FromBytes(context.Background(), []byte("not an mp3"))
	assert.Error(t, err)
}

func TestPlayWavRejectsGarbage(t *testing.T) {
	assert.Error(t, PlayWavFromBytes(context.Background(), []byte("RIFF....")))

	path := filepath.Join(t.TempDir(), "cue.wav")
	assert.NoError(t, os.WriteFile(path, []byte("not a wav"), 0o600))
	assert.Error(t, PlayWavFromFile(context.Background(), path))
}

func TestNewCueFromFile(t *testing.T) {
	cue := NewCue(filepath.Join(t.TempDir(), "missing.wav"), 880, 150*time.Millisecond)
	err := cue(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
