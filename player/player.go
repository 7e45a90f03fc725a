package player

import (
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

const cueSampleRate = beep.SampleRate(44100)

// speaker is process global, one stream at a time
var speakerMu sync.Mutex

func PlayWavFromBytes(ctx context.Context, b []byte) error {
	streamer, format, err := wav.Decode(bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer streamer.Close()
	return play(ctx, streamer, format.SampleRate)
}

func PlayMp3FromBytes(ctx context.Context, b []byte) error {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(b)))
	if err != nil {
		return err
	}
	defer streamer.Close()
	return play(ctx, streamer, format.SampleRate)
}

func PlayWavFromFile(ctx context.Context, filename string) error {
	b, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return PlayWavFromBytes(ctx, b)
}

// NewCue returns the listening cue: the wav at file when set, otherwise a
// tone of freq lasting d.
func NewCue(file string, freq float64, d time.Duration) func(ctx context.Context) error {
	if file != "" {
		return func(ctx context.Context) error { return PlayWavFromFile(ctx, file) }
	}
	return func(ctx context.Context) error { return Cue(ctx, freq, d) }
}

// Cue plays a short sine tone, used to signal that the microphone is open.
func Cue(ctx context.Context, freq float64, d time.Duration) error {
	return play(ctx, beep.Take(cueSampleRate.N(d), Tone(cueSampleRate, freq)), cueSampleRate)
}

// Tone is an endless sine wave at half volume.
func Tone(sr beep.SampleRate, freq float64) beep.Streamer {
	var pos int
	step := 2 * math.Pi * freq / float64(sr)
	return beep.StreamerFunc(func(samples [][2]float64) (n int, ok bool) {
		for i := range samples {
			v := 0.5 * math.Sin(step*float64(pos))
			samples[i][0], samples[i][1] = v, v
			pos++
		}
		return len(samples), true
	})
}

func play(ctx context.Context, streamer beep.Streamer, sr beep.SampleRate) error {
	speakerMu.Lock()
	defer speakerMu.Unlock()

	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return err
	}
	done := make(chan struct{}, 1)
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		done <- struct{}{}
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
