// Package espeak speaks through the espeak-ng command line synthesizer.
package espeak

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/playmixer/fala/speech"
)

const (
	defaultBin = "espeak-ng"
	// espeak-ng words per minute at rate 1.0
	baseWPM = 175
	// espeak-ng pitch at multiplier 1.0, scale 0..99
	basePitch = 50
)

var ErrNotInstalled = errors.New("espeak-ng not installed")

type Synth struct {
	Bin    string
	Voices map[string]string
	log    *zap.Logger
}

func New() *Synth {
	return &Synth{
		Bin: defaultBin,
		Voices: map[string]string{
			"pt-br": "pt-br",
			"pt-pt": "pt",
			"en-us": "en-us",
			"ru-ru": "ru",
		},
		log: zap.NewNop(),
	}
}

func (s *Synth) SetLogger(log *zap.Logger) {
	s.log = log
}

func (s *Synth) Available() bool {
	_, err := exec.LookPath(s.Bin)
	return err == nil
}

// Args builds the espeak-ng command line for u.
func (s *Synth) Args(u speech.Utterance) []string {
	rate := u.Rate
	if rate <= 0 {
		rate = speech.RateNormal
	}
	pitch := u.Pitch
	if pitch <= 0 {
		pitch = speech.DefaultPitch
	}
	p := int(math.Round(basePitch * pitch))
	if p > 99 {
		p = 99
	}
	return []string{
		"-v", s.voice(u.Locale),
		"-s", strconv.Itoa(int(math.Round(baseWPM * float64(rate)))),
		"-p", strconv.Itoa(p),
		"--", u.Text,
	}
}

func (s *Synth) voice(locale string) string {
	key := strings.ToLower(locale)
	if v, ok := s.Voices[key]; ok {
		return v
	}
	if i := strings.IndexByte(key, '-'); i > 0 {
		return key[:i]
	}
	if key == "" {
		return "pt-br"
	}
	return key
}

// Speak runs espeak-ng and kills it when ctx is cancelled.
func (s *Synth) Speak(ctx context.Context, u speech.Utterance) error {
	if !s.Available() {
		return ErrNotInstalled
	}
	args := s.Args(u)
	s.log.Debug("espeak", zap.Strings("args", args))
	err := exec.CommandContext(ctx, s.Bin, args...).Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("espeak-ng: %w", err)
	}
	return nil
}
