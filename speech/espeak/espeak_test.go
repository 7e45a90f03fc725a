package espeak

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/playmixer/fala/speech"
)

func TestArgs(t *testing.T) {
	s := New()

	args := s.Args(speech.Utterance{Text: "olá", Locale: "pt-BR", Rate: speech.RateFast, Pitch: 1})
	assert.Equal(t, []string{"-v", "pt-br", "-s", "210", "-p", "50", "--", "olá"}, args)

	args = s.Args(speech.Utterance{Text: "hi", Locale: "de-DE", Pitch: 3})
	assert.Equal(t, []string{"-v", "de", "-s", "140", "-p", "99", "--", "hi"}, args)
}

func TestSpeakWithoutBinary(t *testing.T) {
	s := New()
	s.Bin = "definitely-not-espeak-binary"
	assert.ErrorIs(t, s.Speak(context.Background(), speech.Utterance{Text: "x"}), ErrNotInstalled)
}
