package recognition

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playmixer/fala/speech"
)

type said struct {
	mu    sync.Mutex
	texts []string
}

func (s *said) Speak(text string, opts ...speech.SpeakOption) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return uint64(len(s.texts))
}

func (s *said) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

type result struct {
	text string
	err  error
}

// fakeRecognizer hands out one result per session through results.
type fakeRecognizer struct {
	supported bool
	results   chan result
	mu        sync.Mutex
	sessions  int
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{supported: true, results: make(chan result)}
}

func (f *fakeRecognizer) Supported() bool { return f.supported }

func (f *fakeRecognizer) Listen(ctx context.Context, locale string) (string, error) {
	f.mu.Lock()
	f.sessions++
	f.mu.Unlock()
	select {
	case r := <-f.results:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (f *fakeRecognizer) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions
}

type stateLog struct {
	mu     sync.Mutex
	states []string
}

func (l *stateLog) add(s State) {
	l.mu.Lock()
	l.states = append(l.states, s.String())
	l.mu.Unlock()
}

func (l *stateLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.states...)
}

func TestStartCompletes(t *testing.T) {
	rec := newFakeRecognizer()
	voice := &said{}
	log := &stateLog{}
	transcripts := make(chan string, 1)
	c := NewController(rec, voice, OnState(log.add), OnTranscript(func(s string) { transcripts <- s }))

	require.NoError(t, c.Start())
	assert.True(t, c.Listening())

	rec.results <- result{text: "  abrir whatsapp "}
	assert.Equal(t, "abrir whatsapp", <-transcripts)
	c.Wait()

	assert.Equal(t, Idle{}, c.State())
	assert.Equal(t, []string{"listening", "completed", "idle"}, log.all())
	assert.Empty(t, voice.all())
}

func TestStartWhileListeningKeepsOneSession(t *testing.T) {
	rec := newFakeRecognizer()
	c := NewController(rec, &said{})

	require.NoError(t, c.Start())
	first := c.State()
	assert.ErrorIs(t, c.Start(), ErrBusy)
	assert.ErrorIs(t, c.Start(), ErrBusy)

	require.Eventually(t, func() bool { return rec.sessionCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, first, c.State())
	assert.Equal(t, 1, rec.sessionCount())

	c.Close()
}

func TestErrorApologizesAndReturnsToIdle(t *testing.T) {
	rec := newFakeRecognizer()
	voice := &said{}
	log := &stateLog{}
	c := NewController(rec, voice, OnState(log.add))

	require.NoError(t, c.Start())
	rec.results <- result{err: errors.New("microphone denied")}
	c.Wait()

	assert.Equal(t, Idle{}, c.State())
	assert.Equal(t, []string{"listening", "errored", "idle"}, log.all())
	assert.Equal(t, []string{ErrorApology}, voice.all())

	require.NoError(t, c.Start(), "user may retry manually")
	c.Close()
}

func TestEndWithoutResult(t *testing.T) {
	rec := newFakeRecognizer()
	fired := false
	log := &stateLog{}
	c := NewController(rec, &said{}, OnState(log.add), OnTranscript(func(string) { fired = true }))

	require.NoError(t, c.Start())
	rec.results <- result{text: "   "}
	c.Wait()

	assert.False(t, fired)
	assert.Equal(t, []string{"listening", "idle"}, log.all())
}

func TestStopDropsResult(t *testing.T) {
	rec := newFakeRecognizer()
	fired := false
	c := NewController(rec, &said{}, OnTranscript(func(string) { fired = true }))

	c.Stop()
	assert.Equal(t, Idle{}, c.State())

	require.NoError(t, c.Start())
	c.Stop()
	c.Stop()
	c.Wait()

	assert.False(t, fired)
	assert.Equal(t, Idle{}, c.State())
}

func TestUnsupportedNoticeOnce(t *testing.T) {
	rec := newFakeRecognizer()
	rec.supported = false
	voice := &said{}
	c := NewController(rec, voice)

	assert.ErrorIs(t, c.Start(), ErrUnsupported)
	assert.ErrorIs(t, c.Start(), ErrUnsupported)
	assert.Equal(t, Idle{}, c.State())
	assert.Equal(t, []string{UnsupportedNotice}, voice.all())

	assert.ErrorIs(t, NewController(nil, voice).Start(), ErrUnsupported)
}
