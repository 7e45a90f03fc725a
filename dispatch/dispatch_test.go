package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playmixer/fala/intent"
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

type fakeLauncher struct {
	mu        sync.Mutex
	opened    []string
	fallbacks []string
	openErr   error
	fbErr     error
	// block makes Open hang until its context ends
	block bool
}

func (f *fakeLauncher) Open(ctx context.Context, uri string) error {
	f.mu.Lock()
	f.opened = append(f.opened, uri)
	block := f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.openErr
}

func (f *fakeLauncher) OpenFallback(ctx context.Context, uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallbacks = append(f.fallbacks, uri)
	return f.fbErr
}

func (f *fakeLauncher) calls() ([]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.opened...), append([]string(nil), f.fallbacks...)
}

var fast = WithConfig(Config{OpenDelay: 5 * time.Millisecond, FallbackWindow: 20 * time.Millisecond})

func resolve(text string) intent.Intent {
	return intent.NewResolver(intent.DefaultRegistry()).Resolve(text)
}

func wait(t *testing.T, j *Job) Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	o, err := j.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return o
}

func TestDispatchOpensRegistryApp(t *testing.T) {
	voice, launcher := &said{}, &fakeLauncher{}
	d := New(voice, launcher, fast)

	j := d.Dispatch(resolve("abrir whatsapp"))
	assert.Equal(t, OutcomeOpened, wait(t, j))
	require.NoError(t, j.Err())

	opened, fallbacks := launcher.calls()
	assert.Equal(t, []string{"whatsapp://"}, opened)
	assert.Empty(t, fallbacks)
	assert.Equal(t, []string{"Abrindo WhatsApp agora."}, voice.all())
	assert.Zero(t, d.Pending())
}

func TestDispatchFallsBackOnce(t *testing.T) {
	voice, launcher := &said{}, &fakeLauncher{block: true}
	d := New(voice, launcher, fast)

	j := d.Dispatch(resolve("assistir netflix"))
	assert.Equal(t, OutcomeOpenedFallback, wait(t, j))

	time.Sleep(50 * time.Millisecond)
	opened, fallbacks := launcher.calls()
	assert.Equal(t, []string{"nflx://"}, opened)
	assert.Equal(t, []string{"https://www.netflix.com"}, fallbacks)
}

func TestDispatchFallbackFailure(t *testing.T) {
	voice := &said{}
	launcher := &fakeLauncher{block: true, fbErr: errors.New("no browser")}
	d := New(voice, launcher, fast)

	j := d.Dispatch(resolve("abrir calculadora"))
	assert.Equal(t, OutcomeFailed, wait(t, j))
	assert.ErrorIs(t, j.Err(), ErrAppOpenFailed)

	_, fallbacks := launcher.calls()
	assert.Equal(t, []string{"calculator://"}, fallbacks, "empty fallback url reuses the identifier")
	assert.Equal(t, []string{"Abrindo Calculadora agora.", "Desculpe, não consegui abrir Calculadora."}, voice.all())
}

func TestDispatchOpenErrorApologizes(t *testing.T) {
	voice := &said{}
	launcher := &fakeLauncher{openErr: errors.New("exit status 4")}
	d := New(voice, launcher, fast)

	j := d.Dispatch(resolve("abrir spotify"))
	assert.Equal(t, OutcomeFailed, wait(t, j))
	assert.ErrorIs(t, j.Err(), ErrAppOpenFailed)
	assert.ErrorContains(t, j.Err(), "exit status 4")

	time.Sleep(50 * time.Millisecond)
	_, fallbacks := launcher.calls()
	assert.Empty(t, fallbacks)
	assert.Equal(t, []string{"Abrindo Spotify agora.", "Desculpe, não consegui abrir Spotify."}, voice.all())
}

func TestDispatchWithoutOpen(t *testing.T) {
	cases := map[string]intent.Intent{
		"best-effort":  resolve("abrir fotoshop"),
		"unrecognized": resolve("oi"),
		"quick":        intent.Quick("Eu quero água"),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			voice, launcher := &said{}, &fakeLauncher{}
			d := New(voice, launcher, fast)

			j := d.Dispatch(in)
			assert.Equal(t, OutcomeSpoken, wait(t, j))
			assert.Equal(t, []string{in.Confirmation()}, voice.all())
			opened, _ := launcher.calls()
			assert.Empty(t, opened)
		})
	}
}

func TestCloseCancelsTimers(t *testing.T) {
	voice, launcher := &said{}, &fakeLauncher{}
	d := New(voice, launcher, WithConfig(Config{OpenDelay: 30 * time.Millisecond, FallbackWindow: time.Second}))

	j := d.Dispatch(resolve("abrir youtube"))
	assert.Equal(t, 1, d.Pending())
	d.Close()
	assert.Equal(t, OutcomeCancelled, wait(t, j))

	time.Sleep(60 * time.Millisecond)
	opened, _ := launcher.calls()
	assert.Empty(t, opened)
	assert.Zero(t, d.Pending())

	late := d.Dispatch(resolve("abrir youtube"))
	assert.Equal(t, OutcomeCancelled, wait(t, late))
	assert.ErrorIs(t, late.Err(), ErrClosed)
	assert.Equal(t, []string{"Abrindo YouTube agora."}, voice.all())
}

func TestCancelDuringPrimary(t *testing.T) {
	launcher := &fakeLauncher{block: true}
	d := New(&said{}, launcher, fast)

	j := d.Dispatch(resolve("abrir gmail"))
	require.Eventually(t, func() bool {
		opened, _ := launcher.calls()
		return len(opened) == 1
	}, time.Second, time.Millisecond)
	j.Cancel()
	j.Cancel()

	assert.Equal(t, OutcomeCancelled, wait(t, j))
	time.Sleep(50 * time.Millisecond)
	_, fallbacks := launcher.calls()
	assert.Empty(t, fallbacks)
}

func TestWithConfigZeroKeepsDefaults(t *testing.T) {
	d := New(&said{}, &fakeLauncher{}, WithConfig(Config{}))
	assert.Equal(t, DefaultConfig(), d.cfg)

	d = New(&said{}, &fakeLauncher{}, WithConfig(Config{OpenDelay: -time.Second, FallbackWindow: time.Minute}))
	assert.Equal(t, DefaultOpenDelay, d.cfg.OpenDelay)
	assert.Equal(t, time.Minute, d.cfg.FallbackWindow)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "app_open_failed", OutcomeFailed.String())
	assert.Equal(t, "outcome(99)", Outcome(99).String())
}

func TestExecLauncherMissingCommand(t *testing.T) {
	l := NewExecLauncher()
	l.Opener = []string{"definitely-not-a-real-opener"}
	assert.Error(t, l.Open(context.Background(), "whatsapp://"))

	l.Browser = nil
	assert.ErrorIs(t, l.OpenFallback(context.Background(), "https://x"), ErrNoOpener)
}
