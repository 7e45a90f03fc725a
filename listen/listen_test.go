package listen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, samples []int16) []byte {
	t.Helper()
	out := &WriterSeeker{}
	enc := wav.NewEncoder(out, 16000, 16, 1, 1)
	for _, s := range samples {
		require.NoError(t, enc.WriteFrame(s))
	}
	require.NoError(t, enc.Close())
	return out.Bytes()
}

func repeat(v int16, n int) []int16 {
	s := make([]int16, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestWavSilence(t *testing.T) {
	quiet := encode(t, repeat(3, 1600))
	loud := encode(t, append(repeat(-2000, 800), repeat(2000, 800)...))

	level, err := WavSilence(loud)
	require.NoError(t, err)
	assert.Equal(t, 2000, level)

	silent, err := IsWavSilent(quiet, DefaultSilenceThreshold)
	require.NoError(t, err)
	assert.True(t, silent)

	silent, err = IsWavSilent(loud, DefaultSilenceThreshold)
	require.NoError(t, err)
	assert.False(t, silent)
}

func TestWavValidation(t *testing.T) {
	_, err := WavSilence([]byte("short"))
	assert.ErrorIs(t, err, ErrNotEnoughDataToParseWav)

	bad := make([]byte, headerSize+4)
	copy(bad, "RIFX")
	_, err = WavSilence(bad)
	assert.ErrorIs(t, err, ErrInvalidWav)
}

func TestConcatWav(t *testing.T) {
	a := encode(t, repeat(1000, 160))
	b := encode(t, repeat(1000, 320))

	out, err := ConcatWav(a, b)
	require.NoError(t, err)
	assert.Greater(t, len(out), len(b))
}

func TestWriterSeeker(t *testing.T) {
	ws := &WriterSeeker{}
	ws.Write([]byte("hello world"))
	_, err := ws.Seek(0, 0)
	require.NoError(t, err)
	ws.Write([]byte("HELLO"))
	assert.Equal(t, "HELLO world", string(ws.Bytes()))

	_, err = ws.Seek(-100, 1)
	assert.Error(t, err)
}

type fakeDevice struct {
	mu      sync.Mutex
	frame   []int16
	initErr error
	deleted bool
}

func (d *fakeDevice) Init() error  { return d.initErr }
func (d *fakeDevice) Start() error { return nil }
func (d *fakeDevice) Stop() error  { return nil }
func (d *fakeDevice) Delete() {
	d.mu.Lock()
	d.deleted = true
	d.mu.Unlock()
}

func (d *fakeDevice) Read() ([]int16, error) {
	time.Sleep(time.Millisecond)
	return d.frame, nil
}

func TestCaptureChunks(t *testing.T) {
	dev := &fakeDevice{frame: repeat(1500, 64)}
	l := New(20 * time.Millisecond)
	l.NewDevice = func(int) Device { return dev }
	l.ReleaseWait = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	chunks, err := l.Capture(ctx)
	require.NoError(t, err)

	_, err = l.Capture(ctx)
	assert.ErrorIs(t, err, ErrAlreadyCapturing)

	chunk := <-chunks
	level, err := WavSilence(chunk)
	require.NoError(t, err)
	assert.Equal(t, 1500, level)

	cancel()
	for range chunks {
	}
	dev.mu.Lock()
	assert.True(t, dev.deleted)
	dev.mu.Unlock()

	l.mu.Lock()
	assert.False(t, l.IsActive)
	l.mu.Unlock()
}

func TestCaptureInitError(t *testing.T) {
	l := New(time.Second)
	l.NewDevice = func(int) Device { return &fakeDevice{initErr: errors.New("no mic")} }

	_, err := l.Capture(context.Background())
	assert.ErrorContains(t, err, "no mic")
	assert.False(t, l.IsActive)
}

func TestCaptureWithoutSampleRate(t *testing.T) {
	dev := &fakeDevice{frame: repeat(800, 64)}
	l := New(10 * time.Millisecond)
	l.NewDevice = func(int) Device { return dev }
	l.SampleRate = 0

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	chunks, err := l.Capture(ctx)
	require.NoError(t, err)

	rate, err := WavSampleRate(<-chunks)
	require.NoError(t, err)
	assert.Equal(t, DefaultSampleRate, rate)
	assert.Equal(t, DefaultSampleRate, l.SampleRate)
	cancel()
	for range chunks {
	}
}

func TestNewUsesDefaultSampleRate(t *testing.T) {
	assert.Equal(t, DefaultSampleRate, New(time.Second).SampleRate)
}

// slowDevice takes a while to return from a read, like a real buffer fill.
type slowDevice struct{ fakeDevice }

func (d *slowDevice) Read() ([]int16, error) {
	time.Sleep(20 * time.Millisecond)
	return d.frame, nil
}

func TestCaptureRestartAfterCancel(t *testing.T) {
	l := New(time.Second)
	l.NewDevice = func(int) Device { return &slowDevice{fakeDevice{frame: repeat(0, 64)}} }

	first, cancel := context.WithCancel(context.Background())
	chunks, err := l.Capture(first)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	cancel()

	second, stop := context.WithCancel(context.Background())
	defer stop()
	again, err := l.Capture(second)
	require.NoError(t, err)

	for range chunks {
	}
	stop()
	for range again {
	}
}

func TestCaptureWaitHonorsContext(t *testing.T) {
	l := New(time.Second)
	l.NewDevice = func(int) Device { return &fakeDevice{frame: repeat(0, 64)} }

	ctx, cancel := context.WithCancel(context.Background())
	chunks, err := l.Capture(ctx)
	require.NoError(t, err)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer waitCancel()
	_, err = l.Capture(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	cancel()
	for range chunks {
	}
}

func TestSetMicrophon(t *testing.T) {
	l := New(time.Second)
	l.Devices = func() (map[string]int, error) {
		return map[string]int{"Built-in": 0, "USB Mic": 2}, nil
	}

	require.NoError(t, l.SetMicrophon("USB Mic"))
	assert.Equal(t, 2, l.DeviceId)

	assert.ErrorIs(t, l.SetMicrophon("Bluetooth"), ErrNotFoundDevice)
	assert.Equal(t, 2, l.DeviceId)

	l.Devices = func() (map[string]int, error) { return nil, errors.New("no backend") }
	assert.Error(t, l.SetMicrophon("USB Mic"))
}
