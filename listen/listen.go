package listen

import (
	"context"
	"fmt"
	"sync"
	"time"

	pvrecorder "github.com/Picovoice/pvrecorder/binding/go"
	"github.com/go-audio/wav"
	"go.uber.org/zap"
)

// DefaultSampleRate is used when neither the listener nor the device
// reports a rate.
const DefaultSampleRate = 16000

// DefaultReleaseWait bounds how long Capture waits for a stopping capture to
// let go of the device.
const DefaultReleaseWait = time.Second

// Device is the part of pvrecorder.PvRecorder the listener drives.
type Device interface {
	Init() error
	Start() error
	Read() ([]int16, error)
	Stop() error
	Delete()
}

// Listener records the microphone and cuts the stream into wav chunks of
// Long duration.
type Listener struct {
	NameApp    string
	Long       time.Duration
	SampleRate int
	BitDepth   int
	NumChans   int
	DeviceId   int
	NewDevice  func(deviceID int) Device
	Devices    func() (map[string]int, error)

	// ReleaseWait bounds how long Capture waits for the previous capture.
	ReleaseWait time.Duration
	log         *zap.Logger

	mu       sync.Mutex
	IsActive bool
	released chan struct{}
}

func New(t time.Duration) *Listener {
	return &Listener{
		NameApp:     "Listener",
		Long:        t,
		SampleRate:  DefaultSampleRate,
		BitDepth:    16,
		NumChans:    1,
		DeviceId:    -1,
		NewDevice:   CreateRecorder,
		Devices:     GetMicrophons,
		ReleaseWait: DefaultReleaseWait,
		log:         zap.NewNop(),
	}
}

func (l *Listener) SetLogger(log *zap.Logger) {
	l.log = log
}

func (l *Listener) SetName(name string) {
	l.NameApp = name
}

// SetMicrophon selects the capture device by its reported name.
func (l *Listener) SetMicrophon(name string) error {
	devices, err := l.Devices()
	if err != nil {
		return err
	}
	if id, ok := devices[name]; ok {
		l.DeviceId = id
		return nil
	}
	return fmt.Errorf("%w: %q", ErrNotFoundDevice, name)
}

// GetMicrophons maps device names to pvrecorder indexes.
func GetMicrophons() (map[string]int, error) {
	names, err := pvrecorder.GetAvailableDevices()
	if err != nil {
		return nil, err
	}
	devices := make(map[string]int, len(names))
	for i, name := range names {
		devices[name] = i
	}
	return devices, nil
}

func CreateRecorder(deviceId int) Device {
	return &pvrecorder.PvRecorder{
		DeviceIndex:         deviceId,
		FrameLength:         512,
		BufferedFramesCount: 10,
	}
}

// Capture records until ctx is cancelled. Every Long interval the current
// chunk is sent as a complete wav file; the remainder is flushed on stop and
// the channel is closed. A capture that is still shutting down is waited for
// up to ReleaseWait before ErrAlreadyCapturing is returned.
func (l *Listener) Capture(ctx context.Context) (<-chan []byte, error) {
	if err := l.acquire(ctx); err != nil {
		return nil, err
	}

	recorder := l.NewDevice(l.DeviceId)
	if err := recorder.Init(); err != nil {
		l.release()
		return nil, fmt.Errorf("%s init: %w", l.NameApp, err)
	}
	if err := recorder.Start(); err != nil {
		recorder.Delete()
		l.release()
		return nil, fmt.Errorf("%s start: %w", l.NameApp, err)
	}
	rate := l.resolveSampleRate()
	l.log.Info(l.NameApp+": starting listener", zap.Duration("chunk", l.Long), zap.Int("sample_rate", rate))

	wavCh := make(chan []byte, 1)
	go l.loop(ctx, recorder, rate, wavCh)
	return wavCh, nil
}

func (l *Listener) acquire(ctx context.Context) error {
	l.mu.Lock()
	if l.IsActive {
		released := l.released
		l.mu.Unlock()

		timer := time.NewTimer(l.ReleaseWait)
		select {
		case <-released:
		case <-timer.C:
		case <-ctx.Done():
		}
		timer.Stop()
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		if l.IsActive {
			l.mu.Unlock()
			return ErrAlreadyCapturing
		}
	}
	l.IsActive = true
	l.released = make(chan struct{})
	l.mu.Unlock()
	return nil
}

func (l *Listener) release() {
	l.mu.Lock()
	l.IsActive = false
	if l.released != nil {
		close(l.released)
		l.released = nil
	}
	l.mu.Unlock()
}

// resolveSampleRate: the configured rate, else what pvrecorder reported
// during Init, else DefaultSampleRate.
func (l *Listener) resolveSampleRate() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.SampleRate <= 0 {
		l.SampleRate = pvrecorder.SampleRate
	}
	if l.SampleRate <= 0 {
		l.SampleRate = DefaultSampleRate
	}
	return l.SampleRate
}

func (l *Listener) loop(ctx context.Context, recorder Device, rate int, wavCh chan<- []byte) {
	defer close(wavCh)
	defer l.release()
	defer recorder.Delete()
	defer recorder.Stop()

	outputFile := &WriterSeeker{}
	outputWav := wav.NewEncoder(outputFile, rate, l.BitDepth, l.NumChans, 1)
	flush := func() []byte {
		if err := outputWav.Close(); err != nil {
			l.log.Error(l.NameApp+": close chunk", zap.Error(err))
		}
		b := outputFile.Bytes()
		outputFile = &WriterSeeker{}
		outputWav = wav.NewEncoder(outputFile, rate, l.BitDepth, l.NumChans, 1)
		return b
	}

	delay := time.NewTicker(l.Long)
	defer delay.Stop()

	for {
		select {
		case <-ctx.Done():
			l.log.Debug(l.NameApp + ": stopping")
			b := flush()
			select {
			case wavCh <- b:
			default:
			}
			l.log.Info(l.NameApp + ": stop listener")
			return

		case <-delay.C:
			b := flush()
			l.log.Debug(l.NameApp+": chunk", zap.Int("size", len(b)))
			select {
			case wavCh <- b:
			case <-ctx.Done():
			}

		default:
			pcm, err := recorder.Read()
			if err != nil {
				l.log.Error(l.NameApp+": read", zap.Error(err))
				continue
			}
			for _, f := range pcm {
				if err := outputWav.WriteFrame(f); err != nil {
					l.log.Error(l.NameApp+": write frame", zap.Error(err))
					break
				}
			}
		}
	}
}
