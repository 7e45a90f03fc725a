// Package yandex synthesizes speech with the Yandex SpeechKit REST API.
package yandex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/playmixer/fala/player"
	"github.com/playmixer/fala/speech"
)

const (
	DefaultEndpoint = "https://tts.api.cloud.yandex.net/speech/v1/tts:synthesize"
	DefaultVoice    = "alena"
	DefaultLang     = "ru-RU"
)

var (
	ErrEmptyKey  = errors.New("yandex api key is empty")
	ErrEmptyText = errors.New("text is empty")
)

type Yandex struct {
	apiKey   string
	folderID string
	Endpoint string
	Voice    string
	Lang     string
	client   *http.Client
	play     func(ctx context.Context, mp3 []byte) error
	log      *zap.Logger
}

func New(apiKey, folderID string) *Yandex {
	return &Yandex{
		apiKey:   apiKey,
		folderID: folderID,
		Endpoint: DefaultEndpoint,
		Voice:    DefaultVoice,
		Lang:     DefaultLang,
		client:   &http.Client{Timeout: 15 * time.Second},
		play:     player.PlayMp3FromBytes,
		log:      zap.NewNop(),
	}
}

func (y *Yandex) SetLogger(log *zap.Logger) {
	y.log = log
}

func (y *Yandex) SetPlayer(play func(ctx context.Context, mp3 []byte) error) {
	y.play = play
}

type SpeachRequest struct {
	y     *Yandex
	ctx   context.Context
	text  string
	lang  string
	voice string
	speed float64
}

func (y *Yandex) Speach(text string) *SpeachRequest {
	return &SpeachRequest{
		y:     y,
		ctx:   context.Background(),
		text:  text,
		lang:  y.Lang,
		voice: y.Voice,
		speed: 1,
	}
}

func (r *SpeachRequest) Context(ctx context.Context) *SpeachRequest {
	r.ctx = ctx
	return r
}

func (r *SpeachRequest) Lang(lang string) *SpeachRequest {
	if lang != "" {
		r.lang = lang
	}
	return r
}

func (r *SpeachRequest) Voice(voice string) *SpeachRequest {
	if voice != "" {
		r.voice = voice
	}
	return r
}

// Speed is clamped to the 0.1..3.0 range the API accepts.
func (r *SpeachRequest) Speed(speed float64) *SpeachRequest {
	r.speed = min(max(speed, 0.1), 3.0)
	return r
}

// Post sends the request and returns mp3 audio.
func (r *SpeachRequest) Post() ([]byte, error) {
	if r.y.apiKey == "" {
		return nil, ErrEmptyKey
	}
	if strings.TrimSpace(r.text) == "" {
		return nil, ErrEmptyText
	}

	form := url.Values{}
	form.Set("text", r.text)
	form.Set("lang", r.lang)
	form.Set("voice", r.voice)
	form.Set("speed", strconv.FormatFloat(r.speed, 'f', 1, 64))
	form.Set("format", "mp3")
	if r.y.folderID != "" {
		form.Set("folderId", r.y.folderID)
	}

	req, err := http.NewRequestWithContext(r.ctx, http.MethodPost, r.y.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Api-Key "+r.y.apiKey)

	resp, err := r.y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yandex tts: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yandex tts read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yandex tts: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// Speak implements speech.Synthesizer: synthesize, then play until done or
// cancelled.
func (y *Yandex) Speak(ctx context.Context, u speech.Utterance) error {
	b, err := y.Speach(u.Text).Context(ctx).Lang(u.Locale).Speed(float64(u.Rate)).Post()
	if err != nil {
		return err
	}
	y.log.Debug("yandex tts", zap.Int("bytes", len(b)), zap.String("lang", u.Locale))
	return y.play(ctx, b)
}
