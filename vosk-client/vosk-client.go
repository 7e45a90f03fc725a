// Package voskclient transcribes wav audio with a vosk-server websocket.
package voskclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/playmixer/fala/listen"
)

const (
	defaultHost = "localhost"
	defaultPort = "2700"
	sendChunk   = 8000
)

type Client struct {
	Host       string
	Port       string
	SampleRate int
	dialer     *websocket.Dialer
	log        *zap.Logger
}

type configMessage struct {
	Config struct {
		SampleRate int `json:"sample_rate"`
	} `json:"config"`
}

type result struct {
	Text    string `json:"text"`
	Partial string `json:"partial"`
}

func New() *Client {
	return &Client{
		Host:       defaultHost,
		Port:       defaultPort,
		SampleRate: 16000,
		dialer:     websocket.DefaultDialer,
		log:        zap.NewNop(),
	}
}

func (c *Client) SetLogger(log *zap.Logger) {
	c.log = log
}

func (c *Client) URL() string {
	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(c.Host, c.Port)}
	return u.String()
}

// Transcribe streams a 16-bit mono wav to the server and returns the final
// text, joining multiple results with a space. The wav header's sample rate
// takes precedence over SampleRate.
func (c *Client) Transcribe(ctx context.Context, wav []byte) (string, error) {
	pcm, err := listen.PCM(wav)
	if err != nil {
		return "", err
	}

	conn, _, err := c.dialer.DialContext(ctx, c.URL(), nil)
	if err != nil {
		return "", fmt.Errorf("vosk dial %s: %w", c.URL(), err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var cfg configMessage
	cfg.Config.SampleRate = c.SampleRate
	if rate, err := listen.WavSampleRate(wav); err == nil && rate > 0 {
		cfg.Config.SampleRate = rate
	}
	if err := conn.WriteJSON(cfg); err != nil {
		return "", c.wrap(ctx, err)
	}

	var texts []string
	for len(pcm) > 0 {
		n := min(sendChunk, len(pcm))
		if err := conn.WriteMessage(websocket.BinaryMessage, pcm[:n]); err != nil {
			return "", c.wrap(ctx, err)
		}
		pcm = pcm[n:]
		r, err := c.read(conn)
		if err != nil {
			return "", c.wrap(ctx, err)
		}
		if r.Text != "" {
			texts = append(texts, r.Text)
		}
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`)); err != nil {
		return "", c.wrap(ctx, err)
	}
	r, err := c.read(conn)
	if err != nil {
		return "", c.wrap(ctx, err)
	}
	if r.Text != "" {
		texts = append(texts, r.Text)
	}

	text := strings.TrimSpace(strings.Join(texts, " "))
	c.log.Debug("vosk result", zap.String("text", text))
	return text, nil
}

func (c *Client) read(conn *websocket.Conn) (result, error) {
	var r result
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(msg, &r); err != nil {
		return r, fmt.Errorf("decode vosk message: %w", err)
	}
	return r, nil
}

func (c *Client) wrap(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("vosk: %w", err)
}
