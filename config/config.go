// Package config loads daemon settings from an optional .env file, an
// optional YAML file and FALA_* environment variables, in that order of
// increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "FALA"

type Config struct {
	Locale   string         `mapstructure:"locale"`
	Speech   SpeechConfig   `mapstructure:"speech"`
	Yandex   YandexConfig   `mapstructure:"yandex"`
	Vosk     VoskConfig     `mapstructure:"vosk"`
	Listen   ListenConfig   `mapstructure:"listen"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	IPC      IPCConfig      `mapstructure:"ipc"`
	Log      LogConfig      `mapstructure:"log"`
	Cue      CueConfig      `mapstructure:"cue"`
}

type SpeechConfig struct {
	Engine string  `mapstructure:"engine"` // espeak, yandex, none
	Rate   string  `mapstructure:"rate"`   // normal, fast, ultra-fast
	Pitch  float64 `mapstructure:"pitch"`
}

type YandexConfig struct {
	APIKey   string `mapstructure:"api_key"`
	FolderID string `mapstructure:"folder_id"`
	Voice    string `mapstructure:"voice"`
}

type VoskConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type ListenConfig struct {
	// Microphone selects a capture device by name and wins over Device.
	Microphone       string        `mapstructure:"microphone"`
	Device           int           `mapstructure:"device"`
	Chunk            time.Duration `mapstructure:"chunk"`
	MaxChunks        int           `mapstructure:"max_chunks"`
	SilenceThreshold int           `mapstructure:"silence_threshold"`
}

type DispatchConfig struct {
	OpenDelay      time.Duration `mapstructure:"open_delay"`
	FallbackWindow time.Duration `mapstructure:"fallback_window"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

type IPCConfig struct {
	Socket string `mapstructure:"socket"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // console, json
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

type CueConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	File    string `mapstructure:"file"` // wav played instead of the tone
}

var defaults = map[string]any{
	"locale":                   "pt-BR",
	"speech.engine":            "espeak",
	"speech.rate":              "normal",
	"speech.pitch":             1.0,
	"yandex.api_key":           "",
	"yandex.folder_id":         "",
	"yandex.voice":             "alena",
	"vosk.host":                "localhost",
	"vosk.port":                "2700",
	"listen.microphone":        "",
	"listen.device":            -1,
	"listen.chunk":             500 * time.Millisecond,
	"listen.max_chunks":        20,
	"listen.silence_threshold": 50,
	"dispatch.open_delay":      1500 * time.Millisecond,
	"dispatch.fallback_window": 2 * time.Second,
	"catalog.path":             "",
	"ipc.socket":               "/tmp/fala.sock",
	"log.level":                "info",
	"log.format":               "console",
	"log.file":                 "",
	"log.max_size":             10,
	"log.max_backups":          3,
	"log.max_age":              28,
	"cue.enabled":              true,
	"cue.file":                 "",
}

// Default returns the built-in settings.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads envFile and path when they are set. A missing envFile is not an
// error; a missing path is.
func Load(envFile, path string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
