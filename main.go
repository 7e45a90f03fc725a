package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/playmixer/fala/catalog"
	"github.com/playmixer/fala/config"
	"github.com/playmixer/fala/dispatch"
	"github.com/playmixer/fala/intent"
	"github.com/playmixer/fala/ipc"
	"github.com/playmixer/fala/listen"
	"github.com/playmixer/fala/logger"
	"github.com/playmixer/fala/player"
	"github.com/playmixer/fala/recognition"
	"github.com/playmixer/fala/smarty"
	"github.com/playmixer/fala/speech"
	"github.com/playmixer/fala/speech/espeak"
	voskclient "github.com/playmixer/fala/vosk-client"
	"github.com/playmixer/fala/yandex"
)

func main() {
	cfgFile := cli.StringP("config", "c", "", "Config file path (yaml)")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "", "Log level, overrides config")
	cli.Parse()

	cfg, err := config.Load(*envFile, *cfgFile)
	if err != nil {
		log.Fatal(err)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	lgr, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer lgr.Sync()

	if err := run(cfg, lgr); err != nil {
		lgr.Error("fala stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, lgr *zap.Logger) error {
	lgr.Info("booting up", zap.String("locale", cfg.Locale), zap.String("speech", cfg.Speech.Engine))

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	synth, err := newSynth(cfg, lgr)
	if err != nil {
		return err
	}
	rate, err := speech.ParseRate(cfg.Speech.Rate)
	if err != nil {
		return err
	}
	voice := speech.New(synth,
		speech.WithLogger(lgr.Named("speech")),
		speech.WithLocale(cfg.Locale),
		speech.WithRate(rate),
		speech.WithPitch(cfg.Speech.Pitch),
	)
	defer voice.Close()

	recorder := listen.New(cfg.Listen.Chunk)
	recorder.SetName("Microphone")
	recorder.SetLogger(lgr.Named("listen"))
	recorder.DeviceId = cfg.Listen.Device
	if cfg.Listen.Microphone != "" {
		if err := recorder.SetMicrophon(cfg.Listen.Microphone); err != nil {
			lgr.Warn("microphone not found, using device index", zap.Error(err), zap.Int("device", cfg.Listen.Device))
		}
	}

	vosk := voskclient.New()
	vosk.Host = cfg.Vosk.Host
	vosk.Port = cfg.Vosk.Port
	vosk.SampleRate = recorder.SampleRate
	vosk.SetLogger(lgr.Named("vosk"))

	mic := recognition.NewMicRecognizer(recorder, vosk)
	mic.MaxChunks = cfg.Listen.MaxChunks
	mic.Threshold = cfg.Listen.SilenceThreshold
	mic.SetLogger(lgr.Named("mic"))

	launcher := dispatch.NewExecLauncher()
	launcher.SetLogger(lgr.Named("launcher"))

	resolver := intent.NewResolver(cat.Registry,
		intent.WithPhrases(cat.Phrases...),
		intent.WithLogger(lgr.Named("intent")),
	)

	opts := []smarty.Option{
		smarty.WithLogger(lgr),
		smarty.WithLocale(cfg.Locale),
		smarty.WithDispatchConfig(dispatch.Config{
			OpenDelay:      cfg.Dispatch.OpenDelay,
			FallbackWindow: cfg.Dispatch.FallbackWindow,
		}),
		smarty.WithBoard(cat.Vocabulary),
	}
	if cfg.Cue.Enabled {
		opts = append(opts, smarty.WithCue(player.NewCue(cfg.Cue.File, 880, 150*time.Millisecond)))
	}
	assistant := smarty.New(voice, mic, resolver, launcher, opts...)
	defer assistant.Close()

	srv, err := ipc.Listen(cfg.IPC.Socket, assistant.Control, lgr.Named("ipc"))
	if err != nil {
		return err
	}
	defer srv.Close()

	lgr.Info("boot up successful", zap.String("socket", srv.Addr()), zap.Int("apps", cat.Registry.Len()))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigs:
			lgr.Info("shutting down")
			return nil
		case e := <-assistant.GetSignalEvent():
			lgr.Debug("event", zap.Stringer("event", e))
		case txt := <-assistant.UserSaid:
			lgr.Info("user said", zap.String("text", txt))
		}
	}
}

func newSynth(cfg *config.Config, lgr *zap.Logger) (speech.Synthesizer, error) {
	switch cfg.Speech.Engine {
	case "espeak":
		s := espeak.New()
		s.SetLogger(lgr.Named("espeak"))
		if !s.Available() {
			lgr.Warn("espeak-ng not found, speech disabled")
			return speech.Discard{}, nil
		}
		return s, nil
	case "yandex":
		y := yandex.New(cfg.Yandex.APIKey, cfg.Yandex.FolderID)
		if cfg.Yandex.Voice != "" {
			y.Voice = cfg.Yandex.Voice
		}
		y.SetLogger(lgr.Named("yandex"))
		return y, nil
	case "none", "":
		return speech.Discard{}, nil
	}
	return nil, fmt.Errorf("unknown speech engine %q", cfg.Speech.Engine)
}
