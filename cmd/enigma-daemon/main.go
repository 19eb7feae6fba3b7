package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"

	log "log/slog"

	"enigma/internal/agent"
	"enigma/internal/api"
	"enigma/internal/assistant"
	"enigma/internal/audio"
	"enigma/internal/bus"
	"enigma/internal/config"
	"enigma/internal/desktop"
	"enigma/internal/ipc"
	"enigma/internal/llm"
	"enigma/internal/notify"
	"enigma/internal/proxy"
	"enigma/internal/tools"
	"enigma/internal/tts"
	"enigma/pkg/audioconv"
	"enigma/pkg/stt"
)

const maxClip = 5 * time.Minute

func main() {
	flags := config.NewFlags(cli.CommandLine)
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      flags.Level(),
		TimeFormat: time.TimeOnly,
	})))

	log.Info("Booting up")

	cfg, err := config.Load(*flags.Config, *flags.Env)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	flags.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config", "err", err)
		os.Exit(1)
	}

	httpClient, err := proxy.NewHTTPClient(cfg.Proxy, cfg.Model.Timeout.Duration)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.Proxy, "err", err)
		os.Exit(1)
	}

	model := llm.New(llm.Config{
		BaseURL:     cfg.Model.BaseURL,
		APIKey:      cfg.Model.APIKey,
		Model:       cfg.Model.Name,
		VisionModel: cfg.Model.Vision,
		Temperature: cfg.Model.Temperature,
		HTTPClient:  httpClient,
	})
	log.Debug("Loaded model client", "model", cfg.Model.Name, "base_url", cfg.Model.BaseURL)

	desk := desktop.New()

	reg, err := tools.Default(tools.Deps{
		Desktop:        desk,
		Model:          model,
		Vision:         model,
		Search:         tools.NewWebSearch(httpClient),
		Apps:           cfg.Apps,
		DocumentsDir:   cfg.DocumentsDir,
		ScreenshotsDir: cfg.ScreenshotsDir,
		Language:       cfg.Assistant.Language,
	})
	if err != nil {
		log.Error("Failed to build tools", "err", err)
		os.Exit(1)
	}

	extra := make(map[string]tools.ToolID, len(cfg.Aliases))
	for from, to := range cfg.Aliases {
		extra[from] = tools.ToolID(to)
	}
	aliases, err := tools.NewAliases(reg, extra)
	if err != nil {
		log.Error("Bad alias table", "err", err)
		os.Exit(1)
	}

	brain, err := agent.New(model, reg, aliases, desk, agent.Options{
		Name:          cfg.Assistant.Name,
		Language:      cfg.Assistant.Language,
		HistoryWindow: cfg.Assistant.HistoryWindow,
	})
	if err != nil {
		log.Error("Failed to init agent", "err", err)
		os.Exit(1)
	}
	log.Debug("Loaded agent", "tools", reg.Len())

	speaker, err := tts.New(tts.Options{
		Backend:         cfg.TTS.Backend,
		Voice:           cfg.TTS.Voice,
		ElevenLabsKey:   cfg.TTS.ElevenLabsKey,
		ElevenLabsURL:   cfg.TTS.ElevenLabsURL,
		ElevenLabsVoice: cfg.TTS.ElevenLabsVoice,
		HTTP:            httpClient,
	})
	if err != nil {
		log.Error("Failed to init tts", "err", err)
		os.Exit(1)
	}

	deps := assistant.Deps{
		Agent:    brain,
		Speaker:  speaker,
		Notifier: notify.New(cfg.Audio.Beep, cfg.Assistant.Name),
		WakeWord: cfg.Assistant.WakeWord,
	}
	if cfg.Audio.Duck {
		deps.Ducker = audio.NewDucker(audio.Pactl{}, []string{cfg.Assistant.Name, "enigma-daemon"}, 0.3, 10, 300*time.Millisecond)
	}

	if cfg.Audio.Enabled {
		rec := audio.NewRecorder(audio.DefaultVAD())
		if err := rec.Init(); err != nil {
			log.Error("Failed to init audio", "err", err)
			os.Exit(1)
		}
		defer rec.Close()
		log.Debug("Loaded recorder")

		whisper, err := stt.NewTranscriber(cfg.Audio.WhisperModel, stt.Options{
			Language:      cfg.Audio.Language,
			Threads:       cfg.Audio.Threads,
			InitialPrompt: cfg.Assistant.Name + ".",
		})
		if err != nil {
			log.Error("Failed to init whisper", "err", err)
			os.Exit(1)
		}
		defer whisper.Close()
		log.Debug("Loaded whisper")

		deps.Recorder = rec
		deps.Transcriber = whisper
		deps.Decode = func(ctx context.Context, path string) ([]float32, error) {
			return audioconv.ConvertFile(ctx, path, audioconv.Options{MaxDuration: maxClip})
		}
	} else {
		log.Warn("Audio disabled, text commands only")
	}

	asst, err := assistant.New(deps)
	if err != nil {
		log.Error("Failed to init assistant", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Boot up - successful", "name", cfg.Assistant.Name, "wake_word", cfg.Assistant.WakeWord)

	var wg sync.WaitGroup
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				log.Error("Entry point stopped", "name", name, "err", err)
				stop()
			}
		}()
	}

	run("ipc", func() error {
		return ipc.Serve(ctx, cfg.Socket, control(asst, brain.History()))
	})
	if cfg.HTTPAddr != "" {
		run("http", func() error {
			return api.New(asst, brain.History()).ListenAndServe(ctx, cfg.HTTPAddr)
		})
	}
	if cfg.Bus.URL != "" {
		b := bus.New(bus.Config{URL: cfg.Bus.URL, Shard: cfg.Bus.Shard})
		run("bus", func() error {
			return b.Run(ctx, func(ctx context.Context, text string) (string, error) {
				res, err := asst.Submit(ctx, text, "bus")
				return res.Output, err
			})
		})
	}
	if asst.AudioEnabled() {
		run("listen", func() error {
			return asst.Listen(ctx)
		})
	}

	<-ctx.Done()
	log.Info("Shutting down")
	wg.Wait()
	asst.Wait()
}
