package config

import (
	log "log/slog"

	cli "github.com/spf13/pflag"
)

var LogLevels = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// Flags are the command-line overrides, the topmost layer. Only flags the
// user actually passed are applied.
type Flags struct {
	fs *cli.FlagSet

	Config *string
	Env    *string
	Log    *string

	proxy    *string
	model    *string
	baseURL  *string
	socket   *string
	httpAddr *string
	busURL   *string
	wakeWord *string
	language *string
	tts      *string
	noAudio  *bool
}

func NewFlags(fs *cli.FlagSet) *Flags {
	return &Flags{
		fs:       fs,
		Config:   fs.StringP("config", "c", DefaultConfigPath, "Config file path"),
		Env:      fs.StringP("env", "e", ".env", "Env file path"),
		Log:      fs.StringP("log", "l", "info", "Log level"),
		proxy:    fs.StringP("proxy", "p", "", "Socks proxy address"),
		model:    fs.StringP("model", "m", "", "Chat model"),
		baseURL:  fs.String("base-url", "", "OpenAI-compatible endpoint"),
		socket:   fs.String("socket", "", "Control socket path"),
		httpAddr: fs.String("http", "", "HTTP control API address"),
		busURL:   fs.StringP("url", "u", "", "Url of hub"),
		wakeWord: fs.StringP("wake", "w", "", "Wake word"),
		language: fs.String("lang", "", "Reply language"),
		tts:      fs.String("tts", "", "Speech backend (espeak, elevenlabs, none)"),
		noAudio:  fs.Bool("no-audio", false, "Run without microphone and whisper"),
	}
}

// Level returns the selected log level, info for unknown names.
func (f *Flags) Level() log.Level {
	if l, ok := LogLevels[*f.Log]; ok {
		return l
	}
	return log.LevelInfo
}

func (f *Flags) Apply(cfg *Config) {
	set := func(name string, src *string, dst *string) {
		if f.fs.Changed(name) {
			*dst = *src
		}
	}

	set("proxy", f.proxy, &cfg.Proxy)
	set("model", f.model, &cfg.Model.Name)
	set("base-url", f.baseURL, &cfg.Model.BaseURL)
	set("socket", f.socket, &cfg.Socket)
	set("http", f.httpAddr, &cfg.HTTPAddr)
	set("url", f.busURL, &cfg.Bus.URL)
	set("wake", f.wakeWord, &cfg.Assistant.WakeWord)
	set("lang", f.language, &cfg.Assistant.Language)
	set("tts", f.tts, &cfg.TTS.Backend)

	if f.fs.Changed("no-audio") && *f.noAudio {
		cfg.Audio.Enabled = false
	}
}
