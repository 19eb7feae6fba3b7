package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultConfigPath = "enigma.toml"
	DefaultModel      = "gpt-4o-mini"
	DefaultWakeWord   = "enigma"
)

var TTSBackends = []string{"espeak", "elevenlabs", "none"}

// Duration decodes TOML strings such as "90s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	Model     ModelConfig     `toml:"model"`
	Assistant AssistantConfig `toml:"assistant"`
	Audio     AudioConfig     `toml:"audio"`
	TTS       TTSConfig       `toml:"tts"`
	Bus       BusConfig       `toml:"bus"`

	Proxy          string `toml:"proxy"`
	Socket         string `toml:"socket"`
	HTTPAddr       string `toml:"http_addr"`
	DocumentsDir   string `toml:"documents_dir"`
	ScreenshotsDir string `toml:"screenshots_dir"`

	Apps    map[string]string `toml:"apps"`
	Aliases map[string]string `toml:"aliases"`
}

type ModelConfig struct {
	BaseURL     string   `toml:"base_url"`
	APIKey      string   `toml:"-"`
	Name        string   `toml:"name"`
	Vision      string   `toml:"vision"`
	Temperature float64  `toml:"temperature"`
	Timeout     Duration `toml:"timeout"`
}

type AssistantConfig struct {
	Name          string `toml:"name"`
	WakeWord      string `toml:"wake_word"`
	Language      string `toml:"language"`
	HistoryWindow int    `toml:"history_window"`
}

type AudioConfig struct {
	Enabled      bool   `toml:"enabled"`
	WhisperModel string `toml:"whisper_model"`
	Language     string `toml:"language"`
	Threads      int    `toml:"threads"`
	Duck         bool   `toml:"duck"`
	Beep         string `toml:"beep"`
}

type TTSConfig struct {
	Backend string `toml:"backend"`
	Voice   string `toml:"voice"`

	ElevenLabsURL   string `toml:"elevenlabs_url"`
	ElevenLabsVoice string `toml:"elevenlabs_voice"`
	ElevenLabsKey   string `toml:"-"`
}

type BusConfig struct {
	URL   string `toml:"url"`
	Shard string `toml:"shard"`
}

func Default() Config {
	return Config{
		Model: ModelConfig{
			Name:        DefaultModel,
			Temperature: 0.1,
			Timeout:     Duration{120 * time.Second},
		},
		Assistant: AssistantConfig{
			Name:          "Enigma",
			WakeWord:      DefaultWakeWord,
			Language:      "English",
			HistoryWindow: 4,
		},
		Audio: AudioConfig{
			Enabled:      true,
			WhisperModel: "third_party/whisper.cpp/models/ggml-medium.bin",
			Language:     "auto",
			Duck:         true,
			Beep:         "beep.mp3",
		},
		TTS: TTSConfig{
			Backend:         "espeak",
			Voice:           "en",
			ElevenLabsURL:   "https://api.elevenlabs.io",
			ElevenLabsVoice: "21m00Tcm4TlvDq8ikWAM",
		},
		Bus: BusConfig{
			Shard: "enigma",
		},
		Socket: filepath.Join(os.TempDir(), "enigma.sock"),
	}
}

// Load builds the configuration from defaults, the TOML file at path, the
// dotenv file and the process environment, in that order. Missing files are
// skipped.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	str("OPENAI_API_KEY", &cfg.Model.APIKey)
	str("OPENAI_BASE_URL", &cfg.Model.BaseURL)
	str("ENIGMA_BASE_URL", &cfg.Model.BaseURL)
	str("ENIGMA_MODEL", &cfg.Model.Name)
	str("ENIGMA_VISION_MODEL", &cfg.Model.Vision)
	str("ENIGMA_NAME", &cfg.Assistant.Name)
	str("ENIGMA_WAKE_WORD", &cfg.Assistant.WakeWord)
	str("ENIGMA_LANGUAGE", &cfg.Assistant.Language)
	str("ENIGMA_WHISPER_MODEL", &cfg.Audio.WhisperModel)
	str("ENIGMA_TTS", &cfg.TTS.Backend)
	str("ENIGMA_VOICE", &cfg.TTS.Voice)
	str("ELEVENLABS_API_KEY", &cfg.TTS.ElevenLabsKey)
	str("ELEVENLABS_BASE_URL", &cfg.TTS.ElevenLabsURL)
	str("ENIGMA_PROXY", &cfg.Proxy)
	str("ENIGMA_SOCKET", &cfg.Socket)
	str("ENIGMA_HTTP_ADDR", &cfg.HTTPAddr)
	str("ENIGMA_BUS_URL", &cfg.Bus.URL)
	str("ENIGMA_DOCUMENTS_DIR", &cfg.DocumentsDir)
	str("ENIGMA_SCREENSHOTS_DIR", &cfg.ScreenshotsDir)

	if v := strings.TrimSpace(os.Getenv("ENIGMA_AUDIO")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ENIGMA_AUDIO=%q: %w", v, err)
		}
		cfg.Audio.Enabled = b
	}
	if v := strings.TrimSpace(os.Getenv("ENIGMA_TEMPERATURE")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ENIGMA_TEMPERATURE=%q: %w", v, err)
		}
		cfg.Model.Temperature = f
	}

	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Model.Name) == "" {
		return errors.New("model.name is empty")
	}
	if c.Model.APIKey == "" && c.Model.BaseURL == "" {
		return errors.New("OPENAI_API_KEY not set (or point model.base_url at a local endpoint)")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("model.temperature=%v; allowed 0..2", c.Model.Temperature)
	}
	if c.Model.Timeout.Duration <= 0 {
		return fmt.Errorf("model.timeout=%v must be positive", c.Model.Timeout)
	}
	if strings.TrimSpace(c.Assistant.WakeWord) == "" {
		return errors.New("assistant.wake_word is empty")
	}
	if c.Assistant.HistoryWindow < 1 {
		return fmt.Errorf("assistant.history_window=%d; must be at least 1", c.Assistant.HistoryWindow)
	}
	if c.Audio.Enabled && c.Audio.WhisperModel == "" {
		return errors.New("audio.whisper_model is empty")
	}
	if !contains(TTSBackends, c.TTS.Backend) {
		return fmt.Errorf("tts.backend=%q; allowed: %s", c.TTS.Backend, strings.Join(TTSBackends, ", "))
	}
	if c.TTS.Backend == "elevenlabs" && c.TTS.ElevenLabsKey == "" {
		return errors.New("tts.backend=elevenlabs needs ELEVENLABS_API_KEY")
	}
	if c.Socket == "" {
		return errors.New("socket path is empty")
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
