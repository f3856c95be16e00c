// Package config loads daemon settings from defaults, an optional YAML file and
// the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	OpenAI OpenAIConfig `yaml:"openai"`
	Google GoogleConfig `yaml:"google"`
	Audio  AudioConfig  `yaml:"audio"`
	Bus    BusConfig    `yaml:"bus"`
	HTTP   HTTPConfig   `yaml:"http"`
	IPC    IPCConfig    `yaml:"ipc"`
	Notify NotifyConfig `yaml:"notify"`

	// Proxy is a SOCKS5 address used for every remote API call. Empty means direct.
	Proxy string `yaml:"proxy"`
}

type OpenAIConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	ChatModel    string `yaml:"chat_model"`
	STTModel     string `yaml:"stt_model"`
	Language     string `yaml:"language"`
	SystemPrompt string `yaml:"system_prompt"`
}

type GoogleConfig struct {
	APIKey       string  `yaml:"api_key"`
	LanguageCode string  `yaml:"language_code"`
	Voice        string  `yaml:"voice"`
	SpeakingRate float64 `yaml:"speaking_rate"`
	Pitch        float64 `yaml:"pitch"`
	Endpoint     string  `yaml:"endpoint"`
}

type AudioConfig struct {
	SampleRate   int           `yaml:"sample_rate"`
	RecordLimit  time.Duration `yaml:"record_limit"`
	TickInterval time.Duration `yaml:"tick_interval"`
	CuePath      string        `yaml:"cue_path"`
	Duck         bool          `yaml:"duck"`
	DuckSelf     []string      `yaml:"duck_self"`
	DuckMin      int           `yaml:"duck_min_volume"`
}

type BusConfig struct {
	URL string `yaml:"url"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type IPCConfig struct {
	Socket string `yaml:"socket"`
}

type NotifyConfig struct {
	Desktop bool `yaml:"desktop"`
}

func Default() Config {
	return Config{
		OpenAI: OpenAIConfig{
			ChatModel: "gpt-3.5-turbo",
			STTModel:  "whisper-1",
			Language:  "ja",
		},
		Google: GoogleConfig{
			LanguageCode: "ja-JP",
			Voice:        "ja-JP-Neural2-B",
			SpeakingRate: 1,
		},
		Audio: AudioConfig{
			SampleRate:   16000,
			RecordLimit:  5 * time.Second,
			TickInterval: 50 * time.Millisecond,
			CuePath:      "beep.mp3",
			DuckSelf:     []string{"emovox"},
			DuckMin:      10,
		},
		IPC: IPCConfig{Socket: "/tmp/emovox.sock"},
	}
}

// Load returns the defaults overlaid with the YAML file at path. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &cfg, nil
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadEnvFile loads a .env file into the process environment. Variables
// already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	set(&c.Google.APIKey, "GOOGLE_API_KEY")
	set(&c.Bus.URL, "EMOVOX_BUS_URL")
	set(&c.Proxy, "EMOVOX_PROXY")
	set(&c.HTTP.Addr, "EMOVOX_HTTP_ADDR")
}

func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return errors.New("OPENAI_API_KEY not set")
	}
	if c.Google.APIKey == "" {
		return errors.New("GOOGLE_API_KEY not set")
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	if c.Google.SpeakingRate <= 0 {
		return fmt.Errorf("google: speaking_rate must be positive, got %v", c.Google.SpeakingRate)
	}
	return nil
}

func (a *AudioConfig) Validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", a.SampleRate)
	}
	if a.RecordLimit <= 0 {
		return fmt.Errorf("record_limit must be positive, got %v", a.RecordLimit)
	}
	if a.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %v", a.TickInterval)
	}
	if a.DuckMin < 0 || a.DuckMin > 150 {
		return fmt.Errorf("duck_min_volume must be between 0 and 150, got %d", a.DuckMin)
	}
	return nil
}
