package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHost                  = "127.0.0.1"
	DefaultPort                  = 5000
	DefaultCorruptionProbability = 0.6
)

type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

var ErrUnknownKeys = errors.New("config: unknown keys")

// File is the on-disk configuration shared by both roles. Durations are Go
// duration strings so files stay human-editable.
type File struct {
	Server   ServerSection   `toml:"server" yaml:"server"`
	Sender   SenderSection   `toml:"sender" yaml:"sender"`
	Receiver ReceiverSection `toml:"receiver" yaml:"receiver"`
	Log      LogSection      `toml:"log" yaml:"log"`
}

type ServerSection struct {
	Host string `toml:"host" yaml:"host"`
	Port int    `toml:"port" yaml:"port"`
}

type SenderSection struct {
	Timeout           string  `toml:"timeout" yaml:"timeout"`
	MaxAttempts       int     `toml:"max_attempts" yaml:"max_attempts"`
	RetryDelay        string  `toml:"retry_delay" yaml:"retry_delay"`
	BackoffMultiplier float64 `toml:"backoff_multiplier" yaml:"backoff_multiplier"`
	MaxRetryDelay     string  `toml:"max_retry_delay" yaml:"max_retry_delay"`
	Jitter            bool    `toml:"jitter" yaml:"jitter"`
}

type ReceiverSection struct {
	CorruptionProbability float64  `toml:"corruption_probability" yaml:"corruption_probability"`
	CorruptionSeed        int64    `toml:"corruption_seed" yaml:"corruption_seed"`
	Sentinel              string   `toml:"sentinel" yaml:"sentinel"`
	AdminAddr             string   `toml:"admin_addr" yaml:"admin_addr"`
	AdminToken            string   `toml:"admin_token" yaml:"admin_token"`
	CorsOrigins           []string `toml:"cors_origins" yaml:"cors_origins"`
}

type LogSection struct {
	Level     string `toml:"level" yaml:"level"`
	Timestamp bool   `toml:"timestamp" yaml:"timestamp"`
	NoColor   bool   `toml:"no_color" yaml:"no_color"`
}

func Default() File {
	return File{
		Server: ServerSection{Host: DefaultHost, Port: DefaultPort},
		Sender: SenderSection{
			Timeout:           "1s",
			MaxAttempts:       5,
			RetryDelay:        "1s",
			BackoffMultiplier: 1.0,
			MaxRetryDelay:     "0s",
		},
		Receiver: ReceiverSection{
			CorruptionProbability: DefaultCorruptionProbability,
			Sentinel:              "*",
			CorsOrigins:           []string{"http://localhost:3000"},
		},
		Log: LogSection{Level: "info", Timestamp: true},
	}
}

// FormatOf picks the decoder from the file extension; anything unknown is TOML.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Load decodes path over Default, so absent keys keep their defaults, then validates.
func Load(path string) (File, error) {
	cfg := Default()
	switch FormatOf(path) {
	case FormatYAML:
		if err := loadYAML(path, &cfg); err != nil {
			return File{}, err
		}
	default:
		if err := loadTOML(path, &cfg); err != nil {
			return File{}, err
		}
	}
	if err := Validate(cfg); err != nil {
		return File{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func loadTOML(path string, out *File) error {
	meta, err := toml.DecodeFile(path, out)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("%w (%s): %s", ErrUnknownKeys, path, strings.Join(keys, ", "))
	}
	return nil
}

func loadYAML(path string, out *File) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(err.Error(), "not found in type") {
			return fmt.Errorf("%w (%s): %v", ErrUnknownKeys, path, err)
		}
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func Validate(cfg File) error {
	if strings.TrimSpace(cfg.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	if cfg.Sender.MaxAttempts < 1 {
		return fmt.Errorf("sender.max_attempts must be at least 1: %d", cfg.Sender.MaxAttempts)
	}
	timeout, err := parseDuration("sender.timeout", cfg.Sender.Timeout)
	if err != nil {
		return err
	}
	if timeout <= 0 {
		return fmt.Errorf("sender.timeout must be positive: %s", cfg.Sender.Timeout)
	}
	for key, raw := range map[string]string{
		"sender.retry_delay":     cfg.Sender.RetryDelay,
		"sender.max_retry_delay": cfg.Sender.MaxRetryDelay,
	} {
		d, err := parseDuration(key, raw)
		if err != nil {
			return err
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative: %s", key, raw)
		}
	}
	if cfg.Sender.BackoffMultiplier < 0 {
		return fmt.Errorf("sender.backoff_multiplier must not be negative: %v", cfg.Sender.BackoffMultiplier)
	}
	p := cfg.Receiver.CorruptionProbability
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("receiver.corruption_probability must be within [0,1]: %v", p)
	}
	if utf8.RuneCountInString(cfg.Receiver.Sentinel) != 1 || cfg.Receiver.Sentinel == "|" {
		return fmt.Errorf("receiver.sentinel must be one character other than '|': %q", cfg.Receiver.Sentinel)
	}
	return nil
}

// parseDuration treats an empty value as zero.
func parseDuration(key, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
