// Package config loads plugin and preview settings from defaults, an
// optional YAML file and DLISR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DLISR_NGX_ENGINE_PATH.
const EnvPrefix = "DLISR"

// Config is the full configuration.
type Config struct {
	NGX     NGXConfig     `mapstructure:"ngx"`
	Logging LoggingConfig `mapstructure:"logging"`
	Preview PreviewConfig `mapstructure:"preview"`
}

type NGXConfig struct {
	AppID      uint64 `mapstructure:"app_id"`
	EnginePath string `mapstructure:"engine_path"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// PreviewConfig drives cmd/dlisr-preview.
type PreviewConfig struct {
	Addr    string `mapstructure:"addr"`
	Width   int    `mapstructure:"width"`
	Height  int    `mapstructure:"height"`
	FPS     int    `mapstructure:"fps"`
	Scale   int    `mapstructure:"scale"`
	Bitrate int    `mapstructure:"bitrate_kbps"`
	FFmpeg  string `mapstructure:"ffmpeg"`
	// Device selects "cuda" or "host". The host device only works with a
	// feature that runs on host memory.
	Device string `mapstructure:"device"`
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		NGX: NGXConfig{
			AppID:      0,
			EnginePath: "./",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
		Preview: PreviewConfig{
			Addr:    ":8000",
			Width:   640,
			Height:  360,
			FPS:     30,
			Scale:   2,
			Bitrate: 6000,
			FFmpeg:  "ffmpeg",
			Device:  "cuda",
		},
	}
}

// New returns a viper instance with defaults and environment binding set
// up. Callers may bind flags into it before calling Decode.
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "vsdlisr"))
		}
		v.SetConfigType("yaml")
		v.SetConfigName("vsdlisr")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// Decode unmarshals and validates v.
func Decode(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Logging.File = expandPath(cfg.Logging.File)
	cfg.NGX.EnginePath = expandPath(cfg.NGX.EnginePath)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Load reads configuration from file, environment and defaults.
func Load(cfgFile string) (*Config, error) {
	v, err := New(cfgFile)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// LoadPlugin reads only the ngx and logging sections. Preview keys are
// neither decoded nor validated, so a bad preview setting cannot reset the
// plugin's own settings.
func LoadPlugin(cfgFile string) (*Config, error) {
	v, err := New(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.NGX = NGXConfig{
		AppID:      v.GetUint64("ngx.app_id"),
		EnginePath: expandPath(v.GetString("ngx.engine_path")),
	}
	cfg.Logging = LoggingConfig{
		Level:   v.GetString("logging.level"),
		File:    expandPath(v.GetString("logging.file")),
		Console: v.GetBool("logging.console"),
	}
	if err := cfg.ValidatePlugin(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.ValidatePlugin(); err != nil {
		return err
	}
	return c.validatePreview()
}

// ValidatePlugin checks the sections the plugin reads.
func (c *Config) ValidatePlugin() error {
	if c.NGX.EnginePath == "" {
		return errors.New("ngx.engine_path must not be empty")
	}

	validLevels := []string{"trace", "debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}
	return nil
}

func (c *Config) validatePreview() error {
	p := c.Preview
	if p.Width <= 0 || p.Height <= 0 {
		return errors.New("preview.width and preview.height must be positive")
	}
	if p.FPS <= 0 || p.FPS > 240 {
		return errors.New("preview.fps must be between 1 and 240")
	}
	if p.Scale < 1 {
		return errors.New("preview.scale must be at least 1")
	}
	if p.Bitrate <= 0 {
		return errors.New("preview.bitrate_kbps must be positive")
	}
	validDevices := []string{"cuda", "host"}
	if !contains(validDevices, p.Device) {
		return fmt.Errorf("preview.device must be one of: %v", validDevices)
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("ngx.app_id", cfg.NGX.AppID)
	v.SetDefault("ngx.engine_path", cfg.NGX.EnginePath)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)

	v.SetDefault("preview.addr", cfg.Preview.Addr)
	v.SetDefault("preview.width", cfg.Preview.Width)
	v.SetDefault("preview.height", cfg.Preview.Height)
	v.SetDefault("preview.fps", cfg.Preview.FPS)
	v.SetDefault("preview.scale", cfg.Preview.Scale)
	v.SetDefault("preview.bitrate_kbps", cfg.Preview.Bitrate)
	v.SetDefault("preview.ffmpeg", cfg.Preview.FFmpeg)
	v.SetDefault("preview.device", cfg.Preview.Device)
}
