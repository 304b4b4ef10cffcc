package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [Validate] when the corresponding field is unset.
const (
	DefaultListenAddr    = ":8080"
	DefaultCommandPrefix = "!"
	DefaultFFmpegPath    = "ffmpeg"
	DefaultVolume        = 0.15
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values and fills in
// defaults for unset fields. It returns a joined error listing all
// validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Discord.Token == "" {
		errs = append(errs, errors.New("discord.token is required"))
	}
	if cfg.Discord.CommandPrefix == "" {
		cfg.Discord.CommandPrefix = DefaultCommandPrefix
	} else if strings.ContainsAny(cfg.Discord.CommandPrefix, " \t\n") {
		errs = append(errs, fmt.Errorf("discord.command_prefix %q must not contain whitespace", cfg.Discord.CommandPrefix))
	}

	if cfg.Database.PostgresDSN == "" {
		slog.Warn("database.postgres_dsn is empty; using the in-memory catalog, nothing survives restarts")
	}

	if cfg.Assets.MediaDir == "" {
		errs = append(errs, errors.New("assets.media_dir is required"))
	}
	if cfg.Assets.FFmpegPath == "" {
		cfg.Assets.FFmpegPath = DefaultFFmpegPath
	}

	if cfg.Playback.Volume == 0 {
		cfg.Playback.Volume = DefaultVolume
	} else if cfg.Playback.Volume < 0 || cfg.Playback.Volume > 1 {
		errs = append(errs, fmt.Errorf("playback.volume %.2f is out of range (0, 1]", cfg.Playback.Volume))
	}
	if cfg.Playback.ClippingThreshold < 0 || cfg.Playback.ClippingThreshold > 1 {
		errs = append(errs, fmt.Errorf("playback.clipping_threshold %.2f is out of range [0, 1]", cfg.Playback.ClippingThreshold))
	}

	if cfg.Cache.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("cache.idle_timeout %s must not be negative", cfg.Cache.IdleTimeout))
	}

	return errors.Join(errs...)
}
