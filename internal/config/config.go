// Package config reads the gateway settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	DefaultPort           = "9090"
	DefaultAllowOrigin    = "https://msdf.kansei.graphics"
	DefaultUploadDir      = "uploads"
	DefaultOutputDir      = "output"
	DefaultMaxUploadBytes = int64(20 << 20)
	DefaultOutputTTL      = 24 * time.Hour
	DefaultSweepInterval  = 10 * time.Minute
)

// Config holds every setting the web gateway needs.
type Config struct {
	Port        string
	AllowOrigin string

	UploadDir string
	OutputDir string

	// GeneratorDir is where the platform specific msdf-atlas-gen binary lives.
	// GeneratorBin, when set, wins over GeneratorDir.
	GeneratorDir     string
	GeneratorBin     string
	GeneratorTimeout time.Duration

	MaxUploadBytes int64
	OutputTTL      time.Duration
	SweepInterval  time.Duration

	ForceHTTPS    bool
	TLSSelfSigned bool
}

// Load builds a Config from environment variables, falling back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getenvDefault("PORT", DefaultPort),
		AllowOrigin:  getenvDefault("ALLOW_ORIGIN", DefaultAllowOrigin),
		UploadDir:    getenvDefault("UPLOAD_DIR", DefaultUploadDir),
		OutputDir:    getenvDefault("OUTPUT_DIR", DefaultOutputDir),
		GeneratorBin: os.Getenv("GENERATOR_BIN"),
	}

	cfg.GeneratorDir = os.Getenv("GENERATOR_DIR")
	if cfg.GeneratorDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate executable: %w", err)
		}
		cfg.GeneratorDir = filepath.Dir(exe)
	}

	var err error
	if cfg.MaxUploadBytes, err = getenvInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", cfg.MaxUploadBytes)
	}
	if cfg.GeneratorTimeout, err = getenvDuration("GENERATOR_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.OutputTTL, err = getenvDuration("OUTPUT_TTL", DefaultOutputTTL); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getenvDuration("SWEEP_INTERVAL", DefaultSweepInterval); err != nil {
		return nil, err
	}
	if cfg.ForceHTTPS, err = getenvBool("FORCE_HTTPS", true); err != nil {
		return nil, err
	}
	if cfg.TLSSelfSigned, err = getenvBool("TLS_SELF_SIGNED", false); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr is the listen address for http.Server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", key, v)
	}
	return d, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
