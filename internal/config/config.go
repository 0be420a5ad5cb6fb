package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures where the radio backend lives and how carradio logs.
type Config struct {
	BackendURL string
	Resource   string
	PushURL    string
	Discover   bool
	LogFile    string
	LogLevel   string
}

const (
	defaultConfigPath = "~/.config/carradio/config.toml"
	defaultLogFile    = "~/.local/share/carradio/carradio.log"
	defaultBackendURL = "127.0.0.1:7488"
	defaultResource   = "CR-VehicleRadio"
	pushPath          = "/push"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	cfg := Config{
		BackendURL: defaultBackendURL,
		Resource:   defaultResource,
		LogFile:    mustExpand(defaultLogFile),
	}
	cfg.PushURL = DerivePushURL(cfg.BackendURL)
	return cfg
}

// Load locates and parses the carradio config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		BackendURL string `toml:"backend_url"`
		Resource   string `toml:"resource"`
		PushURL    string `toml:"push_url"`
		Discover   bool   `toml:"discover"`
		LogFile    string `toml:"log_file"`
		LogLevel   string `toml:"log_level"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Config{
		BackendURL: strings.TrimSpace(raw.BackendURL),
		Resource:   strings.Trim(strings.TrimSpace(raw.Resource), "/"),
		PushURL:    strings.TrimSpace(raw.PushURL),
		Discover:   raw.Discover,
		LogFile:    strings.TrimSpace(raw.LogFile),
		LogLevel:   strings.ToLower(strings.TrimSpace(raw.LogLevel)),
	}
	if cfg.BackendURL == "" {
		cfg.BackendURL = defaultBackendURL
	}
	if cfg.Resource == "" {
		cfg.Resource = defaultResource
	}
	if cfg.PushURL == "" {
		cfg.PushURL = DerivePushURL(cfg.BackendURL)
	}
	if cfg.LogFile == "" {
		cfg.LogFile = defaultLogFile
	}
	cfg.LogFile = mustExpand(cfg.LogFile)

	return cfg, nil
}

// WithBackend points the config at a different backend, re-deriving the push
// URL. Used after discovery resolves an address.
func (c Config) WithBackend(backend string) Config {
	c.BackendURL = strings.TrimSpace(backend)
	c.PushURL = DerivePushURL(c.BackendURL)
	return c
}

// DerivePushURL maps a backend address to its websocket push endpoint:
// http becomes ws, https becomes wss, and a bare host:port gets ws.
func DerivePushURL(backend string) string {
	trimmed := strings.TrimSpace(backend)
	if trimmed == "" {
		trimmed = defaultBackendURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return "ws://" + defaultBackendURL + pushPath
	}
	scheme := "ws"
	if u.Scheme == "https" || u.Scheme == "wss" {
		scheme = "wss"
	}
	return (&url.URL{Scheme: scheme, Host: u.Host, Path: pushPath}).String()
}

// DefaultPath returns the expanded default config location.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
