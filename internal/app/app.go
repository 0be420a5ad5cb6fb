package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/carradio/internal/config"
	"github.com/five82/carradio/internal/discovery"
	"github.com/five82/carradio/internal/gateway"
	"github.com/five82/carradio/internal/logging"
	"github.com/five82/carradio/internal/prefs"
	"github.com/five82/carradio/internal/push"
	"github.com/five82/carradio/internal/shell"
	"github.com/five82/carradio/internal/state"
	"github.com/five82/carradio/internal/ui"
)

// Options configure a carradio session.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/carradio/prefs.toml
	Backend    string // overrides backend_url and skips discovery
	Verbosity  int    // -v count; zero falls back to log_level
}

// Session holds everything a front end needs: the resolved config, the
// gateway client, link health and the push message channel.
type Session struct {
	Config   config.Config
	Client   *gateway.Client
	Store    *state.Store
	Messages <-chan push.Message
}

// Start loads configuration, resolves the backend and starts the push
// stream. The stream stops when ctx is cancelled.
func Start(ctx context.Context, opts Options) (*Session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return startSession(ctx, cfg, opts)
}

func startSession(ctx context.Context, cfg config.Config, opts Options) (*Session, error) {
	applyLogLevel(cfg, opts.Verbosity)
	cfg = resolveBackend(ctx, cfg, opts.Backend)

	client, err := gateway.NewClient(cfg.BackendURL, cfg.Resource)
	if err != nil {
		return nil, fmt.Errorf("init gateway client: %w", err)
	}

	store := &state.Store{}
	stream, err := push.NewStream(cfg.PushURL, store)
	if err != nil {
		return nil, fmt.Errorf("init push stream: %w", err)
	}
	logging.Infof("Backend %s, push %s", client.BaseURL(), stream.URL())

	return &Session{
		Config:   cfg,
		Client:   client,
		Store:    store,
		Messages: StartPush(ctx, stream),
	}, nil
}

// RunTUI boots the terminal overlay until the user quits or ctx is cancelled.
func RunTUI(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// The terminal belongs to the TUI; logs go to the file the
	// diagnostics view tails.
	logFile, err := openLog(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()

	sess, err := startSession(ctx, cfg, opts)
	if err != nil {
		return err
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		logging.Warnf("load prefs: %v", err)
	}

	return ui.Run(ui.Options{
		Context:   ctx,
		Invoker:   sess.Client,
		Store:     sess.Store,
		Messages:  sess.Messages,
		Backend:   sess.Client.BaseURL(),
		LogPath:   sess.Config.LogFile,
		PrefsPath: opts.PrefsPath,
		Prefs:     userPrefs,
	})
}

// RunShell starts the line-oriented front end. Logs stay on stderr.
func RunShell(ctx context.Context, opts Options, prompt string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess, err := Start(ctx, opts)
	if err != nil {
		return err
	}
	return shell.Run(ctx, shell.Options{
		Invoker:  sess.Client,
		Store:    sess.Store,
		Messages: sess.Messages,
		Prompt:   prompt,
	})
}

func applyLogLevel(cfg config.Config, verbosity int) {
	if verbosity > 0 {
		logging.SetVerbosity(verbosity)
		return
	}
	if cfg.LogLevel == "" {
		return
	}
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		logging.Warnf("ignoring log_level: %v", err)
	}
}

// resolveBackend applies an explicit override, or asks mDNS when discovery
// is enabled. A failed lookup keeps the configured backend.
func resolveBackend(ctx context.Context, cfg config.Config, override string) config.Config {
	if override != "" {
		return cfg.WithBackend(override)
	}
	if !cfg.Discover {
		return cfg
	}
	found, err := discovery.First(ctx, discovery.DefaultTimeout)
	if err != nil {
		logging.Warnf("backend discovery failed, using %s: %v", cfg.BackendURL, err)
		return cfg
	}
	logging.Infof("Discovered backend %s", found)
	cfg = cfg.WithBackend(found.Addr())
	if found.Resource != "" {
		cfg.Resource = found.Resource
	}
	return cfg
}

func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := tea.LogToFile(path, "")
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
