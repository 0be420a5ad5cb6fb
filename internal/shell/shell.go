package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/spf13/pflag"

	"github.com/five82/carradio/internal/favorites"
	"github.com/five82/carradio/internal/gateway"
	"github.com/five82/carradio/internal/logging"
	"github.com/five82/carradio/internal/push"
	"github.com/five82/carradio/internal/radio"
	"github.com/five82/carradio/internal/state"
)

// DefaultPrompt is shown before every line.
const DefaultPrompt = "radio> "

// Options configures a shell session.
type Options struct {
	Invoker     gateway.Invoker
	Store       *state.Store
	Messages    <-chan push.Message
	Prompt      string
	HistoryFile string
	Out         io.Writer
}

// Shell is a line-oriented front end over the same overlay state the TUI
// uses. All methods run on the loop goroutine; backend calls run in their
// own goroutines and come back through the outcomes channel.
type Shell struct {
	overlay  *radio.Overlay
	invoker  gateway.Invoker
	store    *state.Store
	out      io.Writer
	outcomes chan gateway.Outcome
	done     chan struct{}
	wg       sync.WaitGroup

	// confirm is the delete waiting for a y/n answer on the next line.
	confirm *radio.Confirmation
}

// New creates a shell. It does not read any input until Run.
func New(opts Options) *Shell {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Shell{
		overlay:  radio.New(),
		invoker:  opts.Invoker,
		store:    opts.Store,
		out:      out,
		outcomes: make(chan gateway.Outcome, 16),
		done:     make(chan struct{}),
	}
}

// Overlay exposes the session's overlay state.
func (s *Shell) Overlay() *radio.Overlay {
	return s.overlay
}

// Run reads lines with readline until quit, EOF or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	prompt := opts.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}
	historyFile := opts.HistoryFile
	if historyFile == "" {
		historyFile = filepath.Join(os.TempDir(), "carradio-shell.history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("start readline: %w", err)
	}
	defer rl.Close()

	if opts.Out == nil {
		opts.Out = rl.Stdout()
	}
	sh := New(opts)

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := rl.Readline()
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					logging.Debugf("readline: %v", err)
				}
				return
			}
			select {
			case lines <- line:
			case <-sh.done:
				return
			}
		}
	}()

	sh.printf("carradio shell. 'help' lists commands, 'quit' exits.\n")
	return sh.Loop(ctx, lines, opts.Messages)
}

// Loop multiplexes input lines, push messages and call outcomes until a quit
// command, the end of input, or cancellation.
func (s *Shell) Loop(ctx context.Context, lines <-chan string, messages <-chan push.Message) error {
	defer s.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if s.HandleLine(ctx, line) {
				return nil
			}
		case msg, ok := <-messages:
			if !ok {
				messages = nil
				s.printf("push stream closed\n")
				continue
			}
			s.HandlePush(msg)
		case out := <-s.outcomes:
			s.HandleOutcome(out)
		}
	}
}

func (s *Shell) stop() {
	close(s.done)
	s.wg.Wait()
}

// HandleLine runs one input line and reports whether the session should end.
func (s *Shell) HandleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)

	if s.confirm != nil {
		s.answer(ctx, line)
		return false
	}
	if line == "" {
		return false
	}

	cmd, err := Parse(line)
	if err != nil {
		s.printf("%v\n", err)
		return false
	}
	if _, ok := radioCommands[cmd.Name]; ok && !s.overlay.Visible() {
		s.printf("the radio is closed\n")
		return false
	}

	switch cmd.Name {
	case "quit":
		s.printf("Bye!\n")
		return true
	case "help":
		s.printHelp()
	case "play":
		if len(cmd.Args) > 0 {
			s.overlay.SetURLInput(strings.Join(cmd.Args, " "))
		}
		call, err := s.overlay.Play()
		s.send(ctx, call, err)
	case "stop":
		s.dispatch(ctx, s.overlay.Stop())
	case "close":
		call, ok := s.overlay.Escape()
		if !ok {
			s.printf("the radio is already closed\n")
			return false
		}
		s.dispatch(ctx, call)
	case "vol":
		s.volume(ctx, cmd.Args)
	case "save":
		if len(cmd.Args) != 2 {
			s.printf("usage: save <nickname> <url>\n")
			return false
		}
		s.overlay.SetNicknameInput(cmd.Args[0])
		s.overlay.SetFavoriteURLInput(cmd.Args[1])
		call, err := s.overlay.SaveFavorite()
		s.send(ctx, call, err)
	case "select":
		item, err := s.lookup(cmd.Args)
		if err != nil {
			s.printf("%v\n", err)
			return false
		}
		s.overlay.Select(item.ID)
		s.printf("URL set to %s (use 'play' to start)\n", s.overlay.URLInput())
	case "del":
		item, err := s.lookup(cmd.Args)
		if err != nil {
			s.printf("%v\n", err)
			return false
		}
		conf, err := s.overlay.RequestDelete(item.ID)
		if err != nil {
			s.printf("%v\n", err)
			return false
		}
		s.confirm = &conf
		s.printf("%s [y/N] ", conf.Prompt)
	case "fav":
		s.printFavorites()
	case "status":
		s.printStatus()
	case "inject":
		s.inject(rest(line))
	case "log":
		if err := s.setLog(cmd.Args); err != nil {
			s.printf("log: %v\n", err)
		}
	}
	return false
}

// HandlePush applies a push message and echoes what changed.
func (s *Shell) HandlePush(msg push.Message) {
	s.overlay.Apply(msg)
	if s.store != nil {
		s.store.RecordMessage(msg.Type, msg.ReceivedAt)
	}

	switch payload := msg.Payload.(type) {
	case *push.Visibility:
		if payload.Display {
			s.printf("* radio opened\n")
		} else {
			s.confirm = nil
			s.printf("* radio closed\n")
		}
	case *push.StateSnapshot:
		st := s.overlay.State()
		if payload.HasStatus() {
			if st.Playing {
				s.printf("* %s %s\n", s.overlay.StatusLabel(), st.URL)
			} else {
				s.printf("* %s\n", s.overlay.StatusLabel())
			}
		}
		if payload.Volume != nil {
			s.printf("* volume %s\n", s.overlay.VolumeLabel())
		}
	case *push.FavoritesSnapshot:
		s.printf("* favorites updated (%d)\n", s.overlay.Favorites().Len())
	}
}

// HandleOutcome reports a finished call. Success is quiet.
func (s *Shell) HandleOutcome(out gateway.Outcome) {
	if out.Err == nil {
		logging.Debugf("%s ok", out.Call.Action)
		return
	}
	s.printf("! %v\n", out.Err)
}

func (s *Shell) answer(ctx context.Context, line string) {
	conf := *s.confirm
	s.confirm = nil
	accepted := strings.EqualFold(line, "y") || strings.EqualFold(line, "yes")
	call, ok := s.overlay.ResolveDelete(conf.Token, accepted)
	if !ok {
		if accepted {
			s.printf("%q is no longer listed; nothing deleted\n", conf.Name)
		} else {
			s.printf("kept %q\n", conf.Name)
		}
		return
	}
	s.dispatch(ctx, call)
}

func (s *Shell) volume(ctx context.Context, args []string) {
	if len(args) == 0 {
		s.printf("volume %s\n", s.overlay.VolumeLabel())
		return
	}
	arg := strings.TrimSuffix(args[0], "%")
	n, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		s.printf("usage: vol <0-100> | vol +N | vol -N\n")
		return
	}
	target := n / 100
	if strings.HasPrefix(arg, "+") || strings.HasPrefix(arg, "-") {
		target = s.overlay.Volume() + n/100
	}
	s.overlay.DragVolume(target)
	s.dispatch(ctx, s.overlay.ReleaseVolume())
}

// lookup finds a favorite by id, 1-based list position, or name.
func (s *Shell) lookup(args []string) (favorites.Item, error) {
	if len(args) == 0 {
		return favorites.Item{}, errors.New("which favorite? give an id, number or name")
	}
	key := strings.Join(args, " ")
	view := s.overlay.Favorites()
	if item, ok := view.Find(key); ok {
		return item, nil
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= view.Len() {
		return view.Items[n-1], nil
	}
	var matches []favorites.Item
	for _, item := range view.Items {
		if strings.EqualFold(item.Name, key) {
			matches = append(matches, item)
		}
	}
	switch len(matches) {
	case 0:
		return favorites.Item{}, fmt.Errorf("no favorite matches %q", key)
	case 1:
		return matches[0], nil
	default:
		return favorites.Item{}, fmt.Errorf("%d favorites are named %q; use the number or id", len(matches), key)
	}
}

func (s *Shell) inject(raw string) {
	if raw == "" {
		s.printf("usage: inject <json push message>\n")
		return
	}
	msg, err := push.Decode([]byte(raw))
	if err != nil {
		s.printf("inject: %v\n", err)
		return
	}
	s.HandlePush(msg)
}

// send dispatches call, or prints the prompt when input was rejected.
func (s *Shell) send(ctx context.Context, call gateway.Call, err error) {
	if err != nil {
		var inputErr *gateway.InputError
		if errors.As(err, &inputErr) {
			s.printf("%s\n", inputErr.Prompt)
			return
		}
		s.printf("%v\n", err)
		return
	}
	s.dispatch(ctx, call)
}

func (s *Shell) dispatch(ctx context.Context, call gateway.Call) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		out := gateway.Dispatch(ctx, s.invoker, call)
		if s.store != nil {
			s.store.RecordCall(call.Action, out.Err)
		}
		select {
		case s.outcomes <- out:
		case <-s.done:
		}
	}()
}

func (s *Shell) setLog(args []string) error {
	fs := pflag.NewFlagSet("log", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var vcount int
	var level string
	fs.CountVarP(&vcount, "verbose", "v", "Increase verbosity (-v... up to 4)")
	fs.StringVar(&level, "level", "", "error|warn|info|debug|trace")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case level != "":
		if err := logging.SetLevel(level); err != nil {
			return err
		}
	case vcount > 0:
		logging.SetVerbosity(vcount)
	}
	s.printf("log level: %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
	return nil
}

func (s *Shell) printFavorites() {
	view := s.overlay.Favorites()
	if view.Empty {
		s.printf("%s\n", view.Placeholder)
		return
	}
	width := 0
	for _, item := range view.Items {
		width = max(width, len([]rune(item.Name)))
	}
	for i, item := range view.Items {
		s.printf("%2d  %-*s  %s  [%s]\n", i+1, width, item.Name, item.URL, item.ID)
	}
}

func (s *Shell) printStatus() {
	st := s.overlay.State()
	visible := "closed"
	if s.overlay.Visible() {
		visible = "open"
	}
	s.printf("radio:    %s\n", visible)
	s.printf("status:   %s\n", s.overlay.StatusLabel())
	if st.URL != "" {
		s.printf("stream:   %s\n", st.URL)
	}
	s.printf("volume:   %s\n", s.overlay.VolumeLabel())
	s.printf("favorites: %d\n", s.overlay.Favorites().Len())
	if s.store == nil {
		return
	}
	link := s.store.Snapshot()
	switch {
	case link.Connected:
		s.printf("push:     connected to %s since %s\n", link.Endpoint, link.ConnectedSince.Format("15:04:05"))
	case link.LastError != nil:
		s.printf("push:     down (%d failures): %v\n", link.ConsecutiveFailures, link.LastError)
	default:
		s.printf("push:     connecting\n")
	}
}

func (s *Shell) printHelp() {
	s.printf(`commands:
  play [url]              play the given URL (or the last one)
  stop                    stop playback
  vol [N | +N | -N]       show or set the volume in percent
  fav                     list favorites
  select <n|id|name>      copy a favorite's URL for 'play'
  save <nickname> <url>   save a favorite
  del <n|id|name>         delete a favorite (asks first)
  status                  show radio and push link state
  close                   ask the vehicle to close the radio
  inject <json>           apply a push message locally
  log [-v...] [--level L] show or change the log level
  quit                    leave the shell
`)
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// rest returns everything after the first word of line, unparsed.
func rest(line string) string {
	line = strings.TrimSpace(line)
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(line[i:])
}
