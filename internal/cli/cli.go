// Package cli defines the carradio command tree.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/carradio/internal/app"
	"github.com/five82/carradio/internal/config"
	"github.com/five82/carradio/internal/devbackend"
	"github.com/five82/carradio/internal/discovery"
	"github.com/five82/carradio/internal/logging"
	"github.com/five82/carradio/internal/shell"
)

type globalFlags struct {
	configPath string
	prefsPath  string
	backend    string
	verbosity  int
}

func (g *globalFlags) options() app.Options {
	return app.Options{
		ConfigPath: g.configPath,
		PrefsPath:  g.prefsPath,
		Backend:    g.backend,
		Verbosity:  g.verbosity,
	}
}

// NewRootCmd creates the root command. Without a subcommand it runs the TUI.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "carradio",
		Short:         "Terminal overlay for the in-vehicle radio",
		Long:          "Play streams, set the volume and manage favorites on a vehicle radio backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunTUI(cmd.Context(), flags.options())
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", config.DefaultPath(), "config file path")
	cmd.PersistentFlags().StringVar(&flags.prefsPath, "prefs", "", "preferences file path (default ~/.config/carradio/prefs.toml)")
	cmd.PersistentFlags().StringVar(&flags.backend, "backend", "", "backend address, overrides backend_url and discovery")
	cmd.PersistentFlags().CountVarP(&flags.verbosity, "verbose", "v", "increase log detail (-v, -vv, ... up to 4)")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if flags.verbosity > 0 {
			logging.SetVerbosity(flags.verbosity)
		}
	}

	cmd.AddCommand(
		newShellCmd(flags),
		newDevBackendCmd(flags),
		newDiscoverCmd(),
	)
	return cmd
}

func newShellCmd(flags *globalFlags) *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Drive the radio from an interactive prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunShell(cmd.Context(), flags.options(), prompt)
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", shell.DefaultPrompt, "prompt string")
	return cmd
}

func newDevBackendCmd(flags *globalFlags) *cobra.Command {
	opts := devbackend.Options{}
	cmd := &cobra.Command{
		Use:   "devbackend",
		Short: "Run an in-memory radio backend for development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("resource") {
				cfg, err := config.Load(flags.configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				opts.Resource = cfg.Resource
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dev backend on http://%s/%s (push on /push)\n", opts.Addr, opts.Resource)
			return devbackend.Run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", "127.0.0.1:7488", "listen address")
	cmd.Flags().StringVar(&opts.Resource, "resource", "CR-VehicleRadio", "resource name in action URLs")
	cmd.Flags().BoolVar(&opts.Announce, "announce", false, "announce over mDNS for discovery")
	cmd.Flags().StringVar(&opts.Instance, "instance", "carradio-dev", "mDNS instance name")
	return cmd
}

func newDiscoverCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List radio backends announced on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			backends, err := discovery.Browse(ctx, timeout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(backends) == 0 {
				fmt.Fprintln(out, "no backends found")
				return nil
			}
			for _, b := range backends {
				fmt.Fprintln(out, b)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", discovery.DefaultTimeout, "how long to listen")
	return cmd
}
