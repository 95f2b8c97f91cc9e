package main

import (
	"context"
	"fmt"

	"github.com/matheus3301/gcsearch/internal/app"
	"github.com/matheus3301/gcsearch/internal/backend"
	"github.com/matheus3301/gcsearch/internal/config"
	"github.com/matheus3301/gcsearch/internal/coordinator"
	"github.com/matheus3301/gcsearch/internal/profile"
	"github.com/matheus3301/gcsearch/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const binaryName = "gcsearchctl"

type rootOptions struct {
	profile    string
	backendURL string
	asJSON     bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           binaryName,
		Short:         "Query the chat search backend from scripts",
		Long:          "gcsearchctl runs single chat search operations (liveness, conversation listing, keyword and proximity search, message windows) against the configured backend and prints the result.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.profile, "profile", "", "profile name (overrides config default)")
	flags.StringVar(&opts.backendURL, "backend-url", "", "backend base URL (overrides config)")
	flags.BoolVar(&opts.asJSON, "json", false, "render JSON output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr at debug level")

	rootCmd.AddCommand(
		newPingCmd(opts),
		newWhoamiCmd(opts),
		newChatsCmd(opts),
		newSearchCmd(opts),
		newNearCmd(opts),
		newWindowCmd(opts),
		newHistoryCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}

// client is one composed application for the duration of a command.
type client struct {
	profile string
	cfg     *config.Config
	coord   *coordinator.Coordinator
	api     *backend.API
	db      *store.DB
	logger  *zap.Logger
}

// loadConfig resolves the profile and the effective configuration.
func (o *rootOptions) loadConfig() (string, *config.Config, error) {
	name := profile.Resolve(o.profile)
	if err := profile.ValidateName(name); err != nil {
		return "", nil, err
	}
	cfg, err := config.LoadOrDefault(profile.ConfigPath())
	if err != nil {
		return "", nil, err
	}
	if o.backendURL != "" {
		cfg.BackendURL = o.backendURL
	}
	return name, cfg, nil
}

// withClient wraps a command body with application start and stop.
func withClient(o *rootOptions, run func(cmd *cobra.Command, c *client, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		name, cfg, err := o.loadConfig()
		if err != nil {
			return err
		}
		c := &client{profile: name, cfg: cfg}
		fxApp := fx.New(
			app.Module(app.Params{Profile: name, Config: cfg, Binary: binaryName, Verbose: o.verbose}),
			fx.Populate(&c.coord, &c.api, &c.db, &c.logger),
		)
		if err := fxApp.Err(); err != nil {
			return fmt.Errorf("compose client: %w", err)
		}
		if err := fxApp.Start(cmd.Context()); err != nil {
			return fmt.Errorf("start client: %w", err)
		}
		defer func() { _ = fxApp.Stop(context.Background()) }()
		return run(cmd, c, args)
	}
}
