package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/gcsearch/internal/app"
	"github.com/matheus3301/gcsearch/internal/bus"
	"github.com/matheus3301/gcsearch/internal/config"
	"github.com/matheus3301/gcsearch/internal/coordinator"
	"github.com/matheus3301/gcsearch/internal/profile"
	"github.com/matheus3301/gcsearch/internal/tui"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	backendFlag := flag.String("backend-url", "", "backend base URL (overrides config)")
	platformFlag := flag.String("platform", "", "platform to open on start (overrides config)")
	debugFlag := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	if err := run(*profileFlag, *backendFlag, *platformFlag, *debugFlag); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(profileName, backendURL, platform string, debug bool) error {
	name := profile.Resolve(profileName)
	if err := profile.ValidateName(name); err != nil {
		return err
	}
	cfg, err := config.LoadOrDefault(profile.ConfigPath())
	if err != nil {
		return err
	}
	if backendURL != "" {
		cfg.BackendURL = backendURL
	}
	if platform != "" {
		cfg.DefaultPlatform = platform
	}

	var (
		coord  *coordinator.Coordinator
		b      *bus.Bus
		logger *zap.Logger
	)
	fxApp := fx.New(
		app.Module(app.Params{
			Profile:     name,
			Config:      cfg,
			Binary:      "gcsearch",
			Interactive: true,
			Verbose:     debug,
		}),
		fx.Populate(&coord, &b, &logger),
	)
	if err := fxApp.Err(); err != nil {
		return err
	}
	if err := fxApp.Start(context.Background()); err != nil {
		return err
	}
	defer func() { _ = fxApp.Stop(context.Background()) }()

	ui := tui.NewApp(coord, b, tui.Options{
		Profile:    name,
		BackendURL: cfg.BackendURL,
		Platform:   cfg.Platform(),
	}, logger.Named("tui"))
	return ui.Run()
}
