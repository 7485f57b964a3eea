package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/pflag"

	"jordanella.com/tower-pilot/internal/bot"
	"jordanella.com/tower-pilot/internal/config"
	"jordanella.com/tower-pilot/internal/cv"
	"jordanella.com/tower-pilot/internal/database"
	"jordanella.com/tower-pilot/internal/events"
	"jordanella.com/tower-pilot/internal/gui"
	"jordanella.com/tower-pilot/internal/hotkey"
	"jordanella.com/tower-pilot/internal/input"
	"jordanella.com/tower-pilot/internal/logging"
	"jordanella.com/tower-pilot/internal/monitor"
	"jordanella.com/tower-pilot/internal/window"
	"jordanella.com/tower-pilot/pkg/templates"
)

func main() {
	flags := config.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(2)
	}
	flags.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	level, _ := logging.ParseLevel(cfg.Logging.Level)
	logger := logging.New("tower-pilot", logging.Options{
		Writer:  os.Stderr,
		Level:   level,
		NoColor: cfg.Logging.NoColor,
	})
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			logger.Error("Failed to open log file", err)
			return err
		}
		defer f.Close()
		logger.AddOutput(f)
	}

	bus := events.NewEventBus(256, logger.Named("events"))
	defer bus.Stop()

	if cfg.Logging.EventDir != "" {
		eventLogger, err := logging.NewEventLogger(bus, cfg.Logging.EventDir)
		if err != nil {
			logger.Error("Failed to start event log", err)
			return err
		}
		defer eventLogger.Close()
		logger.InfoWithContext("Mirroring events", map[string]interface{}{"file": eventLogger.Path()})
	}

	if cfg.Journal.Driver != "" {
		db, err := database.Open(cfg.Journal.Driver, cfg.Journal.DSN)
		if err != nil {
			logger.Error("Failed to open journal", err)
			return err
		}
		defer db.Close()
		if err := db.RunMigrations(); err != nil {
			logger.Error("Failed to migrate journal", err)
			return err
		}
		journal := database.NewJournal(db, logger.Named("journal"))
		journal.Attach(bus)
		defer journal.Detach()
	}

	health := monitor.NewHealthChecker(monitor.DefaultHealthConfig(), logger.Named("monitor"))
	health.Attach(bus)
	defer health.Detach()

	system, err := window.NewSystem()
	if err != nil {
		logger.Critical("No window system available", err)
		return err
	}
	locator := window.NewLocator(system, logger.Named("window"))

	registry := templates.NewRegistry(cfg.TemplateDir, cfg.ReferenceHeight, logger.Named("templates"))
	if err := registry.LoadFromDirectory(cfg.TemplateDir); err != nil {
		logger.WarnWithContext("No template manifest loaded, using <dir>/<symbol>.png", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if _, err := registry.Load(cfg.Symbol); err != nil {
		logger.Critical("Template unavailable", err)
		return err
	}

	cvLogger := logger.Named("cv")
	service := cv.NewService(
		cv.NewFrameCapture(locator, cv.NewScreenshotSource(), cvLogger),
		registry,
		cv.NewTemplateScaler(cvLogger),
		cv.NewMatcher(cvLogger, cv.WithThreshold(cfg.Threshold)),
		cvLogger,
	)

	injector, closeInjector, err := newInjector(cfg.Input)
	if err != nil {
		logger.Critical("Failed to set up input", err)
		return err
	}
	defer closeInjector()

	button, _ := input.ParseButton(cfg.Input.Button)
	dispatcher := input.NewDispatcher(locator, injector, input.DispatcherConfig{
		Button: button,
		Scroll: cfg.Input.Scroll,
	}, logger.Named("input"))

	loop := bot.NewLoop(bot.LoopConfig{
		Window:        cfg.Window,
		Symbol:        cfg.Symbol,
		Interval:      cfg.Interval,
		PublishFrames: cfg.DebugView,
	}, service, dispatcher, bus, logger.Named("loop"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	quitKey := []rune(cfg.QuitKey)[0]
	if watcher, err := hotkey.New(quitKey); err != nil {
		logger.Error("Quit key disabled", err)
	} else {
		hotkey.Stop(ctx, watcher, cancel, logger.Named("hotkey"))
		logger.InfoWithContext("Press the quit key to stop", map[string]interface{}{"key": cfg.QuitKey})
	}

	if !cfg.DebugView {
		err = loop.Run(ctx)
		// Deliver loop.stopped to the journal before the deferred closes run
		bus.Stop()
		return err
	}

	// fyne owns the main goroutine; the loop runs beside it
	viewerApp := app.NewWithID("com.jordanella.tower-pilot")
	viewerApp.Settings().SetTheme(gui.NewViewerTheme())
	viewer := gui.NewViewer(viewerApp, "tower-pilot: "+cfg.Window, cancel)
	viewer.Attach(bus)
	defer viewer.Detach()

	errCh := make(chan error, 1)
	go func() {
		errCh <- loop.Run(ctx)
		viewer.Quit()
	}()
	viewer.ShowAndRun()

	cancel()
	err = <-errCh
	bus.Stop()
	return err
}

func newInjector(cfg config.InputConfig) (input.Injector, func(), error) {
	switch cfg.Backend {
	case config.InputRobotgo:
		return input.NewRobotgoInjector(), func() {}, nil
	case config.InputSerial:
		inj, err := input.OpenSerialInjector(cfg.SerialPort, cfg.BaudRate)
		if err != nil {
			return nil, nil, err
		}
		return inj, func() { inj.Close() }, nil
	}
	return nil, nil, errors.New("unknown input backend " + cfg.Backend)
}
