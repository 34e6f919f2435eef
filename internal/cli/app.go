package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soyeahso/attachkit/internal/actions"
	"github.com/soyeahso/attachkit/internal/blob"
	"github.com/soyeahso/attachkit/internal/channel"
	"github.com/soyeahso/attachkit/internal/channel/irc"
	"github.com/soyeahso/attachkit/internal/config"
	"github.com/soyeahso/attachkit/internal/domain"
	"github.com/soyeahso/attachkit/internal/hooks"
	"github.com/soyeahso/attachkit/internal/logging"
	"github.com/soyeahso/attachkit/internal/platform"
	"github.com/soyeahso/attachkit/internal/routing"
	"github.com/soyeahso/attachkit/internal/store"
	"github.com/soyeahso/attachkit/internal/upload"
)

// fetchTimeout bounds reading one local or remote image reference.
const fetchTimeout = 60 * time.Second

// app holds everything a command needs to run attachment flows.
type app struct {
	cfg      config.Config
	log      *logging.Logger
	db       *store.DB
	blobs    blob.Store
	uploader *upload.Uploader
	outbox   *store.OutboxStore
	uploads  *store.UploadLedger
	grants   *store.GrantStore
	hooks    *hooks.Manager
	channels *channel.Registry
	router   *routing.Router
	term     *platform.Terminal
	locator  domain.Locator

	closers []io.Closer
}

// appOptions select the optional parts of an app.
type appOptions struct {
	// interactive attaches the terminal for the action sheet, the library
	// chooser and "ask" permission prompts.
	interactive bool
	// channels starts the configured chat channels for delivery.
	channels bool
	// configure adjusts the loaded config, e.g. from command flags.
	configure func(*config.Config)
}

// loadConfig reads and validates the config file and fills path defaults.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	paths.ApplyTo(&cfg)
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if issues := config.Validate(&cfg); len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return cfg, fmt.Errorf("config validation failed with %d issue(s)", len(issues))
	}
	return cfg, nil
}

// openStore opens the SQLite database named by the config.
func openStore(cfg config.Config) (*store.DB, error) {
	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("creating directories: %w", err)
	}
	db, err := store.Open(cfg.Store.Path, log)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if opts.configure != nil {
		opts.configure(&cfg)
	}

	logger, logCloser, err := logging.NewWithOptions(logging.Options{
		Level: cfg.Logging.Level,
		Style: cfg.Logging.ConsoleStyle,
		File:  cfg.Logging.File,
	})
	if err != nil {
		return nil, err
	}
	log = logger

	a := &app{cfg: cfg, log: logger, closers: []io.Closer{logCloser}}

	a.db, err = openStore(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.db)
	a.outbox = store.NewOutboxStore(a.db)
	a.uploads = store.NewUploadLedger(a.db)
	a.grants = store.NewGrantStore(a.db)

	a.hooks = hooks.NewManager(logger)
	if n := a.hooks.RegisterCommands(cfg.Hooks); n > 0 {
		logger.Debug().Int("hooks", n).Msg("command hooks registered")
	}

	a.blobs, err = blob.Open(ctx, cfg.Storage, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	namer, err := upload.NewNamer(cfg.Storage.Naming)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.uploader = upload.New(upload.NewFetcher(fetchTimeout), a.blobs, namer, logger,
		upload.WithLedger(a.uploads),
		upload.WithHooks(a.hooks),
		upload.WithMaxBytes(cfg.Storage.MaxBytes),
	)

	a.locator, err = platform.NewLocator(cfg.Platform.Locator)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.channels = channel.NewRegistry(logger)
	if opts.channels && cfg.Channels.IRC != nil {
		a.channels.Register(irc.New(*cfg.Channels.IRC, logger))
	}
	if err := a.channels.StartAll(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("starting channels: %w", err)
	}

	a.router = routing.NewRouter(logger,
		routing.WithOutbox(a.outbox),
		routing.WithChannels(a.channels),
	)

	if opts.interactive {
		a.term = platform.NewTerminal()
		a.closers = append(a.closers, a.term)
	}
	return a, nil
}

// waitChannels gives started channels up to timeout to report connected so
// the first delivery is not lost.
func (a *app) waitChannels(ctx context.Context, timeout time.Duration) {
	if a.channels.Count() == 0 {
		return
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		connected := true
		for _, st := range a.channels.Status() {
			if !st.Connected {
				connected = false
			}
		}
		if connected {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			a.log.Warn().Msg("channels not connected, delivering anyway")
			return
		case <-tick.C:
		}
	}
}

// permissions builds the permission policy. Without a terminal "ask"
// scopes fall back to remembered grants only.
func (a *app) permissions() domain.Permissions {
	var prompter platform.Prompter
	if a.term != nil {
		prompter = a.term
	}
	return platform.NewPolicyPermissions(a.cfg.Permissions, a.grants, prompter, a.log)
}

// picker returns the terminal library picker and the command camera.
func (a *app) picker() domain.ImagePicker {
	p := &platform.Picker{
		Camera: platform.NewCommandCamera(a.cfg.Platform.CameraCommand, paths.Camera, a.log),
	}
	if a.term != nil {
		p.Library = platform.NewLibraryPicker(a.cfg.Platform.LibraryDir, a.term, 0)
	}
	return p
}

// control builds an attach control. A nil picker uses the terminal one.
func (a *app) control(picker domain.ImagePicker) *actions.Control {
	if picker == nil {
		picker = a.picker()
	}
	deps := actions.Deps{
		Permissions: a.permissions(),
		Picker:      picker,
		Locator:     a.locator,
		Uploader:    a.uploader,
	}
	if a.term != nil {
		deps.Sheet = a.term
	}
	return actions.New(deps, a.router.Deliver, a.log, actions.WithHooks(a.hooks))
}

// Close stops channels and releases resources in reverse order.
func (a *app) Close() error {
	if a.channels != nil {
		a.channels.StopAll(context.Background())
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
