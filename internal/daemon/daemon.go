// Package daemon wires the lens components together and runs them.
//
// The daemon:
//  1. Opens the cache store and the record store
//  2. Loads the camera roll (a malformed file aborts startup)
//  3. Starts the state actor, the request loop and the discovery loop
//  4. Feeds images dropped in the capture inbox through the event handler
//  5. Optionally serves the dashboard
//  6. Shuts everything down when its context is cancelled
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/lensapp/lens/internal/cachestore"
	"github.com/lensapp/lens/internal/camroll"
	"github.com/lensapp/lens/internal/config"
	"github.com/lensapp/lens/internal/dashboard"
	"github.com/lensapp/lens/internal/events"
	"github.com/lensapp/lens/internal/inbox"
	"github.com/lensapp/lens/internal/logging"
	"github.com/lensapp/lens/internal/metrics"
	"github.com/lensapp/lens/internal/record"
	"github.com/lensapp/lens/internal/schema"
	"github.com/lensapp/lens/internal/service"
	"github.com/lensapp/lens/internal/state"
)

// Daemon owns every long-running lens component.
type Daemon struct {
	cfg    *config.Config
	out    *logging.Output
	logger *log.Logger

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	cache   cachestore.Backend
	records record.Store

	state     *state.Store
	service   *service.LensService
	sync      *service.LensSync
	handler   *events.Handler
	events    chan events.Event
	watcher   *inbox.Watcher
	dashboard *dashboard.Server

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates a daemon for cfg. Nothing is opened until Start.
func New(cfg *config.Config, out *logging.Output) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if out == nil {
		var err error
		out, err = logging.Open(cfg.Log)
		if err != nil {
			return nil, err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Daemon{
		cfg:      cfg,
		out:      out,
		logger:   out.Logger("daemon"),
		registry: registry,
		metrics:  metrics.New(registry),
	}, nil
}

// OpenRecordStore opens the record store selected by cfg.
func OpenRecordStore(cfg *config.Config) (record.Store, error) {
	switch strings.ToLower(cfg.Records.Backend) {
	case "pebble":
		return record.OpenPebble(cfg.Records.Path)
	case "memory":
		return record.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown record backend %q", cfg.Records.Backend)
	}
}

// Start opens storage, builds the components and launches their goroutines.
// It returns once everything is running; use Run to block until shutdown.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return fmt.Errorf("daemon already started")
	}

	d.logger.Printf("Starting daemon (data dir %s)", d.cfg.DataDir)

	if err := os.MkdirAll(d.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	roll, err := camroll.Load(d.cfg.CameraRollPath())
	if err != nil {
		return fmt.Errorf("failed to load camera roll: %w", err)
	}

	if err := d.build(ctx, roll); err != nil {
		d.closeStores()
		return err
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.started = true

	d.spawn(func(ctx context.Context) error { return d.state.Run(ctx) })
	d.spawn(func(ctx context.Context) error { return d.service.Run(ctx) })
	d.spawn(func(ctx context.Context) error { return d.sync.Run(ctx) })
	d.spawn(func(ctx context.Context) error { return d.handler.Run(ctx, d.events) })

	if d.watcher != nil {
		if err := d.watcher.Start(); err != nil {
			d.logger.Printf("Warning: inbox disabled: %v", err)
			_ = d.watcher.Stop()
			d.watcher = nil
		} else {
			d.spawn(func(ctx context.Context) error {
				inbox.Forward(ctx, d.watcher.Events(), d.events, d.out.Logger("inbox"))
				return nil
			})
		}
	}

	if d.dashboard != nil {
		if err := d.dashboard.Start(); err != nil {
			d.stopped = true
			d.cancel()
			if d.watcher != nil {
				_ = d.watcher.Stop()
			}
			d.wg.Wait()
			d.closeStores()
			return fmt.Errorf("failed to start dashboard: %w", err)
		}
		d.spawn(func(ctx context.Context) error {
			d.dashboard.Watch(ctx)
			return nil
		})
	}

	d.logger.Printf("Daemon running: %d photos in camera roll, %d albums tracked",
		len(roll), len(d.sync.Cache().Albums))
	return nil
}

func (d *Daemon) build(ctx context.Context, roll []camroll.Entry) error {
	cache, err := cachestore.Open(d.cfg.Cache.Backend, d.cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("failed to open cache store: %w", err)
	}
	d.cache = cache

	records, err := OpenRecordStore(d.cfg)
	if err != nil {
		return fmt.Errorf("failed to open record store: %w", err)
	}
	d.records = records

	d.state = state.New(state.Snapshot{CameraRoll: roll})

	d.service, err = service.NewLensService(d.state, &service.ServiceConfig{
		Tick:    d.cfg.Service.Tick,
		Logger:  d.out.Logger("service"),
		Metrics: d.metrics,
	})
	if err != nil {
		return err
	}

	albums, err := d.cfg.AlbumPaths()
	if err != nil {
		return err
	}
	d.sync, err = service.NewLensSync(ctx, d.records, d.cache, d.state, &service.SyncConfig{
		Interval:       d.cfg.Sync.Interval,
		Albums:         albums,
		DiscoverAlbums: d.cfg.Sync.DiscoverAlbums,
		AlbumsRoot:     schema.MustParsePath(d.cfg.Sync.AlbumsRoot),
		Verbose:        d.out.Debug(),
		Logger:         d.out.Logger("sync"),
		Metrics:        d.metrics,
	})
	if err != nil {
		return err
	}

	d.handler, err = events.NewHandler(d.service, d.state, d.cfg.CameraRollPath(), d.cfg.Settings.Path, d.out.Logger("events"))
	if err != nil {
		return err
	}
	d.events = make(chan events.Event, 16)

	if d.cfg.Inbox.Enabled {
		d.watcher, err = inbox.New(d.cfg.Inbox.Dir, &inbox.Config{
			Debounce: d.cfg.Inbox.Debounce,
			Logger:   d.out.Logger("inbox"),
		})
		if err != nil {
			return err
		}
	}

	if d.cfg.Dashboard.Addr != "" {
		d.dashboard, err = dashboard.NewServer(&dashboard.Config{
			Addr:     d.cfg.Dashboard.Addr,
			State:    d.state,
			Cache:    d.sync,
			Gatherer: d.registry,
			Logger:   d.out.Logger("dashboard"),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Daemon) spawn(fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := fn(d.ctx); err != nil {
			d.logger.Printf("Error: %v", err)
		}
	}()
}

// Run starts the daemon and blocks until ctx is cancelled, then stops it.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.logger.Println("Shutdown signal received")
	return d.Stop()
}

// Stop shuts the daemon down and closes its stores.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.started || d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	d.mu.Unlock()

	d.logger.Println("Stopping daemon")

	d.cancel()

	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			d.logger.Printf("Error stopping inbox watcher: %v", err)
		}
	}
	if d.dashboard != nil {
		if err := d.dashboard.Stop(); err != nil {
			d.logger.Printf("Error stopping dashboard: %v", err)
		}
	}

	d.wg.Wait()

	err := d.closeStores()
	d.logger.Println("Daemon stopped")
	return err
}

func (d *Daemon) closeStores() error {
	var firstErr error
	if d.records != nil {
		if err := d.records.Close(); err != nil {
			d.logger.Printf("Error closing record store: %v", err)
			firstErr = err
		}
	}
	if d.cache != nil {
		if err := d.cache.Close(); err != nil {
			d.logger.Printf("Error closing cache store: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// State returns the shared state actor. Valid after Start.
func (d *Daemon) State() *state.Store { return d.state }

// Sync returns the discovery service. Valid after Start.
func (d *Daemon) Sync() *service.LensSync { return d.sync }

// Service returns the request loop. Valid after Start.
func (d *Daemon) Service() *service.LensService { return d.service }

// Records returns the record store. Valid after Start.
func (d *Daemon) Records() record.Store { return d.records }

// Dashboard returns the dashboard server, or nil when disabled.
func (d *Daemon) Dashboard() *dashboard.Server { return d.dashboard }

// Events accepts UI events for the handler. Valid after Start.
func (d *Daemon) Events() chan<- events.Event { return d.events }

// Registry returns the Prometheus registry holding the daemon's metrics.
func (d *Daemon) Registry() *prometheus.Registry { return d.registry }
