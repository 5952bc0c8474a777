// Package app wires the client agent together: local store, remote client,
// connectivity probing, reconciler, status publishing and the local HTTP
// API, and runs them until the process is asked to stop.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/client/api"
	"github.com/dmitrijs2005/healthsync/internal/client/config"
	"github.com/dmitrijs2005/healthsync/internal/client/connectivity"
	"github.com/dmitrijs2005/healthsync/internal/client/metrics"
	"github.com/dmitrijs2005/healthsync/internal/client/reconciler"
	"github.com/dmitrijs2005/healthsync/internal/client/remote"
	"github.com/dmitrijs2005/healthsync/internal/client/services"
	"github.com/dmitrijs2005/healthsync/internal/client/status"
	"github.com/dmitrijs2005/healthsync/internal/client/store"
	"github.com/dmitrijs2005/healthsync/internal/clockx"
	"github.com/dmitrijs2005/healthsync/internal/logging"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	store      *store.Store
	monitor    *connectivity.Monitor
	prober     *connectivity.Prober
	publisher  *status.Publisher
	metrics    *metrics.Metrics
	reconciler *reconciler.Reconciler
	service    services.SyncService

	closers     []func() error
	unsubscribe []func()
}

// NewApp opens the local store and the remote connection described by cfg.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("local store init error: %w", err)
	}

	client, err := remote.NewGRPCClient(cfg.ServerEndpointAddr, cfg.AccessToken)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("remote client init error: %w", err)
	}

	app := newApp(cfg, st, client, clockx.Real{}, logger)
	app.closers = append(app.closers, client.Close)
	return app, nil
}

func newApp(cfg *config.Config, st *store.Store, svc remote.Service, clock clockx.Clock, logger logging.Logger) *App {
	app := &App{
		config:    cfg,
		logger:    logger,
		store:     st,
		monitor:   connectivity.NewMonitor(false, logger),
		publisher: status.New(clock, cfg.StatusResetDelay, logger),
		metrics:   metrics.New(),
	}

	app.prober = connectivity.NewProber(svc, app.monitor, cfg.OnlineCheckInterval, cfg.RequestTimeout)

	accessToken := cfg.AccessToken
	app.reconciler = reconciler.New(st, svc, app.monitor, reconciler.Config{
		RequestTimeout: cfg.RequestTimeout,
		HasCredentials: func() bool { return accessToken != "" },
		Clock:          clock,
		Status:         app.publisher,
		Recorder:       app.metrics,
	}, logger)

	app.service = services.NewSyncService(st, app.reconciler, app.publisher, app.monitor, services.SyncOptions{
		AutoSync:        true,
		RetryBackoffMin: cfg.RetryBackoffMin,
		RetryBackoffMax: cfg.RetryBackoffMax,
		Clock:           clock,
	}, logger)

	app.unsubscribe = append(app.unsubscribe,
		app.monitor.Subscribe(app.metrics.SetOnline),
		app.publisher.Subscribe(func(s status.Snapshot) { app.metrics.SetPending(s.PendingCount) }),
	)
	return app
}

// Service exposes the sync service to in-process front ends.
func (app *App) Service() services.SyncService {
	return app.service
}

// Online reports the last connectivity reading.
func (app *App) Online() bool {
	return app.monitor.Online()
}

// Probe keeps the connectivity reading current until ctx is done. Run
// does this itself; front ends that do not serve HTTP call it directly.
func (app *App) Probe(ctx context.Context) error {
	return app.prober.Run(ctx)
}

func (app *App) Handler() http.Handler {
	return api.NewServer(app.service, app.metrics.Handler(), app.logger).Routes()
}

// Start drops expired cache entries, publishes the stored queue counters,
// wires reconnect-driven syncs and takes the first connectivity reading.
func (app *App) Start(ctx context.Context) {
	if n, err := app.store.Cache.Purge(ctx); err != nil {
		app.logger.Warn(ctx, "failed to purge cache", "error", err)
	} else if n > 0 {
		app.logger.Debug(ctx, "expired cache entries purged", "count", n)
	}

	if err := app.service.RefreshStatus(ctx); err != nil {
		app.logger.Error(ctx, "failed to read queue counters", "error", err)
	}

	// Without SyncOnStart the first reading must not count as a reconnect.
	if !app.config.SyncOnStart {
		app.prober.ProbeOnce(ctx)
	}
	app.unsubscribe = append(app.unsubscribe, app.monitor.OnReconnect(func() {
		app.service.SyncInBackground("reconnect")
	}))
	if app.config.SyncOnStart {
		app.prober.ProbeOnce(ctx)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// Run serves until ctx is cancelled or a signal arrives, then releases
// every resource.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	stop := app.initSignalHandler(cancelFunc)
	defer stop()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...", "http_addr", app.config.HTTPAddr, "server", app.config.ServerEndpointAddr)

	ln, err := net.Listen("tcp", app.config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", app.config.HTTPAddr, err)
	}

	app.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.Probe(gctx)
	})

	srv := &http.Server{
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	app.logger.Info(ctx, "Stopping app...")
	return err
}

// Close stops background work and closes the store and the remote
// connection. It is safe to call more than once.
func (app *App) Close() error {
	for _, fn := range app.unsubscribe {
		fn()
	}
	app.unsubscribe = nil

	app.service.Close()

	var errs []error
	for _, c := range app.closers {
		errs = append(errs, c())
	}
	app.closers = nil
	if app.store != nil {
		errs = append(errs, app.store.Close())
		app.store = nil
	}
	return errors.Join(errs...)
}
