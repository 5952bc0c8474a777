// Package server wires the reference screening server: storage backend,
// service layer and the gRPC endpoint, with graceful shutdown on signals.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/healthsync/internal/logging"
	"github.com/dmitrijs2005/healthsync/internal/server/auth"
	"github.com/dmitrijs2005/healthsync/internal/server/config"
	"github.com/dmitrijs2005/healthsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/healthsync/internal/server/services"

	gs "github.com/dmitrijs2005/healthsync/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repomanager repomanager.RepositoryManager
	server      *gs.GRPCServer
}

func newRepositoryManager(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	switch c.Storage {
	case config.StorageMemory:
		return repomanager.NewInMemoryRepositoryManager(), nil
	case config.StoragePostgres:
		return repomanager.NewPostgresRepositoryManager(ctx, c.DatabaseDSN)
	}
	return nil, fmt.Errorf("unknown storage %q", c.Storage)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	rm, err := newRepositoryManager(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx); err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	ss := services.NewScreeningService(rm, logger)
	s := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, ss, c.SecretKey)

	return &App{config: c, logger: logger, repomanager: rm, server: s}, nil
}

// IssueToken writes a signed access token for workerID to w.
func IssueToken(w io.Writer, c *config.Config, workerID string) error {
	tok, err := auth.GenerateToken(workerID, []byte(c.SecretKey), c.AccessTokenValidityDuration)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, tok)
	return err
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

// Run serves until ctx is cancelled or a signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	stop := app.initSignalHandler(cancelFunc)
	defer stop()
	defer app.repomanager.Close()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage)

	err := app.server.Run(ctx)
	app.logger.Info(ctx, "Stopping app...")
	return err
}
