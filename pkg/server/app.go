package server

import (
	"context"
	"io"

	xhttp "StockML/pkg/http"
	"StockML/pkg/logger"
)

// App runs an HTTP server until its context ends, then shuts it down and
// closes the infrastructure clients it was given.
type App struct {
	http    *xhttp.Server
	log     *logger.Logger
	closers []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// New creates a new App instance.
func New(srv *xhttp.Server, log *logger.Logger) *App {
	if log == nil {
		log = logger.NewNop()
	}
	return &App{http: srv, log: log}
}

// OnShutdown registers c to be closed after the server stops. Closers run
// in reverse registration order.
func (a *App) OnShutdown(name string, c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
}

// Run blocks until ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	errCh := a.http.Start()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err, ok := <-errCh:
		if ok && err != nil {
			a.log.Error("http server error", logger.Error(err))
			runErr = err
		}
	}

	a.shutdown(context.WithoutCancel(ctx))
	return runErr
}

func (a *App) shutdown(ctx context.Context) {
	if err := a.http.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", logger.Error(err))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", logger.String("resource", nc.name), logger.Error(err))
		}
	}
	a.log.Info("shutdown complete")
}
