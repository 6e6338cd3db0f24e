package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"hoslink/internal/platform/kafka/consumer"
)

const shutdownTimeout = 20 * time.Second

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runWorkers starts every worker under g and stops them once ctx is done. A worker
// that fails cancels ctx, which stops the rest.
func runWorkers(ctx context.Context, g *errgroup.Group, a *app, workers []consumer.Worker) {
	for _, w := range workers {
		g.Go(func() error {
			return w.Run(ctx)
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, w := range workers {
			if err := w.Stop(stopCtx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			a.logger.Error("consumer shutdown incomplete", "error", err)
			return err
		}
		return nil
	})
}

// runServer serves srv under g and shuts it down gracefully once ctx is done.
func runServer(ctx context.Context, g *errgroup.Group, a *app, srv *http.Server) {
	g.Go(func() error {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
