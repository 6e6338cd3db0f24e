package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hoslink/internal/platform/config"
	"hoslink/internal/platform/httpserver"
	httptransport "hoslink/internal/transport/http"
)

func serveCmd(envFile *string) *cobra.Command {
	var withConsumers bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API, and the bus consumers unless disabled",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			// The memory bus only exists inside this process, so consumers default on there.
			if !cmd.Flags().Changed("consumers") {
				withConsumers = cfg.Bus.Mode == config.BusMemory
			}
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, cfg, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			router := httptransport.NewRouter(httptransport.RouterConfig{
				Logger:         a.logger,
				Metrics:        a.metrics,
				MetricsHandler: promhttp.Handler(),
				Ready:          a.ready,
			},
				httptransport.NewHOSHandler(a.engine, a.logger),
				httptransport.NewDriverHandler(a.drivers, a.logger),
				httptransport.NewAvailabilityHandler(a.availability, a.logger),
			)

			g, gctx := errgroup.WithContext(ctx)
			runServer(gctx, g, a, httpserver.New(cfg.Server.Addr, router))
			if withConsumers {
				workers, err := a.workers()
				if err != nil {
					return err
				}
				runWorkers(gctx, g, a, workers)
			}

			a.logger.Info("hosd started",
				"storage", cfg.Storage.Mode,
				"bus", cfg.Bus.Mode,
				"consumers", withConsumers,
			)
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&withConsumers, "consumers", false,
		"also run the ELD and position consumers (default true with the memory bus)")
	return cmd
}
