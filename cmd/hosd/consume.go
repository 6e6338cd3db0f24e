package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hoslink/internal/platform/config"
	"hoslink/internal/platform/httpserver"
)

func consumeCmd(envFile *string) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Run the ELD and position consumers against Kafka",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			if cfg.Bus.Mode != config.BusKafka {
				return fmt.Errorf("consume needs a shared bus: set HOSLINK_BUS=%s or use serve --consumers", config.BusKafka)
			}
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, cfg, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			workers, err := a.workers()
			if err != nil {
				return err
			}
			g, gctx := errgroup.WithContext(ctx)
			runWorkers(gctx, g, a, workers)

			if metricsAddr != "" {
				r := chi.NewRouter()
				r.Method(http.MethodGet, "/metrics", promhttp.Handler())
				r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
					if err := a.ready(req); err != nil {
						w.WriteHeader(http.StatusServiceUnavailable)
						return
					}
					w.WriteHeader(http.StatusOK)
				})
				runServer(gctx, g, a, httpserver.New(metricsAddr, r))
			}

			a.logger.Info("consumers started",
				"group", cfg.Bus.ConsumerGroup,
				"eld_topic", cfg.Bus.EldTopic,
				"position_topic", cfg.Bus.PositionTopic,
			)
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address for /metrics and /healthz; empty disables")
	return cmd
}
