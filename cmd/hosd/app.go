package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"hoslink/internal/availability"
	availabilityservice "hoslink/internal/availability/service"
	availabilitystore "hoslink/internal/availability/store"
	"hoslink/internal/drivers"
	driverservice "hoslink/internal/drivers/service"
	driverstore "hoslink/internal/drivers/store"
	"hoslink/internal/eld"
	"hoslink/internal/eld/providers"
	"hoslink/internal/events"
	eventconsumer "hoslink/internal/events/consumer"
	hosservice "hoslink/internal/hos/service"
	hosstore "hoslink/internal/hos/store"
	"hoslink/internal/platform/config"
	"hoslink/internal/platform/kafka/consumer"
	"hoslink/internal/platform/kafka/membus"
	"hoslink/internal/platform/kafka/producer"
	"hoslink/internal/platform/logger"
	"hoslink/internal/platform/metrics"
	"hoslink/internal/platform/postgres"
	"hoslink/internal/platform/redis"
	"hoslink/internal/platform/unitofwork"
)

// app holds the wired process. Everything is built once in newApp and released in
// close, in reverse order.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	db    *sql.DB
	redis *redis.Client
	bus   *membus.Bus
	kafka *producer.Producer

	engine       *hosservice.Engine
	drivers      *drivers.Service
	availability *availability.Service
}

type stores struct {
	records      hosservice.RecordStore
	drivers      driverservice.Store
	availability availabilityservice.Store
	uow          hosservice.UnitOfWork
}

func loadConfig(envFile string) (config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg config.Config, reg prometheus.Registerer) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger.New(cfg.Log.Level, cfg.Log.Format),
		metrics: metrics.New(reg),
	}
	if err := a.build(ctx); err != nil {
		a.close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) build(ctx context.Context) error {
	st, err := a.openStores(ctx)
	if err != nil {
		return err
	}

	rc, err := redis.New(ctx, a.cfg.Redis)
	if err != nil {
		return err
	}
	a.redis = rc

	publisher, err := a.openPublisher()
	if err != nil {
		return err
	}
	emitter := events.NewDriverEventProducer(publisher, a.cfg.Bus.DriverEventsTopic, a.cfg.Bus.Producer, a.logger, a.metrics)

	projector := availability.NewProjector(st.availability, a.logger)
	a.drivers, err = drivers.NewService(st.drivers, projector, st.uow,
		driverservice.WithLogger(a.logger),
		driverservice.WithProducer(emitter),
	)
	if err != nil {
		return err
	}

	vendors := eld.NewFactory(a.cfg.Providers, providers.Deps{Logger: a.logger, Metrics: a.metrics})
	a.engine, err = hosservice.New(st.records, a.drivers, projector, st.uow,
		hosservice.WithLogger(a.logger),
		hosservice.WithMetrics(a.metrics),
		hosservice.WithProducer(emitter),
		hosservice.WithProviders(vendors),
	)
	if err != nil {
		return err
	}

	a.availability, err = availability.NewService(st.availability, st.uow, a.engine, a.drivers,
		availabilityservice.WithLogger(a.logger),
		availabilityservice.WithProducer(emitter),
	)
	return err
}

func (a *app) openStores(ctx context.Context) (stores, error) {
	if a.cfg.Storage.Mode != config.StoragePostgres {
		return stores{
			records:      hosstore.NewInMemoryRecordStore(),
			drivers:      driverstore.NewInMemory(),
			availability: availabilitystore.NewInMemory(),
			uow:          unitofwork.NewMemory(),
		}, nil
	}

	db, err := postgres.Open(ctx, a.cfg.Storage.DatabaseURL)
	if err != nil {
		return stores{}, err
	}
	a.db = db
	if err := postgres.Migrate(ctx, db); err != nil {
		return stores{}, err
	}
	return stores{
		records:      hosstore.NewPostgres(db),
		drivers:      driverstore.NewPostgres(db),
		availability: availabilitystore.NewPostgres(db),
		uow:          unitofwork.NewPostgres(postgres.NewTxRunner(db)),
	}, nil
}

func (a *app) openPublisher() (events.Publisher, error) {
	if a.cfg.Bus.Mode != config.BusKafka {
		a.bus = membus.New()
		return a.bus, nil
	}
	p, err := producer.New(a.cfg.Bus.Brokers, a.cfg.Bus.ProduceTimeout)
	if err != nil {
		return nil, err
	}
	a.kafka = p
	return p, nil
}

func (a *app) deduper() eventconsumer.Deduper {
	if a.redis != nil {
		return eventconsumer.NewRedisDeduper(a.redis.Client, a.cfg.Redis.DedupeTTL)
	}
	return eventconsumer.NewMemoryDeduper(a.cfg.Redis.DedupeTTL)
}

// workers builds one worker per inbound topic, all dispatching through one router.
func (a *app) workers() ([]consumer.Worker, error) {
	dedupe := a.deduper()
	router := eventconsumer.NewRouter(a.logger)
	router.Register(a.cfg.Bus.EldTopic, eventconsumer.NewEldUpdateHandler(a.engine, dedupe, a.logger, a.metrics))
	router.Register(a.cfg.Bus.PositionTopic, eventconsumer.NewLocationUpdateHandler(a.availability, dedupe, a.logger, a.metrics))

	topics := []string{a.cfg.Bus.EldTopic, a.cfg.Bus.PositionTopic}
	out := make([]consumer.Worker, 0, len(topics))
	for _, topic := range topics {
		if a.bus != nil {
			out = append(out, a.bus.NewConsumer(topic, router, a.logger))
			continue
		}
		w, err := consumer.New(consumer.Config{
			Brokers: a.cfg.Bus.Brokers,
			Group:   a.cfg.Bus.ConsumerGroup,
			Topic:   topic,
		}, router, a.logger)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// ready checks the backends the process depends on.
func (a *app) ready(r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var errs []error
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *app) close(ctx context.Context) {
	if a.kafka != nil {
		if err := a.kafka.Close(ctx); err != nil {
			a.logger.Warn("kafka producer close failed", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("postgres close failed", "error", err)
		}
	}
}
