package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"slotkeeper/internal/assignments"
	"slotkeeper/internal/availability"
	"slotkeeper/internal/handler"
	"slotkeeper/internal/notify"
	"slotkeeper/internal/offline"
	"slotkeeper/internal/reservations"
	"slotkeeper/internal/roster"
	"slotkeeper/internal/session"
	"slotkeeper/internal/shifts"
	"slotkeeper/pkg/app"
	"slotkeeper/pkg/client"
	"slotkeeper/pkg/config"
	"slotkeeper/pkg/kafka"
	kafka_middleware "slotkeeper/pkg/kafka/middleware"
	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/metrics"
	"slotkeeper/pkg/store"
)

const serviceName = "slotkeeper"

type remotes struct {
	directory *client.DirectoryClient
	oracle    *client.OracleClient
	ledger    *client.LedgerClient
	shifts    *client.ShiftClient
}

func main() {
	cfg := config.Load(serviceName)
	log := cfg.Log
	log.Info("Starting slotkeeper", "business_id", cfg.BusinessID)

	m := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)
	application := app.NewApplication(cfg)

	st, checks := initStore(cfg)
	rc := initRemotes(cfg)

	resolver := assignments.NewResolver(rc.directory, cfg.OverrideWindowDays, log.Component("assignments"))
	directory := roster.NewDirectory(cfg.BusinessID, rc.directory, resolver, cfg.Location, log.Component("roster"))
	startCtx, cancel := context.WithTimeout(context.Background(), cfg.RemoteAPITimeout)
	if err := directory.Refresh(startCtx); err != nil {
		log.Warn("Initial roster load failed, serving without staff data", "error", err)
	}
	cancel()

	slots := availability.NewService(rc.oracle, rc.ledger, directory, availability.Options{
		BusinessID:   cfg.BusinessID,
		Location:     cfg.Location,
		LeadTime:     cfg.LeadTime,
		CacheTTL:     cfg.CacheTTL,
		MaxAttempts:  cfg.OracleMaxAttempts,
		RetryBackoff: cfg.OracleRetryBackoff,
	}, m, log.Component("availability"))

	dispatcher := notify.NewDispatcher(initSender(cfg, m, application), cfg.NotifyRetryDelay, cfg.RemoteAPITimeout, m, log.Component("notify"))
	application.OnShutdown(dispatcher.Wait)

	coordinator := reservations.NewCoordinator(
		rc.ledger,
		reservations.NewIntentValidator(cfg.DefaultPhoneRegion, log),
		dispatcher,
		slots,
		cfg.Location,
		m,
		log.Component("reservations"),
	)

	queue := offline.NewQueue(
		st,
		store.Key(cfg.StorePrefix, "offline", cfg.BusinessID),
		shifts.NewExecutor(rc.shifts),
		cfg.FlushInterval,
		m,
		log.Component("offline"),
	)
	shiftService := shifts.NewService(rc.shifts, queue, st, cfg.StorePrefix, log.Component("shifts"))

	sessionLog := log.Component("session")
	registry := session.NewRegistry(func(id string) *session.Session {
		w := availability.NewWatcher(slots, cfg.DebounceWindow, cfg.RemoteAPITimeout, sessionLog)
		return session.New(id, cfg.BusinessID, directory, w, coordinator, sessionLog)
	}, cfg.SessionTTL, sessionLog)

	// Three missed refreshes mark the instance unready.
	checks["roster"] = func(context.Context) error { return directory.Fresh(3 * cfg.RosterRefresh) }

	application.AddWorker("offline-queue", queue.Run)
	application.AddWorker("session-sweeper", registry.Run)
	application.AddWorker("roster-refresh", rosterRefresher(directory, cfg.RosterRefresh, cfg.RemoteAPITimeout, log))

	engineHandler := handler.NewEngineHandler(cfg.BusinessID, slots, coordinator, shiftService, queue, registry, log.Component("http"))
	application.SetApp(engineHandler, checks, st)
	application.Run()
}

func initStore(cfg *config.Config) (store.Store, map[string]handler.Checker) {
	switch cfg.StoreBackend {
	case "redis":
		cfg.SetRedis()
		return store.NewRedisStore(cfg.Client.Redis), map[string]handler.Checker{
			"redis": func(ctx context.Context) error { return cfg.Client.Redis.Ping(ctx).Err() },
		}

	case "mongo":
		cfg.SetMongo()
		ms := store.NewMongoStore(cfg.Client.Mongo.Database(cfg.MongoDatabaseName), cfg.MongoConnTimeout)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnTimeout)
		defer cancel()
		if err := ms.EnsureIndexes(ctx); err != nil {
			cfg.Log.Fatal("Failed to create store indexes", "error", err)
		}
		return ms, map[string]handler.Checker{
			"mongo": func(ctx context.Context) error { return cfg.Client.Mongo.Ping(ctx, nil) },
		}

	default:
		cfg.Log.Warn("Using in-memory store, offline operations will not survive a restart")
		return store.NewMemoryStore(), map[string]handler.Checker{}
	}
}

func initRemotes(cfg *config.Config) remotes {
	httpClient := client.NewHttpClient(cfg.RemoteAPIURL, cfg.RemoteAPITimeout)
	return remotes{
		directory: client.NewDirectoryClient(httpClient),
		oracle:    client.NewOracleClient(httpClient),
		ledger:    client.NewLedgerClient(httpClient),
		shifts:    client.NewShiftClient(httpClient),
	}
}

// initSender publishes notifications to Kafka when enabled and logs them
// otherwise.
func initSender(cfg *config.Config, m *metrics.EngineMetrics, application *app.Application) notify.Sender {
	if !cfg.NotifyEnabled {
		return notify.NewLogSender(cfg.Log.Component("notify"))
	}

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.NotifyTopic, cfg.Log.Component("kafka"))
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err, "topic", cfg.NotifyTopic)
	}
	if cfg.Kafka.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log.Component("kafka")))
		producer.Use(kafka_middleware.MetricsProducerMiddleware(m))
	}
	application.OnShutdown(func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})
	return notify.NewKafkaSender(producer)
}

func rosterRefresher(directory *roster.Directory, interval, timeout time.Duration, log *logger.Logger) app.Worker {
	return func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				refreshCtx, cancel := context.WithTimeout(ctx, timeout)
				if err := directory.Refresh(refreshCtx); err != nil {
					log.Warn("Roster refresh failed, keeping previous roster", "error", err)
				}
				cancel()
			}
		}
	}
}
