// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	awsclient "intelligence-workers/internal/common/aws"
	"intelligence-workers/internal/common/camunda"
	"intelligence-workers/internal/common/config"
	"intelligence-workers/internal/common/database"
	httpclient "intelligence-workers/internal/common/http"
	"intelligence-workers/internal/common/logger"
	"intelligence-workers/internal/common/observability"
	"intelligence-workers/internal/intelligence"
	"intelligence-workers/internal/intelligence/store"
	"intelligence-workers/internal/personalization"
	"intelligence-workers/internal/personalization/cache"
	"intelligence-workers/pkg/registry"

	dia "intelligence-workers/internal/workers/intelligence/dispatch-impact-alert"
	pi "intelligence-workers/internal/workers/intelligence/personalize-insight"
	pis "intelligence-workers/internal/workers/intelligence/personalize-insights"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("environment", cfg.App.Environment),
		zap.Bool("fixtureMode", cfg.Personalization.FixtureMode),
	)

	obs := observability.New(cfg.Observability.ServiceName)
	defer obs.Shutdown()
	if err := obs.EnableTracing(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint); err != nil {
		zapLog.Warn("tracing disabled", zap.Error(err))
	}

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClient(cfg.Camunda)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	// --- Elasticsearch ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}

	// --- Redis (optional unless it backs the result cache) ---
	var rdb *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		rdb = database.NewRedis(cfg.Database.Redis)
		if err := rdb.Ping(ctx); err != nil {
			if cfg.Personalization.CacheBackend == config.CacheBackendRedis {
				zapLog.Fatal("redis unavailable for result cache", zap.Error(err))
			}
			zapLog.Warn("redis unavailable, profile cache disabled", zap.Error(err))
			rdb.Close()
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	// --- Personalization ---
	ref, err := loadReferenceData(cfg.Personalization.ReferenceDataPath)
	if err != nil {
		zapLog.Fatal("reference data load failed", zap.Error(err))
	}
	zapLog.Info("reference data loaded", zap.String("version", ref.Version()))

	var resultCache personalization.ResultCache
	switch cfg.Personalization.CacheBackend {
	case config.CacheBackendRedis:
		resultCache = cache.NewRedisCache(rdb.GetClient(), cfg.Personalization.CacheTTL, log)
	default:
		resultCache = cache.NewMemoryCache(cfg.Personalization.CacheTTL)
	}

	engine := personalization.NewEngine(
		personalization.WithReferenceData(ref),
		personalization.WithPillarPolicy(personalization.ParsePillarPolicy(cfg.Personalization.PillarPolicy)),
		personalization.WithCache(resultCache),
		personalization.WithKeyScope(personalization.KeyScope(cfg.Personalization.CacheKeyScope), cfg.Personalization.CachePrefix),
		personalization.WithBatchConcurrency(cfg.Personalization.BatchConcurrency),
		personalization.WithLogger(log.WithFields(map[string]interface{}{"component": "engine"})),
	)

	profiles := store.NewProfileStore(pg.GetDB(), nil, cfg.Personalization.ProfileCacheTTL, ref, log)
	if rdb != nil {
		profiles = store.NewProfileStore(pg.GetDB(), rdb.GetClient(), cfg.Personalization.ProfileCacheTTL, ref, log)
	}
	insights := store.NewInsightStore(esClient.Client, cfg.Personalization.InsightIndex, log)
	resolver := intelligence.NewResolver(insights, profiles, ref)

	// --- Notification channels ---
	var emailSender dia.EmailSender
	var smsSender dia.SMSSender
	if cfg.Notifications.EmailEnabled || cfg.Notifications.SMSEnabled {
		awsCfg, err := awsclient.LoadConfig(ctx, cfg.Notifications.AWSRegion)
		if err != nil {
			zapLog.Fatal("aws config load failed", zap.Error(err))
		}
		if cfg.Notifications.EmailEnabled {
			emailSender = awsclient.NewSESEmailSender(awsCfg, cfg.Notifications.FromEmail)
		}
		if cfg.Notifications.SMSEnabled {
			smsSender = awsclient.NewSNSSMSSender(awsCfg)
		}
	}

	// --- Workers ---
	client := zeebe.GetClient()
	var workers []worker.JobWorker
	register := func(taskType string, handler camunda.JobHandler) {
		if jw := camunda.StartWorker(client, taskType, config.GetWorkerConfig(cfg, taskType), handler, log); jw != nil {
			workers = append(workers, jw)
		}
	}

	register(pi.TaskType, pi.NewHandler(pi.HandlerOptions{
		AppConfig:     cfg,
		Engine:        engine,
		Resolver:      resolver,
		Observability: obs,
		Logger:        log,
	}).Handle)

	register(pis.TaskType, pis.NewHandler(pis.HandlerOptions{
		AppConfig:     cfg,
		Engine:        engine,
		Resolver:      resolver,
		Observability: obs,
		Logger:        log,
	}).Handle)

	register(dia.TaskType, dia.NewHandler(dia.HandlerOptions{
		AppConfig:     cfg,
		Resolver:      resolver,
		Email:         emailSender,
		SMS:           smsSender,
		Webhook:       httpclient.NewClient(10 * time.Second),
		Observability: obs,
		Logger:        log,
	}).Handle)

	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		readyCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := zeebe.HealthCheck(readyCtx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "zeebe unavailable")
			return
		}
		if err := pg.Ping(readyCtx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "postgres unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.Observability.MetricsAddress, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, jw := range workers {
		jw.Close()
		jw.AwaitClose()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// loadReferenceData reads the county/multiplier registry, falling back to the
// built-in tables when no path is configured.
func loadReferenceData(path string) (*personalization.ReferenceData, error) {
	if path == "" {
		return personalization.DefaultReferenceData(), nil
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, err
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	return personalization.NewReferenceData(reg), nil
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
