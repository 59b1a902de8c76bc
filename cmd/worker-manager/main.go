// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bidflow/internal/bidcard"
	"bidflow/internal/clients/speech"
	"bidflow/internal/clients/vision"
	"bidflow/internal/common/aws"
	"bidflow/internal/common/camunda"
	"bidflow/internal/common/config"
	"bidflow/internal/common/database"
	"bidflow/internal/common/logger"
	"bidflow/internal/common/observability"
	"bidflow/internal/conversation"
	"bidflow/internal/engine"
	"bidflow/internal/events"
	"bidflow/internal/subscribers/notify"
	"bidflow/internal/subscribers/searchindex"

	processturn "bidflow/internal/workers/process-turn"
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
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		// Test the connection
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Event Bus & Subscribers ---
	dispatcher := events.NewDispatcher(
		time.Duration(cfg.Engine.FanoutWait)*time.Millisecond,
		log,
	)

	dispatcher.Register(events.TopicProjectCreated,
		searchindex.New(esClient.Client, cfg.Search.BidCardIndex, log).Handle)

	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		dispatcher.Register(events.TopicProjectCreated,
			notify.New(notify.Config{
				EmailEnabled: cfg.Notifications.Email.Enabled,
				FromEmail:    cfg.Notifications.Email.FromEmail,
				SMSEnabled:   cfg.Notifications.SMS.Enabled,
				TopicARN:     cfg.Notifications.SMS.TopicARN,
			}, sesClient, snsClient, log).Handle)
	}

	zapLog.Info("Event subscribers registered")

	// --- Dialogue Engine ---
	store := conversation.NewStore(
		redis.Client,
		time.Duration(cfg.Engine.StateTTLHours)*time.Hour,
		cfg.Engine.LockRetries,
		time.Duration(cfg.Engine.LockRetryDelay)*time.Millisecond,
		log,
	)

	visionClient := vision.NewClient(vision.Config{
		BaseURL: cfg.APIs.Vision.BaseURL,
		APIKey:  cfg.APIs.Vision.APIKey,
		Timeout: time.Duration(cfg.APIs.Vision.Timeout) * time.Millisecond,
	}, log)

	speechClient := speech.NewClient(speech.Config{
		BaseURL: cfg.APIs.Speech.BaseURL,
		APIKey:  cfg.APIs.Speech.APIKey,
		Timeout: time.Duration(cfg.APIs.Speech.Timeout) * time.Millisecond,
	}, log)

	assembler := bidcard.NewAssembler(
		cfg.Engine.TextWeight,
		cfg.Engine.VisionWeight,
		cfg.Engine.FinalThreshold,
	)
	repo := bidcard.NewRepo(pg.DB, log)

	eng := engine.New(
		engine.Config{
			EvidenceTimeout: time.Duration(cfg.Engine.EvidenceTimeout) * time.Millisecond,
			SpeechCutoff:    cfg.Engine.SpeechCutoff,
		},
		store, visionClient, speechClient, assembler, repo, dispatcher, log,
	)

	// --- Register Worker ---
	wcfg := cfg.Workers[processturn.TaskType]
	if !wcfg.Enabled {
		zapLog.Fatal("process-turn worker is disabled in config")
	}

	handler := processturn.NewHandler(
		&processturn.Config{
			Timeout:       time.Duration(wcfg.Timeout) * time.Millisecond,
			MaxJobsActive: wcfg.MaxJobsActive,
		},
		eng, log,
	)

	turnWorker := camunda.NewWorker(
		zeebeClient.GetClient(),
		processturn.TaskType,
		wcfg.MaxJobsActive,
		handler,
		zapLog,
	)
	turnWorker.Start()

	zapLog.Info("process-turn worker registered",
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := zeebeClient.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
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

	turnWorker.Stop(shutdownCtx)

	zapLog.Info("Worker manager stopped gracefully")
}
