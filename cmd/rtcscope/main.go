package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rtcscope/internal/core/detectors"
	"rtcscope/internal/core/domain"
	"rtcscope/internal/core/events"
	"rtcscope/internal/core/scoring"
	"rtcscope/internal/core/services"
	"rtcscope/internal/core/store"
	httphandlers "rtcscope/internal/handlers/http"
	"rtcscope/internal/infrastructure/collectors/rtcptap"
	"rtcscope/internal/infrastructure/metadata"
	"rtcscope/internal/infrastructure/middleware"
	"rtcscope/internal/infrastructure/monitoring"
	"rtcscope/internal/infrastructure/senders"
	"rtcscope/pkg/circuitbreaker"
	"rtcscope/pkg/config"
	"rtcscope/pkg/logger"
	"rtcscope/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// A missing file falls back to defaults inside Load; a file that
	// exists but fails validation is fatal.
	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtcscope: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "rtcscope",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Initialize the observation pipeline
	dispatcher := events.NewDispatcher(log)

	pruneGrace := make(map[domain.Kind]time.Duration, len(cfg.Store.PruneGrace))
	for kind, grace := range cfg.Store.PruneGrace {
		pruneGrace[domain.Kind(kind)] = grace
	}
	st := store.New(store.Config{PruneGrace: pruneGrace}, log)

	scorer := scoring.New(scoring.Config{WindowSize: cfg.Scoring.WindowSize}, log)

	registry := detectors.NewRegistry(log)
	if err := registerDetectors(registry, cfg, scorer, dispatcher, log); err != nil {
		log.Fatalw("failed to register detectors", "error", err)
	}

	sampler := services.NewSampler(services.SamplerConfig{
		ClientID: cfg.Client.ClientID,
		CallID:   cfg.Client.CallID,
	}, scorer, dispatcher, log)

	monitor := services.NewMonitor(services.MonitorConfig{
		Interval:       cfg.Monitor.Interval,
		CollectTimeout: cfg.Monitor.CollectTimeout,
	}, st, registry, scorer, sampler, log)

	// Probe platform facts once and attach them to outgoing samples
	metaCtx, metaCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if meta, err := metadata.New(log).Metadata(metaCtx); err == nil {
		sampler.SetMetadata(meta)
	}
	metaCancel()

	// RTCP tap collector
	if cfg.RTCPTap.Enabled {
		tap, err := rtcptap.Listen(rtcptap.Config{Address: cfg.RTCPTap.Address}, log)
		if err != nil {
			log.Fatalw("failed to start rtcp tap", "error", err)
		}
		if err := monitor.AttachCollector(tap); err != nil {
			log.Fatalw("failed to attach rtcp tap", "error", err)
		}
	}

	// Prometheus bridge
	var bridge *monitoring.Bridge
	if cfg.Monitoring.PrometheusEnabled {
		bridge = monitoring.NewBridge(nil)
		bridge.ExposeMonitor(monitor)
		monitor.OnSample(bridge.Observe)
		log.Info("Prometheus metrics enabled")
	}

	// Sample delivery
	var accumulators []*senders.Accumulator

	if cfg.Sender.Enabled {
		sink := senders.NewWebSocketSink(senders.WebSocketConfig{
			URL:               cfg.Sender.URL,
			JWTSecret:         cfg.Sender.JWTSecret,
			TokenTTL:          cfg.Sender.TokenTTL,
			ClientID:          sampler.ClientID(),
			CallID:            sampler.CallID(),
			MessagesPerSecond: cfg.Sender.MessagesPerSecond,
			Burst:             cfg.Sender.Burst,
			MaxRetries:        cfg.Sender.MaxRetries,
		}, log)
		guarded := senders.NewBreakerSink(sink, circuitbreaker.DefaultConfig(), log)

		acc := senders.NewAccumulator(guarded, cfg.Sender.MaxBatch, cfg.Sender.FlushInterval, log)
		monitor.OnSample(acc.Enqueue)
		accumulators = append(accumulators, acc)
		if bridge != nil {
			bridge.ExposeSender("websocket", acc.Sent, acc.Dropped)
		}
	}

	if cfg.Redis.Enabled {
		sink, err := senders.NewRedisQueueSink(senders.RedisQueueConfig{
			Address:     cfg.Redis.Address,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			Queue:       cfg.Redis.Queue,
			MaxQueueLen: cfg.Redis.MaxQueueLen,
		}, log)
		if err != nil {
			log.Fatalw("failed to connect sample queue", "error", err)
		}
		guarded := senders.NewBreakerSink(sink, circuitbreaker.DefaultConfig(), log)

		acc := senders.NewAccumulator(guarded, cfg.Sender.MaxBatch, cfg.Sender.FlushInterval, log)
		monitor.OnSample(acc.Enqueue)
		accumulators = append(accumulators, acc)
		if bridge != nil {
			bridge.ExposeSender("redis", acc.Sent, acc.Dropped)
		}
	}

	// Local debug API
	debugHandler := httphandlers.NewDebugHandler(sampler.ClientID(), sampler.CallID())
	monitor.OnSample(debugHandler.Publish)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg.Server.RequestsPerSecond, cfg.Server.Burst))

	debugHandler.SetupRoutes(router)

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting rtcscope debug server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Start the observation loop
	runCtx, runCancel := context.WithCancel(context.Background())
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		log.Infow("Starting monitor", "interval", cfg.Monitor.Interval, "client_id", sampler.ClientID(), "call_id", sampler.CallID())
		if err := monitor.Run(runCtx); err != nil {
			log.Errorw("monitor stopped", "error", err)
		}
	}()

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down rtcscope agent...")

	// Stop the observation loop before flushing queued samples
	runCancel()
	<-monitorDone

	if err := monitor.Close(); err != nil {
		log.Errorw("Error closing monitor", "error", err)
	}

	for _, acc := range accumulators {
		if err := acc.Close(); err != nil {
			log.Errorw("Error closing sample sink", "error", err)
		}
	}

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server gracefully
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracing", "error", err)
	}

	log.Info("rtcscope agent stopped")
}

func configPath() string {
	if path := os.Getenv("RTCSCOPE_CONFIG"); path != "" {
		return path
	}
	for _, path := range []string{"configs/config.yaml", "config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return "configs/config.yaml"
}

func registerDetectors(registry *detectors.Registry, cfg *config.Config, scorer *scoring.Scorer, dispatcher *events.Dispatcher, log *zap.SugaredLogger) error {
	if !cfg.Detectors.Congestion.Disabled {
		if err := registry.Add(detectors.NewCongestion(dispatcher, log)); err != nil {
			return err
		}
	}

	if !cfg.Detectors.AudioDesync.Disabled {
		d, err := detectors.NewAudioDesync(detectors.AudioDesyncConfig{
			AlertOnThreshold:  cfg.Detectors.AudioDesync.AlertOnThreshold,
			AlertOffThreshold: cfg.Detectors.AudioDesync.AlertOffThreshold,
		}, dispatcher, log)
		if err != nil {
			return err
		}
		if err := registry.Add(d); err != nil {
			return err
		}
	}

	if !cfg.Detectors.CPUPerformance.Disabled {
		d, err := detectors.NewCPUPerformance(detectors.CPUPerformanceConfig{
			AlertOnThreshold:  cfg.Detectors.CPUPerformance.AlertOnThreshold,
			AlertOffThreshold: cfg.Detectors.CPUPerformance.AlertOffThreshold,
		}, dispatcher, log)
		if err != nil {
			return err
		}
		if err := registry.Add(d); err != nil {
			return err
		}
	}

	if !cfg.Detectors.VideoFreeze.Disabled {
		if err := registry.Add(detectors.NewVideoFreeze(dispatcher, log)); err != nil {
			return err
		}
	}

	if !cfg.Detectors.StuckTrack.Disabled {
		d := detectors.NewStuckTrack(detectors.StuckTrackConfig{
			MinStuckDuration: cfg.Detectors.StuckTrack.MinStuckDuration,
		}, dispatcher, log)
		if err := registry.Add(d); err != nil {
			return err
		}
	}

	if !cfg.Detectors.LongConnect.Disabled {
		d := detectors.NewLongConnect(detectors.LongConnectConfig{
			Threshold: cfg.Detectors.LongConnect.Threshold,
		}, dispatcher, log)
		if err := registry.Add(d); err != nil {
			return err
		}
	}

	if !cfg.Detectors.LowScore.Disabled {
		d, err := detectors.NewLowScore(detectors.LowScoreConfig{
			AlertOnThreshold:  cfg.Detectors.LowScore.AlertOnThreshold,
			AlertOffThreshold: cfg.Detectors.LowScore.AlertOffThreshold,
		}, scorer, dispatcher, log)
		if err != nil {
			return err
		}
		if err := registry.Add(d); err != nil {
			return err
		}
	}

	return nil
}
