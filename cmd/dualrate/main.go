package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/dualrate/internal/application/workers"
	"github.com/aescanero/dualrate/internal/config"
	"github.com/aescanero/dualrate/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/dualrate/pkg/adapters/output"
	"github.com/aescanero/dualrate/pkg/adapters/output/broadcast"
	redisoutput "github.com/aescanero/dualrate/pkg/adapters/output/redis"
	"github.com/aescanero/dualrate/pkg/adapters/output/serial"
	"github.com/aescanero/dualrate/pkg/adapters/output/stdout"
	memorystorage "github.com/aescanero/dualrate/pkg/adapters/storage/memory"
	redisstorage "github.com/aescanero/dualrate/pkg/adapters/storage/redis"
	"github.com/aescanero/dualrate/pkg/api/grpc"
	"github.com/aescanero/dualrate/pkg/api/http"
	"github.com/aescanero/dualrate/pkg/api/websocket"
	"github.com/aescanero/dualrate/pkg/ports"

	"github.com/google/uuid"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

// exitLaunchFailure is the exit status when a worker cannot be created
const exitLaunchFailure = -1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)

	logger.Info("starting dualrate",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, logger, os.Stdout, nil)
	stop()

	_ = logger.Sync()
	os.Exit(code)
}

// run wires the worker pair and blocks until it completes, ctx is cancelled
// or a server fails. A nil spawner launches real threads.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer, spawner workers.Spawner) int {
	runID := uuid.NewString()

	// Initialize Redis client
	var redisClient *goredis.Client
	if cfg.UsesRedis() {
		redisClient = newRedisClient(cfg.Redis)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("Redis close error", zap.Error(err))
			}
		}()

		// Test Redis connection
		pingCtx, cancel := context.WithTimeout(ctx, cfg.Redis.DialTimeout)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Error("failed to connect to Redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			return 1
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// Initialize adapters
	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsCollector := prometheus.NewCollector(registry)

	var live *broadcast.Sink
	if cfg.API.HTTPPort != 0 {
		live = broadcast.NewSink()
	}
	sink := output.NewMulti(buildSinks(cfg, runID, out, redisClient, live, logger)...)
	store := buildStore(cfg, redisClient, logger)

	pair := workers.NewPair(workers.Config{
		RunID:               runID,
		FastInterval:        cfg.Workers.FastInterval,
		MaxEmits:            cfg.Workers.MaxEmits,
		PinCPUs:             cfg.Workers.PinCPUs,
		FastCPU:             cfg.Workers.FastCPU,
		SlowCPU:             cfg.Workers.SlowCPU,
		HealthCheckInterval: cfg.Workers.HealthCheckInterval,
		Spawner:             spawner,
	}, sink, metricsCollector, store, logger)

	// Start worker pair
	if err := pair.Start(); err != nil {
		var launchErr *workers.WorkerLaunchError
		if errors.As(err, &launchErr) {
			// Workers already running are left to die with the process
			fmt.Fprintf(out, "Error creating the thread. Code %d\n", launchErr.Code)
			return exitLaunchFailure
		}
		logger.Error("failed to start worker pair", zap.Error(err))
		return 1
	}

	serverErrs := make(chan error, 2)

	// Initialize API servers
	var httpServer *http.Server
	if cfg.API.HTTPPort != 0 {
		httpServer = http.NewServer(&http.Config{
			Port:     cfg.API.HTTPPort,
			Pair:     pair,
			Store:    store,
			Gatherer: registry,
			Logger:   logger,
		})
		httpServer.SetupWebSocket(websocket.NewHandler(live, logger))

		go func() {
			if err := httpServer.Start(); err != nil {
				serverErrs <- err
			}
		}()
	}

	var grpcServer *grpc.Server
	if cfg.API.GRPCPort != 0 {
		var err error
		grpcServer, err = grpc.NewServer(&grpc.Config{
			Port:   cfg.API.GRPCPort,
			Logger: logger,
		})
		if err != nil {
			serverErrs <- err
		} else {
			grpcServer.SetServing(true)
			go func() {
				if err := grpcServer.Start(); err != nil {
					serverErrs <- err
				}
			}()
		}
	}

	logger.Info("dualrate started",
		zap.String("run_id", runID),
		zap.Strings("sinks", cfg.Output.Sinks),
		zap.Int("http_port", cfg.API.HTTPPort),
		zap.Int("grpc_port", cfg.API.GRPCPort))

	code := 0
	select {
	case <-pair.Done():
		logger.Info("worker pair completed")
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-serverErrs:
		logger.Error("server failed", zap.Error(err))
		code = 1
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if grpcServer != nil {
		grpcServer.SetServing(false)
	}

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	if grpcServer != nil {
		if err := grpcServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("gRPC server shutdown error", zap.Error(err))
		}
	}

	if err := pair.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pair shutdown error", zap.Error(err))
	}

	if err := sink.Close(); err != nil {
		logger.Error("output close error", zap.Error(err))
	}

	if err := store.Close(); err != nil {
		logger.Error("status store close error", zap.Error(err))
	}

	logger.Info("dualrate shut down complete", zap.String("run_id", runID))
	return code
}

// buildSinks returns the configured output sinks, plus live when non-nil
func buildSinks(
	cfg *config.Config,
	runID string,
	out io.Writer,
	redisClient *goredis.Client,
	live *broadcast.Sink,
	logger *zap.Logger,
) []ports.OutputSink {
	var sinks []ports.OutputSink
	for _, name := range cfg.Output.Sinks {
		switch name {
		case config.SinkStdout:
			sinks = append(sinks, stdout.NewSink(out))
		case config.SinkSerial:
			sinks = append(sinks, serial.NewSink(out, cfg.Output.SerialBuffer, logger))
		case config.SinkRedis:
			streamSink := redisoutput.NewStreamSink(redisClient, runID, cfg.Output.StreamBuffer, cfg.Output.StreamMaxLen, logger)
			logger.Info("mirroring output to Redis stream", zap.String("stream", streamSink.StreamKey()))
			sinks = append(sinks, streamSink)
		}
	}

	if live != nil {
		sinks = append(sinks, live)
	}
	return sinks
}

// buildStore returns the configured status store
func buildStore(cfg *config.Config, redisClient *goredis.Client, logger *zap.Logger) ports.StatusStore {
	if cfg.Output.StatusStore == config.StoreRedis {
		return redisstorage.NewStatusStorage(redisClient, cfg.Output.StatusTTL, logger)
	}
	return memorystorage.NewInMemoryStatusStorage()
}

func newRedisClient(cfg config.RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
