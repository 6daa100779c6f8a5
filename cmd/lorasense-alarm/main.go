package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"lorasense-alarm/internal/automation"
	"lorasense-alarm/internal/config"
	"lorasense-alarm/internal/consumer"
	"lorasense-alarm/internal/decoder"
	"lorasense-alarm/internal/evaluator"
	"lorasense-alarm/internal/notifier"
	"lorasense-alarm/internal/repository"
	"lorasense-alarm/internal/schedule"
	"lorasense-alarm/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}

	// Repositories.
	stateCache := consumer.NewStateCache(rdb, cfg.Engine.StateCacheTTL, logger)
	devices := repository.NewDeviceRepository(db, logger)
	alarms := repository.NewAlarmRepository(db, logger)
	automations := repository.NewAutomationRepository(db, logger)
	telemetry := repository.NewTelemetryRepository(db, logger)
	notifications := repository.NewNotificationRepository(db, logger)
	tenants := repository.NewTenantRepository(db, logger)
	states := repository.NewStateRepository(db, stateCache, logger)
	deadLetters := repository.NewDeadLetterRepository(db, logger)

	// Evaluation.
	clock := schedule.SystemClock{}
	matcher := schedule.NewMatcher(clock, cfg.Engine.UTCOffsetHours)
	trend := evaluator.NewTrendDetector(telemetry, logger)
	composer := notifier.NewComposer(notifications, tenants, logger)
	eval := evaluator.New(alarms, matcher, trend, composer, logger)

	// Automation.
	guard := automation.NewStateGuard(states, logger)
	executor := automation.NewExecutor(cfg.NetworkServer.BaseURL, cfg.NetworkServer.APIToken,
		cfg.NetworkServer.Timeout, logger)
	times := automation.NewTimeMatcher(clock, cfg.Engine.UTCOffsetHours)
	runner := automation.NewRunner(automations, guard, executor, times, logger)

	// Pipeline.
	engine := service.NewEngine(service.Options{
		Devices:     devices,
		Registry:    decoder.NewRegistry(),
		Evaluator:   eval,
		Automation:  runner,
		Telemetry:   telemetry,
		StateCache:  stateCache,
		Outputs:     states,
		DeadLetters: deadLetters,
		Workers:     cfg.Engine.Workers,
		Logger:      logger,
	})
	defer engine.Stop()

	mqttConsumer := consumer.NewConsumer(consumer.Options{
		BrokerURL: cfg.MQTT.BrokerURL,
		ClientID:  cfg.MQTT.ClientID,
		Username:  cfg.MQTT.Username,
		Password:  cfg.MQTT.Password,
	}, engine.HandleUplink, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := mqttConsumer.Start(ctx); err != nil {
		logger.Fatal("Failed to start mqtt consumer", zap.Error(err))
	}
	defer mqttConsumer.Stop()

	schedulerErr := make(chan error, 1)
	go func() {
		schedulerErr <- engine.RunScheduler(ctx)
	}()

	logger.Info("alarm engine started",
		zap.String("mqtt_broker", cfg.MQTT.BrokerURL),
		zap.Int("workers", cfg.Engine.Workers))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-schedulerErr:
		if err != nil && err != context.Canceled {
			logger.Error("Scheduler stopped", zap.Error(err))
		}
	}

	logger.Info("alarm engine stopped")
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Log.Format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
