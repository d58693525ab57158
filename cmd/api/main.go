package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"safenet-risk-service/internal/application/alerts"
	"safenet-risk-service/internal/application/assessment"
	"safenet-risk-service/internal/application/challenge"
	"safenet-risk-service/internal/application/transfer"
	cacheredis "safenet-risk-service/internal/infrastructure/cache/redis"
	"safenet-risk-service/internal/infrastructure/database/postgres"
	httprouter "safenet-risk-service/internal/infrastructure/http/router"
	"safenet-risk-service/internal/infrastructure/ml"
	"safenet-risk-service/internal/infrastructure/notification"
	"safenet-risk-service/internal/infrastructure/rules"
	"safenet-risk-service/internal/interfaces/http/handler"
	"safenet-risk-service/internal/pkg/config"
	"safenet-risk-service/internal/pkg/logger"
	"safenet-risk-service/internal/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("service failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	db, err := postgres.NewDB(postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return err
	}
	if err := postgres.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	txRepo := postgres.NewTransactionRepository(db)
	clientRepo := postgres.NewClientRepository(db)
	alertRepo := postgres.NewAlertRepository(db)
	otpRepo := postgres.NewOTPRepository(db)
	registryRepo := postgres.NewRegistryRepository(db)
	settler := postgres.NewSettlementRepository(db)

	// Redis is a fast path, not a dependency: without it the frequency
	// rule counts from the transaction store.
	var velocity assessment.VelocityTracker
	if cfg.Redis.Enabled {
		rdb, err := cacheredis.NewClient(cacheredis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("redis unavailable, velocity falls back to the store", zap.Error(err))
		} else {
			velocity = cacheredis.NewVelocityCache(rdb, time.Hour, log)
		}
	}

	scorer := ml.NewScorer(log)
	if cfg.Model.Path != "" {
		// a missing model leaves the scorer in neutral fallback mode
		_ = scorer.LoadFromFile(cfg.Model.Path)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	snapshots := rules.NewSnapshotProvider(registryRepo, registryRepo, log)
	evaluator := rules.NewEvaluator(log)
	notifier := notification.NewLogNotifier(log)

	assessor := assessment.NewService(txRepo, clientRepo, velocity, snapshots, evaluator, scorer, alertRepo, notifier, m, log)
	challenges := challenge.NewService(otpRepo, txRepo, clientRepo, settler, notifier, snapshots, m, log)
	transfers := transfer.NewService(txRepo, clientRepo, settler, assessor, challenges, log)
	alertSvc := alerts.NewService(alertRepo, txRepo, settler, log)

	rt := httprouter.New(
		handler.NewRiskHandler(transfers, clientRepo, log),
		handler.NewChallengeHandler(challenges, log),
		handler.NewAlertHandler(alertSvc, log),
		handler.NewHealthHandler(db),
		registry,
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      rt,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go startChallengeCleanup(ctx, challenges, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startChallengeCleanup reclaims expired challenge rows periodically.
// Lazy state checks keep correctness independent of this loop.
func startChallengeCleanup(ctx context.Context, challenges *challenge.Service, log *zap.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := challenges.Cleanup(ctx)
			if err != nil {
				log.Warn("challenge cleanup failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				log.Debug("expired challenges reclaimed", zap.Int64("count", removed))
			}
		}
	}
}
