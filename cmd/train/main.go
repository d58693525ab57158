// Command train fits the isolation forest on completed transaction
// history and refreshes per-client amount statistics. It runs offline;
// the API picks up the new model file on restart or reload.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"go.uber.org/zap"

	"safenet-risk-service/internal/domain/transaction"
	"safenet-risk-service/internal/infrastructure/database/postgres"
	"safenet-risk-service/internal/infrastructure/ml"
	"safenet-risk-service/internal/pkg/config"
	"safenet-risk-service/internal/pkg/logger"
)

const historyWindow = 500

func main() {
	configPath := flag.String("config", "", "path to config file")
	outPath := flag.String("out", "", "model output path (defaults to the configured model path)")
	trees := flag.Int("trees", 100, "number of isolation trees")
	seed := flag.Int64("seed", time.Now().UnixNano(), "training seed")
	statsOnly := flag.Bool("stats-only", false, "refresh client statistics without training")
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

	if *outPath == "" {
		*outPath = cfg.Model.Path
	}

	if err := run(cfg, log, *outPath, *trees, *seed, *statsOnly); err != nil {
		log.Fatal("training failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger, outPath string, trees int, seed int64, statsOnly bool) error {
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

	ctx := context.Background()
	clientRepo := postgres.NewClientRepository(db)
	txRepo := postgres.NewTransactionRepository(db)

	clients, err := clientRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	log.Info("loaded clients", zap.Int("count", len(clients)))

	var rows [][]float64
	now := time.Now()

	for _, client := range clients {
		history, err := txRepo.ListByClient(ctx, client.ID, historyWindow, 0)
		if err != nil {
			return err
		}

		refreshStatistics(ctx, clientRepo, client, history, log)

		if statsOnly {
			continue
		}
		for _, tx := range history {
			if tx.Status != transaction.StatusCompleted {
				continue
			}
			features := ml.Extract(tx, client, 1, nil, now)
			rows = append(rows, features.ToVector())
		}
	}

	if statsOnly {
		log.Info("statistics refreshed", zap.Int("clients", len(clients)))
		return nil
	}
	if len(rows) == 0 {
		return fmt.Errorf("no completed transactions to train on")
	}

	forest, err := ml.Train(rows, ml.TrainOptions{
		Trees:   trees,
		Seed:    seed,
		Version: now.Format("2006-01-02T15:04:05"),
	})
	if err != nil {
		return err
	}
	if err := forest.Save(outPath); err != nil {
		return err
	}

	log.Info("model trained",
		zap.Int("rows", len(rows)),
		zap.Int("trees", trees),
		zap.String("path", outPath),
	)
	return nil
}

// refreshStatistics recomputes the mean and deviation of the client's
// completed transaction amounts.
func refreshStatistics(ctx context.Context, repo *postgres.ClientRepository, client *transaction.ClientProfile, history []*transaction.Transaction, log *zap.Logger) {
	var amounts []float64
	for _, tx := range history {
		if tx.Status != transaction.StatusCompleted {
			continue
		}
		amount, _ := tx.Amount.Float64()
		amounts = append(amounts, amount)
	}
	if len(amounts) == 0 {
		return
	}

	var sum float64
	for _, a := range amounts {
		sum += a
	}
	mean := sum / float64(len(amounts))

	var variance float64
	for _, a := range amounts {
		variance += (a - mean) * (a - mean)
	}
	std := math.Sqrt(variance / float64(len(amounts)))

	client.AvgAmount = mean
	client.StdAmount = std
	if err := repo.Update(ctx, client); err != nil {
		log.Warn("statistics update failed",
			zap.String("client_id", client.ID.String()), zap.Error(err))
	}
}
