package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/manishonc/car-rental/internal/core"
	"github.com/manishonc/car-rental/internal/platform/config"
	"github.com/manishonc/car-rental/internal/platform/logging"
	"github.com/manishonc/car-rental/internal/store/dynamo"
	"github.com/manishonc/car-rental/internal/store/mongo"
)

func main() {
	cfg := config.MustLoad()
	log := logging.New(cfg.Env, cfg.LogLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	var repo core.CatalogRepo
	switch cfg.StoreType {
	case config.StoreMongo:
		client, err := mongo.NewClient(ctx, cfg)
		if err != nil {
			log.Error("failed to connect to MongoDB", "err", err)
			os.Exit(1)
		}
		defer client.Close(context.Background())

		if err := mongo.EnsureIndexes(ctx, client.DB); err != nil {
			log.Error("failed to create indexes", "err", err)
			os.Exit(1)
		}
		repo = mongo.NewCatalogRepo(client.DB, 5*time.Second)

	case config.StoreDynamo:
		client, err := dynamo.NewClient(ctx, dynamo.Config{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.DynamoDBEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			log.Error("failed to connect to DynamoDB", "err", err)
			os.Exit(1)
		}
		if err := dynamo.EnsureTables(ctx, client.DB, log); err != nil {
			log.Error("failed to create tables", "err", err)
			os.Exit(1)
		}
		repo = dynamo.NewCatalogRepo(client.DB)

	default:
		log.Info("store keeps the catalog in process, nothing to seed", "store", cfg.StoreType)
		return
	}

	log.Info("seeding insurance catalog", "store", cfg.StoreType)
	if failed := seedCatalog(ctx, log, repo); failed > 0 {
		log.Error("seeding incomplete", "failed", failed)
		os.Exit(1)
	}
	log.Info("done seeding")
}

func seedCatalog(ctx context.Context, log *slog.Logger, repo core.CatalogRepo) int {
	failed := 0
	for _, opt := range core.DefaultCatalog() {
		if err := repo.Upsert(ctx, opt); err != nil {
			log.Error("failed to seed option", "id", opt.ID, "title", opt.Title, "err", err)
			failed++
			continue
		}
		log.Info("seeded", "id", opt.ID, "title", opt.Title)
	}
	return failed
}
