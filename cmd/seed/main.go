package main

import (
	"context"
	"flag"
	"os"

	"agrofunnel/internal/config"
	"agrofunnel/internal/db"
	"agrofunnel/internal/logging"
	categoryrepo "agrofunnel/internal/repository/category"
	customerrepo "agrofunnel/internal/repository/customer"
	productrepo "agrofunnel/internal/repository/product"
	"agrofunnel/internal/seed"
	"go.uber.org/zap"
)

func main() {
	file := flag.String("file", "", "YAML catalog to load instead of the built-in demo data")
	flag.Parse()

	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogFormat, "seed")
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	targets := seed.Targets{
		Products:   productrepo.NewPostgres(pool, logger),
		Categories: categoryrepo.NewPostgres(pool),
		Customers:  customerrepo.NewPostgres(pool, logger),
	}

	var sum seed.Summary
	if *file != "" {
		raw, readErr := os.ReadFile(*file)
		if readErr != nil {
			logger.Fatal("read seed file", zap.String("file", *file), zap.Error(readErr))
		}
		sum, err = seed.ApplyYAML(ctx, targets, raw, cfg.Funnel.Currency)
	} else {
		sum, err = seed.Apply(ctx, targets, cfg.Funnel.Currency)
	}
	if err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}

	logger.Info("seed applied",
		zap.Int("categories", sum.Categories),
		zap.Int("products", sum.Products),
		zap.Int("customers", sum.Customers),
	)
}
