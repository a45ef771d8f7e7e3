package main

import (
	"context"
	"flag"
	"os"
	"time"

	"agrofunnel/internal/config"
	"agrofunnel/internal/db"
	"agrofunnel/internal/importer"
	"agrofunnel/internal/logging"
	categoryrepo "agrofunnel/internal/repository/category"
	productrepo "agrofunnel/internal/repository/product"
	"go.uber.org/zap"
)

func main() {
	filePath := flag.String("file", "", "Path to a product or category CSV export")
	flag.Parse()

	if *filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogFormat, "importer")
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

	f, err := os.Open(*filePath)
	if err != nil {
		logger.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, productrepo.NewPostgres(pool, logger), categoryrepo.NewPostgres(pool), cfg.Funnel.Currency, logger)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Int("imported", count), zap.Error(err))
	}

	logger.Info("import finished",
		zap.String("file", *filePath),
		zap.Int("imported", count),
		zap.Duration("took", time.Since(start).Truncate(time.Millisecond)),
	)
}
