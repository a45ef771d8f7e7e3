package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"agrofunnel/internal/config"
	"agrofunnel/internal/db"
	"agrofunnel/internal/logging"
	"agrofunnel/internal/migrate"
	"go.uber.org/zap"
)

func main() {
	steps := flag.Int("steps", 1, "Number of migrations to roll back with the down command")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [-steps n] up|down|version\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogFormat, "migrate")
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

	switch command {
	case "up":
		if err := migrate.Apply(ctx, pool); err != nil {
			logger.Fatal("apply migrations", zap.Error(err))
		}
		logger.Info("migrations applied")
	case "down":
		if err := migrate.Rollback(ctx, pool, *steps); err != nil {
			logger.Fatal("roll back migrations", zap.Error(err))
		}
		logger.Info("migrations rolled back", zap.Int("steps", *steps))
	case "version":
		v, dirty, err := migrate.Version(ctx, pool)
		if err != nil {
			logger.Fatal("read schema version", zap.Error(err))
		}
		logger.Info("schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
	default:
		flag.Usage()
		os.Exit(2)
	}
}
