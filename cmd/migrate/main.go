package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
)

func main() {
	var dir string
	flag.StringVar(&dir, "path", "migrations", "Path to migration files")
	flag.Parse()

	direction := flag.Arg(0)
	if direction == "" {
		fmt.Fprintln(os.Stderr, "usage: migrate [-path dir] up|down")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	if err := database.Migrate(cfg.Database, dir, direction); err != nil {
		log.Fatal("migration failed", zap.String("direction", direction), zap.Error(err))
	}
	log.Info("migration complete", zap.String("direction", direction), zap.String("path", dir))
}
