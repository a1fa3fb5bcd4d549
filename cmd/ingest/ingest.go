package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/config"
	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/integration"
	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/logging"
	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/repository"
	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/usecases"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	once := flag.Bool("once", false, "run a single ingestion cycle and exit")
	flag.Parse()

	// Local development secrets; a missing .env file is fine
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	level, _ := cfg.LogLevel()
	log := logging.New(level, os.Getenv("APP_ENV"), "haqs-ingest")
	slog.SetDefault(log)

	log.Info("starting air quality ingestion",
		"provider", cfg.Provider.BaseURL,
		"driver", cfg.Database.Driver,
		"schedule", cfg.Ingest.Schedule,
		"reading_lag", cfg.ReadingLag().String())

	if cfg.Database.Driver == "sqlite3" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			log.Error("failed to create database directory", "error", err)
			os.Exit(1)
		}
	}

	// A store that cannot be reached is fatal; per-item failures later
	// in the run are not
	gw, err := repository.OpenGateway(cfg.Database.Driver, cfg.DSN(), log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	repo := repository.NewSQLAQRepository(gw, log)
	defer repo.Close()

	if err := repo.EnsureSchema(); err != nil {
		log.Error("failed to prepare database schema", "error", err)
		os.Exit(1)
	}

	client := integration.NewGiosClient(cfg.Provider.BaseURL, cfg.ProviderTimeout(), log)
	useCase := usecases.NewIngestUseCase(repo, client, cfg.ReadingLag(), log)

	runOnce := func() {
		summary, err := useCase.RefreshAirData()
		if err != nil {
			if errors.Is(err, repository.ErrStoreConnection) {
				log.Error("database session lost, aborting", "error", err)
				os.Exit(1)
			}
			log.Error("data refresh failed", "error", err)
			return
		}
		log.Info("ingestion cycle done",
			"window", summary.Window,
			"stations", summary.Stations,
			"sensors", summary.Sensors,
			"readings_inserted", summary.ReadingsInserted,
			"readings_skipped", summary.ReadingsSkipped,
			"fetch_failures", summary.FetchFailures)
	}

	// Run immediately on startup, then on the configured schedule
	runOnce()
	if *once {
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Ingest.Schedule, runOnce); err != nil {
		log.Error("failed to set up cron job", "schedule", cfg.Ingest.Schedule, "error", err)
		os.Exit(1)
	}
	c.Start()
	log.Info("ingestion scheduled", "schedule", cfg.Ingest.Schedule)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	<-c.Stop().Done()
}
