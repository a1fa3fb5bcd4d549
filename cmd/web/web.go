package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/api"
	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/config"
	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/logging"
	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/repository"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	level, _ := cfg.LogLevel()
	log := logging.New(level, os.Getenv("APP_ENV"), "haqs-web")
	slog.SetDefault(log)

	gw, err := repository.OpenGateway(cfg.Database.Driver, cfg.DSN(), log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	repo := repository.NewSQLAQRepository(gw, log)
	defer repo.Close()

	server, err := api.NewStationsServer(repo, cfg.ReadingLag(), log)
	if err != nil {
		log.Error("failed to set up station map view", "error", err)
		os.Exit(1)
	}

	log.Info("station map listening", "addr", cfg.Web.Addr)
	if err := http.ListenAndServe(cfg.Web.Addr, server.Handler()); err != nil {
		log.Error("web server failed", "error", err)
		os.Exit(1)
	}
}
