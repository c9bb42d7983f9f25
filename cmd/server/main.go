package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/GooferByte/networth/internal/config"
	"github.com/GooferByte/networth/internal/http"
	"github.com/GooferByte/networth/internal/logger"
	"github.com/GooferByte/networth/internal/pricing"
	"github.com/GooferByte/networth/internal/repository"
	"github.com/GooferByte/networth/internal/repository/memory"
	"github.com/GooferByte/networth/internal/repository/postgres"
	"github.com/GooferByte/networth/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Environment)

	if cfg.FinnhubAPIKey == "" {
		log.Warn("FINNHUB_API_KEY not set, quote lookups will be rejected by the provider")
	}
	source := pricing.NewFinnhubClient(cfg.FinnhubBaseURL, cfg.FinnhubAPIKey)

	var store repository.Store
	if cfg.UseInMemoryStore {
		log.Warn("DATABASE_URL not set, using in-memory store. Data will reset on restart.")
		store = memory.New()
	} else {
		db, err := sql.Open("postgres", cfg.DBURL)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to postgres")
		}
		if err := db.Ping(); err != nil {
			log.WithError(err).Fatal("postgres ping failed")
		}
		defer db.Close()
		repo := postgres.New(db)
		if err := repo.Migrate(context.Background()); err != nil {
			log.WithError(err).Fatal("postgres migration failed")
		}
		store = repo
		log.Info("connected to postgres")
	}

	session := service.NewSession(store, source, service.Options{
		SessionKey:      cfg.SessionKey,
		QuoteMaxAge:     cfg.QuoteMaxAge,
		QuoteTimeout:    cfg.QuoteTimeout,
		RefreshInterval: cfg.RefreshInterval,
		Concurrency:     cfg.FetchConcurrency,
	}, log)
	if err := session.Start(context.Background()); err != nil {
		log.WithError(err).Fatal("failed to start session")
	}
	defer session.Close()

	router := http.Router(session, log)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Infof("net worth service listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.WithError(err).Error("server stopped")
		session.Close()
		os.Exit(1)
	}
}
