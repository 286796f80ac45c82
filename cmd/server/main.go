package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"flipradar/server/config"
	"flipradar/server/internal/advisor"
	"flipradar/server/internal/api"
	"flipradar/server/internal/database"
	"flipradar/server/internal/enrichment"
	"flipradar/server/internal/geocoding"
	"flipradar/server/internal/pipeline"
	"flipradar/server/internal/processor"
	"flipradar/server/internal/queue"
	"flipradar/server/internal/renovation"
	"flipradar/server/internal/risk"
	"flipradar/server/internal/scheduler"
	"flipradar/server/internal/scraping"
	"flipradar/server/internal/telegram"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open database")
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	// Ingestion path: scraper -> queue -> batch processor -> sales table.
	saleQueue := queue.NewSaleQueue(cfg.BatchProcessing.MaxBatchSize, logger)
	batchProcessor := processor.NewBatchProcessor(db.ORM(), saleQueue, cfg, logger)
	batchProcessor.Start()
	defer batchProcessor.Stop()

	var scrapeManager *scraping.ScrapeManager
	var scrapeScheduler *scheduler.Scheduler
	if !cfg.Scraper.Disabled {
		scrapeManager = scraping.NewScrapeManager(saleQueue, cfg.Scraper.ScriptPath, cfg.BatchProcessing.MaxBatchSize, logger)
		scrapeScheduler = scheduler.NewScheduler(scrapeManager, logger, config.GetCityNames())
		scrapeScheduler.Start()
		defer scrapeScheduler.Stop()
	} else {
		logger.Info("Scraper disabled, comparables pool will not refresh")
	}

	// Advisors are optional: without an API key the estimators fall back to
	// their documented numeric defaults.
	var renovationAdvisor renovation.Advisor
	var riskAdvisor risk.Advisor
	if cfg.Advisor.APIKey != "" {
		caller, err := advisor.NewAnthropicCaller(cfg.Advisor.APIKey, time.Duration(cfg.Advisor.TimeoutSeconds)*time.Second)
		if err != nil {
			logger.WithError(err).Warn("Advisor setup failed, continuing with baseline estimates")
		} else {
			renovationAdvisor = advisor.NewRenovationAdvisor(caller, logger)
			riskAdvisor = advisor.NewRiskAdvisor(caller, logger)
		}
	} else {
		logger.Info("No advisor API key configured, using baseline estimates")
	}

	geocoder := geocoding.NewGeocoder(logger, "database/geocode_cache")
	enricher := enrichment.NewEnricher(geocoder, db, logger)

	telegramService := telegram.NewService(logger)
	if tgConfig, err := db.GetTelegramConfig(); err != nil {
		logger.WithError(err).Warn("Failed to load telegram configuration")
	} else if tgConfig != nil {
		telegramService.UpdateConfig(tgConfig)
	}

	orchestrator := pipeline.NewOrchestrator(
		db,
		enricher,
		renovation.NewEstimator(renovationAdvisor, logger),
		risk.NewScorer(riskAdvisor, logger),
		telegramService,
		pipeline.Config{
			CompWindowMonths:    cfg.Analysis.CompWindowMonths,
			CompMaxResults:      cfg.Analysis.CompMaxResults,
			TransactionCostRate: cfg.Analysis.TransactionCostRate,
		},
		logger,
	)

	router := gin.Default()
	router.Use(cors.Default())
	api.SetupRoutes(router, api.NewHandler(db, orchestrator, scrapeManager, telegramService, cfg, logger))

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := router.Run(":" + cfg.Server.Port); err != nil {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")
	saleQueue.Close()
}
