package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/bank"
	"github.com/stemsi/exstem-prep/internal/config"
	"github.com/stemsi/exstem-prep/internal/database"
	"github.com/stemsi/exstem-prep/internal/handler"
	"github.com/stemsi/exstem-prep/internal/logger"
	"github.com/stemsi/exstem-prep/internal/middleware"
	"github.com/stemsi/exstem-prep/internal/normalizer"
	"github.com/stemsi/exstem-prep/internal/repository"
	"github.com/stemsi/exstem-prep/internal/router"
	"github.com/stemsi/exstem-prep/internal/service"
	"github.com/stemsi/exstem-prep/internal/validator"
	"github.com/stemsi/exstem-prep/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg, cfgErr := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if cfgErr != nil {
		log.Fatal().Err(cfgErr).Msg("Failed to load marking file")
	}
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("storage", cfg.StorageKind).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExStem Prep")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Open Result Store ─────────────────────────────────────────────
	store, err := repository.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open result store")
	}
	defer store.Close()

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	// ─── Initialize Banks ──────────────────────────────────────────────
	norm := normalizer.New(log,
		normalizer.WithStrictAnswers(cfg.StrictAnswers),
		normalizer.WithLenientAnswers(cfg.LenientAnswers),
	)
	var cache bank.Cache
	if rdb != nil {
		cache = bank.NewRedisCache(rdb)
	}
	loader := bank.NewLoader(cfg.BankDir, cfg.SubjectFiles, cfg.Marking.CSATSubjects, norm, cache, cfg.BankCacheTTL, log)

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	var sink service.ResultSink = service.NewDirectSink(store)
	var resultWorker *worker.ResultWorker
	if rdb != nil {
		sink = service.NewQueueSink(rdb)
		resultWorker = worker.NewResultWorker(store, rdb, log)
		go resultWorker.Start(workerCtx)
	}

	// ─── Initialize Services ──────────────────────────────────────────
	quizService := service.NewQuizService(loader, sink, cfg.Marking.EngineOptions(), nil, log)
	historyService := service.NewHistoryService(store, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Quiz:    handler.NewQuizHandler(quizService, log),
		History: handler.NewHistoryHandler(historyService, log),
		Bank:    handler.NewBankHandler(loader, norm),
		WS:      handler.NewWSHandler(quizService, log, cfg.AllowedOrigins),
	}

	startLimiter := middleware.NewRateLimiter(cfg.StartRatePerMinute, time.Minute)
	defer startLimiter.Close()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, startLimiter, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop countdowns; unsubmitted attempts are dropped.
	if n := quizService.Active(); n > 0 {
		log.Warn().Int("active_quizzes", n).Msg("Dropping unsubmitted quizzes")
	}
	quizService.Close()

	// 3. Stop the result worker and wait for its final flush.
	workerCancel()
	if resultWorker != nil {
		<-resultWorker.Done()
	}
	if rdb != nil {
		rdb.Close()
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
