package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"chekbot/config"
	"chekbot/internal/check"
	"chekbot/internal/export"
	"chekbot/internal/extract"
	"chekbot/internal/handler"
	"chekbot/internal/ocr"
	"chekbot/internal/pipeline"
	"chekbot/internal/repository"
	"chekbot/internal/session"
	"chekbot/traits/database"
	"chekbot/traits/logger"

	"github.com/go-telegram/bot"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	zapLogger, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer zapLogger.Sync()

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		zapLogger.Error("error init config", zap.Error(err))
		return
	}

	// Validate configuration
	if err := cfg.ValidateConfig(); err != nil {
		zapLogger.Error("invalid configuration", zap.Error(err))
		return
	}

	zapLogger.Info("Starting chekbot application",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
		zap.Float64("min_amount", cfg.MinAmount),
	)

	// Initialize database
	db, err := database.InitDatabase(cfg, zapLogger)
	if err != nil {
		zapLogger.Error("failed to initialize database", zap.Error(err))
		return
	}
	defer db.Close()

	// Create database tables
	if err := database.CreateTables(db, zapLogger); err != nil {
		zapLogger.Error("failed to create tables", zap.Error(err))
		return
	}

	// Build the receipt pipeline
	recordRepo := repository.NewRecordRepository(db, zapLogger)
	recognizer := ocr.NewTesseract(cfg.OCRLangs)
	scanner := ocr.NewScanner(recognizer, cfg.RenderDPI, zapLogger)
	extractor := extract.NewExtractor(zapLogger)
	validator := check.NewValidator(cfg.MinAmount, zapLogger)
	sessions := session.NewStore(cfg.MinAmount, zapLogger)
	exporter := export.NewAggregator(cfg.ExportPath, cfg.ExportSheet, zapLogger)

	pipe := pipeline.New(zapLogger, scanner, extractor, validator, sessions,
		exporter, recordRepo, cfg.OCRWorkers, cfg.OCRTimeout)

	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create handler with the pipeline
	handl := handler.NewHandler(cfg, zapLogger, pipe, recordRepo)

	// Create bot instance
	opts := []bot.Option{
		bot.WithDefaultHandler(handl.DefaultHandler),
	}

	b, err := bot.New(cfg.Token, opts...)
	if err != nil {
		zapLogger.Error("error creating bot", zap.Error(err))
		return
	}

	// Set up graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-stop
		zapLogger.Info("Shutdown signal received")
		cancel()
	}()

	// Start web server
	go handl.StartWebServer(ctx)
	zapLogger.Info("Web server started", zap.String("address", cfg.GetServerAddress()))

	// Start bot
	zapLogger.Info("Bot started successfully")
	b.Start(ctx)

	zapLogger.Info("Application stopped successfully")
}
