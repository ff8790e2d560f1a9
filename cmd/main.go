package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"pothole-watch/config"
	"pothole-watch/internal/api/httpapi"
	"pothole-watch/internal/api/telegram"
	"pothole-watch/internal/container"
	"pothole-watch/internal/domain/calibration"
	"pothole-watch/internal/infrastructure/notify"
	"pothole-watch/internal/infrastructure/render"
	"pothole-watch/internal/infrastructure/segmentation"
	"pothole-watch/internal/infrastructure/storage"
	"pothole-watch/internal/infrastructure/vision"
	"pothole-watch/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if level == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Хранилища
	db, err := storage.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	images, err := storage.NewFileImageStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to prepare upload dir: %v", err)
	}

	m := metrics.New(nil)

	// Модель загружается в фоне, до готовности запросы получают model_not_ready
	adapter := segmentation.NewAdapter(newPredictor(cfg), cfg.ModelLoadTimeout)
	adapter.Start(ctx)
	go func() {
		select {
		case <-adapter.Loaded():
			m.SetModelReady(adapter.Ready())
		case <-ctx.Done():
		}
	}()

	// Собираем сервисы приложения
	appContainer := container.New(container.Deps{
		Users:       storage.NewMemoryUserRepository(),
		Reports:     storage.NewReportRepository(db),
		Images:      images,
		Segmenter:   adapter,
		Calibration: calibration.Calibration{PixelsPerMeter: cfg.PixelsPerMeter},
		Exporter:    render.NewPDFExporter(),
		Maps:        render.NewMapRenderer(cfg.MapTileURL, cfg.MapTileAttribution),
		Metrics:     m,

		NotifyTimeout: cfg.NotifyTimeout,
	})

	hub := notify.NewHub()
	go hub.Run(ctx)
	appContainer.Notifier.Add("websocket", hub)

	if cfg.NATSURL != "" {
		publisher, err := notify.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer publisher.Close()
		appContainer.Notifier.Add("nats", publisher)
	}

	if cfg.AMQPURL != "" {
		publisher, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
		appContainer.Notifier.Add("amqp", publisher)
	}

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, appContainer)
		if err != nil {
			log.Fatalf("Failed to create bot: %v", err)
		}
		appContainer.Notifier.Add("telegram", bot.Notifier())

		go func() {
			log.Info("Bot is running...")
			if err := bot.Run(ctx); err != nil {
				log.Errorf("Bot error: %v", err)
			}
		}()
	} else {
		log.Info("TELEGRAM_TOKEN is not set, bot disabled")
	}

	handlers := httpapi.NewHandlers(appContainer.DetectionService, appContainer.ReportService, hub, cfg.MaxUploadBytes)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handlers, nil),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      2 * cfg.SegmenterTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Infof("Starting HTTP server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

func newPredictor(cfg *config.Config) segmentation.Predictor {
	switch cfg.Segmenter {
	case "gocv":
		return vision.NewGoCVPredictor()
	case "http":
		return segmentation.NewHTTPPredictor(cfg.SegmenterURL, cfg.SegmenterTimeout)
	default:
		log.Warnf("Unknown SEGMENTER %q, using http", cfg.Segmenter)
		return segmentation.NewHTTPPredictor(cfg.SegmenterURL, cfg.SegmenterTimeout)
	}
}
