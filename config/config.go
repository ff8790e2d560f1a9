package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config настройки сервиса из окружения
type Config struct {
	// HTTP
	HTTPAddr       string
	MaxUploadBytes int64

	// Хранилище
	DatabasePath string
	UploadDir    string

	// Модель сегментации
	Segmenter        string // http или gocv
	SegmenterURL     string
	SegmenterTimeout time.Duration
	ModelLoadTimeout time.Duration
	PixelsPerMeter   float64

	// Каналы уведомлений, пустое значение отключает канал
	TelegramToken string
	NATSURL       string
	AMQPURL       string
	AMQPExchange  string
	NotifyTimeout time.Duration

	// Карта
	MapTileURL         string
	MapTileAttribution string

	LogLevel string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":5000"),
		MaxUploadBytes: getInt64Env("MAX_UPLOAD_BYTES", 16<<20),

		DatabasePath: getEnv("DATABASE_PATH", "potholes.db"),
		UploadDir:    getEnv("UPLOAD_DIR", "uploads"),

		Segmenter:        getEnv("SEGMENTER", "http"),
		SegmenterURL:     getEnv("SEGMENTER_URL", "http://localhost:8000"),
		SegmenterTimeout: getDurationEnv("SEGMENTER_TIMEOUT", 30*time.Second),
		ModelLoadTimeout: getDurationEnv("MODEL_LOAD_TIMEOUT", 10*time.Minute),
		PixelsPerMeter:   getFloatEnv("PIXELS_PER_METER", 100),

		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		NATSURL:       os.Getenv("NATS_URL"),
		AMQPURL:       os.Getenv("AMQP_URL"),
		AMQPExchange:  getEnv("AMQP_EXCHANGE", "potholes"),
		NotifyTimeout: getDurationEnv("NOTIFY_TIMEOUT", 10*time.Second),

		MapTileURL:         os.Getenv("MAP_TILE_URL"),
		MapTileAttribution: os.Getenv("MAP_TILE_ATTRIBUTION"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// getEnv возвращает переменную окружения или значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
