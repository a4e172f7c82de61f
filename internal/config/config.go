package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr  string
	PGDSN     string
	MongoURI  string
	RedisAddr string
	RabbitURL string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	QRDir          string
	IdempotencyTTL time.Duration
	ExpiryInterval time.Duration
	OTLPEndpoint   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	idempTTL, _ := time.ParseDuration(os.Getenv("IDEMPOTENCY_TTL"))
	if idempTTL == 0 {
		idempTTL = time.Hour
	}
	expiryInterval, _ := time.ParseDuration(os.Getenv("TICKET_EXPIRY_INTERVAL"))
	if expiryInterval == 0 {
		expiryInterval = time.Minute
	}

	cfg := &Config{
		HTTPAddr:       os.Getenv("HTTP_ADDR"),
		PGDSN:          os.Getenv("PG_DSN"),
		MongoURI:       os.Getenv("MONGO_URI"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:    os.Getenv("OPENAI_MODEL"),
		QRDir:          os.Getenv("QR_DIR"),
		IdempotencyTTL: idempTTL,
		ExpiryInterval: expiryInterval,
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-3.5-turbo"
	}
	if cfg.QRDir == "" {
		cfg.QRDir = "qr_codes"
	}
	return cfg, nil
}
