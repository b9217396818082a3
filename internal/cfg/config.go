package cfg

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPPort   = "3001"
	defaultIPFSAPIURL = "http://127.0.0.1:5001"
	defaultGatewayURL = "https://ipfs.io/ipfs/"
	defaultUploadDir  = "uploads"
	defaultKafkaTopic = "proof-events"
)

type Config struct {
	HTTPPort string

	IPFSAPIURL  string
	GatewayURL  string
	IPFSTimeout time.Duration

	UploadDir      string
	MaxUploadBytes int64

	AllowedCORSOrigins []string

	LogLevel  string
	LogFormat string
	LogFile   string

	KafkaBrokers        []string
	KafkaTopic          string
	EventPublishTimeout time.Duration

	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	IdleTimeout         time.Duration
	ShutdownGracePeriod time.Duration
}

// Load читает .env (если есть) и переменные окружения
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		HTTPPort:            getEnv("PORT", defaultHTTPPort),
		IPFSAPIURL:          strings.TrimRight(getEnv("IPFS_API_URL", defaultIPFSAPIURL), "/"),
		GatewayURL:          getEnv("IPFS_GATEWAY_URL", defaultGatewayURL),
		IPFSTimeout:         getEnvDuration("IPFS_TIMEOUT", 2*time.Minute),
		UploadDir:           getEnv("UPLOAD_DIR", defaultUploadDir),
		MaxUploadBytes:      getEnvInt64("MAX_UPLOAD_BYTES", 0),
		AllowedCORSOrigins:  parseCSVEnv("ALLOWED_ORIGINS"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		LogFile:             getEnv("LOG_FILE", ""),
		KafkaBrokers:        parseCSVEnv("KAFKA_BROKERS"),
		KafkaTopic:          getEnv("KAFKA_TOPIC", defaultKafkaTopic),
		EventPublishTimeout: getEnvDuration("EVENT_PUBLISH_TIMEOUT", 5*time.Second),
		ReadHeaderTimeout:   getEnvDuration("READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:         getEnvDuration("READ_TIMEOUT", 0),
		WriteTimeout:        getEnvDuration("WRITE_TIMEOUT", 0),
		IdleTimeout:         getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
		ShutdownGracePeriod: getEnvDuration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	port, err := strconv.Atoi(c.HTTPPort)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("PORT must be a number in 1..65535, got %q", c.HTTPPort)
	}

	u, err := url.Parse(c.IPFSAPIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("IPFS_API_URL must be an absolute URL, got %q", c.IPFSAPIURL)
	}
	if strings.TrimSpace(c.GatewayURL) == "" {
		return errors.New("IPFS_GATEWAY_URL is required")
	}
	if strings.TrimSpace(c.UploadDir) == "" {
		return errors.New("UPLOAD_DIR is required")
	}
	if c.MaxUploadBytes < 0 {
		return errors.New("MAX_UPLOAD_BYTES must not be negative")
	}

	for name, d := range map[string]time.Duration{
		"IPFS_TIMEOUT":          c.IPFSTimeout,
		"READ_HEADER_TIMEOUT":   c.ReadHeaderTimeout,
		"READ_TIMEOUT":          c.ReadTimeout,
		"WRITE_TIMEOUT":         c.WriteTimeout,
		"IDLE_TIMEOUT":          c.IdleTimeout,
		"SHUTDOWN_GRACE_PERIOD": c.ShutdownGracePeriod,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	if c.EventsEnabled() {
		if strings.TrimSpace(c.KafkaTopic) == "" {
			return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
		}
		if c.EventPublishTimeout <= 0 {
			return errors.New("EVENT_PUBLISH_TIMEOUT must be positive when KAFKA_BROKERS is set")
		}
	}
	return nil
}

func (c Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c Config) Addr() string {
	return ":" + c.HTTPPort
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseCSVEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
