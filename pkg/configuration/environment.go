package configuration

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jacksonlee411/orgtimeline/pkg/logging"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type APIOptions struct {
	BaseURL       string        `env:"ORG_API_BASE_URL" envDefault:"http://localhost:3200"`
	Authorization string        `env:"ORG_API_AUTHORIZATION"`
	Timeout       time.Duration `env:"ORG_API_TIMEOUT" envDefault:"15s"`
	RetryMax      int           `env:"ORG_API_RETRY_MAX" envDefault:"3"`
}

// Validate checks the remote API configuration for errors
func (a *APIOptions) Validate() error {
	u, err := url.Parse(strings.TrimSpace(a.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid ORG_API_BASE_URL=%q", a.BaseURL)
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("ORG_API_TIMEOUT must be positive, got %s", a.Timeout)
	}
	if a.RetryMax < 0 {
		return fmt.Errorf("ORG_API_RETRY_MAX must be non-negative, got %d", a.RetryMax)
	}
	return nil
}

type CandidateCacheOptions struct {
	TTL              time.Duration `env:"ORG_CANDIDATE_CACHE_TTL" envDefault:"5m"`
	PageSize         int           `env:"ORG_CANDIDATE_PAGE_SIZE" envDefault:"500"`
	Storage          string        `env:"ORG_CANDIDATE_CACHE_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL         string        `env:"ORG_CANDIDATE_CACHE_REDIS_URL"`
	FallbackRootCode string        `env:"ORG_FALLBACK_ROOT_CODE" envDefault:"1000000"`
	FallbackRootName string        `env:"ORG_FALLBACK_ROOT_NAME" envDefault:"Root Organization"`
}

// Validate checks the candidate cache configuration for errors
func (c *CandidateCacheOptions) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("ORG_CANDIDATE_CACHE_TTL must be positive, got %s", c.TTL)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("ORG_CANDIDATE_PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	storage := strings.ToLower(strings.TrimSpace(c.Storage))
	if storage == "" {
		storage = "memory"
	}
	if storage != "memory" && storage != "redis" {
		return fmt.Errorf("ORG_CANDIDATE_CACHE_STORAGE must be 'memory' or 'redis', got '%s'", c.Storage)
	}
	if storage == "redis" && strings.TrimSpace(c.RedisURL) == "" {
		return fmt.Errorf("ORG_CANDIDATE_CACHE_REDIS_URL is required when storage is 'redis'")
	}
	if strings.TrimSpace(c.FallbackRootCode) == "" {
		return fmt.Errorf("ORG_FALLBACK_ROOT_CODE must not be empty")
	}
	c.Storage = storage
	return nil
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
	Addr    string `env:"PROMETHEUS_METRICS_ADDR" envDefault:"127.0.0.1:9464"`
}

type Configuration struct {
	API            APIOptions
	CandidateCache CandidateCacheOptions
	Prometheus     PrometheusOptions

	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH"`
	// Every outgoing request carries a fresh uuid in this header.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) IsProduction() bool {
	return c.GoAppEnvironment == Production
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

// Load builds a configuration outside the process-wide singleton.
func Load(envFiles []string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 && len(envFiles) > 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api configuration error: %w", err)
	}
	if err := c.CandidateCache.Validate(); err != nil {
		return fmt.Errorf("candidate cache configuration error: %w", err)
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	if c.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	c.logFile = f
	c.logger = logger

	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
