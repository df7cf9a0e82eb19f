package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"sjsage522/promoworker/pkg/errors"
)

// Publisher sink names accepted in PUBLISHERS
const (
	PublisherTelegram = "telegram"
	PublisherRedis    = "redis"
	PublisherKafka    = "kafka"
)

// Catalog kinds accepted in CATALOG_KIND
const (
	CatalogAPI  = "api"
	CatalogHTML = "html"
)

const (
	minSearchLimit = 1
	maxSearchLimit = 10
)

// Config represents the application configuration
type Config struct {
	// Telegram configuration
	TelegramToken string
	ChatID        string

	// Publishers to fan out to, in order
	Publishers []string
	DryRun     bool

	// Redis stream mirror
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Kafka mirror
	KafkaBrokers []string
	KafkaTopic   string

	// Memcache configuration, empty disables catalog block keys
	MemcacheAddr string

	// Catalog configuration
	CatalogKind       string
	CatalogFile       string
	CatalogRPS        float64
	CatalogBlockTime  time.Duration
	SearchLimit       int
	ClassifyByKeyword bool

	// Publishing policy
	SendDelay          time.Duration
	MinDiscountPercent int
	MinRating          *float64
	CurrencySymbol     string

	// Scheduling
	RunInterval time.Duration
	RunSchedule string

	// Environment
	Environment string

	parseErrs []error
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	cfg := &Config{}

	cfg.TelegramToken = getEnv("TELEGRAM_TOKEN", "")
	cfg.ChatID = getEnv("CHAT_ID", "")
	cfg.Publishers = splitList(getEnv("PUBLISHERS", PublisherTelegram))
	cfg.DryRun = cfg.getBool("DRY_RUN", false)

	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisDB = cfg.getInt("REDIS_DB", 0)
	cfg.RedisStream = getEnv("REDIS_STREAM", "promos")
	cfg.RedisStreamMaxLength = cfg.getInt("REDIS_STREAM_MAX_LENGTH", 1000)

	cfg.KafkaBrokers = splitList(getEnv("KAFKA_BROKERS", "localhost:9092"))
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "promos")

	cfg.MemcacheAddr = getEnv("MEMCACHE_ADDR", "")

	cfg.CatalogKind = strings.ToLower(getEnv("CATALOG_KIND", CatalogAPI))
	cfg.CatalogFile = getEnv("CATALOG_FILE", "")
	cfg.CatalogRPS = cfg.getFloat("CATALOG_RPS", 1)
	cfg.CatalogBlockTime = time.Duration(cfg.getInt("CATALOG_BLOCK_SECONDS", 300)) * time.Second
	cfg.SearchLimit = cfg.getInt("SEARCH_LIMIT", 5)
	cfg.ClassifyByKeyword = cfg.getBool("CLASSIFY_BY_KEYWORD", true)

	cfg.SendDelay = time.Duration(cfg.getInt("SEND_DELAY_SECONDS", 3)) * time.Second
	cfg.MinDiscountPercent = cfg.getInt("MIN_DISCOUNT_PERCENT", 30)
	if v := getEnv("MIN_RATING", ""); v != "" {
		rating := cfg.getFloat("MIN_RATING", 0)
		cfg.MinRating = &rating
	}
	cfg.CurrencySymbol = getEnv("CURRENCY_SYMBOL", "€")

	cfg.RunInterval = cfg.getDuration("RUN_INTERVAL", time.Hour)
	cfg.RunSchedule = getEnv("RUN_SCHEDULE", "")

	cfg.Environment = getEnv("PROMO_ENVIRONMENT", "development")

	return cfg
}

// Validate checks the configuration and returns a configuration error
// describing every problem found
func (c *Config) Validate() error {
	errs := append([]error(nil), c.parseErrs...)

	if c.HasPublisher(PublisherTelegram) && !c.DryRun {
		if c.TelegramToken == "" {
			errs = append(errs, fmt.Errorf("TELEGRAM_TOKEN is required"))
		}
		if c.ChatID == "" {
			errs = append(errs, fmt.Errorf("CHAT_ID is required"))
		}
	}
	if len(c.Publishers) == 0 && !c.DryRun {
		errs = append(errs, fmt.Errorf("PUBLISHERS must name at least one sink"))
	}
	for _, p := range c.Publishers {
		switch p {
		case PublisherTelegram, PublisherRedis, PublisherKafka:
		default:
			errs = append(errs, fmt.Errorf("unknown publisher %q", p))
		}
	}
	if c.HasPublisher(PublisherKafka) && len(c.KafkaBrokers) == 0 {
		errs = append(errs, fmt.Errorf("KAFKA_BROKERS is required for the kafka publisher"))
	}

	switch c.CatalogKind {
	case CatalogAPI, CatalogHTML:
	default:
		errs = append(errs, fmt.Errorf("CATALOG_KIND must be %q or %q, got %q", CatalogAPI, CatalogHTML, c.CatalogKind))
	}
	if c.SearchLimit < minSearchLimit || c.SearchLimit > maxSearchLimit {
		errs = append(errs, fmt.Errorf("SEARCH_LIMIT must be between %d and %d, got %d", minSearchLimit, maxSearchLimit, c.SearchLimit))
	}
	if c.CatalogRPS < 0 {
		errs = append(errs, fmt.Errorf("CATALOG_RPS must not be negative"))
	}
	if c.SendDelay < 0 {
		errs = append(errs, fmt.Errorf("SEND_DELAY_SECONDS must not be negative"))
	}
	if c.MinDiscountPercent < 0 || c.MinDiscountPercent > 100 {
		errs = append(errs, fmt.Errorf("MIN_DISCOUNT_PERCENT must be between 0 and 100, got %d", c.MinDiscountPercent))
	}
	if c.MinRating != nil && (*c.MinRating < 0 || *c.MinRating > 5) {
		errs = append(errs, fmt.Errorf("MIN_RATING must be between 0 and 5, got %v", *c.MinRating))
	}
	if c.RunSchedule == "" && c.RunInterval <= 0 {
		errs = append(errs, fmt.Errorf("RUN_INTERVAL must be positive"))
	}
	if _, err := c.Schedule(); err != nil && c.RunSchedule != "" {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.NewConfiguration("invalid configuration", stderrors.Join(errs...))
	}
	return nil
}

// Schedule returns the run schedule: RUN_SCHEDULE when set, otherwise a
// constant delay of RUN_INTERVAL
func (c *Config) Schedule() (cron.Schedule, error) {
	if c.RunSchedule == "" {
		return cron.Every(c.RunInterval), nil
	}
	schedule, err := cron.ParseStandard(c.RunSchedule)
	if err != nil {
		return nil, fmt.Errorf("RUN_SCHEDULE %q: %w", c.RunSchedule, err)
	}
	return schedule, nil
}

// HasPublisher reports whether the named sink is enabled
func (c *Config) HasPublisher(name string) bool {
	for _, p := range c.Publishers {
		if p == name {
			return true
		}
	}
	return false
}

func (c *Config) getInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("%s: %q is not an integer", key, value))
		return defaultValue
	}
	return n
}

func (c *Config) getFloat(key string, defaultValue float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("%s: %q is not a number", key, value))
		return defaultValue
	}
	return f
}

func (c *Config) getBool(key string, defaultValue bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("%s: %q is not a boolean", key, value))
		return defaultValue
	}
	return b
}

func (c *Config) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("%s: %q is not a duration", key, value))
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
