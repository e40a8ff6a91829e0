package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type App struct {
	Name         string        `yaml:"name" env:"APP_NAME" env-default:"eventmanager"`
	Env          string        `yaml:"env" env:"APP_ENV" env-default:"dev"`
	CacheBackend string        `yaml:"cache_backend" env:"CACHE_BACKEND" env-default:"lru"`
	CacheSize    int           `yaml:"cache_size" env:"CACHE_SIZE" env-default:"1000"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env:"CACHE_TTL" env-default:"0s"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type HTTP struct {
	Port        string `yaml:"port" env:"PORT" env-default:"8080"`
	MetricsPort string `yaml:"metrics_port" env:"METRICS_PORT" env-default:"9091"`
}

type DB struct {
	URL      string `yaml:"url" env:"DATABASE_URL"`
	Host     string `yaml:"host" env:"DB_HOST" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"DB_PORT" env-default:"55432"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"events_db"`
	User     string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"DB_PASSWORD" env-default:"postgres"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
}

// DSN returns DATABASE_URL as is or assembles one from the parts.
func (d DB) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

type Kafka struct {
	Brokers     []string      `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:19092" env-separator:","`
	ClientID    string        `yaml:"client_id" env:"KAFKA_CLIENT_ID" env-default:"eventmanager"`
	Topic       string        `yaml:"topic" env:"EVENTS_TOPIC" env-default:"events"`
	Group       string        `yaml:"group" env:"EVENTS_CONSUMER_GROUP" env-default:"eventcatcher"`
	DLQ         string        `yaml:"dlq" env:"EVENTS_DLQ_TOPIC" env-default:"events-dlq"`
	StartOffset string        `yaml:"start_offset" env:"KAFKA_START_OFFSET" env-default:"earliest"`
	MaxWait     time.Duration `yaml:"max_wait" env:"KAFKA_MAX_WAIT" env-default:"500ms"`
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `yaml:"ttl" env:"REDIS_TTL" env-default:"10m"`
	Prefix   string        `yaml:"prefix" env:"REDIS_PREFIX" env-default:"event:"`
}

// Store points the consumer at the Event Store API.
type Store struct {
	URL     string        `yaml:"url" env:"EVENT_STORE_URL" env-default:"http://localhost:8080"`
	Timeout time.Duration `yaml:"timeout" env:"EVENT_STORE_TIMEOUT" env-default:"5s"`
}

type Retry struct {
	MaxAttempts int           `yaml:"max_attempts" env:"RETRY_MAX_ATTEMPTS" env-default:"5"`
	BaseDelay   time.Duration `yaml:"base_delay" env:"RETRY_BASE_DELAY" env-default:"200ms"`
	MaxDelay    time.Duration `yaml:"max_delay" env:"RETRY_MAX_DELAY" env-default:"10s"`
}

type Consumer struct {
	// Embedded runs the pipeline inside the API server process.
	Embedded        bool `yaml:"embedded" env:"CONSUMER_EMBEDDED" env-default:"false"`
	PartitionBuffer int  `yaml:"partition_buffer" env:"CONSUMER_PARTITION_BUFFER" env-default:"64"`
	MaxBuffered     int  `yaml:"max_buffered" env:"CONSUMER_MAX_BUFFERED" env-default:"4096"`
}

type Failures struct {
	// Sink is one of "postgres", "kafka", "both".
	Sink      string `yaml:"sink" env:"FAILURE_SINK" env-default:"postgres"`
	QueueSize int    `yaml:"queue_size" env:"FAILURE_QUEUE_SIZE" env-default:"1024"`
}

type Config struct {
	App      App      `yaml:"app"`
	Log      Log      `yaml:"log"`
	HTTP     HTTP     `yaml:"http"`
	DB       DB       `yaml:"db"`
	Kafka    Kafka    `yaml:"kafka"`
	Redis    Redis    `yaml:"redis"`
	Store    Store    `yaml:"store"`
	Retry    Retry    `yaml:"retry"`
	Consumer Consumer `yaml:"consumer"`
	Failures Failures `yaml:"failures"`
}

// Load reads CONFIG_PATH (yaml) when it is set and exists, then applies env.
func Load() (Config, error) {
	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("config %s: %w", path, err)
			}
			return cfg, cfg.validate()
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config env: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay > c.Retry.MaxDelay {
		return fmt.Errorf("retry base delay %s exceeds max delay %s", c.Retry.BaseDelay, c.Retry.MaxDelay)
	}
	switch c.Failures.Sink {
	case "postgres", "kafka", "both":
	default:
		return fmt.Errorf("unknown failure sink %q", c.Failures.Sink)
	}
	switch c.Kafka.StartOffset {
	case "earliest", "latest":
	default:
		return fmt.Errorf("unknown start offset %q", c.Kafka.StartOffset)
	}
	return nil
}
