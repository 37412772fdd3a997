package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Email    EmailConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
	Resale   ResaleConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	From         string
}

type RedisConfig struct {
	Addr     string
	CacheTTL time.Duration
}

// Enabled reports whether a Redis page cache should be wired up.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type KafkaConfig struct {
	Brokers []string
	Topics  TopicConfig
	Enabled bool
}

type TopicConfig struct {
	TicketAvailability string
	AlertSent          string
}

type DatabaseConfig struct {
	// PostgresDSN selects the Postgres driver when set; otherwise the
	// service runs on a local sqlite file.
	PostgresDSN string
	SQLitePath  string
}

type ResaleConfig struct {
	// BaseURL is the root of the scraped site, used to derive the ticket
	// widget endpoint from an event's numeric id.
	BaseURL      string
	FetchTimeout time.Duration
	UserAgent    string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("SMTP_FROM", "resale.alerts@gmail.com"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			CacheTTL: time.Duration(getEnvInt("REDIS_CACHE_TTL_SECONDS", 60)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Topics: TopicConfig{
				TicketAvailability: getEnv("KAFKA_TOPIC_AVAILABILITY", "resale.tickets.availability"),
				AlertSent:          getEnv("KAFKA_TOPIC_ALERT_SENT", "resale.alerts.sent"),
			},
		},
		Database: DatabaseConfig{
			PostgresDSN: getEnv("POSTGRES_DSN", ""),
			SQLitePath:  getEnv("SQLITE_PATH", "resale.db"),
		},
		Resale: ResaleConfig{
			BaseURL:      getEnv("RESALE_BASE_URL", "https://www.residentadvisor.net"),
			FetchTimeout: time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 10)) * time.Second,
			UserAgent: getEnv("FETCH_USER_AGENT",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
