package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ra-resale/internal/alerts"
	"ra-resale/internal/alerts/api"
	alertsdb "ra-resale/internal/alerts/db"
	"ra-resale/internal/config"
	"ra-resale/internal/fetch"
	"ra-resale/internal/kafka"
	"ra-resale/internal/logger"
	"ra-resale/internal/mail"
)

func openDatabase(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	if cfg.PostgresDSN != "" {
		var sqldb *sql.DB
		var err error
		maxRetries := 5

		for i := 0; i < maxRetries; i++ {
			log.Info("DATABASE", fmt.Sprintf("Connecting to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
			sqldb, err = sql.Open("postgres", cfg.PostgresDSN)
			if err == nil {
				err = sqldb.Ping()
			}
			if err == nil {
				break
			}
			log.Error("DATABASE", fmt.Sprintf("PostgreSQL connection failed: %v", err))
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
		}

		log.Info("DATABASE", "PostgreSQL connection successful")
		return bun.NewDB(sqldb, pgdialect.New())
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.SQLitePath)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open sqlite database: %v", err))
	}
	if _, err := sqldb.Exec("PRAGMA foreign_keys = ON"); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to enable sqlite foreign keys: %v", err))
	}

	log.Info("DATABASE", fmt.Sprintf("Using sqlite database at %s", cfg.SQLitePath))
	return bun.NewDB(sqldb, sqlitedialect.New())
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting resale alerts service")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()

	bunDB := openDatabase(cfg.Database, log)
	defer bunDB.Close()

	fetcher := fetch.NewClient(cfg.Resale.FetchTimeout, cfg.Resale.UserAgent)
	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn("REDIS", fmt.Sprintf("Redis unreachable, page cache disabled: %v", err))
		} else {
			defer redisClient.Close()
			fetcher = fetcher.WithCache(fetch.NewCache(redisClient, cfg.Redis.CacheTTL))
			log.Info("REDIS", fmt.Sprintf("Page cache enabled via %s", cfg.Redis.Addr))
		}
	}

	service := alerts.NewService(
		&alertsdb.DB{Bun: bunDB},
		fetcher,
		mail.NewSMTP(cfg.Email),
		cfg.Resale.BaseURL,
	)
	service.Logger = log

	if cfg.Kafka.Enabled {
		topics := []string{cfg.Kafka.Topics.TicketAvailability, cfg.Kafka.Topics.AlertSent}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.TicketAvailability, cfg.Kafka.Topics.AlertSent)
		defer producer.Close()
		service.Publisher = producer
		log.Info("KAFKA", "Producer initialized")
	}

	handler := api.NewHandler(service, log)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	log.Info("ROUTER", "Subscribe endpoint registered at /, cron endpoints at /update /send /prune")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Resale alerts service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Shutdown complete")
	}
}
