package main

import (
	"context"
	"database/sql"
	"flag"
	"log"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	alertsdb "ra-resale/internal/alerts/db"
	"ra-resale/internal/config"
)

// Creates the events/tickets/trackers tables for whichever database the
// service is configured against.

func main() {
	drop := flag.Bool("drop", false, "drop existing tables first")
	flag.Parse()

	ctx := context.Background()

	_ = godotenv.Load()
	cfg := config.Load().Database

	var bunDB *bun.DB
	if cfg.PostgresDSN != "" {
		sqldb, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("Failed to open PostgreSQL: %v", err)
		}
		bunDB = bun.NewDB(sqldb, pgdialect.New())
	} else {
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to open sqlite: %v", err)
		}
		if _, err := sqldb.Exec("PRAGMA foreign_keys = ON"); err != nil {
			log.Fatalf("Failed to enable foreign keys: %v", err)
		}
		bunDB = bun.NewDB(sqldb, sqlitedialect.New())
	}
	defer bunDB.Close()

	if err := bunDB.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store := &alertsdb.DB{Bun: bunDB}

	if *drop {
		log.Println("Dropping tables...")
		if err := store.DropSchema(ctx); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	log.Println("Creating tables...")
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}
	log.Println("Done.")
}
