package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	mobilityapp "central-backend/internal/mobility/application"
	mobilityrepo "central-backend/internal/mobility/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type config struct {
	dbURL   string
	table   string
	timeout time.Duration
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	db, err := sql.Open("pgx", cfg.dbURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db open:", err)
		os.Exit(2)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "db ping:", err)
		os.Exit(2)
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)
	repo := mobilityrepo.NewCDRRepository(db, mobilityrepo.WithTable(cfg.table))
	reconciler, err := mobilityapp.NewReconciler(repo, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "reconciler:", err)
		os.Exit(2)
	}

	closed, err := reconciler.Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "reconcile:", err)
		os.Exit(1)
	}
	fmt.Printf("closed %d dangling departures\n", closed)
}

func parseFlags() (config, error) {
	var cfg config
	flag.StringVar(&cfg.dbURL, "db", getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")), "Postgres DSN")
	flag.StringVar(&cfg.table, "table", "", "records table name (default cdr_records)")
	flag.DurationVar(&cfg.timeout, "timeout", time.Minute, "overall timeout")
	flag.Parse()

	if cfg.dbURL == "" {
		return cfg, errors.New("missing --db or DATABASE_URL/PG_DSN")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
