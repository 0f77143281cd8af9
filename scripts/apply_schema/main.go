package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/noah-isme/gift-approval-api/pkg/config"
	"github.com/noah-isme/gift-approval-api/pkg/database"
)

func main() {
	var (
		schemaPath string
		timeout    time.Duration
	)

	flag.StringVar(&schemaPath, "schema", filepath.Join("scripts", "schema.sql"), "Path to the SQL schema file")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Statement timeout")
	flag.Parse()

	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		log.Fatalf("failed to read schema: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// lib/pq runs a multi-statement string as one simple query.
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}
	log.Printf("schema %s applied to %s/%s", schemaPath, cfg.Database.Host, cfg.Database.Name)
}
