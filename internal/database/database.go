package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"time"

	"restaurant_pos_backend/internal/config"
	"restaurant_pos_backend/pkg/utils"

	_ "github.com/lib/pq" // PostgreSQL driver
)

//go:embed schema.sql
var embeddedSchema string

// Open initializes the database connection pool and verifies it with a ping.
func Open(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	utils.LogInfo("Successfully connected to the database", map[string]interface{}{
		"host": cfg.DBHost, "name": cfg.DBName,
	})
	return db, nil
}

// ApplySchema executes the schema file at schemaPath, or the embedded
// schema when the path is empty. Every statement is idempotent.
func ApplySchema(ctx context.Context, db *sql.DB, schemaPath string) error {
	script := embeddedSchema
	source := "embedded"
	if schemaPath != "" {
		content, err := os.ReadFile(schemaPath)
		if err != nil {
			return fmt.Errorf("could not read schema file %s: %w", schemaPath, err)
		}
		script = string(content)
		source = schemaPath
	}

	if _, err := db.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("could not execute schema script: %w", err)
	}
	utils.LogInfo("Database schema applied", map[string]interface{}{"source": source})
	return nil
}
