package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/pratik-mahalle/incidents/internal/config"
	"github.com/pratik-mahalle/incidents/internal/pkg/logger"
	"github.com/pratik-mahalle/incidents/internal/repository/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})

	ctx := context.Background()

	db, err := sqlite.Open(ctx, cfg.Database)
	if err != nil {
		log.ErrorWithErr(err, "Failed to migrate database")
		os.Exit(1)
	}
	defer db.Close()

	versions, err := appliedVersions(ctx, db)
	if err != nil {
		log.ErrorWithErr(err, "Failed to read migration history")
		os.Exit(1)
	}

	fmt.Printf("Database: %s\n", cfg.Database.Path)
	for _, v := range versions {
		fmt.Printf("  applied %s\n", v)
	}
	fmt.Println("All migrations completed successfully!")
}

func appliedVersions(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
