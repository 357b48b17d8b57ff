package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"surveypulse/api/config"
)

type DBClient struct {
	DB     *sql.DB
	Driver string
}

// NewSQLDB opens the configured SQL database, waits for it to accept
// connections and creates the schema.
func NewSQLDB(ctx context.Context, cfg config.DatabaseConfig) (*DBClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	driverName := cfg.Driver
	if driverName == "" {
		driverName = "postgres"
	}

	db, err := sql.Open(driverName, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("error opening database connection: %w", err)
	}

	if driverName == "sqlite" {
		// A single connection keeps in-memory databases shared and avoids
		// SQLITE_BUSY on concurrent writes.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := pingWithBackoff(ctx, db, cfg.ConnectTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database (ping failed): %w", err)
	}

	if err := CreateSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	log.WithField("driver", driverName).Info("Successfully connected to SQL database")
	return &DBClient{DB: db, Driver: driverName}, nil
}

// pingWithBackoff retries the initial ping so the API can start before the
// database container is ready.
func pingWithBackoff(ctx context.Context, db *sql.DB, maxWait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = maxWait

	attempt := 0
	operation := func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			log.WithError(err).WithField("attempt", attempt).Warn("database not ready, retrying")
			return err
		}
		return nil
	}

	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}

func (c *DBClient) Close() {
	if c.DB != nil {
		err := c.DB.Close()
		if err != nil {
			log.Printf("Error closing database connection: %v", err)
		} else {
			log.Println("SQL database connection closed.")
		}
	}
}
