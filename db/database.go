package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"musicapi/config"
	"musicapi/logger"

	"github.com/go-sql-driver/mysql"
)

// tracksSchema is the single table backing the API. version drives
// optimistic concurrency on updates.
const tracksSchema = `
CREATE TABLE IF NOT EXISTS tracks (
	id CHAR(36) NOT NULL PRIMARY KEY,
	song VARCHAR(255) NOT NULL,
	artist VARCHAR(255) NOT NULL,
	year INT NOT NULL DEFAULT 0,
	genre VARCHAR(255) NOT NULL DEFAULT '',
	description TEXT,
	duration_sec INT NOT NULL DEFAULT 0,
	bpm INT NOT NULL DEFAULT 0,
	energy INT NOT NULL DEFAULT 0,
	danceability INT NOT NULL DEFAULT 0,
	version BIGINT NOT NULL DEFAULT 1,
	created_at DATETIME(3) NOT NULL,
	updated_at DATETIME(3) NOT NULL,
	INDEX idx_tracks_danceability (danceability),
	INDEX idx_tracks_energy (energy)
) DEFAULT CHARSET=utf8mb4;
`

// DSN builds the MySQL data source name from the configuration.
func DSN(cfg *config.Config) string {
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPassword
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// ConnectDB opens and pings a MySQL connection pool.
func ConnectDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	conn, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	conn.SetMaxOpenConns(cfg.DBMaxOpenConns)
	conn.SetMaxIdleConns(cfg.DBMaxIdleConns)
	conn.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database",
		logger.String("host", cfg.DBHost),
		logger.String("database", cfg.DBName))
	return conn, nil
}

// InitDB creates the tracks table if it does not exist yet.
func InitDB(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, tracksSchema); err != nil {
		return fmt.Errorf("failed to create tracks table: %w", err)
	}
	logger.Info("Tracks table initialized (or already exists)")
	return nil
}
