// Package pg is the Postgres side of the bot: a pooled client, schema
// migration, scalar aggregate execution and bulk dataset ingestion.
package pg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds the Postgres connection settings.
type Config struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
}

// LoadConfigFromEnv reads the POSTGRES_* environment variables, with local
// development defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		Host:     os.Getenv("POSTGRES_HOST"),
		Port:     os.Getenv("POSTGRES_PORT"),
		Database: os.Getenv("POSTGRES_DB"),
		Username: os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == "" {
		cfg.Port = "5432"
	}
	if cfg.Database == "" {
		cfg.Database = "vidlake"
	}
	if cfg.Username == "" {
		cfg.Username = "vidlake"
	}
	return cfg
}

// ConnString renders a pgx connection string.
func (c Config) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.Username, c.Password, c.Host, c.Port, c.Database,
	)
}

// Client is a pooled Postgres client. The pool is the only resource shared
// across in-flight requests; connections are acquired per query and released
// on every exit path by pgx.
type Client struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewClient connects a pool and verifies it with a ping.
func NewClient(ctx context.Context, log *slog.Logger, cfg Config) (*Client, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	log.Info("connected to postgres", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)
	return &Client{pool: pool, log: log}, nil
}

// Close releases the pool.
func (c *Client) Close() {
	c.pool.Close()
}

// Scalar executes an aggregate query expected to return exactly one numeric
// value.
func (c *Client) Scalar(ctx context.Context, sql string, args ...any) (int64, error) {
	var n int64
	if err := c.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("execute aggregate: %w", err)
	}
	return n, nil
}
