package pg

import (
	"context"
	"fmt"
)

// Migrate creates the two relations if they do not exist. The created_at and
// updated_at bookkeeping columns on videos are not part of the queryable
// field catalog.
func (c *Client) Migrate(ctx context.Context) error {
	c.log.Info("running postgres migrations")

	_, err := c.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS videos (
			id TEXT PRIMARY KEY,
			creator_id TEXT NOT NULL,
			video_created_at TIMESTAMPTZ NOT NULL,
			views_count BIGINT NOT NULL,
			likes_count BIGINT NOT NULL,
			comments_count BIGINT NOT NULL,
			reports_count BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create videos table: %w", err)
	}

	_, err = c.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS video_snapshots (
			id TEXT PRIMARY KEY,
			video_id TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
			views_count BIGINT NOT NULL,
			likes_count BIGINT NOT NULL,
			comments_count BIGINT NOT NULL,
			reports_count BIGINT NOT NULL,
			delta_views_count BIGINT NOT NULL,
			delta_likes_count BIGINT NOT NULL,
			delta_comments_count BIGINT NOT NULL,
			delta_reports_count BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create video_snapshots table: %w", err)
	}

	_, err = c.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_video_snapshots_video_id
		ON video_snapshots (video_id)
	`)
	if err != nil {
		return fmt.Errorf("failed to create video_snapshots index: %w", err)
	}

	return nil
}
