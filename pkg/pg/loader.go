package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidlake/vidlake/pkg/plan"
)

// Dataset is the bulk-import document: videos with their snapshots nested.
type Dataset struct {
	Videos []Video `json:"videos"`
}

// Video is one imported video record.
type Video struct {
	ID             string     `json:"id"`
	CreatorID      string     `json:"creator_id"`
	VideoCreatedAt Timestamp  `json:"video_created_at"`
	ViewsCount     int64      `json:"views_count"`
	LikesCount     int64      `json:"likes_count"`
	CommentsCount  int64      `json:"comments_count"`
	ReportsCount   int64      `json:"reports_count"`
	CreatedAt      Timestamp  `json:"created_at"`
	UpdatedAt      Timestamp  `json:"updated_at"`
	Snapshots      []Snapshot `json:"snapshots"`
}

// Snapshot is one imported hourly snapshot record.
type Snapshot struct {
	ID                 string    `json:"id"`
	VideoID            string    `json:"video_id"`
	ViewsCount         int64     `json:"views_count"`
	LikesCount         int64     `json:"likes_count"`
	CommentsCount      int64     `json:"comments_count"`
	ReportsCount       int64     `json:"reports_count"`
	DeltaViewsCount    int64     `json:"delta_views_count"`
	DeltaLikesCount    int64     `json:"delta_likes_count"`
	DeltaCommentsCount int64     `json:"delta_comments_count"`
	DeltaReportsCount  int64     `json:"delta_reports_count"`
	CreatedAt          Timestamp `json:"created_at"`
	UpdatedAt          Timestamp `json:"updated_at"`
}

// Timestamp decodes the dataset's timestamp strings, which come in both
// RFC 3339 and bare forms.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := plan.ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// LoadDataset bulk-loads the dataset into both tables with COPY, inside one
// transaction. Returns the number of video and snapshot rows written.
func (c *Client) LoadDataset(ctx context.Context, ds *Dataset) (int64, int64, error) {
	videoRows := make([][]any, 0, len(ds.Videos))
	var snapshotRows [][]any

	for _, v := range ds.Videos {
		videoRows = append(videoRows, []any{
			v.ID, v.CreatorID, v.VideoCreatedAt.Time,
			v.ViewsCount, v.LikesCount, v.CommentsCount, v.ReportsCount,
			v.CreatedAt.Time, v.UpdatedAt.Time,
		})
		for _, s := range v.Snapshots {
			snapshotRows = append(snapshotRows, []any{
				s.ID, s.VideoID,
				s.ViewsCount, s.LikesCount, s.CommentsCount, s.ReportsCount,
				s.DeltaViewsCount, s.DeltaLikesCount, s.DeltaCommentsCount, s.DeltaReportsCount,
				s.CreatedAt.Time, s.UpdatedAt.Time,
			})
		}
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin load transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	videos, err := tx.CopyFrom(ctx,
		pgx.Identifier{"videos"},
		[]string{
			"id", "creator_id", "video_created_at",
			"views_count", "likes_count", "comments_count", "reports_count",
			"created_at", "updated_at",
		},
		pgx.CopyFromRows(videoRows),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("copy videos: %w", err)
	}

	snapshots, err := tx.CopyFrom(ctx,
		pgx.Identifier{"video_snapshots"},
		[]string{
			"id", "video_id",
			"views_count", "likes_count", "comments_count", "reports_count",
			"delta_views_count", "delta_likes_count", "delta_comments_count", "delta_reports_count",
			"created_at", "updated_at",
		},
		pgx.CopyFromRows(snapshotRows),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("copy video_snapshots: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit load transaction: %w", err)
	}
	return videos, snapshots, nil
}
