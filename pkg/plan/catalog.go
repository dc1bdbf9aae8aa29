package plan

import "strings"

// Field catalogs are fixed. Context-dependent resolution (primary entity
// first, join target second) is an explicit rule in the validator and the
// compiler, never an inherited lookup.

var videoFields = map[string]struct{}{
	"id":               {},
	"creator_id":       {},
	"video_created_at": {},
	"views_count":      {},
	"likes_count":      {},
	"comments_count":   {},
	"reports_count":    {},
}

var snapshotFields = map[string]struct{}{
	"id":                   {},
	"video_id":             {},
	"views_count":          {},
	"likes_count":          {},
	"comments_count":       {},
	"reports_count":        {},
	"delta_views_count":    {},
	"delta_likes_count":    {},
	"delta_comments_count": {},
	"delta_reports_count":  {},
	"created_at":           {},
}

const (
	deltaPrefix = "delta_"

	// snapshotForeignKey is the one field a count over delta data may target,
	// as "count distinct videos that had any snapshot".
	snapshotForeignKey = "video_id"
)

// HasField reports whether name is in the field catalog of e.
func HasField(e Entity, name string) bool {
	switch e {
	case EntityVideo:
		_, ok := videoFields[name]
		return ok
	case EntityVideoSnapshots:
		_, ok := snapshotFields[name]
		return ok
	}
	return false
}

// IsDeltaField reports whether name is a per-snapshot delta field.
func IsDeltaField(name string) bool {
	return strings.HasPrefix(name, deltaPrefix)
}

// DateField returns the column date filters bound against for e.
func DateField(e Entity) string {
	if e == EntityVideoSnapshots {
		return "created_at"
	}
	return "video_created_at"
}
