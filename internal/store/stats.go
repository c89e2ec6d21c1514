package store

import (
	"context"
	"database/sql"
	"os"
	"time"
)

// Stats holds storage statistics.
type Stats struct {
	DBPath          string           `json:"db_path"`
	DBSizeBytes     int64            `json:"db_size_bytes"`
	TotalRecords    int              `json:"total_records"`
	Categories      int              `json:"categories"`
	SizeBytes       int64            `json:"size_bytes"`
	TotalVersions   int              `json:"total_versions"`
	OldestCreatedAt *time.Time       `json:"oldest_created_at,omitempty"`
	NewestCreatedAt *time.Time       `json:"newest_created_at,omitempty"`
	Namespaces      []NamespaceStats `json:"namespaces,omitempty"`
}

// NamespaceStats holds per-namespace counts.
type NamespaceStats struct {
	Namespace string `json:"namespace"`
	Records   int    `json:"records"`
}

// Stats returns storage statistics: record and category counts, stored
// bytes (value plus metadata length), and the created_at extremes.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path}

	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&st.TotalRecords)
	s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT category) FROM records`).Scan(&st.Categories)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM versions`).Scan(&st.TotalVersions)
	s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(LENGTH(value) + LENGTH(COALESCE(metadata, ''))), 0) FROM records`).Scan(&st.SizeBytes)

	var oldest, newest sql.NullString
	s.db.QueryRowContext(ctx, `SELECT MIN(created_at), MAX(created_at) FROM records`).Scan(&oldest, &newest)
	if oldest.Valid {
		if t, err := time.Parse(timeLayout, oldest.String); err == nil {
			st.OldestCreatedAt = &t
		}
	}
	if newest.Valid {
		if t, err := time.Parse(timeLayout, newest.String); err == nil {
			st.NewestCreatedAt = &t
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT ns, COUNT(*) FROM records GROUP BY ns ORDER BY COUNT(*) DESC`)
	if err != nil {
		return st, storageErr("stats", "", "", "", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ns NamespaceStats
		rows.Scan(&ns.Namespace, &ns.Records)
		st.Namespaces = append(st.Namespaces, ns)
	}

	return st, nil
}
