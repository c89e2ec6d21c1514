package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yte121/openswarm-sub022/internal/model"
)

// QueryLive returns live records matching the filter. All predicates are
// ANDed; the text predicate goes through the FTS index.
func (s *SQLiteStore) QueryLive(ctx context.Context, f Filter) ([]*model.Record, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if len(f.Categories) > 0 {
		where = append(where, "category IN ("+placeholders(len(f.Categories))+")")
		for _, c := range f.Categories {
			args = append(args, c)
		}
	}
	if len(f.Keys) > 0 {
		where = append(where, "key IN ("+placeholders(len(f.Keys))+")")
		for _, k := range f.Keys {
			args = append(args, k)
		}
	}
	if f.Namespace != "" {
		where = append(where, "ns = ?")
		args = append(args, f.Namespace)
	}
	if !f.CreatedAfter.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.CreatedAfter.UTC().Format(timeLayout))
	}
	if !f.CreatedBefore.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, f.CreatedBefore.UTC().Format(timeLayout))
	}
	if f.Text != "" {
		where = append(where, "rowid IN (SELECT rowid FROM records_fts WHERE records_fts MATCH ?)")
		args = append(args, ftsQuote(f.Text))
	}

	query := fmt.Sprintf(
		`SELECT id, category, key, ns, value, value_kind, metadata, embedding, ttl_ms, version, created_at, updated_at
		 FROM records WHERE %s ORDER BY %s %s`,
		strings.Join(where, " AND "), orderColumn(f.OrderBy), direction(f.Ascending))

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	} else if f.Offset > 0 {
		query += " LIMIT -1"
	}
	if f.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query", "", "", f.Namespace, err)
	}
	defer rows.Close()

	var records []*model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, storageErr("query", "", "", f.Namespace, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// QueryAsOf reconstructs the latest version of each item at or before asOf.
// This reasons over the version log, not the live table, and is deliberately
// a separate code path from QueryLive. Items whose latest log row is a
// delete are absent from the result.
func (s *SQLiteStore) QueryAsOf(ctx context.Context, asOf time.Time, f Filter) ([]*model.Record, error) {
	where := []string{"v.op = 'store'"}
	args := []interface{}{asOf.UTC().Format(timeLayout)}

	if len(f.Categories) > 0 {
		where = append(where, "v.category IN ("+placeholders(len(f.Categories))+")")
		for _, c := range f.Categories {
			args = append(args, c)
		}
	}
	if len(f.Keys) > 0 {
		where = append(where, "v.key IN ("+placeholders(len(f.Keys))+")")
		for _, k := range f.Keys {
			args = append(args, k)
		}
	}
	if f.Namespace != "" {
		where = append(where, "v.ns = ?")
		args = append(args, f.Namespace)
	}

	query := fmt.Sprintf(`
		SELECT v.id, v.item_id, v.category, v.key, v.ns, v.value, v.value_kind, v.metadata, v.version, v.ts, v.op
		FROM versions v
		INNER JOIN (
			SELECT item_id, MAX(ts) AS max_ts
			FROM versions WHERE ts <= ?
			GROUP BY item_id
		) latest ON v.item_id = latest.item_id AND v.ts = latest.max_ts
		WHERE %s
		ORDER BY v.ts DESC`, strings.Join(where, " AND "))

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query-asof", "", "", f.Namespace, err)
	}
	defer rows.Close()

	var records []*model.Record
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, storageErr("query-asof", "", "", f.Namespace, err)
		}
		records = append(records, recordFromVersion(v))
	}
	return records, rows.Err()
}

// recordFromVersion rebuilds a point-in-time record view from a log row.
// TTL and embedding are not logged, so the reconstruction carries neither.
func recordFromVersion(v model.Version) *model.Record {
	return &model.Record{
		ID:        v.ItemID,
		Category:  v.Category,
		Key:       v.Key,
		Namespace: v.Namespace,
		Value:     v.Value,
		Metadata:  v.Metadata,
		Version:   v.Version,
		CreatedAt: v.Timestamp,
		UpdatedAt: v.Timestamp,
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func orderColumn(o OrderBy) string {
	switch o {
	case OrderByUpdatedAt:
		return "updated_at"
	case OrderByKey:
		return "key"
	default:
		return "created_at"
	}
}

func direction(asc bool) string {
	if asc {
		return "ASC"
	}
	return "DESC"
}
