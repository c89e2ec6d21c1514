package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/yte121/openswarm-sub022/internal/model"
)

// Search runs a ranked full-text match over category, key and value.
// Ranking is FTS5's builtin bm25 rank; it is not reimplemented here.
func (s *SQLiteStore) Search(ctx context.Context, term string, categories []string, limit int) ([]*model.Record, error) {
	if strings.TrimSpace(term) == "" {
		return nil, &model.ValidationError{Field: "term", Reason: "must not be empty"}
	}
	if limit <= 0 {
		limit = 20
	}

	where := []string{"records_fts MATCH ?"}
	args := []interface{}{ftsQuote(term)}

	if len(categories) > 0 {
		where = append(where, "r.category IN ("+placeholders(len(categories))+")")
		for _, c := range categories {
			args = append(args, c)
		}
	}

	query := fmt.Sprintf(`
		SELECT r.id, r.category, r.key, r.ns, r.value, r.value_kind, r.metadata, r.embedding, r.ttl_ms, r.version, r.created_at, r.updated_at
		FROM records_fts f
		INNER JOIN records r ON r.rowid = f.rowid
		WHERE %s
		ORDER BY f.rank
		LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("search", "", "", "", err)
	}
	defer rows.Close()

	var records []*model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, storageErr("search", "", "", "", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ftsQuote wraps the term as an FTS5 string literal so user input is never
// parsed as query syntax.
func ftsQuote(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}
