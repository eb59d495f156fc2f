package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"likes_watcher/internal/domain"
)

// DefaultRecentFields is the projection used when the caller requests none.
var DefaultRecentFields = []string{"aid", "bvid", "title", "owner_name", "pubdate", "collect_time"}

// recentFieldColumns maps projection field names onto join columns. Requests
// for anything outside this map are rejected.
var recentFieldColumns = map[string]string{
	"aid":          "v.aid",
	"bvid":         "v.bvid",
	"title":        "v.title",
	"owner_name":   "v.owner_name",
	"owner_mid":    "v.owner_mid",
	"pubdate":      "v.pubdate",
	"pic":          "v.pic",
	"duration":     "v.duration",
	"category":     "v.category",
	"collect_time": "l.collect_time",
}

type QueryStore struct {
	db *sqlx.DB
}

func NewQueryStore(db *sqlx.DB) *QueryStore {
	return &QueryStore{db: db}
}

// RecentLikes returns up to limit liked videos for the account, most recently
// collected first, projected onto exactly the requested fields.
func (s *QueryStore) RecentLikes(ctx context.Context, accountID int64, limit int, fields []string) ([]map[string]any, error) {
	if limit < 0 {
		return nil, fmt.Errorf("negative limit: %d", limit)
	}
	if limit == 0 {
		return []map[string]any{}, nil
	}
	if len(fields) == 0 {
		fields = DefaultRecentFields
	}

	selects := make([]string, 0, len(fields))
	for _, field := range fields {
		column, ok := recentFieldColumns[field]
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownField, field)
		}
		selects = append(selects, column+" AS "+field)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM likes l
		JOIN videos v ON v.aid = l.aid
		WHERE l.account_id = $1
		ORDER BY l.collect_time DESC
		LIMIT $2`,
		strings.Join(selects, ", "),
	)

	rows, err := s.db.QueryxContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]map[string]any, 0, limit)
	for rows.Next() {
		record := make(map[string]any, len(fields))
		if err := rows.MapScan(record); err != nil {
			return nil, err
		}
		result = append(result, record)
	}

	return result, rows.Err()
}

// Statistics aggregates counts across all accounts, plus per-account figures
// when accountID is non-nil.
func (s *QueryStore) Statistics(ctx context.Context, accountID *int64) (*domain.Statistics, error) {
	var stats domain.Statistics

	if err := s.db.GetContext(ctx, &stats.TotalVideos, "SELECT COUNT(*) FROM videos"); err != nil {
		return nil, fmt.Errorf("count videos: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.TotalLikes, "SELECT COUNT(*) FROM likes"); err != nil {
		return nil, fmt.Errorf("count likes: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.UniqueAccounts,
		"SELECT COUNT(DISTINCT account_id) FROM likes"); err != nil {
		return nil, fmt.Errorf("count accounts: %w", err)
	}

	var lastSuccess *time.Time
	err := s.db.GetContext(ctx, &lastSuccess,
		"SELECT MAX(run_time) FROM run_log WHERE status = $1", domain.RunSuccess)
	if err != nil {
		return nil, fmt.Errorf("last successful run: %w", err)
	}
	stats.LastSuccessTime = lastSuccess

	if accountID != nil {
		var likes int64
		if err := s.db.GetContext(ctx, &likes,
			"SELECT COUNT(*) FROM likes WHERE account_id = $1", *accountID); err != nil {
			return nil, fmt.Errorf("count account likes: %w", err)
		}
		stats.AccountLikes = &likes

		var lastRun *time.Time
		err := s.db.GetContext(ctx, &lastRun, `
			SELECT MAX(run_time) FROM run_log WHERE account_id = $1`, *accountID)
		if err != nil {
			return nil, fmt.Errorf("account last run: %w", err)
		}
		stats.AccountLastRun = lastRun
	}

	return &stats, nil
}
