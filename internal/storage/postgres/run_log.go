package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"likes_watcher/internal/domain"
)

type RunLogStore struct {
	db *sqlx.DB
}

func NewRunLogStore(db *sqlx.DB) *RunLogStore {
	return &RunLogStore{db: db}
}

// Append adds one audit record. The log is append-only; nothing updates or
// deletes rows afterwards.
func (s *RunLogStore) Append(ctx context.Context, record *domain.RunRecord) error {
	query := `
		INSERT INTO run_log (account_id, run_time, fetched_count, status, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		record.AccountID,
		record.RunTime,
		record.FetchedCount,
		record.Status,
		record.Detail,
	).Scan(&record.ID)
}

// Last returns the most recently appended record for the account regardless
// of status, or nil when the account has never been synced.
func (s *RunLogStore) Last(ctx context.Context, accountID int64) (*domain.RunRecord, error) {
	var record domain.RunRecord
	query := `
		SELECT id, account_id, run_time, fetched_count, status, detail
		FROM run_log
		WHERE account_id = $1
		ORDER BY id DESC
		LIMIT 1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &record, query, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
