package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type LikeStore struct {
	db *sqlx.DB
}

func NewLikeStore(db *sqlx.DB) *LikeStore {
	return &LikeStore{db: db}
}

// InsertIfAbsent records the (account, aid) edge if it does not exist yet and
// reports whether this call created it. The collect_time of an existing edge
// is never touched.
func (s *LikeStore) InsertIfAbsent(ctx context.Context, accountID, aid int64) (bool, error) {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO likes (account_id, aid)
		VALUES ($1, $2)
		ON CONFLICT (account_id, aid) DO NOTHING`,
		accountID, aid,
	)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *LikeStore) Exists(ctx context.Context, accountID, aid int64) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &exists,
		"SELECT EXISTS (SELECT 1 FROM likes WHERE account_id = $1 AND aid = $2)",
		accountID, aid)
	return exists, err
}

func (s *LikeStore) CountByAccount(ctx context.Context, accountID int64) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &count,
		"SELECT COUNT(*) FROM likes WHERE account_id = $1", accountID)
	return count, err
}
