package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"likes_watcher/internal/domain"
)

type VideoStore struct {
	db *sqlx.DB
}

func NewVideoStore(db *sqlx.DB) *VideoStore {
	return &VideoStore{db: db}
}

// Upsert inserts the video or overwrites every attribute when the aid already
// exists. Last write wins, no version check.
func (s *VideoStore) Upsert(ctx context.Context, video *domain.Video) error {
	if video.AID <= 0 {
		return fmt.Errorf("video missing aid")
	}

	query := `
		INSERT INTO videos (
			aid, bvid, title, pubdate, owner_mid, owner_name, pic,
			duration, description, category,
			stat_view, stat_danmaku, stat_reply, stat_favorite,
			stat_coin, stat_share, stat_like,
			dim_width, dim_height, dim_rotate,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			NOW()
		)
		ON CONFLICT (aid) DO UPDATE SET
			bvid = EXCLUDED.bvid,
			title = EXCLUDED.title,
			pubdate = EXCLUDED.pubdate,
			owner_mid = EXCLUDED.owner_mid,
			owner_name = EXCLUDED.owner_name,
			pic = EXCLUDED.pic,
			duration = EXCLUDED.duration,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			stat_view = EXCLUDED.stat_view,
			stat_danmaku = EXCLUDED.stat_danmaku,
			stat_reply = EXCLUDED.stat_reply,
			stat_favorite = EXCLUDED.stat_favorite,
			stat_coin = EXCLUDED.stat_coin,
			stat_share = EXCLUDED.stat_share,
			stat_like = EXCLUDED.stat_like,
			dim_width = EXCLUDED.dim_width,
			dim_height = EXCLUDED.dim_height,
			dim_rotate = EXCLUDED.dim_rotate,
			updated_at = NOW()`

	var (
		statView, statDanmaku, statReply, statFavorite *int64
		statCoin, statShare, statLike                  *int64
		dimWidth, dimHeight, dimRotate                 *int
	)
	if st := video.Stat; st != nil {
		statView, statDanmaku, statReply = &st.View, &st.Danmaku, &st.Reply
		statFavorite, statCoin, statShare, statLike = &st.Favorite, &st.Coin, &st.Share, &st.Like
	}
	if d := video.Dimension; d != nil {
		dimWidth, dimHeight, dimRotate = &d.Width, &d.Height, &d.Rotate
	}

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		video.AID,
		video.BVID,
		video.Title,
		video.PubDate,
		video.Owner.MID,
		video.Owner.Name,
		video.Pic,
		video.Duration,
		video.Desc,
		video.Category,
		statView, statDanmaku, statReply, statFavorite,
		statCoin, statShare, statLike,
		dimWidth, dimHeight, dimRotate,
	)
	return err
}

func (s *VideoStore) Exists(ctx context.Context, aid int64) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &exists,
		"SELECT EXISTS (SELECT 1 FROM videos WHERE aid = $1)", aid)
	return exists, err
}
