package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"likes_watcher/internal/domain"
)

type VideoStore interface {
	Upsert(ctx context.Context, video *domain.Video) error
	Exists(ctx context.Context, aid int64) (bool, error)
}

type LikeStore interface {
	InsertIfAbsent(ctx context.Context, accountID, aid int64) (bool, error)
	Exists(ctx context.Context, accountID, aid int64) (bool, error)
	CountByAccount(ctx context.Context, accountID int64) (int, error)
}

type RunLogStore interface {
	Append(ctx context.Context, record *domain.RunRecord) error
	Last(ctx context.Context, accountID int64) (*domain.RunRecord, error)
}

type QueryStore interface {
	RecentLikes(ctx context.Context, accountID int64, limit int, fields []string) ([]map[string]any, error)
	Statistics(ctx context.Context, accountID *int64) (*domain.Statistics, error)
}

type Source interface {
	ID() string
	Name() string
	FetchLikedVideos(ctx context.Context, accountID int64) ([]domain.Video, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, accountID int64, video *domain.Video, isNew bool) error
	Close() error
}
