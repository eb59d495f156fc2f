package service

import (
	"context"
	"fmt"
	"log/slog"

	"likes_watcher/internal/domain"
)

// QueryService exposes read-only operations over the accumulated history. It
// never writes; the sync engine owns all mutations.
type QueryService struct {
	queries QueryStore
	runLog  RunLogStore
	logger  *slog.Logger
}

func NewQueryService(queries QueryStore, runLog RunLogStore, logger *slog.Logger) *QueryService {
	return &QueryService{
		queries: queries,
		runLog:  runLog,
		logger:  logger,
	}
}

// RecentLikes returns up to limit liked videos for the account, most recent
// first, projected onto the requested fields. Unknown field names are
// rejected with domain.ErrUnknownField.
func (s *QueryService) RecentLikes(ctx context.Context, accountID int64, limit int, fields []string) ([]map[string]any, error) {
	records, err := s.queries.RecentLikes(ctx, accountID, limit, fields)
	if err != nil {
		return nil, fmt.Errorf("recent likes: %w", err)
	}
	return records, nil
}

func (s *QueryService) Statistics(ctx context.Context, accountID *int64) (*domain.Statistics, error) {
	stats, err := s.queries.Statistics(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}
	return stats, nil
}

// LastRun returns the account's most recent run record regardless of status,
// or nil when the account has never been synced. Callers must inspect
// Status to tell a successful run from a failed one.
func (s *QueryService) LastRun(ctx context.Context, accountID int64) (*domain.RunRecord, error) {
	record, err := s.runLog.Last(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("last run: %w", err)
	}
	return record, nil
}
