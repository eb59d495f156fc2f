package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"likes_watcher/internal/domain"
)

type SyncService struct {
	source    Source
	videos    VideoStore
	likes     LikeStore
	runLog    RunLogStore
	txManager TransactionManager
	publisher Publisher
	logger    *slog.Logger
}

func NewSyncService(
	source Source,
	videos VideoStore,
	likes LikeStore,
	runLog RunLogStore,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		source:    source,
		videos:    videos,
		likes:     likes,
		runLog:    runLog,
		txManager: txManager,
		publisher: publisher,
		logger:    logger.With("source", source.ID()),
	}
}

// SyncAccount fetches the account's current liked-videos list and reconciles
// it into the stores. Every attempt appends one run record: a denied or
// failed fetch is recorded as failed and leaves the video and like stores
// untouched; an empty or non-empty fetch is recorded as success. Per-video
// storage failures are skipped without failing the run.
func (s *SyncService) SyncAccount(ctx context.Context, accountID int64) (*domain.SyncResult, error) {
	startTime := time.Now()
	s.logger.Info("starting sync", "account_id", accountID)

	videos, err := s.source.FetchLikedVideos(ctx, accountID)
	if err != nil {
		s.recordFailure(accountID, err)
		if errors.Is(err, domain.ErrSourceDenied) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch liked videos: %w", err)
	}

	result := &domain.SyncResult{
		AccountID: accountID,
		Fetched:   len(videos),
	}

	// The fetch is the only cancellable step. Once reconciliation starts the
	// run must complete its pass so the stores hold a clean prefix of the
	// list and the ledger gets its record; everything downstream runs on a
	// context detached from the caller's cancellation.
	if err := ctx.Err(); err != nil {
		s.recordFailure(accountID, err)
		return nil, err
	}
	runCtx := context.WithoutCancel(ctx)

	if len(videos) == 0 {
		s.logger.Info("no liked videos", "account_id", accountID)
		if err := s.appendRun(runCtx, accountID, 0, domain.RunSuccess, nil); err != nil {
			result.DegradedAudit = true
			return result, fmt.Errorf("append run record: %w", err)
		}
		result.Duration = time.Since(startTime)
		return result, nil
	}

	for i := range videos {
		video := &videos[i]
		isNew, err := s.saveVideo(runCtx, accountID, video)
		if err != nil {
			s.logger.Warn("skipping video",
				"account_id", accountID,
				"aid", video.AID,
				"error", err,
			)
			result.Skipped++
			continue
		}

		result.Saved++
		if isNew {
			result.New++
		}

		if s.publisher != nil {
			if err := s.publisher.Publish(runCtx, accountID, video, isNew); err != nil {
				s.logger.Warn("publish failed", "aid", video.AID, "error", err)
			}
		}
	}

	if total, err := s.likes.CountByAccount(runCtx, accountID); err != nil {
		s.logger.Warn("count likes failed", "account_id", accountID, "error", err)
	} else {
		result.TotalLikes = total
	}

	if err := s.appendRun(runCtx, accountID, len(videos), domain.RunSuccess, nil); err != nil {
		// Reconciled writes are committed; never roll them back over a lost
		// audit record.
		result.DegradedAudit = true
		result.Duration = time.Since(startTime)
		return result, fmt.Errorf("append run record: %w", err)
	}

	result.Duration = time.Since(startTime)

	s.logger.Info("sync completed",
		"account_id", accountID,
		"fetched", result.Fetched,
		"new", result.New,
		"saved", result.Saved,
		"skipped", result.Skipped,
		"total_likes", result.TotalLikes,
		"duration", result.Duration,
	)

	return result, nil
}

// saveVideo reconciles one fetched video: the video row upsert and the like
// edge insert commit or roll back together. isNew reports whether this run
// created the edge.
func (s *SyncService) saveVideo(ctx context.Context, accountID int64, video *domain.Video) (bool, error) {
	var isNew bool

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.videos.Upsert(txCtx, video); err != nil {
			return fmt.Errorf("upsert video: %w", err)
		}

		wasNew, err := s.likes.InsertIfAbsent(txCtx, accountID, video.AID)
		if err != nil {
			return fmt.Errorf("insert like: %w", err)
		}
		isNew = wasNew

		return nil
	})

	return isNew, err
}

func (s *SyncService) appendRun(ctx context.Context, accountID int64, fetched int, status domain.RunStatus, detail *string) error {
	return s.runLog.Append(ctx, &domain.RunRecord{
		AccountID:    accountID,
		RunTime:      time.Now().UTC(),
		FetchedCount: fetched,
		Status:       status,
		Detail:       detail,
	})
}

// recordFailure appends a failed run record. It uses a fresh context so the
// audit entry survives the cancellation that may have failed the fetch.
func (s *SyncService) recordFailure(accountID int64, cause error) {
	detail := cause.Error()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.appendRun(ctx, accountID, 0, domain.RunFailed, &detail); err != nil {
		s.logger.Error("failed to record failed run",
			"account_id", accountID,
			"error", err,
		)
	}
}
