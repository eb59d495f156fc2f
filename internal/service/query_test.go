package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"likes_watcher/internal/domain"
	"likes_watcher/internal/service/mocks"
	"likes_watcher/testdata/utils"
)

type QueryServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	queries *mocks.MockQueryStore
	runLog  *mocks.MockRunLogStore

	service *QueryService
}

func (s *QueryServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.queries = mocks.NewMockQueryStore(s.ctrl)
	s.runLog = mocks.NewMockRunLogStore(s.ctrl)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.service = NewQueryService(s.queries, s.runLog, logger)
}

func (s *QueryServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestQueryServiceTestSuite(t *testing.T) {
	suite.Run(t, new(QueryServiceTestSuite))
}

func (s *QueryServiceTestSuite) TestRecentLikes() {
	ctx := context.Background()
	records := []map[string]any{
		{"title": "latest"},
		{"title": "earlier"},
	}

	s.queries.EXPECT().RecentLikes(ctx, int64(42), 2, []string{"title"}).Return(records, nil)

	got, err := s.service.RecentLikes(ctx, 42, 2, []string{"title"})
	s.NoError(err)
	s.Len(got, 2)
	s.Equal("latest", got[0]["title"])
}

func (s *QueryServiceTestSuite) TestRecentLikes_UnknownField() {
	ctx := context.Background()

	s.queries.EXPECT().RecentLikes(ctx, int64(42), 5, []string{"nope"}).
		Return(nil, domain.ErrUnknownField)

	_, err := s.service.RecentLikes(ctx, 42, 5, []string{"nope"})
	s.ErrorIs(err, domain.ErrUnknownField)
}

func (s *QueryServiceTestSuite) TestStatistics() {
	ctx := context.Background()
	accountID := utils.Ptr(int64(1001))

	s.queries.EXPECT().Statistics(ctx, accountID).Return(&domain.Statistics{
		TotalVideos:    10,
		TotalLikes:     12,
		UniqueAccounts: 2,
		AccountLikes:   utils.Ptr(int64(7)),
	}, nil)

	stats, err := s.service.Statistics(ctx, accountID)
	s.NoError(err)
	s.Equal(int64(10), stats.TotalVideos)
	s.Equal(int64(7), *stats.AccountLikes)
}

func (s *QueryServiceTestSuite) TestLastRun() {
	ctx := context.Background()
	record := &domain.RunRecord{
		ID:        5,
		AccountID: 1001,
		RunTime:   time.Now(),
		Status:    domain.RunFailed,
	}

	s.runLog.EXPECT().Last(ctx, int64(1001)).Return(record, nil)

	got, err := s.service.LastRun(ctx, 1001)
	s.NoError(err)
	// The latest record is authoritative even when it represents a failure.
	s.Equal(domain.RunFailed, got.Status)
}

func (s *QueryServiceTestSuite) TestLastRun_NeverSynced() {
	ctx := context.Background()

	s.runLog.EXPECT().Last(ctx, int64(1001)).Return(nil, nil)

	got, err := s.service.LastRun(ctx, 1001)
	s.NoError(err)
	s.Nil(got)
}

func (s *QueryServiceTestSuite) TestLastRun_StoreError() {
	ctx := context.Background()

	s.runLog.EXPECT().Last(ctx, int64(1001)).Return(nil, errors.New("db down"))

	_, err := s.service.LastRun(ctx, 1001)
	s.Error(err)
	s.Contains(err.Error(), "last run")
}
