//go:build integration

package postgres

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"likes_watcher/internal/domain"
	"likes_watcher/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_tables.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM run_log")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM likes")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM videos")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) newVideo(aid int64, title string) *domain.Video {
	return &domain.Video{
		AID:     aid,
		BVID:    utils.Ptr("BV" + title),
		Title:   title,
		PubDate: time.Now().Truncate(time.Microsecond),
		Owner:   domain.Owner{MID: 55, Name: "uploader"},
		Pic:     "https://example.com/pic.jpg",
	}
}

func (s *PostgresIntegrationSuite) TestVideoStore_Upsert_Insert() {
	store := NewVideoStore(s.db)

	video := s.newVideo(100, "first")
	video.Stat = &domain.Stat{View: 1000, Like: 50}
	video.Dimension = &domain.Dimension{Width: 1920, Height: 1080}

	s.NoError(store.Upsert(s.ctx, video))

	exists, err := store.Exists(s.ctx, 100)
	s.NoError(err)
	s.True(exists)

	var view int64
	s.NoError(s.db.GetContext(s.ctx, &view, "SELECT stat_view FROM videos WHERE aid = 100"))
	s.Equal(int64(1000), view)
}

func (s *PostgresIntegrationSuite) TestVideoStore_Upsert_ReplacesAllAttributes() {
	store := NewVideoStore(s.db)

	video := s.newVideo(100, "original")
	video.Stat = &domain.Stat{View: 1000}
	s.NoError(store.Upsert(s.ctx, video))

	updated := s.newVideo(100, "renamed")
	s.NoError(store.Upsert(s.ctx, updated))

	var title string
	s.NoError(s.db.GetContext(s.ctx, &title, "SELECT title FROM videos WHERE aid = 100"))
	s.Equal("renamed", title)

	// Replace, not merge: the second fetch carried no stat block.
	var view *int64
	s.NoError(s.db.GetContext(s.ctx, &view, "SELECT stat_view FROM videos WHERE aid = 100"))
	s.Nil(view)
}

func (s *PostgresIntegrationSuite) TestVideoStore_Upsert_RejectsMissingAID() {
	store := NewVideoStore(s.db)

	err := store.Upsert(s.ctx, &domain.Video{Title: "no aid"})
	s.Error(err)
}

func (s *PostgresIntegrationSuite) TestLikeStore_InsertIfAbsent_Idempotent() {
	videos := NewVideoStore(s.db)
	likes := NewLikeStore(s.db)

	s.NoError(videos.Upsert(s.ctx, s.newVideo(100, "first")))

	wasNew, err := likes.InsertIfAbsent(s.ctx, 1001, 100)
	s.NoError(err)
	s.True(wasNew)

	wasNew, err = likes.InsertIfAbsent(s.ctx, 1001, 100)
	s.NoError(err)
	s.False(wasNew)

	count, err := likes.CountByAccount(s.ctx, 1001)
	s.NoError(err)
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestLikeStore_CollectTimeImmutable() {
	videos := NewVideoStore(s.db)
	likes := NewLikeStore(s.db)

	s.NoError(videos.Upsert(s.ctx, s.newVideo(100, "first")))

	_, err := likes.InsertIfAbsent(s.ctx, 1001, 100)
	s.NoError(err)

	var first time.Time
	s.NoError(s.db.GetContext(s.ctx, &first, "SELECT collect_time FROM likes WHERE account_id = 1001 AND aid = 100"))

	time.Sleep(10 * time.Millisecond)
	_, err = likes.InsertIfAbsent(s.ctx, 1001, 100)
	s.NoError(err)

	var second time.Time
	s.NoError(s.db.GetContext(s.ctx, &second, "SELECT collect_time FROM likes WHERE account_id = 1001 AND aid = 100"))
	s.True(first.Equal(second))
}

func (s *PostgresIntegrationSuite) TestLikeStore_SeparateAccounts() {
	videos := NewVideoStore(s.db)
	likes := NewLikeStore(s.db)

	s.NoError(videos.Upsert(s.ctx, s.newVideo(100, "shared")))

	wasNew, err := likes.InsertIfAbsent(s.ctx, 1001, 100)
	s.NoError(err)
	s.True(wasNew)

	wasNew, err = likes.InsertIfAbsent(s.ctx, 1002, 100)
	s.NoError(err)
	s.True(wasNew)

	exists, err := likes.Exists(s.ctx, 1001, 100)
	s.NoError(err)
	s.True(exists)

	exists, err = likes.Exists(s.ctx, 1003, 100)
	s.NoError(err)
	s.False(exists)
}

func (s *PostgresIntegrationSuite) TestRunLogStore_AppendAndLast() {
	store := NewRunLogStore(s.db)

	last, err := store.Last(s.ctx, 1001)
	s.NoError(err)
	s.Nil(last)

	s.NoError(store.Append(s.ctx, &domain.RunRecord{
		AccountID:    1001,
		RunTime:      time.Now(),
		FetchedCount: 3,
		Status:       domain.RunSuccess,
	}))

	detail := "connection refused"
	s.NoError(store.Append(s.ctx, &domain.RunRecord{
		AccountID:    1001,
		RunTime:      time.Now(),
		FetchedCount: 0,
		Status:       domain.RunFailed,
		Detail:       &detail,
	}))

	// The latest record wins regardless of status.
	last, err = store.Last(s.ctx, 1001)
	s.NoError(err)
	s.Require().NotNil(last)
	s.Equal(domain.RunFailed, last.Status)
	s.Require().NotNil(last.Detail)
	s.Equal("connection refused", *last.Detail)
}

func (s *PostgresIntegrationSuite) seedLikes(accountID int64, aids ...int64) {
	videos := NewVideoStore(s.db)
	for i, aid := range aids {
		v := s.newVideo(aid, fmt.Sprintf("video%c-%d", 'a'+i, aid))
		s.Require().NoError(videos.Upsert(s.ctx, v))
		_, err := s.db.ExecContext(s.ctx,
			"INSERT INTO likes (account_id, aid, collect_time) VALUES ($1, $2, $3)",
			accountID, aid, time.Now().Add(time.Duration(i)*time.Second))
		s.Require().NoError(err)
	}
}

func (s *PostgresIntegrationSuite) TestQueryStore_RecentLikes_ProjectionAndOrder() {
	store := NewQueryStore(s.db)
	s.seedLikes(42, 100, 101, 102)

	records, err := store.RecentLikes(s.ctx, 42, 2, []string{"title"})
	s.NoError(err)
	s.Require().Len(records, 2)

	// Most recently collected first, only the requested field present.
	s.EqualValues("videoc-102", records[0]["title"])
	s.EqualValues("videob-101", records[1]["title"])
	s.Len(records[0], 1)
}

func (s *PostgresIntegrationSuite) TestQueryStore_RecentLikes_UnknownField() {
	store := NewQueryStore(s.db)

	_, err := store.RecentLikes(s.ctx, 42, 5, []string{"title", "password"})
	s.ErrorIs(err, domain.ErrUnknownField)
}

func (s *PostgresIntegrationSuite) TestQueryStore_RecentLikes_ZeroLimit() {
	store := NewQueryStore(s.db)
	s.seedLikes(42, 100)

	records, err := store.RecentLikes(s.ctx, 42, 0, nil)
	s.NoError(err)
	s.Empty(records)

	_, err = store.RecentLikes(s.ctx, 42, -1, nil)
	s.Error(err)
}

func (s *PostgresIntegrationSuite) TestQueryStore_Statistics() {
	store := NewQueryStore(s.db)
	runLog := NewRunLogStore(s.db)

	s.seedLikes(1001, 100, 101)
	s.seedLikes(1002, 102)

	s.Require().NoError(runLog.Append(s.ctx, &domain.RunRecord{
		AccountID: 1001,
		RunTime:   time.Now(),
		Status:    domain.RunSuccess,
	}))

	stats, err := store.Statistics(s.ctx, utils.Ptr(int64(1001)))
	s.NoError(err)
	s.Equal(int64(3), stats.TotalVideos)
	s.Equal(int64(3), stats.TotalLikes)
	s.Equal(int64(2), stats.UniqueAccounts)
	s.NotNil(stats.LastSuccessTime)
	s.Require().NotNil(stats.AccountLikes)
	s.Equal(int64(2), *stats.AccountLikes)
	s.NotNil(stats.AccountLastRun)
}

func (s *PostgresIntegrationSuite) TestQueryStore_Statistics_Empty() {
	store := NewQueryStore(s.db)

	stats, err := store.Statistics(s.ctx, nil)
	s.NoError(err)
	s.Equal(int64(0), stats.TotalVideos)
	s.Nil(stats.LastSuccessTime)
	s.Nil(stats.AccountLikes)
}

func (s *PostgresIntegrationSuite) TestTransactionManager_RollsBackTogether() {
	videos := NewVideoStore(s.db)
	likes := NewLikeStore(s.db)
	tm := NewTransactionManager(s.db)

	err := tm.WithTransaction(s.ctx, func(txCtx context.Context) error {
		if err := videos.Upsert(txCtx, s.newVideo(100, "doomed")); err != nil {
			return err
		}
		// A video row must never outlive a failed edge insert of the same
		// unit.
		return context.Canceled
	})
	s.Error(err)

	exists, err := videos.Exists(s.ctx, 100)
	s.NoError(err)
	s.False(exists)

	err = tm.WithTransaction(s.ctx, func(txCtx context.Context) error {
		if err := videos.Upsert(txCtx, s.newVideo(100, "kept")); err != nil {
			return err
		}
		_, err := likes.InsertIfAbsent(txCtx, 1001, 100)
		return err
	})
	s.NoError(err)

	exists, err = likes.Exists(s.ctx, 1001, 100)
	s.NoError(err)
	s.True(exists)
}
