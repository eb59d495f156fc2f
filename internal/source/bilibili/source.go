package bilibili

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"likes_watcher/internal/domain"
)

const (
	SourceID   = "bilibili"
	SourceName = "Bilibili Space"

	// codeDenied is returned when the account's liked list is private and
	// the request carries no valid session.
	codeDenied = 53013

	likesPath   = "/x/space/like/video"
	accountPath = "/x/space/acc/info"
)

// Config holds Bilibili source configuration.
type Config struct {
	BaseURL        string
	SessData       string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source implements service.Source against the Bilibili space API.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a new Bilibili source. A non-empty SessData is installed as the
// SESSDATA cookie, which the API requires for privacy-restricted accounts.
func New(cfg Config, logger *slog.Logger) (*Source, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	if cfg.SessData != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		jar.SetCookies(base, []*http.Cookie{{
			Name:   "SESSDATA",
			Value:  cfg.SessData,
			Domain: ".bilibili.com",
			Path:   "/",
		}})
	}

	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		baseURL:        cfg.BaseURL,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", SourceID),
	}, nil
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID
}

// Name returns human-readable name.
func (s *Source) Name() string {
	return SourceName
}

// FetchLikedVideos fetches the current liked-videos list for an account.
// A privacy-restricted account yields domain.ErrSourceDenied; transport and
// envelope failures yield a wrapped error. A valid response with no liked
// videos yields an empty slice.
func (s *Source) FetchLikedVideos(ctx context.Context, accountID int64) ([]domain.Video, error) {
	reqURL := fmt.Sprintf("%s%s?vmid=%d", s.baseURL, likesPath, accountID)

	var env envelope
	if err := s.getWithRetry(ctx, reqURL, &env); err != nil {
		return nil, err
	}

	switch {
	case env.Code == codeDenied:
		return nil, fmt.Errorf("account %d: %w", accountID, domain.ErrSourceDenied)
	case env.Code != 0:
		return nil, fmt.Errorf("api error: code=%d message=%q", env.Code, env.Message)
	}

	if env.Data == nil || len(env.Data.List) == 0 {
		s.logger.Debug("no liked videos", "account_id", accountID)
		return []domain.Video{}, nil
	}

	videos := s.transform(env.Data.List)
	s.logger.Debug("fetched liked videos", "account_id", accountID, "count", len(videos))
	return videos, nil
}

// FetchAccountInfo fetches the remote account profile.
func (s *Source) FetchAccountInfo(ctx context.Context, accountID int64) (*domain.AccountInfo, error) {
	reqURL := fmt.Sprintf("%s%s?mid=%d", s.baseURL, accountPath, accountID)

	var env accountEnvelope
	if err := s.getWithRetry(ctx, reqURL, &env); err != nil {
		return nil, err
	}

	if env.Code != 0 || env.Data == nil {
		return nil, fmt.Errorf("api error: code=%d message=%q", env.Code, env.Message)
	}

	return &domain.AccountInfo{
		MID:  env.Data.MID,
		Name: env.Data.Name,
		Face: env.Data.Face,
	}, nil
}

func (s *Source) getWithRetry(ctx context.Context, url string, out any) error {
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.doRequest(ctx, url, out)
		if err == nil {
			return nil
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) doRequest(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Referer", "https://space.bilibili.com/")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func (s *Source) transform(items []VideoItem) []domain.Video {
	videos := make([]domain.Video, 0, len(items))

	for _, it := range items {
		video := domain.Video{
			AID:      it.AID,
			Title:    it.Title,
			PubDate:  time.Unix(it.PubDate, 0).UTC(),
			Pic:      it.Pic,
			Duration: it.Duration,
		}

		if it.BVID != "" {
			bvid := it.BVID
			video.BVID = &bvid
		}
		if it.Desc != "" {
			desc := it.Desc
			video.Desc = &desc
		}
		if it.TName != "" {
			tname := it.TName
			video.Category = &tname
		}
		if it.Owner != nil {
			video.Owner = domain.Owner{MID: it.Owner.MID, Name: it.Owner.Name}
		}
		if it.Stat != nil {
			video.Stat = &domain.Stat{
				View:     it.Stat.View,
				Danmaku:  it.Stat.Danmaku,
				Reply:    it.Stat.Reply,
				Favorite: it.Stat.Favorite,
				Coin:     it.Stat.Coin,
				Share:    it.Stat.Share,
				Like:     it.Stat.Like,
			}
		}
		if it.Dimension != nil {
			video.Dimension = &domain.Dimension{
				Width:  it.Dimension.Width,
				Height: it.Dimension.Height,
				Rotate: it.Dimension.Rotate,
			}
		}

		videos = append(videos, video)
	}

	return videos
}
