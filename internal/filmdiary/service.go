package filmdiary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/lifelog/internal/model"
	"github.com/hitoshi/lifelog/internal/repository"
)

// FeedFetcher は映画日記フィードの取得を抽象化する。
type FeedFetcher interface {
	FetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error)
}

var _ FeedFetcher = (*Fetcher)(nil)

// Service は映画日記ミラーの同期ロジックを提供する。
type Service struct {
	fetcher  FeedFetcher
	itemRepo repository.FilmLogRepository
	feedURL  string
	now      func() time.Time // テスト用に差し替え可能
}

// NewService はServiceを生成する。
func NewService(fetcher FeedFetcher, itemRepo repository.FilmLogRepository, username string) *Service {
	return &Service{
		fetcher:  fetcher,
		itemRepo: itemRepo,
		feedURL:  fmt.Sprintf("https://letterboxd.com/%s/rss/", username),
		now:      time.Now,
	}
}

// Sync は映画日記フィードからミラーコレクションを全置換する。
// フェッチまたはパースの失敗時は既存データを一切変更せずエラーを返す。
// フィードが空の場合も既存データを維持し、同期をスキップする。
func (s *Service) Sync(ctx context.Context) error {
	feed, err := s.fetcher.FetchFeed(ctx, s.feedURL)
	if err != nil {
		return fmt.Errorf("映画日記フィードの取得に失敗しました: %w", err)
	}

	syncedAt := s.now()
	items := make([]*model.FilmLogItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		items = append(items, convertItem(item, syncedAt))
	}

	if len(items) == 0 {
		slog.Info("film diary sync skipped: nothing to sync", slog.String("feed_url", s.feedURL))
		return nil
	}

	status := &model.SyncStatus{
		Feed:         model.FeedFilms,
		LastSyncedAt: syncedAt,
		ItemCount:    len(items),
	}
	if err := s.itemRepo.ReplaceAll(ctx, items, status); err != nil {
		return fmt.Errorf("映画ミラーの置換に失敗しました: %w", err)
	}

	slog.Info("film diary sync completed", slog.Int("item_count", len(items)))
	return nil
}

// List はミラー済みの映画ログを鑑賞日降順で返す。
func (s *Service) List(ctx context.Context) ([]*model.FilmLogItem, error) {
	items, err := s.itemRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("映画ミラーの取得に失敗しました: %w", err)
	}
	return items, nil
}
