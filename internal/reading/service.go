package reading

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/lifelog/internal/model"
	"github.com/hitoshi/lifelog/internal/repository"
)

// displayDateFormat はミラー表示用の日付フォーマット。
const displayDateFormat = "Jan 02, 2006"

// Fetcher は読書トラッカーAPIへのアクセスを抽象化する。
type Fetcher interface {
	// FetchProfileID はプロファイルハンドルからプロファイルIDを解決する。
	FetchProfileID(ctx context.Context, handle string) (int, error)
	// FetchReadingStates は読書ステータスレコードを取得する。
	FetchReadingStates(ctx context.Context, profileID int) ([]ReadingState, error)
	// FetchBooksByStatus は指定ステータスの書籍一覧を取得する。
	FetchBooksByStatus(ctx context.Context, profileID, statusID int) ([]Book, error)
}

var _ Fetcher = (*Client)(nil)

// bookMeta は読書ステータスレコードから構築する書籍別メタデータ。
type bookMeta struct {
	rating        *float64
	review        *string
	completedDate *string
}

// Service は読書ミラーの同期ロジックを提供する。
type Service struct {
	fetcher  Fetcher
	itemRepo repository.ReadingItemRepository
	handle   string
	now      func() time.Time // テスト用に差し替え可能
}

// NewService はServiceを生成する。
func NewService(fetcher Fetcher, itemRepo repository.ReadingItemRepository, handle string) *Service {
	return &Service{
		fetcher:  fetcher,
		itemRepo: itemRepo,
		handle:   handle,
		now:      time.Now,
	}
}

// Sync は読書トラッカーからミラーコレクションを全置換する。
// いずれかのステップが失敗した場合は既存データを一切変更せずエラーを返す。
// 取得結果が全ステータスで空の場合も既存データを維持し、同期をスキップする。
func (s *Service) Sync(ctx context.Context) error {
	if s.handle == "" {
		return fmt.Errorf("読書トラッカーのハンドルが設定されていません")
	}

	profileID, err := s.fetcher.FetchProfileID(ctx, s.handle)
	if err != nil {
		return fmt.Errorf("プロファイルIDの解決に失敗しました: %w", err)
	}

	states, err := s.fetcher.FetchReadingStates(ctx, profileID)
	if err != nil {
		return fmt.Errorf("読書ステータスの取得に失敗しました: %w", err)
	}
	metaByBookID := buildMetaLookup(states)

	buckets := []struct {
		status   model.ReadingStatus
		statusID int
	}{
		{model.ReadingStatusReading, statusIDReading},
		{model.ReadingStatusFinished, statusIDFinished},
		{model.ReadingStatusWant, statusIDWant},
	}

	syncedAt := s.now()
	var items []*model.ReadingItem
	counts := map[model.ReadingStatus]int{}

	for _, bucket := range buckets {
		books, err := s.fetcher.FetchBooksByStatus(ctx, profileID, bucket.statusID)
		if err != nil {
			return fmt.Errorf("ステータス %s の書籍取得に失敗しました: %w", bucket.status, err)
		}
		for _, book := range books {
			item := &model.ReadingItem{
				ExternalID:  book.ID,
				Title:       book.Title,
				Subtitle:    book.Subtitle,
				Description: book.Description,
				CoverURL:    book.CoverURL,
				Authors:     book.Authors,
				Status:      bucket.status,
				SyncedAt:    syncedAt,
			}
			if meta, ok := metaByBookID[book.ID]; ok {
				item.Rating = meta.rating
				item.Review = meta.review
				item.CompletedDate = meta.completedDate
			}
			items = append(items, item)
			counts[bucket.status]++
		}
	}

	if len(items) == 0 {
		slog.Info("reading sync skipped: nothing to sync", slog.String("handle", s.handle))
		return nil
	}

	status := &model.SyncStatus{
		Feed:          model.FeedReading,
		LastSyncedAt:  syncedAt,
		ItemCount:     len(items),
		ReadingCount:  counts[model.ReadingStatusReading],
		FinishedCount: counts[model.ReadingStatusFinished],
		WantCount:     counts[model.ReadingStatusWant],
	}
	if err := s.itemRepo.ReplaceAll(ctx, items, status); err != nil {
		return fmt.Errorf("読書ミラーの置換に失敗しました: %w", err)
	}

	slog.Info("reading sync completed",
		slog.Int("item_count", len(items)),
		slog.Int("reading", status.ReadingCount),
		slog.Int("finished", status.FinishedCount),
		slog.Int("want", status.WantCount),
	)
	return nil
}

// List はミラー済みの読書アイテムを同期時の並び順で返す。
func (s *Service) List(ctx context.Context) ([]*model.ReadingItem, error) {
	items, err := s.itemRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("読書ミラーの取得に失敗しました: %w", err)
	}
	return items, nil
}

// buildMetaLookup は読書ステータスレコードから書籍ID別のメタデータ表を構築する。
func buildMetaLookup(states []ReadingState) map[string]bookMeta {
	lookup := make(map[string]bookMeta, len(states))
	for _, st := range states {
		lookup[st.BookID] = bookMeta{
			rating:        st.Rating,
			review:        st.Review,
			completedDate: formatCompletedDate(st.LastReadDate),
		}
	}
	return lookup
}

// formatCompletedDate はISO-8601日付を表示用に整形する。
// 末尾Zの有無と日付のみの形式を受け付け、パースできない場合はnilを返す。
func formatCompletedDate(raw *string) *string {
	if raw == nil || *raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, *raw); err == nil {
			formatted := t.Format(displayDateFormat)
			return &formatted
		}
	}
	return nil
}
