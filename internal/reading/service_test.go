package reading

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/lifelog/internal/model"
	"github.com/hitoshi/lifelog/internal/repository"
)

// --- モック定義 ---

type mockFetcher struct {
	fetchProfileIDFn     func(ctx context.Context, handle string) (int, error)
	fetchReadingStatesFn func(ctx context.Context, profileID int) ([]ReadingState, error)
	fetchBooksByStatusFn func(ctx context.Context, profileID, statusID int) ([]Book, error)
}

func (m *mockFetcher) FetchProfileID(ctx context.Context, handle string) (int, error) {
	if m.fetchProfileIDFn != nil {
		return m.fetchProfileIDFn(ctx, handle)
	}
	return 1, nil
}

func (m *mockFetcher) FetchReadingStates(ctx context.Context, profileID int) ([]ReadingState, error) {
	if m.fetchReadingStatesFn != nil {
		return m.fetchReadingStatesFn(ctx, profileID)
	}
	return nil, nil
}

func (m *mockFetcher) FetchBooksByStatus(ctx context.Context, profileID, statusID int) ([]Book, error) {
	if m.fetchBooksByStatusFn != nil {
		return m.fetchBooksByStatusFn(ctx, profileID, statusID)
	}
	return nil, nil
}

type mockReadingItemRepo struct {
	listAllFn    func(ctx context.Context) ([]*model.ReadingItem, error)
	replaceAllFn func(ctx context.Context, items []*model.ReadingItem, status *model.SyncStatus) error
	replaced     bool
}

func (m *mockReadingItemRepo) ListAll(ctx context.Context) ([]*model.ReadingItem, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockReadingItemRepo) ReplaceAll(ctx context.Context, items []*model.ReadingItem, status *model.SyncStatus) error {
	m.replaced = true
	if m.replaceAllFn != nil {
		return m.replaceAllFn(ctx, items, status)
	}
	return nil
}

// --- compile-time interface checks ---
var _ Fetcher = (*mockFetcher)(nil)
var _ repository.ReadingItemRepository = (*mockReadingItemRepo)(nil)

// --- テスト ---

func TestSync_ProfileResolutionFails_AbortsWithoutReplace(t *testing.T) {
	fetcher := &mockFetcher{
		fetchProfileIDFn: func(_ context.Context, _ string) (int, error) {
			return 0, errors.New("connection refused")
		},
	}
	repo := &mockReadingItemRepo{}
	svc := NewService(fetcher, repo, "hitoshi")

	err := svc.Sync(context.Background())
	if err == nil {
		t.Fatal("プロファイル解決失敗時はエラーが返されるべきです")
	}
	if repo.replaced {
		t.Error("失敗時に既存データが置換されるべきではありません")
	}
}

func TestSync_EmptyCombinedBuckets_SkipsReplace(t *testing.T) {
	repo := &mockReadingItemRepo{}
	svc := NewService(&mockFetcher{}, repo, "hitoshi")

	if err := svc.Sync(context.Background()); err != nil {
		t.Fatalf("空の結果はエラーではなくスキップであるべきです: %v", err)
	}
	if repo.replaced {
		t.Error("空の結果で既存データが置換されるべきではありません")
	}
}

func TestSync_AttachesMetadataFromStateLookup(t *testing.T) {
	rating := 4.0
	review := "面白かった"
	fetcher := &mockFetcher{
		fetchReadingStatesFn: func(_ context.Context, _ int) ([]ReadingState, error) {
			date := "2024-03-15T00:00:00Z"
			return []ReadingState{
				{BookID: "42", Rating: &rating, Review: &review, LastReadDate: &date, StatusID: statusIDFinished},
			}, nil
		},
		fetchBooksByStatusFn: func(_ context.Context, _, statusID int) ([]Book, error) {
			if statusID == statusIDFinished {
				return []Book{{ID: "42", Title: "Go言語による並行処理"}}, nil
			}
			return nil, nil
		},
	}
	var gotItems []*model.ReadingItem
	repo := &mockReadingItemRepo{
		replaceAllFn: func(_ context.Context, items []*model.ReadingItem, _ *model.SyncStatus) error {
			gotItems = items
			return nil
		},
	}
	svc := NewService(fetcher, repo, "hitoshi")

	if err := svc.Sync(context.Background()); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	if len(gotItems) != 1 {
		t.Fatalf("1件のアイテムが置換されるべきですが、%d件でした", len(gotItems))
	}
	item := gotItems[0]
	if item.Rating == nil || *item.Rating != 4.0 {
		t.Errorf("評価が付与されるべきです: %v", item.Rating)
	}
	if item.Review == nil || *item.Review != "面白かった" {
		t.Errorf("レビューが付与されるべきです: %v", item.Review)
	}
	if item.CompletedDate == nil || *item.CompletedDate != "Mar 15, 2024" {
		t.Errorf("読了日が整形されるべきです: %v", item.CompletedDate)
	}
	if item.Status != model.ReadingStatusFinished {
		t.Errorf("ステータスラベルが付与されるべきです: %v", item.Status)
	}
}

func TestSync_BookWithoutState_GetsNullMetadata(t *testing.T) {
	fetcher := &mockFetcher{
		fetchBooksByStatusFn: func(_ context.Context, _, statusID int) ([]Book, error) {
			if statusID == statusIDWant {
				return []Book{{ID: "7", Title: "未評価の本"}}, nil
			}
			return nil, nil
		},
	}
	var gotItems []*model.ReadingItem
	repo := &mockReadingItemRepo{
		replaceAllFn: func(_ context.Context, items []*model.ReadingItem, _ *model.SyncStatus) error {
			gotItems = items
			return nil
		},
	}
	svc := NewService(fetcher, repo, "hitoshi")

	if err := svc.Sync(context.Background()); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(gotItems) != 1 {
		t.Fatalf("1件のアイテムが置換されるべきですが、%d件でした", len(gotItems))
	}
	item := gotItems[0]
	if item.Rating != nil || item.Review != nil || item.CompletedDate != nil {
		t.Errorf("ステータスレコードのない本はメタデータなしであるべきです: %+v", item)
	}
}

func TestSync_RecordsPerStatusCounts(t *testing.T) {
	fetcher := &mockFetcher{
		fetchBooksByStatusFn: func(_ context.Context, _, statusID int) ([]Book, error) {
			switch statusID {
			case statusIDReading:
				return []Book{{ID: "1"}}, nil
			case statusIDFinished:
				return []Book{{ID: "2"}, {ID: "3"}}, nil
			case statusIDWant:
				return []Book{{ID: "4"}, {ID: "5"}, {ID: "6"}}, nil
			}
			return nil, nil
		},
	}
	var gotStatus *model.SyncStatus
	repo := &mockReadingItemRepo{
		replaceAllFn: func(_ context.Context, _ []*model.ReadingItem, status *model.SyncStatus) error {
			gotStatus = status
			return nil
		},
	}
	svc := NewService(fetcher, repo, "hitoshi")

	if err := svc.Sync(context.Background()); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	if gotStatus == nil {
		t.Fatal("同期メタデータが保存されていません")
	}
	if gotStatus.Feed != model.FeedReading {
		t.Errorf("フィード名が違います: %v", gotStatus.Feed)
	}
	if gotStatus.ItemCount != 6 || gotStatus.ReadingCount != 1 || gotStatus.FinishedCount != 2 || gotStatus.WantCount != 3 {
		t.Errorf("件数が違います: %+v", gotStatus)
	}
}

func TestSync_BucketFetchFails_AbortsWithoutReplace(t *testing.T) {
	fetcher := &mockFetcher{
		fetchBooksByStatusFn: func(_ context.Context, _, statusID int) ([]Book, error) {
			if statusID == statusIDFinished {
				return nil, errors.New("timeout")
			}
			return []Book{{ID: "1"}}, nil
		},
	}
	repo := &mockReadingItemRepo{}
	svc := NewService(fetcher, repo, "hitoshi")

	if err := svc.Sync(context.Background()); err == nil {
		t.Fatal("バケット取得失敗時はエラーが返されるべきです")
	}
	if repo.replaced {
		t.Error("失敗時に既存データが置換されるべきではありません")
	}
}

func TestFormatCompletedDate_Variants(t *testing.T) {
	iso := "2024-01-02T15:04:05Z"
	dateOnly := "2024-01-02"
	garbage := "not-a-date"
	empty := ""

	tests := []struct {
		name string
		in   *string
		want *string
	}{
		{"ISO-8601 Zサフィックス", &iso, ptr("Jan 02, 2024")},
		{"日付のみ", &dateOnly, ptr("Jan 02, 2024")},
		{"パース不能は値なし", &garbage, nil},
		{"空文字は値なし", &empty, nil},
		{"nilは値なし", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatCompletedDate(tt.in)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("nilが返されるべきですが、%q でした", *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("formatCompletedDate = %v, want %q", got, *tt.want)
			}
		})
	}
}

func ptr(s string) *string { return &s }

func TestSync_SyncedAtConsistentAcrossItems(t *testing.T) {
	fetcher := &mockFetcher{
		fetchBooksByStatusFn: func(_ context.Context, _, _ int) ([]Book, error) {
			return []Book{{ID: "1"}, {ID: "2"}}, nil
		},
	}
	var gotItems []*model.ReadingItem
	var gotStatus *model.SyncStatus
	repo := &mockReadingItemRepo{
		replaceAllFn: func(_ context.Context, items []*model.ReadingItem, status *model.SyncStatus) error {
			gotItems = items
			gotStatus = status
			return nil
		},
	}
	svc := NewService(fetcher, repo, "hitoshi")
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	if err := svc.Sync(context.Background()); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	for _, item := range gotItems {
		if !item.SyncedAt.Equal(fixed) {
			t.Errorf("全アイテムが同一の同期時刻を持つべきです: %v", item.SyncedAt)
		}
	}
	if !gotStatus.LastSyncedAt.Equal(fixed) {
		t.Errorf("同期メタデータの時刻が違います: %v", gotStatus.LastSyncedAt)
	}
}
