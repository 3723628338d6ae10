package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/lifelog/internal/model"
)

// --- モック定義 ---

type mockSyncer struct {
	syncFn func(ctx context.Context) error
	called int
}

func (m *mockSyncer) Sync(ctx context.Context) error {
	m.called++
	if m.syncFn != nil {
		return m.syncFn(ctx)
	}
	return nil
}

type mockReadingLister struct {
	items []*model.ReadingItem
}

func (m *mockReadingLister) List(_ context.Context) ([]*model.ReadingItem, error) {
	return m.items, nil
}

type mockFilmLister struct {
	items []*model.FilmLogItem
}

func (m *mockFilmLister) List(_ context.Context) ([]*model.FilmLogItem, error) {
	return m.items, nil
}

type mockStatusFinder struct {
	statuses map[model.Feed]*model.SyncStatus
	finds    int
}

func (m *mockStatusFinder) Find(_ context.Context, feed model.Feed) (*model.SyncStatus, error) {
	m.finds++
	return m.statuses[feed], nil
}

type nopCollector struct{}

func (nopCollector) RecordSyncSuccess(string)                {}
func (nopCollector) RecordSyncFailure(string)                {}
func (nopCollector) RecordSyncSkipped(string)                {}
func (nopCollector) RecordSyncLatency(string, time.Duration) {}
func (nopCollector) RecordCodeIssued()                       {}
func (nopCollector) RecordCodeVerified(string)               {}

func newTestLifelogHandler(
	readingSyncer, filmSyncer *mockSyncer,
	statuses map[model.Feed]*model.SyncStatus,
) *LifelogHandler {
	return NewLifelogHandler(
		readingSyncer,
		&mockReadingLister{items: []*model.ReadingItem{{ExternalID: "1", Title: "本"}}},
		filmSyncer,
		&mockFilmLister{items: []*model.FilmLogItem{{GUID: "g1", FilmTitle: "映画"}}},
		&mockStatusFinder{statuses: statuses},
		nopCollector{},
		5*time.Minute,
	)
}

// --- テスト ---

func TestListReading_NoSyncStatus_TriggersInlineSync(t *testing.T) {
	readingSyncer := &mockSyncer{}
	h := newTestLifelogHandler(readingSyncer, &mockSyncer{}, map[model.Feed]*model.SyncStatus{})

	req := httptest.NewRequest(http.MethodGet, "/api/reading", nil)
	rec := httptest.NewRecorder()
	h.ListReading(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if readingSyncer.called != 1 {
		t.Errorf("同期が1回実行されるべきですが、%d回でした", readingSyncer.called)
	}
}

func TestListReading_FreshStatus_SkipsSync(t *testing.T) {
	readingSyncer := &mockSyncer{}
	statuses := map[model.Feed]*model.SyncStatus{
		model.FeedReading: {Feed: model.FeedReading, LastSyncedAt: time.Now().Add(-time.Minute)},
	}
	h := newTestLifelogHandler(readingSyncer, &mockSyncer{}, statuses)

	req := httptest.NewRequest(http.MethodGet, "/api/reading", nil)
	rec := httptest.NewRecorder()
	h.ListReading(rec, req)

	if readingSyncer.called != 0 {
		t.Errorf("新鮮なデータで同期が実行されるべきではありません: %d回", readingSyncer.called)
	}

	var body mirrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if body.SyncFailed {
		t.Error("sync_failedはfalseであるべきです")
	}
	if body.LastSyncedAt == nil {
		t.Error("last_synced_atが設定されるべきです")
	}
}

func TestListReading_SyncFails_ServesStaleDataWithErrorFlag(t *testing.T) {
	readingSyncer := &mockSyncer{
		syncFn: func(_ context.Context) error {
			return errors.New("upstream timeout")
		},
	}
	statuses := map[model.Feed]*model.SyncStatus{
		model.FeedReading: {Feed: model.FeedReading, LastSyncedAt: time.Now().Add(-time.Hour)},
	}
	h := newTestLifelogHandler(readingSyncer, &mockSyncer{}, statuses)

	req := httptest.NewRequest(http.MethodGet, "/api/reading", nil)
	rec := httptest.NewRecorder()
	h.ListReading(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("同期失敗でも保存済みデータを200で返すべきです: status = %d", rec.Code)
	}

	var body struct {
		Items      []readingItemResponse `json:"items"`
		SyncFailed bool                  `json:"sync_failed"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if !body.SyncFailed {
		t.Error("sync_failedはtrueであるべきです")
	}
	if len(body.Items) != 1 {
		t.Errorf("保存済みスナップショットが返されるべきです: %d件", len(body.Items))
	}
}

func TestListFilms_StaleStatus_TriggersInlineSync(t *testing.T) {
	filmSyncer := &mockSyncer{}
	statuses := map[model.Feed]*model.SyncStatus{
		model.FeedFilms: {Feed: model.FeedFilms, LastSyncedAt: time.Now().Add(-10 * time.Minute)},
	}
	h := newTestLifelogHandler(&mockSyncer{}, filmSyncer, statuses)

	req := httptest.NewRequest(http.MethodGet, "/api/films", nil)
	rec := httptest.NewRecorder()
	h.ListFilms(rec, req)

	if filmSyncer.called != 1 {
		t.Errorf("陳腐化した映画ミラーは同期されるべきです: %d回", filmSyncer.called)
	}

	var body struct {
		Items []filmLogItemResponse `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].FilmTitle != "映画" {
		t.Errorf("映画ミラーが返されるべきです: %+v", body.Items)
	}
}

func TestListReading_FreshStatus_QueriesStatusOnce(t *testing.T) {
	finder := &mockStatusFinder{statuses: map[model.Feed]*model.SyncStatus{
		model.FeedReading: {Feed: model.FeedReading, LastSyncedAt: time.Now()},
	}}
	h := NewLifelogHandler(
		&mockSyncer{}, &mockReadingLister{},
		&mockSyncer{}, &mockFilmLister{},
		finder, nopCollector{}, 5*time.Minute,
	)

	rec := httptest.NewRecorder()
	h.ListReading(rec, httptest.NewRequest(http.MethodGet, "/api/reading", nil))

	if finder.finds != 1 {
		t.Errorf("同期を省略したリクエストでメタデータは1回だけ取得されるべきです: %d回", finder.finds)
	}
}

func TestListReading_AfterInlineSync_ReturnsUpdatedTimestamp(t *testing.T) {
	syncedAt := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	finder := &mockStatusFinder{statuses: map[model.Feed]*model.SyncStatus{}}
	readingSyncer := &mockSyncer{
		syncFn: func(_ context.Context) error {
			finder.statuses[model.FeedReading] = &model.SyncStatus{
				Feed:         model.FeedReading,
				LastSyncedAt: syncedAt,
			}
			return nil
		},
	}
	h := NewLifelogHandler(
		readingSyncer, &mockReadingLister{},
		&mockSyncer{}, &mockFilmLister{},
		finder, nopCollector{}, 5*time.Minute,
	)

	rec := httptest.NewRecorder()
	h.ListReading(rec, httptest.NewRequest(http.MethodGet, "/api/reading", nil))

	var body mirrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if body.LastSyncedAt == nil || !body.LastSyncedAt.Equal(syncedAt) {
		t.Errorf("同期後の新しいタイムスタンプが返されるべきです: %v", body.LastSyncedAt)
	}
}

func TestListFilms_GatesAreIndependentPerFeed(t *testing.T) {
	readingSyncer := &mockSyncer{}
	filmSyncer := &mockSyncer{}
	// 読書は新鮮、映画は未同期
	statuses := map[model.Feed]*model.SyncStatus{
		model.FeedReading: {Feed: model.FeedReading, LastSyncedAt: time.Now()},
	}
	h := newTestLifelogHandler(readingSyncer, filmSyncer, statuses)

	rec := httptest.NewRecorder()
	h.ListReading(rec, httptest.NewRequest(http.MethodGet, "/api/reading", nil))
	rec = httptest.NewRecorder()
	h.ListFilms(rec, httptest.NewRequest(http.MethodGet, "/api/films", nil))

	if readingSyncer.called != 0 {
		t.Errorf("読書ミラーは同期されるべきではありません: %d回", readingSyncer.called)
	}
	if filmSyncer.called != 1 {
		t.Errorf("映画ミラーは同期されるべきです: %d回", filmSyncer.called)
	}
}
