package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/lifelog/internal/metrics"
	"github.com/hitoshi/lifelog/internal/model"
	"github.com/hitoshi/lifelog/internal/syncgate"
)

// MirrorSyncer はミラーコレクションの同期を抽象化する。
type MirrorSyncer interface {
	Sync(ctx context.Context) error
}

// ReadingLister はミラー済み読書アイテムの取得を抽象化する。
type ReadingLister interface {
	List(ctx context.Context) ([]*model.ReadingItem, error)
}

// FilmLogLister はミラー済み映画ログの取得を抽象化する。
type FilmLogLister interface {
	List(ctx context.Context) ([]*model.FilmLogItem, error)
}

// SyncStatusFinder は同期メタデータの取得を抽象化する。
type SyncStatusFinder interface {
	Find(ctx context.Context, feed model.Feed) (*model.SyncStatus, error)
}

// LifelogHandler は読書・映画ミラーのHTTPハンドラー。
// ページ表示時に同期ゲートを評価し、陳腐化していればインラインで同期してから
// 保存済みスナップショットを返す。同期失敗時は陳腐データとエラーフラグを返す。
type LifelogHandler struct {
	readingSyncer MirrorSyncer
	readingLister ReadingLister
	filmSyncer    MirrorSyncer
	filmLister    FilmLogLister
	statusFinder  SyncStatusFinder
	collector     metrics.MetricsCollector
	maxAge        time.Duration
	now           func() time.Time // テスト用に差し替え可能
}

// NewLifelogHandler はLifelogHandlerを生成する。
func NewLifelogHandler(
	readingSyncer MirrorSyncer,
	readingLister ReadingLister,
	filmSyncer MirrorSyncer,
	filmLister FilmLogLister,
	statusFinder SyncStatusFinder,
	collector metrics.MetricsCollector,
	maxAge time.Duration,
) *LifelogHandler {
	return &LifelogHandler{
		readingSyncer: readingSyncer,
		readingLister: readingLister,
		filmSyncer:    filmSyncer,
		filmLister:    filmLister,
		statusFinder:  statusFinder,
		collector:     collector,
		maxAge:        maxAge,
		now:           time.Now,
	}
}

// readingItemResponse は読書アイテムのAPIレスポンス。
type readingItemResponse struct {
	ExternalID    string   `json:"external_id"`
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle,omitempty"`
	Description   string   `json:"description,omitempty"`
	CoverURL      string   `json:"cover_url,omitempty"`
	Authors       []string `json:"authors"`
	Rating        *float64 `json:"rating"`
	Review        *string  `json:"review"`
	CompletedDate *string  `json:"completed_date"`
	Status        string   `json:"status"`
}

// filmLogItemResponse は映画ログのAPIレスポンス。
type filmLogItemResponse struct {
	GUID         string   `json:"guid"`
	FilmTitle    string   `json:"film_title"`
	FilmYear     string   `json:"film_year"`
	Rating       *float64 `json:"rating"`
	StarsDisplay string   `json:"stars_display"`
	Link         string   `json:"link"`
	PubDate      string   `json:"pub_date"`
	WatchedDate  string   `json:"watched_date"`
	IsRewatch    bool     `json:"is_rewatch"`
	ReviewText   *string  `json:"review_text"`
	PosterURL    *string  `json:"poster_url"`
	TmdbID       *string  `json:"tmdb_id"`
	IsReview     bool     `json:"is_review"`
}

// mirrorResponse はミラーページの共通レスポンス構造。
type mirrorResponse struct {
	Items        any        `json:"items"`
	SyncFailed   bool       `json:"sync_failed"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
}

// ListReading は読書ミラーを返す。陳腐化していればインラインで同期する。
// GET /api/reading
func (h *LifelogHandler) ListReading(w http.ResponseWriter, r *http.Request) {
	status, syncFailed := h.refreshIfStale(r.Context(), model.FeedReading, h.readingSyncer)

	items, err := h.readingLister.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]readingItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, readingItemResponse{
			ExternalID:    item.ExternalID,
			Title:         item.Title,
			Subtitle:      item.Subtitle,
			Description:   item.Description,
			CoverURL:      item.CoverURL,
			Authors:       item.Authors,
			Rating:        item.Rating,
			Review:        item.Review,
			CompletedDate: item.CompletedDate,
			Status:        string(item.Status),
		})
	}

	writeJSON(w, http.StatusOK, mirrorResponse{
		Items:        out,
		SyncFailed:   syncFailed,
		LastSyncedAt: lastSyncedAt(status),
	})
}

// ListFilms は映画ミラーを返す。陳腐化していればインラインで同期する。
// GET /api/films
func (h *LifelogHandler) ListFilms(w http.ResponseWriter, r *http.Request) {
	status, syncFailed := h.refreshIfStale(r.Context(), model.FeedFilms, h.filmSyncer)

	items, err := h.filmLister.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]filmLogItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, filmLogItemResponse{
			GUID:         item.GUID,
			FilmTitle:    item.FilmTitle,
			FilmYear:     item.FilmYear,
			Rating:       item.Rating,
			StarsDisplay: item.StarsDisplay,
			Link:         item.Link,
			PubDate:      item.PubDate,
			WatchedDate:  item.WatchedDate,
			IsRewatch:    item.IsRewatch,
			ReviewText:   item.ReviewText,
			PosterURL:    item.PosterURL,
			TmdbID:       item.TmdbID,
			IsReview:     item.IsReview,
		})
	}

	writeJSON(w, http.StatusOK, mirrorResponse{
		Items:        out,
		SyncFailed:   syncFailed,
		LastSyncedAt: lastSyncedAt(status),
	})
}

// refreshIfStale は同期ゲートを評価し、陳腐化していればインラインで同期する。
// 返り値は応答に使う同期メタデータ（同期を実行した場合は更新後のもの）と、
// 同期失敗フラグ（呼び出し元は保存済みスナップショットをそのまま返す）。
func (h *LifelogHandler) refreshIfStale(ctx context.Context, feed model.Feed, syncer MirrorSyncer) (*model.SyncStatus, bool) {
	status, err := h.statusFinder.Find(ctx, feed)
	if err != nil {
		slog.Error("failed to find sync status",
			slog.String("feed", string(feed)),
			slog.String("error", err.Error()),
		)
		// メタデータ取得失敗時は同期せず保存済みデータを返す
		return nil, false
	}

	if !syncgate.ShouldSync(status, h.now(), h.maxAge) {
		h.collector.RecordSyncSkipped(string(feed))
		return status, false
	}

	start := time.Now()
	if err := syncer.Sync(ctx); err != nil {
		slog.Error("inline sync failed",
			slog.String("feed", string(feed)),
			slog.String("error", err.Error()),
		)
		h.collector.RecordSyncFailure(string(feed))
		return status, true
	}
	h.collector.RecordSyncSuccess(string(feed))
	h.collector.RecordSyncLatency(string(feed), time.Since(start))

	// 同期を実行した場合のみタイムスタンプを読み直す
	updated, err := h.statusFinder.Find(ctx, feed)
	if err != nil || updated == nil {
		return status, false
	}
	return updated, false
}

// lastSyncedAt は同期メタデータのタイムスタンプを返す。未同期の場合はnil。
func lastSyncedAt(status *model.SyncStatus) *time.Time {
	if status == nil || status.LastSyncedAt.IsZero() {
		return nil
	}
	t := status.LastSyncedAt
	return &t
}
