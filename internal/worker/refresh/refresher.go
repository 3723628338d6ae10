// Package refresh はミラーコレクションのバックグラウンド温め直し処理を提供する。
// ティッカー駆動で両ミラーの同期ゲートを評価し、陳腐化したミラーだけを更新する。
// ページ閲覧時のインライン同期はこのワーカーとは独立して動作し続ける。
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/lifelog/internal/metrics"
	"github.com/hitoshi/lifelog/internal/model"
	"github.com/hitoshi/lifelog/internal/repository"
	"github.com/hitoshi/lifelog/internal/syncgate"
)

// MirrorSyncer はミラーコレクションの同期の実行インターフェース。
type MirrorSyncer interface {
	Sync(ctx context.Context) error
}

// target は1つのミラーフィードの更新対象を表す。
type target struct {
	feed   model.Feed
	syncer MirrorSyncer
}

// Refresher は両ミラーの定期温め直しを行う。
type Refresher struct {
	statusRepo repository.SyncStatusRepository
	targets    []target
	collector  metrics.MetricsCollector
	logger     *slog.Logger
	maxAge     time.Duration
}

// NewRefresher はRefresherの新しいインスタンスを生成する。
func NewRefresher(
	statusRepo repository.SyncStatusRepository,
	readingSyncer MirrorSyncer,
	filmSyncer MirrorSyncer,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	maxAge time.Duration,
) *Refresher {
	return &Refresher{
		statusRepo: statusRepo,
		targets: []target{
			{feed: model.FeedReading, syncer: readingSyncer},
			{feed: model.FeedFilms, syncer: filmSyncer},
		},
		collector: collector,
		logger:    logger,
		maxAge:    maxAge,
	}
}

// Start は指定間隔のティッカーで温め直しを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (r *Refresher) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("ミラー温め直しワーカーを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("max_age", r.maxAge),
	)

	// 起動直後に1回実行
	r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("ミラー温め直しワーカーを停止しました")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce は両ミラーの同期ゲートを評価し、陳腐化したミラーを並列で更新する。
// 片方の失敗はもう片方の更新に影響しない。
func (r *Refresher) RunOnce(ctx context.Context) {
	now := time.Now()
	var wg sync.WaitGroup

	for _, t := range r.targets {
		status, err := r.statusRepo.Find(ctx, t.feed)
		if err != nil {
			r.logger.Error("同期メタデータの取得に失敗しました",
				slog.String("feed", string(t.feed)),
				slog.String("error", err.Error()),
			)
			continue
		}

		if !syncgate.ShouldSync(status, now, r.maxAge) {
			r.collector.RecordSyncSkipped(string(t.feed))
			continue
		}

		wg.Add(1)
		go func(t target) {
			defer wg.Done()

			start := time.Now()
			if err := t.syncer.Sync(ctx); err != nil {
				r.logger.Error("ミラー同期に失敗しました",
					slog.String("feed", string(t.feed)),
					slog.String("error", err.Error()),
				)
				r.collector.RecordSyncFailure(string(t.feed))
				return
			}
			r.collector.RecordSyncSuccess(string(t.feed))
			r.collector.RecordSyncLatency(string(t.feed), time.Since(start))

			r.logger.Info("ミラーを温め直しました",
				slog.String("feed", string(t.feed)),
				slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
			)
		}(t)
	}

	wg.Wait()
}
