// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 同期サービスや認証サービスから利用する。
type MetricsCollector interface {
	RecordSyncSuccess(feed string)
	RecordSyncFailure(feed string)
	RecordSyncSkipped(feed string)
	RecordSyncLatency(feed string, duration time.Duration)
	RecordCodeIssued()
	RecordCodeVerified(outcome string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	syncSuccess  *prometheus.CounterVec
	syncFail     *prometheus.CounterVec
	syncSkipped  *prometheus.CounterVec
	syncLatency  *prometheus.HistogramVec
	codeIssued   prometheus.Counter
	codeVerified *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		syncSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifelog_sync_success_total",
			Help: "フィード同期成功の合計数",
		}, []string{"feed"}),
		syncFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifelog_sync_fail_total",
			Help: "フィード同期失敗の合計数",
		}, []string{"feed"}),
		syncSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifelog_sync_skipped_total",
			Help: "同期ゲートにより省略された同期の合計数",
		}, []string{"feed"}),
		syncLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lifelog_sync_latency_seconds",
			Help:    "フィード同期のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"feed"}),
		codeIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lifelog_code_issued_total",
			Help: "発行されたワンタイムコードの合計数",
		}),
		codeVerified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifelog_code_verified_total",
			Help: "ワンタイムコード検証の結果別合計数",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.syncSuccess,
		c.syncFail,
		c.syncSkipped,
		c.syncLatency,
		c.codeIssued,
		c.codeVerified,
	)

	return c
}

// RecordSyncSuccess はフィード同期の成功を記録する。
func (c *Collector) RecordSyncSuccess(feed string) {
	c.syncSuccess.WithLabelValues(feed).Inc()
}

// RecordSyncFailure はフィード同期の失敗を記録する。
func (c *Collector) RecordSyncFailure(feed string) {
	c.syncFail.WithLabelValues(feed).Inc()
}

// RecordSyncSkipped は同期ゲートによる省略を記録する。
func (c *Collector) RecordSyncSkipped(feed string) {
	c.syncSkipped.WithLabelValues(feed).Inc()
}

// RecordSyncLatency はフィード同期のレイテンシを記録する。
func (c *Collector) RecordSyncLatency(feed string, duration time.Duration) {
	c.syncLatency.WithLabelValues(feed).Observe(duration.Seconds())
}

// RecordCodeIssued はワンタイムコードの発行を記録する。
func (c *Collector) RecordCodeIssued() {
	c.codeIssued.Inc()
}

// RecordCodeVerified はワンタイムコード検証の結果を記録する。
// outcomeは "success" / "invalid" / "expired" のいずれか。
func (c *Collector) RecordCodeVerified(outcome string) {
	c.codeVerified.WithLabelValues(outcome).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
