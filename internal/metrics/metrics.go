// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラー・サービス・ワーカー層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordFeedPageLoad(scope string)
	RecordFeedLatency(duration time.Duration)
	RecordEngagement(kind string)
	RecordReviewResult(status string)
	RecordCountersReconciled(count int)
	RecordUploadBytes(size int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus         *prometheus.CounterVec
	feedPageLoads      *prometheus.CounterVec
	feedLatency        prometheus.Histogram
	engagements        *prometheus.CounterVec
	reviewResults      *prometheus.CounterVec
	countersReconciled prometheus.Counter
	uploadBytes        prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "magfeed_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		feedPageLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "magfeed_feed_page_loads_total",
			Help: "スコープ別のフィードページ取得数",
		}, []string{"scope"}),
		feedLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "magfeed_feed_latency_seconds",
			Help:    "フィードページ取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		engagements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "magfeed_engagements_total",
			Help: "種別ごとのエンゲージメント操作数（like/star/follow/subscribe/comment）",
		}, []string{"kind"}),
		reviewResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "magfeed_review_results_total",
			Help: "審査ワーカーの判定結果数（published/rejected）",
		}, []string{"status"}),
		countersReconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "magfeed_counters_reconciled_total",
			Help: "カウンター再集計で更新された記事の合計数",
		}),
		uploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "magfeed_upload_bytes",
			Help:    "アップロードされたメディアのサイズ（バイト）",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.feedPageLoads,
		c.feedLatency,
		c.engagements,
		c.reviewResults,
		c.countersReconciled,
		c.uploadBytes,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFeedPageLoad はフィードページ取得をスコープ別に記録する。
func (c *Collector) RecordFeedPageLoad(scope string) {
	c.feedPageLoads.WithLabelValues(scope).Inc()
}

// RecordFeedLatency はフィードページ取得のレイテンシを記録する。
func (c *Collector) RecordFeedLatency(duration time.Duration) {
	c.feedLatency.Observe(duration.Seconds())
}

// RecordEngagement はエンゲージメント操作を種別ごとに記録する。
func (c *Collector) RecordEngagement(kind string) {
	c.engagements.WithLabelValues(kind).Inc()
}

// RecordReviewResult は審査ワーカーの判定結果を記録する。
func (c *Collector) RecordReviewResult(status string) {
	c.reviewResults.WithLabelValues(status).Inc()
}

// RecordCountersReconciled は再集計で更新された記事数を記録する。
func (c *Collector) RecordCountersReconciled(count int) {
	c.countersReconciled.Add(float64(count))
}

// RecordUploadBytes はアップロードされたメディアのサイズを記録する。
func (c *Collector) RecordUploadBytes(size int64) {
	c.uploadBytes.Observe(float64(size))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
