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
// ミドルウェアや認証バックエンドから利用する。
type MetricsCollector interface {
	RecordAuthAttempt(backend string, result string)
	RecordCredentialCacheHit()
	RecordCredentialCacheMiss()
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authAttempts    *prometheus.CounterVec
	credCacheHits   prometheus.Counter
	credCacheMisses prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docgate_auth_attempts_total",
			Help: "認証試行のバックエンド・結果別合計数",
		}, []string{"backend", "result"}),
		credCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docgate_credential_cache_hits_total",
			Help: "一時資格情報キャッシュのヒット合計数",
		}),
		credCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docgate_credential_cache_misses_total",
			Help: "一時資格情報キャッシュのミス合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docgate_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docgate_request_duration_seconds",
			Help:    "リクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.authAttempts,
		c.credCacheHits,
		c.credCacheMisses,
		c.httpStatus,
		c.requestDuration,
	)

	return c
}

// RecordAuthAttempt は認証試行をバックエンド・結果別に記録する。
// resultは"success"、"degraded"、"failure"のいずれか。
func (c *Collector) RecordAuthAttempt(backend string, result string) {
	c.authAttempts.WithLabelValues(backend, result).Inc()
}

// RecordCredentialCacheHit は資格情報キャッシュのヒットを記録する。
func (c *Collector) RecordCredentialCacheHit() {
	c.credCacheHits.Inc()
}

// RecordCredentialCacheMiss は資格情報キャッシュのミスを記録する。
func (c *Collector) RecordCredentialCacheMiss() {
	c.credCacheMisses.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
