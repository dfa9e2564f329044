// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector は配信パイプラインのPrometheusメトリクスを収集する。
// notify.DeliveryMetricsインターフェースを実装する。
type Collector struct {
	deliverySuccess prometheus.Counter
	deliveryFail    prometheus.Counter
	zeroDue         prometheus.Counter
	skips           *prometheus.CounterVec
	accountErrors   prometheus.Counter
	devicesRemoved  prometheus.Counter
	runDuration     prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		deliverySuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remindcast_delivery_success_total",
			Help: "少なくとも1デバイスへの送信が成功した配信の合計数",
		}),
		deliveryFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remindcast_delivery_fail_total",
			Help: "全デバイスへの送信が失敗した配信の合計数",
		}),
		zeroDue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remindcast_zero_due_total",
			Help: "期日リマインダー0件で送信なしに完了したアカウントの合計数",
		}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remindcast_skip_total",
			Help: "理由別のスキップ数",
		}, []string{"reason"}),
		accountErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remindcast_account_error_total",
			Help: "アカウント単位で失敗した配信処理の合計数",
		}),
		devicesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remindcast_device_removed_total",
			Help: "購読消滅により削除されたデバイスの合計数",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remindcast_run_duration_seconds",
			Help:    "配信サイクル全体の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.deliverySuccess,
		c.deliveryFail,
		c.zeroDue,
		c.skips,
		c.accountErrors,
		c.devicesRemoved,
		c.runDuration,
	)

	return c
}

// RecordDelivered は配信試行の成否を記録する。
func (c *Collector) RecordDelivered(success bool) {
	if success {
		c.deliverySuccess.Inc()
	} else {
		c.deliveryFail.Inc()
	}
}

// RecordZeroDue は期日0件での完了を記録する。
func (c *Collector) RecordZeroDue() {
	c.zeroDue.Inc()
}

// RecordSkip は理由別のスキップを記録する。
func (c *Collector) RecordSkip(reason string) {
	c.skips.WithLabelValues(reason).Inc()
}

// RecordAccountError はアカウント単位の失敗を記録する。
func (c *Collector) RecordAccountError() {
	c.accountErrors.Inc()
}

// RecordDeviceRemoved はデバイス削除を記録する。
func (c *Collector) RecordDeviceRemoved() {
	c.devicesRemoved.Inc()
}

// RecordRunDuration は配信サイクルの所要時間を記録する。
func (c *Collector) RecordRunDuration(d time.Duration) {
	c.runDuration.Observe(d.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
