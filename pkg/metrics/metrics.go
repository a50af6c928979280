package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pae"

var (
	// ReportDuration 报表汇总/导出耗时
	ReportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "report_duration_seconds",
		Help:      "Duración de la generación de reportes.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind", "result"})

	// BulkBatches 批量写入批次计数
	BulkBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bulk_batches_total",
		Help:      "Lotes procesados en operaciones masivas.",
	}, []string{"operation", "result"})

	// HTTPRequests HTTP 请求计数
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Solicitudes HTTP atendidas.",
	}, []string{"method", "route", "status"})
)

// ObserveReport 记录一次报表操作
func ObserveReport(kind string, start time.Time, err error) {
	ReportDuration.WithLabelValues(kind, result(err)).Observe(time.Since(start).Seconds())
}

// ObserveBatch 记录一个批次结果
func ObserveBatch(operation string, err error) {
	BulkBatches.WithLabelValues(operation, result(err)).Inc()
}

// Handler /metrics 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
