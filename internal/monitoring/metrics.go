package monitoring

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mailgallery"

// Metrics 监控指标，每个实例使用独立的注册表
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 导入指标
	EmailsImported    prometheus.Counter
	DuplicatesSkipped prometheus.Counter
	ImportDuration    *prometheus.HistogramVec
	TokenRefreshes    *prometheus.CounterVec

	// 分类指标
	GeoLookups   *prometheus.CounterVec
	GeoCacheHits prometheus.Counter

	// 缩略图指标
	ThumbnailsGenerated prometheus.Counter
	ThumbnailsFailed    prometheus.Counter
	ThumbnailDuration   prometheus.Histogram

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标，同时注册 Go 运行时和进程指标
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	started := time.Now()

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the process started",
	}, func() float64 { return time.Since(started).Seconds() })

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),

		HTTPResponseSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
		}, []string{"method", "endpoint"}),

		EmailsImported: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_imported_total",
			Help:      "Emails inserted by the Gmail import",
		}),

		DuplicatesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_duplicate_skipped_total",
			Help:      "Listed messages skipped because they were already imported",
		}),

		ImportDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Duration of one import batch",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"result"}),

		TokenRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "OAuth access token refresh attempts",
		}, []string{"result"}),

		GeoLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geo_lookups_total",
			Help:      "IP geolocation lookups that reached the provider",
		}, []string{"result"}),

		GeoCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geo_cache_hits_total",
			Help:      "Country lookups answered from the cache",
		}),

		ThumbnailsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thumbnails_generated_total",
			Help:      "Thumbnails rendered and stored",
		}),

		ThumbnailsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thumbnails_failed_total",
			Help:      "Thumbnail renders that failed and were skipped",
		}),

		ThumbnailDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "thumbnail_render_duration_seconds",
			Help:      "Time to render and resize one thumbnail",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 40},
		}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors",
		}, []string{"type", "component"}),

		PanicsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panics_total",
			Help:      "Total number of recovered panics",
		}),
	}
}

// RegisterDB 导出数据库连接池指标
func (m *Metrics) RegisterDB(db *sql.DB) {
	m.registry.MustRegister(collectors.NewDBStatsCollector(db, namespace))
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, responseSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordImport 记录一次导入批次
func (m *Metrics) RecordImport(imported, skipped int, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.EmailsImported.Add(float64(imported))
	m.DuplicatesSkipped.Add(float64(skipped))
	m.ImportDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordTokenRefresh 记录令牌刷新结果
func (m *Metrics) RecordTokenRefresh(ok bool) {
	if ok {
		m.TokenRefreshes.WithLabelValues("success").Inc()
		return
	}
	m.TokenRefreshes.WithLabelValues("failure").Inc()
}

// GeoLookup 记录一次实际发出的归属地查询
func (m *Metrics) GeoLookup(result string) {
	label := "resolved"
	if result == "Unknown" {
		label = "unknown"
	}
	m.GeoLookups.WithLabelValues(label).Inc()
}

// GeoCacheHit 记录缓存命中
func (m *Metrics) GeoCacheHit() {
	m.GeoCacheHits.Inc()
}

// RecordThumbnail 记录一次缩略图渲染
func (m *Metrics) RecordThumbnail(duration time.Duration, err error) {
	if err != nil {
		m.ThumbnailsFailed.Inc()
		return
	}
	m.ThumbnailsGenerated.Inc()
	m.ThumbnailDuration.Observe(duration.Seconds())
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
