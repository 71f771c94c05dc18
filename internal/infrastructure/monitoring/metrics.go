package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics Prometheus 指標集合，nil 時所有紀錄方法皆為 no-op
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	aiRequestsTotal   *prometheus.CounterVec
	aiRequestDuration *prometheus.HistogramVec

	extractionsTotal   *prometheus.CounterVec
	extractionDuration prometheus.Histogram

	searchSessionsTotal *prometheus.CounterVec
	searchRecipes       prometheus.Histogram

	cacheOperations *prometheus.CounterVec
}

// NewMetrics 建立獨立 registry 的指標集合
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		aiRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_requests_total",
				Help: "Total number of LLM requests",
			},
			[]string{"model", "kind", "status"},
		),
		aiRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai_request_duration_seconds",
				Help:    "LLM request duration in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"model", "kind"},
		),
		extractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_extractions_total",
				Help: "Recipe page extractions by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		extractionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recipe_extraction_duration_seconds",
				Help:    "Time spent fetching and extracting one recipe page",
				Buckets: prometheus.DefBuckets,
			},
		),
		searchSessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_search_sessions_total",
				Help: "Streamed recipe searches by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		searchRecipes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recipe_search_results",
				Help:    "Number of recipes emitted per search",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
		),
		cacheOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_operations_total",
				Help: "Cache lookups by namespace and result",
			},
			[]string{"namespace", "result"},
		),
	}
}

// Registry 回傳底層 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 回傳 /metrics 處理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// GinMiddleware 記錄每個請求的次數與耗時
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordAIRequest 記錄 LLM 呼叫；kind 為 complete 或 stream
func (m *Metrics) RecordAIRequest(model, kind string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.aiRequestsTotal.WithLabelValues(model, kind, status).Inc()
	m.aiRequestDuration.WithLabelValues(model, kind).Observe(duration.Seconds())
}

// RecordExtraction 記錄一次頁面擷取
func (m *Metrics) RecordExtraction(method string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	if method == "" {
		method = "none"
	}
	m.extractionsTotal.WithLabelValues(method, outcome).Inc()
	m.extractionDuration.Observe(duration.Seconds())
}

// RecordSearch 記錄一次串流搜尋的結果
func (m *Metrics) RecordSearch(mode, outcome string, recipes int) {
	if m == nil {
		return
	}
	m.searchSessionsTotal.WithLabelValues(mode, outcome).Inc()
	m.searchRecipes.Observe(float64(recipes))
}

// RecordCache 記錄快取命中或未命中
func (m *Metrics) RecordCache(namespace string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheOperations.WithLabelValues(namespace, result).Inc()
}
