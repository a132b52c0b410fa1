package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal общее количество запросов к API
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration продолжительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// EventsIngested принятые события трафика
	EventsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "traffic_events_ingested_total",
			Help: "Total number of traffic events ingested",
		},
	)

	// BytesIngested объем принятого трафика
	BytesIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "traffic_bytes_ingested_total",
			Help: "Total number of bytes carried by ingested events",
		},
	)

	// AlertsEmitted события пересечения порога
	AlertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traffic_alerts_total",
			Help: "Total number of traffic alerts emitted",
		},
		[]string{"status"},
	)

	// TickLatency длительность одного тика планировщика
	TickLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_tick_latency_seconds",
			Help:    "Monitor scheduler tick latency in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)

	// SchedulerTicks выполненные тики
	SchedulerTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_ticks_total",
			Help: "Total number of monitor scheduler ticks",
		},
	)

	// RollingTraffic объем трафика в скользящем окне
	RollingTraffic = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rolling_traffic_bytes",
			Help: "Traffic in bytes over the alerting window",
		},
	)

	// AlertState текущее состояние алертинга (0 - нет, 1 - выше порога, 2 - восстановление)
	AlertState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "traffic_alert_state",
			Help: "Current traffic alert state",
		},
	)

	// SectionsReported количество секций в последнем отчете
	SectionsReported = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sections_reported",
			Help: "Number of sections in the last report",
		},
	)

	// ExportQueueSize размер очереди экспорта в Redis
	ExportQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "export_queue_size",
			Help: "Current size of the history export queue",
		},
	)

	// ReportsDropped отчеты, не попавшие в очередь экспорта
	ReportsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "export_reports_dropped_total",
			Help: "Total number of reports dropped by the history exporter",
		},
	)

	// AlertsDropped алерты, не попавшие в очередь экспорта
	AlertsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "export_alerts_dropped_total",
			Help: "Total number of alerts dropped by the history exporter",
		},
	)

	// RedisOperations операции с Redis
	RedisOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total number of Redis operations",
		},
		[]string{"operation", "status"},
	)
)
