package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	JobsInQueue         prometheus.Gauge

	ExtractionsTotal      *prometheus.CounterVec
	ExtractionDuration    prometheus.Histogram
	RecordsExtracted      prometheus.Counter
	DetailFailures        prometheus.Counter
	ContactsFound         prometheus.Counter
	PaginationPasses      prometheus.Histogram
	PaginationEscalations *prometheus.CounterVec
	ResultCacheTotal      *prometheus.CounterVec
)

var once sync.Once

// Init registers every collector with the default registry. Repeated calls are no-ops.
func Init() {
	once.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	JobsInQueue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobs_in_queue",
			Help: "Current number of extraction jobs waiting in the queue.",
		},
	)

	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractions_total",
			Help: "Total number of extraction runs.",
		},
		[]string{"status"}, // success, cancelled, search_unavailable, error
	)

	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "extraction_duration_seconds",
			Help:    "Duration of extraction runs.",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 3600},
		},
	)

	RecordsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "records_extracted_total",
			Help: "Total number of business records produced.",
		},
	)

	DetailFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "detail_failures_total",
			Help: "Total number of detail references that produced no record.",
		},
	)

	ContactsFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contacts_found_total",
			Help: "Total number of records with at least one email or phone.",
		},
	)

	PaginationPasses = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pagination_passes",
			Help:    "Scan passes per link collection.",
			Buckets: []float64{1, 2, 5, 10, 20, 35, 50},
		},
	)

	PaginationEscalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagination_escalations_total",
			Help: "Pagination strategy escalations by state.",
		},
		[]string{"state"},
	)

	ResultCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_cache_total",
			Help: "Result cache lookups by outcome.",
		},
		[]string{"outcome"}, // hit, miss, error
	)
}
