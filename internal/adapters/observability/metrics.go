package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"poi_reconciler/internal/domain"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "poi", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "poi", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "poi", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "poi", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "poi", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	SourceRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "poi", Name: "source_records_total", Help: "Records returned by each source."},
		[]string{"source"},
	)
	SourceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "poi", Name: "source_failures_total", Help: "Source fetches degraded to an empty list."},
		[]string{"source", "error"},
	)
	SourceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "poi", Name: "source_fetch_duration_seconds",
			Help:    "Source fetch duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)
	MergeOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "poi", Name: "merge_outcomes_total", Help: "Reconciliation outcome per input record."},
		[]string{"source", "outcome"}, // outcome: accepted|no_coordinates|name_duplicate|location_duplicate
	)
	ValidationVerdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "poi", Name: "validation_verdicts_total", Help: "Candidate set validation results."},
		[]string{"result"},
	)
)

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
		SourceRecords, SourceFailures, SourceLatency, MergeOutcomes, ValidationVerdicts,
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

// ObserveSource matches app.FetchObserver.
func ObserveSource(tag domain.SourceTag, records int, err error, dur time.Duration) {
	SourceLatency.WithLabelValues(string(tag)).Observe(dur.Seconds())
	if err != nil {
		SourceFailures.WithLabelValues(string(tag), LabelErr(err)).Inc()
		return
	}
	SourceRecords.WithLabelValues(string(tag)).Add(float64(records))
}

// ObserveMerge matches the engine's per-record observer.
func ObserveMerge(tag domain.SourceTag, outcome string) {
	MergeOutcomes.WithLabelValues(string(tag), outcome).Inc()
}

func ObserveVerdict(valid bool) {
	if valid {
		ValidationVerdicts.WithLabelValues("valid").Inc()
		return
	}
	ValidationVerdicts.WithLabelValues("invalid").Inc()
}

func LabelErr(err error) string {
	if err == nil {
		return "none"
	}
	return fmt.Sprintf("%T", err)
}
