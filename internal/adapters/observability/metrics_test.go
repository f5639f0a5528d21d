package observability_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"poi_reconciler/internal/adapters/observability"
	"poi_reconciler/internal/domain"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record one sample so counters are non-zero
	observability.ObserveHTTP("/healthz", "GET", 200, 12*time.Millisecond)
	observability.ObserveMerge(domain.SourceAPI, "accepted")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, want := range []string{"poi_http_requests_total", "poi_merge_outcomes_total"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output", want)
		}
	}
}

func TestObserveSource(t *testing.T) {
	before := testutil.ToFloat64(observability.SourceRecords.WithLabelValues("graph"))
	observability.ObserveSource(domain.SourceGraph, 7, nil, time.Millisecond)
	if got := testutil.ToFloat64(observability.SourceRecords.WithLabelValues("graph")) - before; got != 7 {
		t.Fatalf("expected 7 records, got %v", got)
	}

	err := errors.New("boom")
	label := observability.LabelErr(err)
	before = testutil.ToFloat64(observability.SourceFailures.WithLabelValues("vector", label))
	observability.ObserveSource(domain.SourceVector, 0, err, time.Millisecond)
	if got := testutil.ToFloat64(observability.SourceFailures.WithLabelValues("vector", label)) - before; got != 1 {
		t.Fatalf("expected one failure, got %v", got)
	}
}
