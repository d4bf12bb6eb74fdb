package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorRecords(t *testing.T) {
	c := NewCollector("samplace")
	reg := prometheus.NewRegistry()
	if err := c.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	c.RecordMutation("add", ResultSuccess)
	c.RecordMutation("add", ResultSuccess)
	c.RecordMutation("delete", ResultNotFound)
	c.RecordRecalculation(3, 2*time.Millisecond)
	c.RecordHTTPRequest(http.MethodPost, http.StatusUnprocessableEntity, time.Millisecond)

	if got := testutil.ToFloat64(c.mutations.WithLabelValues("add", ResultSuccess)); got != 2 {
		t.Fatalf("add/success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.ledgerRows); got != 3 {
		t.Fatalf("ledger_rows = %v, want 3", got)
	}

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`samplace_mutations_total{operation="delete",result="not_found"} 1`,
		"samplace_recalculation_seconds_count 1",
		"samplace_ledger_rows 3",
		`samplace_http_requests_total{code="422",method="POST"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRegisterTwiceFails(t *testing.T) {
	c := NewCollector("samplace")
	reg := prometheus.NewRegistry()
	if err := c.Register(reg); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := c.Register(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.RecordMutation("add", ResultSuccess)
	c.RecordRecalculation(1, time.Second)
	c.RecordMirrorSync(ResultError)
	c.RecordCircuitState(1)
	c.RecordHTTPRequest(http.MethodGet, http.StatusOK, time.Millisecond)
}

func TestMirrorMetricsRegisteredSeparately(t *testing.T) {
	c := NewCollector("samplace")
	server := prometheus.NewRegistry()
	if err := c.Register(server); err != nil {
		t.Fatalf("Register: %v", err)
	}
	mirror := prometheus.NewRegistry()
	if err := c.RegisterMirror(mirror); err != nil {
		t.Fatalf("RegisterMirror: %v", err)
	}

	c.RecordMirrorSync(ResultSuccess)
	c.RecordMirrorSync(ResultError)
	c.RecordCircuitState(1)

	scrape := func(reg *prometheus.Registry) string {
		rec := httptest.NewRecorder()
		Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		return rec.Body.String()
	}

	body := scrape(mirror)
	for _, want := range []string{
		`samplace_mirror_syncs_total{result="success"} 1`,
		`samplace_mirror_syncs_total{result="error"} 1`,
		"samplace_mirror_circuit_state 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("mirror metrics missing %q", want)
		}
	}
	if strings.Contains(scrape(server), "mirror_") {
		t.Error("server registry must not expose mirror metrics")
	}
}
