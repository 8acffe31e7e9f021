package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"travel_gateway/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record samples so the vectors are exported
	observability.ObserveHTTP("/api/flights", "GET", 200, 12*time.Millisecond)
	observability.ObserveExternal("amadeus", "flight-offers", 200, 80*time.Millisecond)
	observability.ObserveFault("sherpa", "requirements", "timeout")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{
		"travel_gateway_http_requests_total",
		"travel_gateway_external_requests_total",
		`travel_gateway_upstream_faults_total{kind="timeout",op="requirements",service="sherpa"}`,
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}
