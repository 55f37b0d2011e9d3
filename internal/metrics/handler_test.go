package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// TestSetupMetricsRoute_ServesMetricsPath は/metricsパスでメトリクスが公開されることを検証する。
func TestSetupMetricsRoute_ServesMetricsPath(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordHTTPStatus(200)

	handler := SetupMetricsRoute(reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "magfeed_http_status_total") {
		t.Error("response should contain magfeed_http_status_total")
	}
}

// TestSetupMetricsRoute_UnknownPathReturns404 は未知のパスに404を返すことを検証する。
func TestSetupMetricsRoute_UnknownPathReturns404(t *testing.T) {
	reg := prometheus.NewRegistry()
	handler := SetupMetricsRoute(reg)

	req := httptest.NewRequest(http.MethodGet, "/unknown", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
