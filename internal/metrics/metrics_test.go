package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	dto "github.com/prometheus/client_model/go"
)

func TestStatusBucket(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{204, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{429, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		if got := statusBucket(tt.code); got != tt.want {
			t.Errorf("statusBucket(%d) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	body := w.Body.String()

	// Gauges export with a default 0; counters appear after first increment.
	for _, name := range []string{
		"solcloak_active_websocket_clients",
		"solcloak_goroutines",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("expected metrics output to contain %s", name)
		}
	}

	ScansTotal.WithLabelValues("wallet", "ok").Inc()

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/metrics", nil)
	r.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), "solcloak_scans_total") {
		t.Error("expected solcloak_scans_total after incrementing")
	}
}

func TestObserveScan(t *testing.T) {
	before := counterValue(t, "program", "ok")

	ObserveScan("program", "ok", 150*time.Millisecond)

	after := counterValue(t, "program", "ok")
	if after != before+1 {
		t.Errorf("scans_total{program,ok} = %v, want %v", after, before+1)
	}
}

// counterValue reads the current value of ScansTotal for the given labels
// through the client_model protobuf, the same path the scrape handler uses.
func counterValue(t *testing.T, targetType, result string) float64 {
	t.Helper()
	var m dto.Metric
	c, err := ScansTotal.GetMetricWithLabelValues(targetType, result)
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestMiddleware_RecordsMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/v1/labels/:address", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/labels/abc", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	// The counter keys on the route pattern, not the raw path.
	var m dto.Metric
	c, err := HTTPRequestsTotal.GetMetricWithLabelValues("GET", "/v1/labels/:address", "2xx")
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if m.GetCounter().GetValue() < 1 {
		t.Error("expected http_requests_total to record the route pattern")
	}
}
