package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dvloznov/statement-converter/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Limit(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, nil)
	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/process", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusAccepted, http.StatusAccepted, http.StatusTooManyRequests}, codes)

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/process", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestRateLimiter_RecordsHits(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	rl := NewRateLimiter(0.001, 1, m)

	r := chi.NewRouter()
	r.With(rl.Limit).Post("/api/sessions/{id}/process", func(w http.ResponseWriter, r *http.Request) {})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions/abc/process", nil)
		req.RemoteAddr = "10.0.0.1:1"
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	var total float64
	for _, route := range []string{"/api/sessions/{id}/process", "unmatched"} {
		total += testutil.ToFloat64(m.RateLimitHits.WithLabelValues(route))
	}
	assert.Equal(t, 2.0, total)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	rl.getLimiter("1.1.1.1")
	rl.getLimiter("2.2.2.2")
	assert.Equal(t, 2, rl.Len())

	rl.Cleanup(time.Hour)
	assert.Equal(t, 2, rl.Len())

	rl.visitors["1.1.1.1"].lastSeen = time.Now().Add(-2 * time.Hour)
	rl.Cleanup(time.Hour)
	assert.Equal(t, 1, rl.Len())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.1:80", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.1:80", "198.51.100.2"},
		{"remote addr", nil, "192.0.2.1:4321", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
