package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPLimiter_PerClient(t *testing.T) {
	srv := &Server{}
	l := srv.newRateLimiter(3, time.Minute)
	defer l.stop()

	for i := 0; i < 3; i++ {
		if !l.allow("10.0.0.1") {
			t.Fatalf("request %d from first client rejected", i)
		}
	}
	if l.allow("10.0.0.1") {
		t.Error("fourth request from first client should be rejected")
	}
	if !l.allow("10.0.0.2") {
		t.Error("second client has its own allowance")
	}
	if l.retryAfter != "20" {
		t.Errorf("retryAfter = %q, want 20", l.retryAfter)
	}
}

func TestIPLimiter_MiddlewareUsesHost(t *testing.T) {
	srv := &Server{}
	l := srv.newRateLimiter(1, time.Minute)
	defer l.stop()

	h := l.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	// Same host, different ports: one client
	for i, addr := range []string{"192.0.2.7:1000", "192.0.2.7:2000"} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		want := http.StatusOK
		if i == 1 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Errorf("%s: status = %d, want %d", addr, rec.Code, want)
		}
	}
}

func TestIPLimiter_StopIsIdempotent(t *testing.T) {
	srv := &Server{}
	l := srv.newRateLimiter(1, time.Minute)
	l.stop()
	l.stop()

	if len(srv.limiters) != 1 {
		t.Errorf("limiters = %d, want 1", len(srv.limiters))
	}
}
