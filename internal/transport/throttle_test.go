package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestThrottle_WritesWaitForToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	client := &http.Client{Transport: Throttle(srv.Client().Transport, limiter)}

	send := func(method string, timeout time.Duration) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		req, _ := http.NewRequestWithContext(ctx, method, srv.URL, nil)
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
		}
		return err
	}

	if err := send(http.MethodPut, time.Second); err != nil {
		t.Fatalf("first write should use the burst token: %v", err)
	}
	if err := send(http.MethodPut, 50*time.Millisecond); err == nil {
		t.Fatal("second write should block until the context expires")
	}
	if err := send(http.MethodGet, time.Second); err != nil {
		t.Fatalf("reads should not be throttled: %v", err)
	}
}

func TestLimiters_PerKey(t *testing.T) {
	l := NewLimiters(5, 2)

	a1 := l.For("store-a")
	a2 := l.For("store-a")
	b := l.For("store-b")

	if a1 != a2 {
		t.Error("same key should return the same limiter")
	}
	if a1 == b {
		t.Error("different keys should not share a limiter")
	}
	if a1.Burst() != 2 {
		t.Errorf("Burst() = %d, want 2", a1.Burst())
	}

	l.Sweep(0)
	if l.For("store-a") == a1 {
		t.Error("Sweep should drop idle limiters")
	}
}

func TestChromeTransport_PlainHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewChromeTransport(5 * time.Second)}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET over plain http: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
