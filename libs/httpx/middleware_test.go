package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWithRequestIDMintsAndEchoes(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if seen == "" {
		t.Fatal("expected a request id in context")
	}
	if got := rw.Header().Get(RequestIDHeader); got != seen {
		t.Fatalf("response header %q does not match context id %q", got, seen)
	}

	reqWithID := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	reqWithID.Header.Set(RequestIDHeader, "caller-id")
	rwWithID := httptest.NewRecorder()
	h.ServeHTTP(rwWithID, reqWithID)
	if seen != "caller-id" {
		t.Fatalf("expected caller-supplied id to win, got %q", seen)
	}
}

func TestChainOrdersOutermostFirst(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
	}), tag("a"), tag("b"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://example.com/", nil))
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "handler" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rw := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rw, req)
		if rw.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rw.Code)
		}
	}

	rw := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the limit, got %d", rw.Code)
	}

	rwOther := httptest.NewRecorder()
	reqOther := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	reqOther.RemoteAddr = "10.0.0.2:1234"
	h.ServeHTTP(rwOther, reqOther)
	if rwOther.Code != http.StatusOK {
		t.Fatalf("other client should not be limited, got %d", rwOther.Code)
	}
}

func TestWithCORSPreflight(t *testing.T) {
	h := WithCORS(CORSPolicy{
		AllowedOrigins: []string{"https://app.example.com"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "http://example.com/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rw.Code)
	}
	if got := rw.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("unexpected allow-origin %q", got)
	}

	reqDenied := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	reqDenied.Header.Set("Origin", "https://evil.example.com")
	rwDenied := httptest.NewRecorder()
	h.ServeHTTP(rwDenied, reqDenied)
	if got := rwDenied.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("disallowed origin should get no CORS headers, got %q", got)
	}
}
