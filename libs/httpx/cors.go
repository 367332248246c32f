package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy configures WithCORS. An empty AllowedOrigins disables the
// middleware entirely.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// WithCORS answers preflight requests and stamps CORS response headers for
// allowed origins. Requests from other origins pass through untouched; the
// browser enforces the denial.
func WithCORS(p CORSPolicy) Middleware {
	if len(p.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	origins := trimNonEmpty(p.AllowedOrigins)
	methods := strings.Join(trimNonEmpty(p.AllowedMethods), ", ")
	headers := strings.Join(trimNonEmpty(p.AllowedHeaders), ", ")
	maxAge := ""
	if p.MaxAge > 0 {
		maxAge = strconv.Itoa(int(p.MaxAge.Seconds()))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			allow, ok := p.allowOrigin(origin, origins)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allow)
			if p.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if methods != "" {
				h.Set("Access-Control-Allow-Methods", methods)
			}
			if headers != "" {
				h.Set("Access-Control-Allow-Headers", headers)
			}
			if maxAge != "" {
				h.Set("Access-Control-Max-Age", maxAge)
			}
			h.Add("Vary", "Origin")
			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allowOrigin picks the Allow-Origin value for origin. A "*" entry echoes the
// caller's origin when credentials are allowed, since "*" and credentials are
// mutually exclusive in the CORS protocol.
func (p CORSPolicy) allowOrigin(origin string, allowed []string) (string, bool) {
	for _, a := range allowed {
		switch {
		case a == "*" && p.AllowCredentials:
			return origin, true
		case a == "*":
			return "*", true
		case strings.EqualFold(a, origin):
			return origin, true
		}
	}
	return "", false
}

func trimNonEmpty(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
