package security

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"financeiro/internal/log"
)

func TestClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct public peer ignores headers", "203.0.113.7:5000", "198.51.100.1", "", "203.0.113.7"},
		{"trusted proxy forwards first hop", "10.0.0.2:5000", "198.51.100.1, 10.0.0.9", "", "198.51.100.1"},
		{"trusted proxy with real ip", "127.0.0.1:5000", "", "198.51.100.2", "198.51.100.2"},
		{"trusted proxy garbage header", "192.168.1.1:80", "not-an-ip", "", "192.168.1.1"},
		{"ipv6 loopback", "[::1]:8080", "2001:db8::1", "", "2001:db8::1"},
		{"no port", "203.0.113.9", "", "", "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ClientIP(r); got != tt.want {
				t.Fatalf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector()
	if err := d.AddTrustedProxy("nope"); err == nil {
		t.Fatal("expected error for invalid CIDR")
	}
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:1"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := d.ClientIP(r); got != "198.51.100.1" {
		t.Fatalf("ClientIP = %q", got)
	}
}

func TestSuspicious(t *testing.T) {
	d := NewDetector()
	cases := []struct {
		method, target, agent string
		want                  bool
	}{
		{http.MethodGet, "/api/escritorio/entries?month=2026-03", "curl/8.0", false},
		{http.MethodGet, "/api/../../etc/passwd", "", true},
		{http.MethodGet, "/api/%3Cscript%3E", "", true},
		{http.MethodGet, "/.git/config", "", true},
		{http.MethodGet, "/healthz", "sqlmap/1.7", true},
		{"TRACE", "/healthz", "", true},
		{http.MethodGet, "/api/x?q=" + strings.Repeat("a", 2100), "", true},
	}
	flagged := 0
	for _, c := range cases {
		r := httptest.NewRequest(c.method, c.target, nil)
		r.Header.Set("User-Agent", c.agent)
		got := d.Suspicious(r)
		if got != c.want {
			t.Errorf("%s %s: got %v, want %v", c.method, c.target, got, c.want)
		}
		if got {
			flagged++
		}
	}
	if m := d.GetMetrics(); m.SuspiciousRequests != int64(flagged) {
		t.Fatalf("SuspiciousRequests = %d, want %d", m.SuspiciousRequests, flagged)
	}
}

func TestDetectorMiddlewarePassesThrough(t *testing.T) {
	d := NewDetector()
	logger := log.New(log.Config{Output: io.Discard})
	h := d.Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rr.Code)
	}
	if d.GetMetrics().SuspiciousRequests != 1 {
		t.Fatal("request not counted")
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q", got)
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS set on plain HTTP")
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Fatalf("HSTS = %q", got)
	}
}
