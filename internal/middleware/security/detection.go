// Package security holds the request screening and response header
// middleware of the API server.
package security

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"

	"financeiro/internal/log"
)

const maxURLLength = 2048

var (
	suspiciousPatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"etc/passwd", "cmd.exe",
	}
	// Scanners only; API clients such as curl are expected.
	suspiciousAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan"}
	unusualMethods   = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}
)

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
}

// Detector resolves client addresses and flags requests that look like
// probing. Flagged requests are logged and counted, not rejected.
type Detector struct {
	suspicious     atomic.Int64
	trustedProxies []netip.Prefix
}

// NewDetector trusts loopback and private networks to set forwarding headers.
func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []netip.Prefix{
			netip.MustParsePrefix("127.0.0.0/8"),
			netip.MustParsePrefix("::1/128"),
			netip.MustParsePrefix("10.0.0.0/8"),
			netip.MustParsePrefix("172.16.0.0/12"),
			netip.MustParsePrefix("192.168.0.0/16"),
		},
	}
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, p.Masked())
	return nil
}

// ClientIP returns the caller's address. Forwarding headers are honoured
// only when the direct peer is a trusted proxy.
func (d *Detector) ClientIP(r *http.Request) string {
	direct, err := netip.ParseAddrPort(r.RemoteAddr)
	var addr netip.Addr
	if err == nil {
		addr = direct.Addr()
	} else if addr, err = netip.ParseAddr(r.RemoteAddr); err != nil {
		return r.RemoteAddr
	}
	addr = addr.Unmap()

	if !d.isTrustedProxy(addr) {
		return addr.String()
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return ip.String()
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if ip, err := netip.ParseAddr(xri); err == nil {
			return ip.String()
		}
	}
	return addr.String()
}

func (d *Detector) isTrustedProxy(addr netip.Addr) bool {
	for _, p := range d.trustedProxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Suspicious reports whether a request matches a known probing pattern.
func (d *Detector) Suspicious(r *http.Request) bool {
	hit := d.match(r)
	if hit {
		d.suspicious.Add(1)
	}
	return hit
}

func (d *Detector) match(r *http.Request) bool {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, p := range suspiciousPatterns {
		if strings.Contains(path, p) || strings.Contains(query, p) {
			return true
		}
	}

	agent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, a := range suspiciousAgents {
		if strings.Contains(agent, a) {
			return true
		}
	}

	for _, m := range unusualMethods {
		if r.Method == m {
			return true
		}
	}

	if len(r.URL.String()) > maxURLLength {
		return true
	}
	// More than five proxy hops.
	return strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5
}

// Middleware logs flagged requests and passes every request through.
func (d *Detector) Middleware(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d.Suspicious(r) {
				logger.WarnContext(r.Context(), "Suspicious request",
					log.FieldClientIP, d.ClientIP(r),
					log.FieldMethod, r.Method,
					log.FieldPath, r.URL.Path,
					log.FieldUserAgent, r.Header.Get("User-Agent"))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{SuspiciousRequests: d.suspicious.Load()}
}
