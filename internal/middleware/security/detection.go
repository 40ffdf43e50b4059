package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"fintrack/internal/log"
)

// scannerPatterns appear in scanner traffic, never in analytics queries.
var scannerPatterns = []string{
	"../", "..\\", ".env", ".git", "wp-admin", "phpmyadmin",
	"etc/passwd", "<script", "union select", "cmd.exe",
}

// Detector resolves client addresses and flags probing requests.
type Detector struct {
	suspicious     int64
	trustedProxies []*net.IPNet
}

// NewDetector trusts loopback and private networks to set forwarding headers.
func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),
			parseCIDR("10.0.0.0/8"),
			parseCIDR("172.16.0.0/12"),
			parseCIDR("192.168.0.0/16"),
			parseCIDR("::1/128"),
		},
	}
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}

// ExtractClientIP returns the peer address, or the forwarded client when the
// peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil || !d.isTrustedProxy(parsedDirectIP) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		clientIP := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(clientIP) != nil {
			return clientIP
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// IsSuspicious reports whether the path or query carries a scanner pattern.
func (d *Detector) IsSuspicious(r *http.Request) bool {
	query, err := url.QueryUnescape(r.URL.RawQuery)
	if err != nil {
		query = r.URL.RawQuery
	}
	target := strings.ToLower(r.URL.Path + "?" + query)
	for _, pattern := range scannerPatterns {
		if strings.Contains(target, pattern) {
			atomic.AddInt64(&d.suspicious, 1)
			return true
		}
	}
	return len(r.URL.RawQuery) > 2048
}

// SuspiciousRequests returns how many requests were flagged.
func (d *Detector) SuspiciousRequests() int64 {
	return atomic.LoadInt64(&d.suspicious)
}

// Middleware logs flagged requests and rejects them with 400.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.IsSuspicious(r) {
			fields := log.NewFields().
				WithClientIP(d.ExtractClientIP(r)).
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent())
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).
				WarnContext(r.Context(), "Suspicious request rejected", fields.ToSlice()...)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}
