package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"
)

type DetectionMetrics struct {
	SuspiciousRequests int64
	BlockedRequests    int64
}

// Detector recognises scanner probes and resolves the real client address
// behind trusted proxies.
type Detector struct {
	suspicious atomic.Int64
	blocked    atomic.Int64
	trusted    []netip.Prefix
}

// Substrings of the lower-cased path and query that only probes send.
var probePatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", ".git/", ".ssh",
	"<script", "union select", "etc/passwd", "cmd.exe",
}

var scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb"}

const maxURLLength = 2048

// NewDetector trusts loopback and the private ranges as proxies.
func NewDetector() *Detector {
	d := &Detector{}
	for _, cidr := range []string{"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "::1/128"} {
		d.trusted = append(d.trusted, netip.MustParsePrefix(cidr))
	}
	return d
}

// AddTrustedProxy trusts forwarding headers from cidr. Call before serving.
func (d *Detector) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trusted = append(d.trusted, p)
	return nil
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// IsSuspicious reports whether r looks like a vulnerability probe.
func (d *Detector) IsSuspicious(r *http.Request) bool {
	var hit bool
	switch r.Method {
	case "TRACE", "TRACK", "DEBUG", http.MethodConnect:
		hit = true
	default:
		hit = len(r.URL.String()) > maxURLLength ||
			containsAny(strings.ToLower(r.URL.Path+"?"+r.URL.RawQuery), probePatterns) ||
			containsAny(strings.ToLower(r.UserAgent()), scannerAgents)
	}
	if hit {
		d.suspicious.Add(1)
	}
	return hit
}

// Middleware answers probes with 404 before they reach a handler.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !d.IsSuspicious(r) {
			next.ServeHTTP(w, r)
			return
		}
		d.blocked.Add(1)
		slog.WarnContext(r.Context(), "Suspicious request blocked",
			"component", "security",
			"client_ip", d.ExtractClientIP(r),
			"method", r.Method,
			"path", r.URL.Path,
			"user_agent", r.UserAgent())
		http.NotFound(w, r)
	})
}

// ExtractClientIP returns the peer address, or the forwarded client address
// when the peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(peer)
	if err != nil || !d.isTrusted(addr.Unmap()) {
		return peer
	}
	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	for _, candidate := range []string{first, r.Header.Get("X-Real-IP")} {
		candidate = strings.TrimSpace(candidate)
		if _, err := netip.ParseAddr(candidate); err == nil {
			return candidate
		}
	}
	return peer
}

func (d *Detector) isTrusted(addr netip.Addr) bool {
	for _, p := range d.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		BlockedRequests:    d.blocked.Load(),
	}
}
