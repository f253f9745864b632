package mcp

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipRateLimiter keeps one token bucket per client address. Loopback clients
// are never limited.
type ipRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rps     float64
	burst   int
	now     func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		clients: make(map[string]*clientLimiter),
		rps:     rps,
		burst:   burst,
		now:     time.Now,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	if l == nil || l.rps <= 0 || l.burst <= 0 {
		return true
	}

	clientIP := normalizeRateLimitIP(ip)
	if clientIP == "" || isLoopbackClientIP(clientIP) {
		return true
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	client, exists := l.clients[clientIP]
	if !exists {
		client = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
		l.clients[clientIP] = client
	}
	client.lastSeen = now
	return client.limiter.AllowN(now, 1)
}

func (l *ipRateLimiter) cleanup(maxAge time.Duration) {
	if l == nil || maxAge <= 0 {
		return
	}

	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	for ip, client := range l.clients {
		if client == nil || now.Sub(client.lastSeen) > maxAge {
			delete(l.clients, ip)
		}
	}
}

// clientIP returns the address a request is rate limited under. The peer
// address is used unless the peer is a trusted proxy, in which case
// X-Forwarded-For is walked right to left and the first untrusted hop wins.
// Left-most entries are client-supplied and never trusted on their own.
func clientIP(r *http.Request, trusted []*net.IPNet) string {
	if r == nil {
		return ""
	}
	peer := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if !ipInNetworks(peer, trusted) {
		return peer
	}

	var hops []string
	for _, h := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(h, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		hop := normalizeRateLimitIP(hops[i])
		if hop == "" {
			continue
		}
		if !ipInNetworks(hop, trusted) {
			return hop
		}
		peer = hop
	}
	return peer
}

func parseTrustedProxies(values []string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if !strings.Contains(v, "/") {
			if ip := net.ParseIP(v); ip != nil {
				bits := 128
				if ip.To4() != nil {
					bits = 32
				}
				out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			}
			continue
		}
		if _, network, err := net.ParseCIDR(v); err == nil {
			out = append(out, network)
		}
	}
	return out
}

func ipInNetworks(ip string, networks []*net.IPNet) bool {
	parsed := net.ParseIP(strings.Trim(ip, "[]"))
	if parsed == nil {
		return false
	}
	for _, n := range networks {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

func normalizeRateLimitIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}
	if strings.EqualFold(ip, "localhost") {
		return "localhost"
	}

	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	ip = strings.Trim(ip, "[]")
	if zone := strings.Index(ip, "%"); zone >= 0 {
		ip = ip[:zone]
	}

	if parsed := net.ParseIP(ip); parsed != nil {
		return parsed.String()
	}
	return strings.ToLower(ip)
}

func isLoopbackClientIP(ip string) bool {
	if strings.EqualFold(strings.TrimSpace(ip), "localhost") {
		return true
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	return parsed != nil && parsed.IsLoopback()
}
