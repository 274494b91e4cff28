// Package realip resolves the real client IP behind a trusted reverse
// proxy from X-Forwarded-For headers.
package realip

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// ClientIPKey is the context key for the resolved client IP
const ClientIPKey contextKey = "client_ip"

// Config holds the configuration for the real IP middleware
type Config struct {
	// TrustProxy enables X-Forwarded-For header parsing
	TrustProxy bool
	// TrustedProxies is a list of CIDR ranges (or single IPs) for
	// trusted proxies
	TrustedProxies []string
}

// Middleware resolves the client IP once per request and stores it in the
// context for the logging and rate limit layers.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	trusted := parseTrustedNets(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolve(r, cfg.TrustProxy, trusted)
			ctx := context.WithValue(r.Context(), ClientIPKey, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseTrustedNets(cfg Config) []*net.IPNet {
	if !cfg.TrustProxy {
		return nil
	}
	var nets []*net.IPNet
	for _, entry := range cfg.TrustedProxies {
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			// Single IP without a mask
			if ip := net.ParseIP(entry); ip != nil {
				if ip.To4() != nil {
					_, network, _ = net.ParseCIDR(entry + "/32")
				} else {
					_, network, _ = net.ParseCIDR(entry + "/128")
				}
			}
		}
		if network != nil {
			nets = append(nets, network)
		}
	}
	return nets
}

func resolve(r *http.Request, trustProxy bool, trusted []*net.IPNet) string {
	remote := stripPort(r.RemoteAddr)
	if !trustProxy || !inTrusted(remote, trusted) {
		return remote
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
		return remote
	}

	// Walk the chain right to left: the first hop that is not one of
	// our proxies is the client.
	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !inTrusted(hop, trusted) {
			return hop
		}
	}

	// Every hop is a trusted proxy; the leftmost entry is the origin.
	return strings.TrimSpace(hops[0])
}

func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func inTrusted(ipStr string, trusted []*net.IPNet) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, network := range trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetClientIP retrieves the resolved client IP from the request context.
// Falls back to RemoteAddr if the middleware did not run.
func GetClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(ClientIPKey).(string); ok && ip != "" {
		return ip
	}
	return stripPort(r.RemoteAddr)
}
