// Package ipfilter restricts HTTP handlers to a set of client networks
package ipfilter

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Filter holds allowed client networks. An empty filter allows everyone.
type Filter struct {
	prefixes []netip.Prefix
	logger   *slog.Logger
}

// New parses IPs and CIDRs. Invalid entries are a configuration error.
func New(allowed []string, logger *slog.Logger) (*Filter, error) {
	f := &Filter{logger: logger}

	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR %q: %w", entry, err)
			}
			f.prefixes = append(f.prefixes, p.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid IP %q: %w", entry, err)
		}
		addr = addr.Unmap()
		f.prefixes = append(f.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}

	return f, nil
}

// Enabled returns true if IP filtering is active
func (f *Filter) Enabled() bool {
	return len(f.prefixes) > 0
}

// Allowed reports whether addr may pass
func (f *Filter) Allowed(addr netip.Addr) bool {
	if !f.Enabled() {
		return true
	}
	addr = addr.Unmap()
	for _, p := range f.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientAddr returns the request's remote address without port.
// Proxy headers are expected to be resolved beforehand (chi's RealIP).
func ClientAddr(r *http.Request) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr, true
}

// Middleware rejects requests from addresses outside the filter with 403
func (f *Filter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !f.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		addr, ok := ClientAddr(r)
		if !ok {
			f.logger.Warn("could not parse client IP", "remote_addr", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if !f.Allowed(addr) {
			f.logger.Warn("access denied by IP filter", "ip", addr.String(), "path", r.URL.Path)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
