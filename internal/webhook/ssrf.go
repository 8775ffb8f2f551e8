package webhook

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// blockedHosts are rejected outright regardless of what they resolve to —
// spec.md §4.8 step 1.
var blockedHosts = map[string]bool{
	"localhost":                  true,
	"0.0.0.0":                    true,
	"169.254.169.254":            true, // cloud metadata (AWS/GCP/Azure)
	"metadata.google.internal":   true,
	"metadata.google.internal.":  true,
}

// blockedCIDRs is the exact range list from spec.md §4.8 step 1.
var blockedCIDRs = mustParseCIDRs(
	"10.0.0.0/8",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"100.64.0.0/10",
	"0.0.0.0/8",
	"::1/128",
	"fe80::/10",
	"fc00::/7",
	"::ffff:10.0.0.0/104",
	"::ffff:127.0.0.0/104",
	"::ffff:169.254.0.0/112",
	"::ffff:172.16.0.0/108",
	"::ffff:192.168.0.0/112",
	"2002::/16",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(fmt.Sprintf("webhook: invalid blocked CIDR %q: %v", c, err))
		}
		out = append(out, n)
	}
	return out
}

func isBlockedIP(ip net.IP) bool {
	for _, n := range blockedCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// validateURL implements spec.md §4.8 step 1's SSRF guard. It returns the
// parsed URL and the set of resolved addresses an actual connection is
// allowed to use, or an error describing which check failed.
func validateURL(raw string, allowHTTP bool) (*url.URL, []net.IP, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing webhook url: %w", err)
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !allowHTTP {
			return nil, nil, fmt.Errorf("http webhook urls are not allowed in production")
		}
	default:
		return nil, nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, nil, fmt.Errorf("webhook url has no host")
	}
	if blockedHosts[strings.ToLower(host)] {
		return nil, nil, fmt.Errorf("webhook host is blocked")
	}

	addrs, err := net.LookupIP(host)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving webhook host: %w", err)
	}
	if len(addrs) == 0 {
		return nil, nil, fmt.Errorf("webhook host did not resolve to any address")
	}

	var allowed []net.IP
	for _, ip := range addrs {
		if isBlockedIP(ip) {
			continue
		}
		allowed = append(allowed, ip)
	}
	if len(allowed) == 0 {
		return nil, nil, fmt.Errorf("webhook host resolves only to disallowed addresses")
	}
	return u, allowed, nil
}
