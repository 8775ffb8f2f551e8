package webhook

import (
	"net"
	"testing"
)

func TestIsBlockedIP(t *testing.T) {
	cases := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"169.254.169.254", true},
		{"172.16.5.5", true},
		{"192.168.1.1", true},
		{"::1", true},
		{"fe80::1", true},
		{"8.8.8.8", false},
		{"93.184.216.34", false},
	}

	for _, c := range cases {
		ip := net.ParseIP(c.ip)
		if ip == nil {
			t.Fatalf("failed to parse test IP %q", c.ip)
		}
		if got := isBlockedIP(ip); got != c.want {
			t.Errorf("isBlockedIP(%s) = %v, want %v", c.ip, got, c.want)
		}
	}
}

func TestValidateURL_RejectsBlockedHost(t *testing.T) {
	_, _, err := validateURL("https://localhost/hook", false)
	if err == nil {
		t.Error("expected error for blocked host localhost")
	}
}

func TestValidateURL_RejectsHTTPWhenDisallowed(t *testing.T) {
	_, _, err := validateURL("http://example.com/hook", false)
	if err == nil {
		t.Error("expected error for http scheme when allowHTTP is false")
	}
}

func TestValidateURL_RejectsUnsupportedScheme(t *testing.T) {
	_, _, err := validateURL("ftp://example.com/hook", true)
	if err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestValidateURL_RejectsMissingHost(t *testing.T) {
	_, _, err := validateURL("https:///hook", false)
	if err == nil {
		t.Error("expected error for url with no host")
	}
}

func TestValidateURL_RejectsMalformed(t *testing.T) {
	_, _, err := validateURL("://not a url", false)
	if err == nil {
		t.Error("expected error for malformed url")
	}
}
