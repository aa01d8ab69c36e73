package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/attune/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{
			name:       "direct peer ignores forwarding headers",
			trusted:    []string{"10.0.0.0/8", "127.0.0.1/32"},
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4, 5.6.7.8",
			xri:        "192.168.1.1",
			want:       "203.0.113.10",
		},
		{
			name:       "trusted proxy uses first forwarded hop",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.5:54321",
			xff:        "203.0.113.42, 203.0.113.43, 10.0.0.5",
			want:       "203.0.113.42",
		},
		{
			name:       "trusted proxy skips garbage hops",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.5:54321",
			xff:        "unknown, 198.51.100.7",
			want:       "198.51.100.7",
		},
		{
			name:       "trusted proxy falls back to real ip header",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.5:54321",
			xri:        "198.51.100.9",
			want:       "198.51.100.9",
		},
		{
			name:       "ipv6 proxy",
			trusted:    []string{"::1/128"},
			remoteAddr: "[::1]:54321",
			xff:        "2001:db8::1",
			want:       "2001:db8::1",
		},
		{
			name:       "no trusted ranges",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4",
			want:       "203.0.113.10",
		},
		{
			name:       "invalid ranges trust nobody",
			trusted:    []string{"invalid-cidr-range"},
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4",
			want:       "203.0.113.10",
		},
		{
			name:       "spoofed localhost from untrusted peer",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "203.0.113.10:54321",
			xff:        "127.0.0.1, 203.0.113.10",
			want:       "203.0.113.10",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "203.0.113.10",
			want:       "203.0.113.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			resolver, _ := pkghttp.NewIPResolver(tt.trusted)

			assert.Equal(t, tt.want, resolver.ClientIP(req))
		})
	}
}

func TestNewIPResolver_ReportsInvalidRanges(t *testing.T) {
	_, invalid := pkghttp.NewIPResolver([]string{"10.0.0.0/8", " ", "bogus", "::1/128"})

	assert.Equal(t, []string{"bogus"}, invalid)
}

func TestClientIP_NilResolver(t *testing.T) {
	var resolver *pkghttp.IPResolver
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:1"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	assert.Equal(t, "203.0.113.10", resolver.ClientIP(req))
}
