package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"direct", "203.0.113.5:1234", nil, "203.0.113.5"},
		{"untrusted proxy ignored", "203.0.113.5:1234", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "203.0.113.5"},
		{"trusted proxy xff", "10.0.0.2:80", map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.2"}, "198.51.100.7"},
		{"trusted proxy real ip", "127.0.0.1:80", map[string]string{"X-Real-IP": "198.51.100.8"}, "198.51.100.8"},
		{"trusted proxy junk header", "127.0.0.1:80", map[string]string{"X-Forwarded-For": "nonsense"}, "127.0.0.1"},
		{"no port", "192.0.2.1", nil, "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := extractClientIP(r); got != tt.want {
				t.Fatalf("extractClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSuspiciousReason(t *testing.T) {
	tests := []struct {
		method, target, agent string
		suspicious            bool
	}{
		{http.MethodGet, "/", "Mozilla/5.0", false},
		{http.MethodGet, "/.env", "curl", true},
		{http.MethodGet, "/?q=union+select", "", true},
		{http.MethodGet, "/?q=union%20select", "", true},
		{http.MethodGet, "/", "sqlmap/1.0", true},
		{"TRACE", "/", "", true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(tt.method, tt.target, nil)
		r.Header.Set("User-Agent", tt.agent)
		if got := suspiciousReason(r) != ""; got != tt.suspicious {
			t.Fatalf("%s %s (%s) suspicious = %v", tt.method, tt.target, tt.agent, got)
		}
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a") {
		t.Fatal("third request should be limited")
	}
	if !rl.allow("b") {
		t.Fatal("other clients are independent")
	}

	now = now.Add(time.Minute)
	if !rl.allow("a") {
		t.Fatal("new window should reset the counter")
	}

	now = now.Add(time.Hour)
	if removed := rl.cleanupStaleEntries(10 * time.Minute); removed != 2 || rl.activeClients() != 0 {
		t.Fatalf("cleanup removed %d, %d left", removed, rl.activeClients())
	}
	rl.stop()
	rl.stop()
}
