package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP_IgnoresForwardingHeadersWithoutTrustedProxy(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:54321"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	req.Header.Set("X-Real-Ip", "9.10.11.12")
	assert.Equal(t, "192.168.1.1", clientIP(req, 0))
}

func TestClientIP_RemoteAddrWithoutPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1"
	assert.Equal(t, "192.168.1.1", clientIP(req, 0))
}

func TestClientIP_TakesProxyAppendedHop(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:443"
	// The client forged the first entry; the proxy appended the real one.
	req.Header.Set("X-Forwarded-For", "6.6.6.6, 1.2.3.4")
	assert.Equal(t, "1.2.3.4", clientIP(req, 1))
}

func TestClientIP_TwoProxies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.3:443"
	req.Header.Add("X-Forwarded-For", "6.6.6.6, 1.2.3.4")
	req.Header.Add("X-Forwarded-For", "10.0.0.2")
	assert.Equal(t, "1.2.3.4", clientIP(req, 2))
}

func TestClientIP_ShortHeaderFallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:443"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	assert.Equal(t, "10.0.0.2", clientIP(req, 2))
}

func TestLimit_RejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, 0)
	defer rl.Stop()
	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "7.7.7.7:1000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodPost, "/login", nil)
	other.RemoteAddr = "8.8.8.8:1000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLimit_RotatingForwardedForStaysLimited(t *testing.T) {
	for _, hops := range []int{0, 1} {
		t.Run(fmt.Sprintf("hops=%d", hops), func(t *testing.T) {
			rl := NewRateLimiter(1, 1, hops)
			defer rl.Stop()
			h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

			allowed := 0
			for i := 0; i < 100; i++ {
				req := httptest.NewRequest(http.MethodPost, "/login", nil)
				req.RemoteAddr = "10.0.0.2:443"
				xff := fmt.Sprintf("203.0.113.%d", i)
				if hops == 1 {
					xff += ", 198.51.100.7"
				}
				req.Header.Set("X-Forwarded-For", xff)
				req.Header.Set("X-Real-Ip", xff)
				rr := httptest.NewRecorder()
				h.ServeHTTP(rr, req)
				if rr.Code == http.StatusOK {
					allowed++
				}
			}
			assert.LessOrEqual(t, allowed, 2)
		})
	}
}
