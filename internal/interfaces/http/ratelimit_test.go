package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

func TestRateLimiter_PerActorBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	// Other actors have their own bucket
	assert.True(t, rl.Allow("b"))

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"))
}

func TestRateLimiter_EvictsIdleActors(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(idleLimiterTTL + 2*time.Minute)
	rl.Allow("b")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "a")
	assert.Contains(t, rl.visitors, "b")
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow("a"))
	}
}

func TestServer_RateLimitsActors(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Mode = "test"
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	verifier := NewTokenVerifier(testSecret, "")
	s := &testServer{
		t: t,
		server: NewServer(cfg, verifier, Dependencies{
			Registry: workflow.DefaultRegistry(workflow.DefaultPolicy()),
		}, &mockLogger{}),
		verifier: verifier,
	}

	status, _ := s.do(http.MethodGet, "/api/v1/workflows/ORDER/transitions", adminActor, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env := s.do(http.MethodGet, "/api/v1/workflows/ORDER/transitions", adminActor, nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", env.Code)

	status, _ = s.do(http.MethodGet, "/api/v1/workflows/ORDER/transitions", sellerActor, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_CORSPreflight(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Mode = "test"
	cfg.AllowedOrigins = []string{"https://shop.example.com"}
	server := NewServer(cfg, NewTokenVerifier(testSecret, ""), Dependencies{
		Registry: workflow.DefaultRegistry(workflow.DefaultPolicy()),
	}, &mockLogger{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/categories", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "authorization")
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/categories", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
