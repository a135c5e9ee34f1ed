package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapmaster-gcp/internal/common/logging"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		want    Config
		wantErr bool
	}{
		{
			name:   "disabled skips defaults",
			config: Config{},
			want:   Config{},
		},
		{
			name:   "local defaults",
			config: Config{Enabled: true},
			want:   Config{Enabled: true, RequestsPerSecond: 10, BurstSize: 10, Type: BackendLocal, MaxKeys: 10000, CleanupPeriod: 5 * time.Minute},
		},
		{
			name:   "distributed defaults",
			config: Config{Enabled: true, RequestsPerSecond: 5, Type: BackendDistributed},
			want:   Config{Enabled: true, RequestsPerSecond: 5, BurstSize: 5, Type: BackendDistributed, KeyPrefix: "ratelimit:"},
		},
		{
			name:    "unknown backend",
			config:  Config{Enabled: true, Type: "memcached"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := tt.config
			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, config)
		})
	}
}

func TestLocalLimiter_PerKey(t *testing.T) {
	limiter, err := NewLocalLimiter(Config{RequestsPerSecond: 1, BurstSize: 2, Enabled: true})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		assert.True(t, limiter.TryAcquireForKey("10.0.0.1"), "request %d", i)
		assert.True(t, limiter.TryAcquireForKey("10.0.0.2"), "request %d", i)
	}
	assert.False(t, limiter.TryAcquireForKey("10.0.0.1"))
	assert.False(t, limiter.TryAcquireForKey("10.0.0.2"))

	assert.Equal(t, 2, limiter.Stats()["active_keys"])
	assert.NoError(t, limiter.Health())
}

func TestLocalLimiter_Disabled(t *testing.T) {
	limiter, err := NewLocalLimiter(Config{RequestsPerSecond: 1, BurstSize: 1})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		assert.True(t, limiter.TryAcquireForKey("k"))
	}
}

func TestLocalLimiter_CleanupDropsIdleKeys(t *testing.T) {
	l, err := NewLocalLimiter(Config{RequestsPerSecond: 1, BurstSize: 1, Enabled: true, CleanupPeriod: time.Minute})
	require.NoError(t, err)
	limiter := l.(*localLimiter)

	now := time.Now()
	limiter.now = func() time.Time { return now }
	limiter.TryAcquireForKey("idle")

	now = now.Add(2 * time.Minute)
	limiter.TryAcquireForKey("fresh")

	_, idle := limiter.limiters["idle"]
	assert.False(t, idle)
	assert.Len(t, limiter.limiters, 1)
}

type fakeRedis struct {
	hits map[string]int
	err  error
}

func (f *fakeRedis) CheckRateLimit(_ context.Context, key string, limit int, _ time.Duration) (bool, int, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	count := f.hits[key]
	f.hits[key]++
	return count < limit, count, nil
}

func (f *fakeRedis) Health() error { return f.err }

func TestDistributedLimiter(t *testing.T) {
	redis := &fakeRedis{hits: map[string]int{}}
	limiter, err := NewDistributedLimiter(Config{RequestsPerSecond: 1, BurstSize: 2, Enabled: true, KeyPrefix: "wh:"}, redis, logging.NewDefaultLogger())
	require.NoError(t, err)

	assert.True(t, limiter.TryAcquireForKey("ip"))
	assert.True(t, limiter.TryAcquireForKey("ip"))
	assert.False(t, limiter.TryAcquireForKey("ip"))
	assert.Equal(t, 3, redis.hits["wh:ip"])

	redis.err = errors.New("connection refused")
	assert.True(t, limiter.TryAcquireForKey("ip"))
	assert.Error(t, limiter.Health())
}

func TestNew(t *testing.T) {
	_, err := New(Config{Enabled: true, Type: BackendDistributed}, nil, logging.NewDefaultLogger())
	assert.Error(t, err)

	limiter, err := New(DefaultConfig(), nil, logging.NewDefaultLogger())
	require.NoError(t, err)
	assert.Equal(t, "local", limiter.Stats()["type"])
}

func TestHTTPMiddleware(t *testing.T) {
	limiter, err := NewLocalLimiter(Config{RequestsPerSecond: 1, BurstSize: 1, Enabled: true})
	require.NoError(t, err)

	handler := HTTPMiddleware(limiter, IPKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/gcp/webhooks/u1/a1", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send().Code)
	rec := send()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestIPKey(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"ipv6 remote addr", nil, "[2001:db8::1]:443", "2001:db8::1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:1", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.3"}, "10.0.0.2:1", "198.51.100.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, IPKey(req))
		})
	}
}
