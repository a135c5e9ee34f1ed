package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"

	"snapmaster-gcp/internal/common/cache"
	apperrors "snapmaster-gcp/internal/common/errors"
	"snapmaster-gcp/internal/common/logging"
)

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantToken string
		wantErr   bool
	}{
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"lowercase scheme", "bearer abc", "abc", false},
		{"missing", "", "", true},
		{"basic scheme", "Basic dXNlcjpwYXNz", "", true},
		{"empty token", "Bearer ", "", true},
		{"two tokens", "Bearer a b", "", true},
		{"no space", "Bearerabc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			token, err := ExtractBearer(r)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeAuth))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestIDTokenVerifier(t *testing.T) {
	payload := func(email string, verified bool) *idtoken.Payload {
		return &idtoken.Payload{Claims: map[string]interface{}{"email": email, "email_verified": verified}}
	}

	tests := []struct {
		name     string
		config   IDTokenConfig
		payload  *idtoken.Payload
		validErr error
		wantErr  bool
	}{
		{"any signed token", IDTokenConfig{}, payload("", false), nil, false},
		{"invalid signature", IDTokenConfig{}, nil, errors.New("invalid signature"), true},
		{"expected service account", IDTokenConfig{ServiceAccountEmail: "sa@p1.iam.gserviceaccount.com"}, payload("sa@p1.iam.gserviceaccount.com", true), nil, false},
		{"other service account", IDTokenConfig{ServiceAccountEmail: "sa@p1.iam.gserviceaccount.com"}, payload("evil@p2.iam.gserviceaccount.com", true), nil, true},
		{"unverified email", IDTokenConfig{ServiceAccountEmail: "sa@p1.iam.gserviceaccount.com"}, payload("sa@p1.iam.gserviceaccount.com", false), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAudience string
			validate := func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
				gotAudience = audience
				return tt.payload, tt.validErr
			}
			tt.config.Audience = "https://provider.example.com"
			v := NewIDTokenVerifierWithValidator(tt.config, validate, logging.NewDefaultLogger())

			err := v.Verify(context.Background(), "token")
			assert.Equal(t, "https://provider.example.com", gotAudience)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeAuth))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTMiddleware_HS256(t *testing.T) {
	m, err := NewJWTMiddleware(JWTConfig{Secret: "s3cret", Audience: "snapmaster-gcp", Issuer: "https://snapmaster.auth0.com/"}, logging.NewDefaultLogger())
	require.NoError(t, err)

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	valid := jwt.MapClaims{
		"aud": "snapmaster-gcp",
		"iss": "https://snapmaster.auth0.com/",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	expired := jwt.MapClaims{
		"aud": "snapmaster-gcp",
		"iss": "https://snapmaster.auth0.com/",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}
	wrongAudience := jwt.MapClaims{
		"aud": "other",
		"iss": "https://snapmaster.auth0.com/",
		"exp": time.Now().Add(time.Hour).Unix(),
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + signHS256(t, "s3cret", valid), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signHS256(t, "other", valid), http.StatusUnauthorized},
		{"expired", "Bearer " + signHS256(t, "s3cret", expired), http.StatusUnauthorized},
		{"wrong audience", "Bearer " + signHS256(t, "s3cret", wrongAudience), http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/invokeAction", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

type failingWriter struct {
	*httptest.ResponseRecorder
}

func (w failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestJWTMiddleware_LogsWriteFailure(t *testing.T) {
	var out bytes.Buffer
	logger, err := logging.NewZapLogger(logging.LogConfig{Level: logging.DebugLevel, Output: &out})
	require.NoError(t, err)

	m, err := NewJWTMiddleware(JWTConfig{Secret: "s3cret"}, logger)
	require.NoError(t, err)
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(failingWriter{rec}, httptest.NewRequest(http.MethodPost, "/invokeAction", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, out.String(), "Failed to encode response")
	assert.Contains(t, out.String(), "connection reset")
}

func TestJWTMiddleware_RS256(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	m, err := NewJWTMiddleware(JWTConfig{PublicKeyPEM: string(publicPEM)}, logging.NewDefaultLogger())
	require.NoError(t, err)
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}).SignedString(privateKey)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/createTrigger", nil)
	r.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	// An HS256 token must not be accepted by an RS256-configured verifier
	r = httptest.NewRequest(http.MethodPost, "/createTrigger", nil)
	r.Header.Set("Authorization", "Bearer "+signHS256(t, string(publicPEM), jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddleware_Disabled(t *testing.T) {
	m, err := NewJWTMiddleware(JWTConfig{}, logging.NewDefaultLogger())
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	w := httptest.NewRecorder()
	m.Middleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/invokeAction", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestJWTMiddleware_BadPublicKey(t *testing.T) {
	_, err := NewJWTMiddleware(JWTConfig{PublicKeyPEM: "not a key"}, logging.NewDefaultLogger())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func newTokenServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "/oauth/token", r.URL.Path)
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "https://engine.snapmaster.io", r.Form.Get("audience"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "service-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAuth0TokenSource(t *testing.T) {
	tests := []struct {
		name      string
		cacheTTL  time.Duration
		withCache bool
		wantCalls int32
	}{
		{"mint per call by default", 0, true, 2},
		{"no cache configured", time.Minute, false, 2},
		{"cached", time.Minute, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := newTokenServer(t, &calls)

			var tokenCache cache.Cache
			if tt.withCache {
				tokenCache = cache.NewLocalCache(time.Minute, time.Minute)
			}
			src := NewAuth0TokenSource(Auth0Config{
				Domain:       srv.URL,
				ClientID:     "client",
				ClientSecret: "secret",
				Audience:     "https://engine.snapmaster.io",
				Timeout:      5 * time.Second,
				CacheTTL:     tt.cacheTTL,
			}, tokenCache, logging.NewDefaultLogger())

			for i := 0; i < 2; i++ {
				token, err := src.Token(context.Background())
				require.NoError(t, err)
				assert.Equal(t, "service-token", token)
			}
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestAuth0TokenSource_Invalidate(t *testing.T) {
	var calls int32
	srv := newTokenServer(t, &calls)

	src := NewAuth0TokenSource(Auth0Config{
		Domain:       srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		Timeout:      5 * time.Second,
		CacheTTL:     time.Minute,
	}, cache.NewLocalCache(time.Minute, time.Minute), logging.NewDefaultLogger())

	_, err := src.Token(context.Background())
	require.NoError(t, err)
	_, err = src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	src.Invalidate(context.Background())

	_, err = src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAuth0TokenSource_EndpointFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"access_denied"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	src := NewAuth0TokenSource(Auth0Config{Domain: srv.URL, ClientID: "client", ClientSecret: "bad"}, nil, logging.NewDefaultLogger())
	_, err := src.Token(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConnection))
}

func TestAuth0Config_TokenURL(t *testing.T) {
	assert.Equal(t, "https://snapmaster.auth0.com/oauth/token", Auth0Config{Domain: "snapmaster.auth0.com"}.TokenURL())
	assert.Equal(t, "http://localhost:9000/oauth/token", Auth0Config{Domain: "http://localhost:9000/"}.TokenURL())
}
