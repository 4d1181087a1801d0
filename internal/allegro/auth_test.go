package allegro

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/monmat/order-manager/internal/repository"
)

type fakeSettings struct {
	mu     sync.Mutex
	values map[string]string
	puts   []string
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: map[string]string{
		SettingClientID:     "client-1",
		SettingClientSecret: "secret-1",
		SettingRefreshToken: "refresh-1",
	}}
}

func (f *fakeSettings) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return "", repository.ErrObjectNotFound
	}
	return v, nil
}

func (f *fakeSettings) Put(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	f.puts = append(f.puts, key)
	return nil
}

type tokenEndpoint struct {
	mu       sync.Mutex
	calls    int
	response map[string]interface{}
	status   int
}

func (e *tokenEndpoint) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e.mu.Lock()
		e.calls++
		e.mu.Unlock()

		if r.URL.Path != "/auth/oauth/token" {
			http.NotFound(w, r)
			return
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "client-1" || pass != "secret-1" {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "refresh_token" {
			http.Error(w, "bad grant", http.StatusBadRequest)
			return
		}
		if e.status != 0 && e.status != http.StatusOK {
			http.Error(w, "nope", e.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(e.response)
	}
}

func (e *tokenEndpoint) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func newTestTokenCache(t *testing.T, endpoint *tokenEndpoint, settings SettingsStore) *TokenCache {
	t.Helper()
	srv := httptest.NewServer(endpoint.handler())
	t.Cleanup(srv.Close)
	return NewTokenCache(NewClient(srv.URL, srv.URL), settings, zap.NewNop())
}

func TestTokenCache_RefreshesAndCaches(t *testing.T) {
	endpoint := &tokenEndpoint{response: map[string]interface{}{
		"access_token": "token-abc",
		"expires_in":   3600,
	}}
	cache := newTestTokenCache(t, endpoint, newFakeSettings())

	token, err := cache.GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-abc", token)

	// Second call is served from cache.
	token, err = cache.GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-abc", token)
	assert.Equal(t, 1, endpoint.callCount())
}

func TestTokenCache_RefreshesInsideSafetyWindow(t *testing.T) {
	endpoint := &tokenEndpoint{response: map[string]interface{}{
		"access_token": "token-short",
		"expires_in":   60, // shorter than the 5 minute window
	}}
	cache := newTestTokenCache(t, endpoint, newFakeSettings())

	_, err := cache.GetAccessToken(context.Background())
	require.NoError(t, err)
	_, err = cache.GetAccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, endpoint.callCount())
}

func TestTokenCache_PersistsRotatedRefreshToken(t *testing.T) {
	endpoint := &tokenEndpoint{response: map[string]interface{}{
		"access_token":  "token-abc",
		"refresh_token": "refresh-2",
		"expires_in":    3600,
	}}
	settings := newFakeSettings()
	cache := newTestTokenCache(t, endpoint, settings)

	_, err := cache.GetAccessToken(context.Background())
	require.NoError(t, err)

	stored, err := settings.Get(context.Background(), SettingRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", stored)
	assert.Equal(t, []string{SettingRefreshToken}, settings.puts)
}

func TestTokenCache_MissingSettings(t *testing.T) {
	tests := []struct {
		name  string
		patch func(*fakeSettings)
	}{
		{"missing client id", func(f *fakeSettings) { delete(f.values, SettingClientID) }},
		{"blank client secret", func(f *fakeSettings) { f.values[SettingClientSecret] = "  " }},
		{"missing refresh token", func(f *fakeSettings) { delete(f.values, SettingRefreshToken) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint := &tokenEndpoint{response: map[string]interface{}{
				"access_token": "t", "expires_in": 3600,
			}}
			settings := newFakeSettings()
			tt.patch(settings)
			cache := newTestTokenCache(t, endpoint, settings)

			_, err := cache.GetAccessToken(context.Background())
			assert.ErrorIs(t, err, ErrAuthConfig)
			assert.Equal(t, 0, endpoint.callCount())
		})
	}
}

func TestTokenCache_RefreshFailure(t *testing.T) {
	endpoint := &tokenEndpoint{status: http.StatusBadRequest}
	cache := newTestTokenCache(t, endpoint, newFakeSettings())

	_, err := cache.GetAccessToken(context.Background())
	require.Error(t, err)

	var refreshErr *AuthRefreshError
	assert.ErrorAs(t, err, &refreshErr)
}

func TestTokenCache_ConcurrentCallersShareOneRefresh(t *testing.T) {
	endpoint := &tokenEndpoint{response: map[string]interface{}{
		"access_token": "token-abc",
		"expires_in":   3600,
	}}
	cache := newTestTokenCache(t, endpoint, newFakeSettings())

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			token, err := cache.GetAccessToken(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "token-abc", token)
		}()
	}
	close(start)
	wg.Wait()

	// Callers racing on a cold cache must collapse into very few actual
	// refresh calls; with singleflight this is one.
	assert.LessOrEqual(t, endpoint.callCount(), 2)
}
