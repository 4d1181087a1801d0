package allegro

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/monmat/order-manager/internal/repository"
)

// Settings keys holding the OAuth credentials.
const (
	SettingClientID     = "allegro.client-id"
	SettingClientSecret = "allegro.client-secret"
	SettingRefreshToken = "allegro.refresh-token"
)

// expirySafetyWindow keeps us from using a token that is about to expire
// mid-request.
const expirySafetyWindow = 5 * time.Minute

// ErrAuthConfig means a credential setting is missing or blank. There is no
// point retrying until an operator fixes the settings store.
var ErrAuthConfig = errors.New("marketplace auth is not configured")

// AuthRefreshError wraps a failed refresh-token grant. The caller decides
// the retry policy; the cache itself never retries.
type AuthRefreshError struct {
	Err error
}

func (e *AuthRefreshError) Error() string {
	return fmt.Sprintf("refresh access token: %v", e.Err)
}

func (e *AuthRefreshError) Unwrap() error { return e.Err }

type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
}

// TokenCache owns the bearer credential for the marketplace API. Concurrent
// callers share a single in-flight refresh.
type TokenCache struct {
	client   *Client
	settings SettingsStore
	log      *zap.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	group singleflight.Group
	now   func() time.Time
}

func NewTokenCache(client *Client, settings SettingsStore, log *zap.Logger) *TokenCache {
	return &TokenCache{
		client:   client,
		settings: settings,
		log:      log,
		now:      time.Now,
	}
}

// GetAccessToken returns the cached token while it is still comfortably
// inside its lifetime, otherwise refreshes it via the OAuth endpoint.
func (t *TokenCache) GetAccessToken(ctx context.Context) (string, error) {
	if token, ok := t.cached(); ok {
		t.log.Debug("using cached access token")
		return token, nil
	}

	result, err, _ := t.group.Do("refresh", func() (interface{}, error) {
		// A concurrent caller may have refreshed while we waited.
		if token, ok := t.cached(); ok {
			return token, nil
		}
		return t.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (t *TokenCache) cached() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token != "" && t.now().Add(expirySafetyWindow).Before(t.expiresAt) {
		return t.token, true
	}
	return "", false
}

func (t *TokenCache) refresh(ctx context.Context) (string, error) {
	clientID, err := t.requiredSetting(ctx, SettingClientID)
	if err != nil {
		return "", err
	}
	clientSecret, err := t.requiredSetting(ctx, SettingClientSecret)
	if err != nil {
		return "", err
	}
	refreshToken, err := t.requiredSetting(ctx, SettingRefreshToken)
	if err != nil {
		return "", err
	}

	t.log.Info("requesting new access token using refresh_token flow")

	response, err := t.client.RefreshToken(ctx, clientID, clientSecret, refreshToken)
	if err != nil {
		return "", &AuthRefreshError{Err: err}
	}

	t.mu.Lock()
	t.token = response.AccessToken
	t.expiresAt = t.now().Add(time.Duration(response.ExpiresIn) * time.Second)
	t.mu.Unlock()

	// The endpoint may rotate the refresh token; persist it or the next
	// refresh will fail.
	if response.RefreshToken != "" && response.RefreshToken != refreshToken {
		t.log.Info("persisting rotated refresh token")
		if err := t.settings.Put(ctx, SettingRefreshToken, response.RefreshToken); err != nil {
			t.log.Error("persist rotated refresh token", zap.Error(err))
		}
	}

	t.log.Info("obtained access token", zap.Int("expires_in_seconds", response.ExpiresIn))
	return response.AccessToken, nil
}

func (t *TokenCache) requiredSetting(ctx context.Context, key string) (string, error) {
	value, err := t.settings.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return "", fmt.Errorf("%w: %s missing from settings store", ErrAuthConfig, key)
		}
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s is blank", ErrAuthConfig, key)
	}
	return value, nil
}
