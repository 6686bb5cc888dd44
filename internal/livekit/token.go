// Package livekit provides a resilient client for the LiveKit server API,
// covering room management, SIP participants, voice pipeline configuration,
// and TTS playback.
package livekit

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenScope selects the permission grants minted into an API token.
// Room operations need video grants, SIP operations need sip grants, and
// endpoints that touch both get both.
type TokenScope string

const (
	ScopeRoom TokenScope = "room"
	ScopeSIP  TokenScope = "sip"
	ScopeBoth TokenScope = "both"
)

const (
	tokenLifetime = time.Hour
	// refreshBuffer is how long before expiry a cached token is discarded,
	// so a token never expires mid-request.
	refreshBuffer = 300 * time.Second
)

// apiClaims is the LiveKit server API token payload. Grants ride alongside
// the registered claims; iss carries the API key.
type apiClaims struct {
	Video map[string]bool `json:"video,omitempty"`
	SIP   map[string]bool `json:"sip,omitempty"`
	jwt.RegisteredClaims
}

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// tokenMinter mints and caches API tokens per permission scope.
type tokenMinter struct {
	apiKey    string
	apiSecret string

	mu    sync.Mutex
	cache map[TokenScope]cachedToken
	now   func() time.Time
}

func newTokenMinter(apiKey, apiSecret string) *tokenMinter {
	return &tokenMinter{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		cache:     make(map[TokenScope]cachedToken),
		now:       time.Now,
	}
}

// Token returns a valid token for the scope, minting a fresh one when the
// cached token is absent or inside the refresh buffer.
func (m *tokenMinter) Token(scope TokenScope) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cached, ok := m.cache[scope]; ok && m.now().Before(cached.expiresAt.Add(-refreshBuffer)) {
		return cached.token, nil
	}

	token, expiresAt, err := m.mint(scope)
	if err != nil {
		return "", err
	}
	m.cache[scope] = cachedToken{token: token, expiresAt: expiresAt}
	return token, nil
}

func (m *tokenMinter) mint(scope TokenScope) (string, time.Time, error) {
	if m.apiKey == "" || m.apiSecret == "" {
		return "", time.Time{}, fmt.Errorf("LiveKit API credentials not configured")
	}

	now := m.now()
	expiresAt := now.Add(tokenLifetime)
	claims := apiClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.apiKey,
			Subject:   "server",
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	switch scope {
	case ScopeRoom:
		claims.Video = roomGrants()
	case ScopeSIP:
		claims.SIP = sipGrants()
	default:
		claims.Video = roomGrants()
		claims.SIP = sipGrants()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.apiSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign API token: %w", err)
	}
	return signed, expiresAt, nil
}

func roomGrants() map[string]bool {
	return map[string]bool{"roomCreate": true, "roomList": true, "roomAdmin": true}
}

func sipGrants() map[string]bool {
	return map[string]bool{"create": true, "list": true, "admin": true}
}
