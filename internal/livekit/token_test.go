package livekit

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func parseClaims(t *testing.T, tokenString, secret string) *apiClaims {
	t.Helper()
	claims := &apiClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	return claims
}

func TestTokenScopedGrants(t *testing.T) {
	m := newTokenMinter("api-key", "api-secret")

	roomToken, err := m.Token(ScopeRoom)
	if err != nil {
		t.Fatalf("room token: %v", err)
	}
	claims := parseClaims(t, roomToken, "api-secret")
	if claims.Issuer != "api-key" {
		t.Errorf("expected issuer api-key, got %q", claims.Issuer)
	}
	if !claims.Video["roomCreate"] || !claims.Video["roomAdmin"] {
		t.Errorf("expected video grants, got %v", claims.Video)
	}
	if claims.SIP != nil {
		t.Errorf("room scope should not carry SIP grants, got %v", claims.SIP)
	}

	sipToken, err := m.Token(ScopeSIP)
	if err != nil {
		t.Fatalf("sip token: %v", err)
	}
	claims = parseClaims(t, sipToken, "api-secret")
	if !claims.SIP["create"] || !claims.SIP["admin"] {
		t.Errorf("expected SIP grants, got %v", claims.SIP)
	}
	if claims.Video != nil {
		t.Errorf("sip scope should not carry video grants, got %v", claims.Video)
	}

	bothToken, err := m.Token(ScopeBoth)
	if err != nil {
		t.Fatalf("both token: %v", err)
	}
	claims = parseClaims(t, bothToken, "api-secret")
	if claims.Video == nil || claims.SIP == nil {
		t.Errorf("both scope should carry both grant sets, got video=%v sip=%v", claims.Video, claims.SIP)
	}
}

func TestTokenCachedUntilRefreshBuffer(t *testing.T) {
	now := time.Now()
	m := newTokenMinter("api-key", "api-secret")
	m.now = func() time.Time { return now }

	first, err := m.Token(ScopeRoom)
	if err != nil {
		t.Fatalf("first token: %v", err)
	}

	// Well before the refresh buffer the cached token is reused.
	now = now.Add(30 * time.Minute)
	second, err := m.Token(ScopeRoom)
	if err != nil {
		t.Fatalf("second token: %v", err)
	}
	if second != first {
		t.Error("expected cached token inside lifetime")
	}

	// Inside the refresh buffer a fresh token is minted.
	now = now.Add(tokenLifetime - refreshBuffer - 29*time.Minute)
	third, err := m.Token(ScopeRoom)
	if err != nil {
		t.Fatalf("third token: %v", err)
	}
	if third == first {
		t.Error("expected fresh token inside refresh buffer")
	}
}

func TestTokenCachePerScope(t *testing.T) {
	m := newTokenMinter("api-key", "api-secret")

	roomToken, _ := m.Token(ScopeRoom)
	sipToken, _ := m.Token(ScopeSIP)
	if roomToken == sipToken {
		t.Error("expected distinct tokens per scope")
	}
}

func TestTokenMissingCredentials(t *testing.T) {
	m := newTokenMinter("", "")
	if _, err := m.Token(ScopeRoom); err == nil {
		t.Error("expected error with missing credentials")
	}
}
