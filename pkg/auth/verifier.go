package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/seif-emam/deveolp-network/pkg/config"
)

// clockSkew is tolerated on exp, nbf and iat.
const clockSkew = 30 * time.Second

// Verifier checks the tokens guarding the product update routes.
type Verifier interface {
	Verify(ctx context.Context, tokenString string) (jwt.Token, error)
}

// JWTVerifier verifies tokens against the identity provider's JWKS.
// The key set is refetched at most once per MinInterval; a failed refetch keeps the old set.
type JWTVerifier struct {
	jwksURL     string
	minInterval time.Duration
	claims      []jwt.ParseOption

	mu        sync.RWMutex
	keys      jwk.Set
	fetchedAt time.Time
}

// NewJWTVerifier fetches the key set once so a bad JWKS URL fails at startup.
func NewJWTVerifier(ctx context.Context, cfg config.IdP) (*JWTVerifier, error) {
	claims := []jwt.ParseOption{
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(clockSkew),
		jwt.WithIssuer(cfg.Issuer),
	}
	if cfg.ClientID != "" {
		claims = append(claims, jwt.WithClaimValue("azp", cfg.ClientID))
	}
	v := &JWTVerifier{
		jwksURL:     cfg.JwksURL,
		minInterval: cfg.MinInterval,
		claims:      claims,
	}
	if _, err := v.keySet(ctx); err != nil {
		return nil, fmt.Errorf("initial JWKS fetch failed: %w", err)
	}
	return v, nil
}

func (v *JWTVerifier) fresh() (jwk.Set, bool) {
	if v.keys == nil || time.Since(v.fetchedAt) >= v.minInterval {
		return nil, false
	}
	return v.keys, true
}

func (v *JWTVerifier) keySet(ctx context.Context) (jwk.Set, error) {
	v.mu.RLock()
	keys, ok := v.fresh()
	v.mu.RUnlock()
	if ok {
		return keys, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if keys, ok := v.fresh(); ok {
		return keys, nil
	}
	keys, err := jwk.Fetch(ctx, v.jwksURL)
	switch {
	case err == nil:
		v.keys = keys
		v.fetchedAt = time.Now()
	case v.keys == nil:
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", v.jwksURL, err)
	}
	return v.keys, nil
}

// Verify checks the signature and the lifetime, issuer and authorized party claims.
func (v *JWTVerifier) Verify(ctx context.Context, tokenString string) (jwt.Token, error) {
	keys, err := v.keySet(ctx)
	if err != nil {
		return nil, err
	}
	opts := append([]jwt.ParseOption{jwt.WithKeySet(keys)}, v.claims...)
	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	return token, nil
}
