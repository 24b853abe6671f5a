package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/seif-emam/deveolp-network/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testIdP struct {
	key     jwk.Key
	server  *httptest.Server
	fetches atomic.Int32
}

func newTestIdP(t *testing.T) *testIdP {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	key, err := jwk.Import(raw)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, "test-key"))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256()))

	pub, err := jwk.PublicKeyOf(key)
	require.NoError(t, err)
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))
	body, err := json.Marshal(set)
	require.NoError(t, err)

	idp := &testIdP{key: key}
	idp.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		idp.fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(idp.server.Close)
	return idp
}

func (p *testIdP) sign(t *testing.T, issuer, azp string, expires time.Time) string {
	t.Helper()
	tok, err := jwt.NewBuilder().
		Subject("admin-1").
		Issuer(issuer).
		Claim("azp", azp).
		IssuedAt(time.Now()).
		Expiration(expires).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256(), p.key))
	require.NoError(t, err)
	return string(signed)
}

func TestJWTVerifier_Verify(t *testing.T) {
	idp := newTestIdP(t)
	v, err := NewJWTVerifier(context.Background(), config.IdP{
		JwksURL:     idp.server.URL,
		Issuer:      "storefront-idp",
		ClientID:    "storefront",
		MinInterval: time.Hour,
	})
	require.NoError(t, err)

	testCases := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid", token: idp.sign(t, "storefront-idp", "storefront", time.Now().Add(time.Hour))},
		{name: "wrong issuer", token: idp.sign(t, "other-idp", "storefront", time.Now().Add(time.Hour)), wantErr: true},
		{name: "wrong client", token: idp.sign(t, "storefront-idp", "other", time.Now().Add(time.Hour)), wantErr: true},
		{name: "expired", token: idp.sign(t, "storefront-idp", "storefront", time.Now().Add(-time.Hour)), wantErr: true},
		{name: "garbage", token: "not-a-token", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			token, err := v.Verify(context.Background(), tc.token)

			// then
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			sub, ok := token.Subject()
			require.True(t, ok)
			assert.Equal(t, "admin-1", sub)
		})
	}
	// the key set is fetched once at startup and cached afterwards
	assert.Equal(t, int32(1), idp.fetches.Load())
}

func TestNewJWTVerifier_UnreachableJWKS(t *testing.T) {
	// given
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	// when
	_, err := NewJWTVerifier(context.Background(), config.IdP{JwksURL: srv.URL, Issuer: "x", MinInterval: time.Minute})

	// then
	assert.Error(t, err)
}
