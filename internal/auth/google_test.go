package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"desirius_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func googleConfig() *config.Config {
	return &config.Config{
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		GoogleRedirectURI:  "http://localhost:8080/api/v1/auth/google/callback",
	}
}

// tokenServer answers the code exchange with the given JSON body.
func tokenServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") == "" {
			http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func providerFor(srv *httptest.Server) *GoogleProvider {
	p := NewGoogleProvider(googleConfig())
	p.conf.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	return p
}

func TestNewGoogleProvider_Unconfigured(t *testing.T) {
	assert.Nil(t, NewGoogleProvider(&config.Config{}))
}

func TestGoogleProvider_AuthCodeURL(t *testing.T) {
	p := NewGoogleProvider(googleConfig())

	raw := p.AuthCodeURL("xyz")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "xyz", q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "openid profile email", q.Get("scope"))
	assert.Equal(t, "select_account", q.Get("prompt"))
	assert.Equal(t, GoogleProviderID, p.ProviderID())
}

func TestGoogleProvider_Exchange(t *testing.T) {
	srv := tokenServer(t, `{"access_token":"at","token_type":"Bearer","expires_in":3600,"id_token":"google-id-token"}`)

	idToken, err := providerFor(srv).Exchange(context.Background(), "auth-code")

	require.NoError(t, err)
	assert.Equal(t, "google-id-token", idToken)
}

func TestGoogleProvider_Exchange_NoIDToken(t *testing.T) {
	srv := tokenServer(t, `{"access_token":"at","token_type":"Bearer","expires_in":3600}`)

	_, err := providerFor(srv).Exchange(context.Background(), "auth-code")

	assert.ErrorIs(t, err, errNoIDToken)
}
