package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rohits-web03/mediadrop/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGoogleOAuthConfig(t *testing.T) {
	assert.Nil(t, NewGoogleOAuthConfig(config.GoogleConfig{}))

	c := NewGoogleOAuthConfig(config.GoogleConfig{ClientID: "id", ClientSecret: "s", RedirectURL: "http://x/cb"})
	require.NotNil(t, c)
	assert.Equal(t, "http://x/cb", c.RedirectURL)
	assert.Len(t, c.Scopes, 2)
}

func TestFetchGoogleUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.Error(w, "nope", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"g1","email":"ali@example.com","name":"Ali"}`))
	}))
	defer srv.Close()

	u, err := FetchGoogleUser(context.Background(), srv.Client(), srv.URL+"/userinfo")
	require.NoError(t, err)
	assert.Equal(t, "ali@example.com", u.Email)
	assert.Equal(t, "Ali", u.Name)

	_, err = FetchGoogleUser(context.Background(), srv.Client(), srv.URL+"/missing")
	assert.Error(t, err)
}
