package oauth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
	"github.com/m-mizutani/tidepool/pkg/infra/github/githubtest"
	"github.com/m-mizutani/tidepool/pkg/infra/oauth"
	"golang.org/x/oauth2"
)

func newTokenServer(t *testing.T, wantCode string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("code") != wantCode {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad_verification_code"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "gho_user_token",
			"token_type":   "bearer",
			"scope":        "read:user",
		})
	}))
}

func newTestProvider(t *testing.T, tokenURL, apiURL string) *oauth.Provider {
	t.Helper()
	p, err := oauth.NewProvider("client-id", "client-secret", "https://cms.example.com/auth/callback",
		oauth.WithEndpoint(oauth2.Endpoint{
			AuthURL:   "https://github.example.com/login/oauth/authorize",
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		}),
		oauth.WithAPIBaseURL(apiURL),
	)
	gt.NoError(t, err)
	return p
}

func TestNewProvider_RequiresClient(t *testing.T) {
	_, err := oauth.NewProvider("", "secret", "")
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagMisconfigured))
}

func TestProvider_AuthCodeURL(t *testing.T) {
	p := newTestProvider(t, "https://github.example.com/token", "https://api.example.com")

	raw := p.AuthCodeURL("state-123")
	u, err := url.Parse(raw)
	gt.NoError(t, err)
	gt.Equal(t, u.Host, "github.example.com")
	gt.Equal(t, u.Query().Get("state"), "state-123")
	gt.Equal(t, u.Query().Get("client_id"), "client-id")
	gt.Equal(t, u.Query().Get("scope"), "read:user")
	gt.Equal(t, u.Query().Get("redirect_uri"), "https://cms.example.com/auth/callback")
}

func TestProvider_Exchange(t *testing.T) {
	tokenServer := newTokenServer(t, "good-code")
	defer tokenServer.Close()

	api := githubtest.NewServer("pool-owner", "pool-site")
	defer api.Close()
	api.SetLogin("poolkeeper")

	p := newTestProvider(t, tokenServer.URL, api.URL)

	t.Run("valid code resolves user", func(t *testing.T) {
		user, err := p.Exchange(context.Background(), "good-code")
		gt.NoError(t, err)
		gt.Equal(t, user.Login, types.GitHubLogin("poolkeeper"))
		gt.Equal(t, user.Name, "The Octocat")
	})

	t.Run("invalid code is unauthorized", func(t *testing.T) {
		_, err := p.Exchange(context.Background(), "bad-code")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagUnauthorized))
	})

	t.Run("empty code is a bad request", func(t *testing.T) {
		_, err := p.Exchange(context.Background(), "")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagBadRequest))
	})
}
