package config

import (
	"crypto/sha256"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	controller "github.com/m-mizutani/tidepool/pkg/controller/http"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
	"github.com/m-mizutani/tidepool/pkg/infra/oauth"
	"github.com/urfave/cli/v3"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/oauth2"
)

// Auth holds the admin sign-in configuration
type Auth struct {
	ClientID         string
	ClientSecret     string `masq:"secret"`
	RedirectURL      string
	OAuthBaseURL     string
	SessionSecret    string `masq:"secret"`
	AllowedUsers     []string
	AdminRedirectURL string
	CookieSecure     bool
}

// Flags returns CLI flags for auth configuration
func (c *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "oauth-client-id",
			Usage:       "GitHub OAuth App client ID",
			Destination: &c.ClientID,
			Sources:     cli.EnvVars("TIDEPOOL_OAUTH_CLIENT_ID"),
		},
		&cli.StringFlag{
			Name:        "oauth-client-secret",
			Usage:       "GitHub OAuth App client secret",
			Destination: &c.ClientSecret,
			Sources:     cli.EnvVars("TIDEPOOL_OAUTH_CLIENT_SECRET"),
		},
		&cli.StringFlag{
			Name:        "oauth-redirect-url",
			Usage:       "OAuth callback URL, e.g. https://cms.example.com/auth/callback",
			Destination: &c.RedirectURL,
			Sources:     cli.EnvVars("TIDEPOOL_OAUTH_REDIRECT_URL"),
		},
		&cli.StringFlag{
			Name:        "oauth-base-url",
			Usage:       "GitHub web URL for OAuth on GitHub Enterprise; derived from github-api-url when it ends in /api/v3",
			Destination: &c.OAuthBaseURL,
			Sources:     cli.EnvVars("TIDEPOOL_OAUTH_BASE_URL"),
		},
		&cli.StringFlag{
			Name:        "session-secret",
			Usage:       "Secret for session cookies and OAuth state (32+ bytes)",
			Destination: &c.SessionSecret,
			Sources:     cli.EnvVars("TIDEPOOL_SESSION_SECRET"),
		},
		&cli.StringSliceFlag{
			Name:        "allowed-users",
			Usage:       "GitHub logins allowed to edit (empty admits nobody)",
			Destination: &c.AllowedUsers,
			Sources:     cli.EnvVars("TIDEPOOL_ALLOWED_USERS"),
		},
		&cli.StringFlag{
			Name:        "admin-redirect-url",
			Usage:       "Where to send the browser after signing in",
			Value:       "/admin",
			Destination: &c.AdminRedirectURL,
			Sources:     cli.EnvVars("TIDEPOOL_ADMIN_REDIRECT_URL"),
		},
		&cli.BoolFlag{
			Name:        "cookie-secure",
			Usage:       "Send cookies over HTTPS only",
			Value:       true,
			Destination: &c.CookieSecure,
			Sources:     cli.EnvVars("TIDEPOOL_COOKIE_SECURE"),
		},
	}
}

// Validate fails closed: the server does not start without a session secret
// or OAuth client
func (c *Auth) Validate() error {
	if len(c.SessionSecret) < 32 {
		return goerr.New("session-secret of at least 32 bytes is required", goerr.T(types.ErrTagMisconfigured))
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return goerr.New("oauth-client-id and oauth-client-secret are required", goerr.T(types.ErrTagMisconfigured))
	}
	return nil
}

// Users returns the allow-list with blanks removed
func (c *Auth) Users() []string {
	var users []string
	for _, u := range c.AllowedUsers {
		for _, login := range strings.Split(u, ",") {
			if login = strings.TrimSpace(login); login != "" {
				users = append(users, login)
			}
		}
	}
	return users
}

// StateKey derives the OAuth state signing key from the session secret so
// it differs from the cookie keys
func (c *Auth) StateKey() []byte {
	key := make([]byte, 32)
	// cannot fail below 255*32 bytes
	_, _ = io.ReadFull(hkdf.New(sha256.New, []byte(c.SessionSecret), nil, []byte("tidepool oauth state")), key)
	return key
}

// NewProvider builds the GitHub OAuth provider. apiURL is the REST API of
// the content repository's host; login goes to the matching web host.
func (c *Auth) NewProvider(apiURL string) (*oauth.Provider, error) {
	var opts []oauth.Option
	if apiURL != "" {
		opts = append(opts, oauth.WithAPIBaseURL(apiURL))
	}
	if base := c.webBaseURL(apiURL); base != "" {
		opts = append(opts, oauth.WithEndpoint(oauth2.Endpoint{
			AuthURL:  base + "/login/oauth/authorize",
			TokenURL: base + "/login/oauth/access_token",
		}))
	}
	return oauth.NewProvider(c.ClientID, c.ClientSecret, c.RedirectURL, opts...)
}

// webBaseURL returns the OAuth host, or "" for github.com
func (c *Auth) webBaseURL(apiURL string) string {
	if c.OAuthBaseURL != "" {
		return strings.TrimSuffix(c.OAuthBaseURL, "/")
	}
	api := strings.TrimSuffix(apiURL, "/")
	if base, ok := strings.CutSuffix(api, "/api/v3"); ok {
		return base
	}
	return ""
}

// ServerOptions returns the HTTP server options for sessions
func (c *Auth) ServerOptions() []controller.Option {
	return []controller.Option{
		controller.WithSessionSecret(c.SessionSecret),
		controller.WithCookieSecure(c.CookieSecure),
		controller.WithAdminRedirectURL(c.AdminRedirectURL),
	}
}
