package oauth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/domain/model"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

// Scopes requested at login. Only the identity is needed; writes use the
// server's own credential.
var Scopes = []string{"read:user"}

type config struct {
	endpoint   oauth2.Endpoint
	apiBaseURL string
	httpClient *http.Client
}

// Option is a functional option for Provider configuration
type Option func(*config)

// WithEndpoint overrides the OAuth authorize/token endpoints
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(c *config) {
		c.endpoint = endpoint
	}
}

// WithAPIBaseURL overrides the REST API used to resolve the user
func WithAPIBaseURL(baseURL string) Option {
	return func(c *config) {
		c.apiBaseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client used for the token exchange
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *config) {
		c.httpClient = httpClient
	}
}

// Provider authenticates users with a GitHub OAuth App
type Provider struct {
	oauthConfig *oauth2.Config
	apiBaseURL  *url.URL
	httpClient  *http.Client
}

// NewProvider creates a new GitHub OAuth provider
func NewProvider(clientID, clientSecret, redirectURL string, opts ...Option) (*Provider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, goerr.New("OAuth client ID and secret are required", goerr.T(types.ErrTagMisconfigured))
	}

	cfg := &config{
		endpoint: githuboauth.Endpoint,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	p := &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     cfg.endpoint,
			Scopes:       Scopes,
		},
		httpClient: cfg.httpClient,
	}

	if cfg.apiBaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(cfg.apiBaseURL, "/") + "/")
		if err != nil {
			return nil, goerr.Wrap(err, "invalid GitHub API URL", goerr.V("url", cfg.apiBaseURL))
		}
		p.apiBaseURL = u
	}

	return p, nil
}

// AuthCodeURL returns the GitHub authorize URL carrying state
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state)
}

// Exchange trades the authorization code for a token and resolves the user it belongs to
func (p *Provider) Exchange(ctx context.Context, code string) (*model.User, error) {
	if code == "" {
		return nil, goerr.New("Missing authorization code", goerr.T(types.ErrTagBadRequest))
	}

	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to exchange authorization code", goerr.T(types.ErrTagUnauthorized))
	}

	client := github.NewClient(p.httpClient).WithAuthToken(token.AccessToken)
	if p.apiBaseURL != nil {
		client.BaseURL = p.apiBaseURL
	}

	ghUser, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, goerr.Wrap(err, "Failed to fetch GitHub user", goerr.T(types.ErrTagUnauthorized))
	}

	return &model.User{
		Login:     types.GitHubLogin(ghUser.GetLogin()),
		Name:      ghUser.GetName(),
		AvatarURL: ghUser.GetAvatarURL(),
	}, nil
}
