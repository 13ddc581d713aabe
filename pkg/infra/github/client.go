package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/domain/model"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
)

// DefaultBranch is the branch read and written when none is configured
const DefaultBranch = "main"

type config struct {
	branch         string
	token          string
	appID          int64
	installationID int64
	privateKey     []byte
	baseURL        string
	httpClient     *http.Client
}

// Option is a functional option for Client configuration
type Option func(*config)

// WithBranch sets the branch used for reads and writes
func WithBranch(branch string) Option {
	return func(c *config) {
		c.branch = branch
	}
}

// WithToken authenticates with a personal access token
func WithToken(token string) Option {
	return func(c *config) {
		c.token = token
	}
}

// WithAppCredential authenticates as a GitHub App installation
func WithAppCredential(appID, installationID int64, privateKey []byte) Option {
	return func(c *config) {
		c.appID = appID
		c.installationID = installationID
		c.privateKey = privateKey
	}
}

// WithBaseURL overrides the REST API endpoint (GitHub Enterprise, tests)
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for token and anonymous access
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *config) {
		c.httpClient = httpClient
	}
}

// Client reads and writes files of a single repository through the contents API
type Client struct {
	githubClient  *github.Client
	owner         string
	repo          string
	branch        string
	authenticated bool
}

// NewClient creates a new contents API client for owner/repo
func NewClient(owner, repo string, opts ...Option) (*Client, error) {
	if owner == "" || repo == "" {
		return nil, goerr.New("GitHub owner and repo are required",
			goerr.T(types.ErrTagMisconfigured),
			goerr.V("owner", owner),
			goerr.V("repo", repo),
		)
	}

	cfg := &config{
		branch: DefaultBranch,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var githubClient *github.Client
	authenticated := true

	switch {
	case cfg.token != "":
		githubClient = github.NewClient(cfg.httpClient).WithAuthToken(cfg.token)

	case cfg.appID != 0:
		// Create GitHub App transport
		itr, err := ghinstallation.New(http.DefaultTransport, cfg.appID, cfg.installationID, cfg.privateKey)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create GitHub App transport",
				goerr.T(types.ErrTagMisconfigured),
				goerr.V("app_id", cfg.appID),
				goerr.V("installation_id", cfg.installationID),
			)
		}
		if cfg.baseURL != "" {
			itr.BaseURL = strings.TrimSuffix(cfg.baseURL, "/")
		}
		githubClient = github.NewClient(&http.Client{Transport: itr})

	default:
		githubClient = github.NewClient(cfg.httpClient)
		authenticated = false
	}

	if cfg.baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(cfg.baseURL, "/") + "/")
		if err != nil {
			return nil, goerr.Wrap(err, "invalid GitHub API URL", goerr.V("url", cfg.baseURL))
		}
		githubClient.BaseURL = u
	}

	return &Client{
		githubClient:  githubClient,
		owner:         owner,
		repo:          repo,
		branch:        cfg.branch,
		authenticated: authenticated,
	}, nil
}

// Authenticated reports whether a credential is configured
func (c *Client) Authenticated() bool {
	return c.authenticated
}

func (c *Client) getOptions() *github.RepositoryContentGetOptions {
	return &github.RepositoryContentGetOptions{Ref: c.branch}
}

// ListContents lists entries of a directory
func (c *Client) ListContents(ctx context.Context, dir string) ([]*model.RepoEntry, error) {
	file, entries, _, err := c.githubClient.Repositories.GetContents(ctx, c.owner, c.repo, dir, c.getOptions())
	if err != nil {
		return nil, goerr.Wrap(toUpstreamError(err), "failed to list contents", goerr.V("path", dir))
	}
	if file != nil {
		return nil, goerr.New("path is not a directory", goerr.T(types.ErrTagBadRequest), goerr.V("path", dir))
	}

	result := make([]*model.RepoEntry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, &model.RepoEntry{
			Name: entry.GetName(),
			Path: entry.GetPath(),
			SHA:  entry.GetSHA(),
			Type: model.EntryType(entry.GetType()),
			Size: entry.GetSize(),
		})
	}

	return result, nil
}

// GetFile fetches a file and decodes its base64 body
func (c *Client) GetFile(ctx context.Context, path string) (*model.RepoFile, error) {
	file, _, _, err := c.githubClient.Repositories.GetContents(ctx, c.owner, c.repo, path, c.getOptions())
	if err != nil {
		return nil, goerr.Wrap(toUpstreamError(err), "failed to get file", goerr.V("path", path))
	}
	if file == nil {
		return nil, goerr.New("path is a directory", goerr.T(types.ErrTagBadRequest), goerr.V("path", path))
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode file content", goerr.V("path", path))
	}

	return &model.RepoFile{
		Name:    file.GetName(),
		Path:    file.GetPath(),
		SHA:     file.GetSHA(),
		Content: []byte(content),
	}, nil
}

// GetSHA returns the blob hash of path, or an empty string if it does not exist
func (c *Client) GetSHA(ctx context.Context, path string) (string, error) {
	file, _, _, err := c.githubClient.Repositories.GetContents(ctx, c.owner, c.repo, path, c.getOptions())
	if err != nil {
		upstream := toUpstreamError(err)
		var upErr *types.UpstreamError
		if errors.As(upstream, &upErr) && upErr.IsNotFound() {
			return "", nil
		}
		return "", goerr.Wrap(upstream, "failed to look up file", goerr.V("path", path))
	}
	if file == nil {
		return "", goerr.New("path is a directory", goerr.T(types.ErrTagBadRequest), goerr.V("path", path))
	}

	return file.GetSHA(), nil
}

// PutFile creates or updates a file. With input.SHA set, GitHub rejects the
// write unless it matches the current blob hash.
func (c *Client) PutFile(ctx context.Context, input *model.PutFileInput) (*model.FileInfo, error) {
	if !c.authenticated {
		return nil, goerr.New("GitHub credential is not configured", goerr.T(types.ErrTagMisconfigured))
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(input.Message),
		Content: input.Content,
		Branch:  github.Ptr(c.branch),
	}
	if input.Author != nil {
		opts.Author = &github.CommitAuthor{
			Name:  github.Ptr(input.Author.Name),
			Email: github.Ptr(input.Author.Email),
		}
	}

	var (
		resp *github.RepositoryContentResponse
		err  error
	)
	if input.SHA != "" {
		opts.SHA = github.Ptr(input.SHA)
		resp, _, err = c.githubClient.Repositories.UpdateFile(ctx, c.owner, c.repo, input.Path, opts)
	} else {
		resp, _, err = c.githubClient.Repositories.CreateFile(ctx, c.owner, c.repo, input.Path, opts)
	}
	if err != nil {
		return nil, goerr.Wrap(toUpstreamError(err), "failed to write file",
			goerr.V("path", input.Path),
			goerr.V("sha", input.SHA),
		)
	}

	info := &model.FileInfo{
		CommitSHA: resp.Commit.GetSHA(),
	}
	if resp.Content != nil {
		info.Name = resp.Content.GetName()
		info.Path = resp.Content.GetPath()
		info.SHA = resp.Content.GetSHA()
		info.Size = resp.Content.GetSize()
		info.HTMLURL = resp.Content.GetHTMLURL()
		info.DownloadURL = resp.Content.GetDownloadURL()
	}

	return info, nil
}

// toUpstreamError converts a go-github error carrying an HTTP response into
// types.UpstreamError so the status can be forwarded. Other errors (network,
// decoding) are returned unchanged.
func toUpstreamError(err error) error {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return &types.UpstreamError{
			Status:  errResp.Response.StatusCode,
			Message: errResp.Message,
		}
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return &types.UpstreamError{
			Status:  rateErr.Response.StatusCode,
			Message: rateErr.Message,
		}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.Response != nil {
		return &types.UpstreamError{
			Status:  abuseErr.Response.StatusCode,
			Message: abuseErr.Message,
		}
	}

	return err
}
