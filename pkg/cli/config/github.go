package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
	githubinfra "github.com/m-mizutani/tidepool/pkg/infra/github"
	"github.com/m-mizutani/tidepool/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// GitHub holds the content repository and its credential
type GitHub struct {
	Owner            string
	Repo             string
	Branch           string
	PagesDir         string
	UploadsDir       string
	UploadsURLPrefix string
	APIURL           string

	Token          string `masq:"secret"`
	AppID          int64
	InstallationID int64
	PrivateKey     string `masq:"secret"`
	PrivateKeyFile string
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-owner",
			Usage:       "Owner of the content repository",
			Destination: &c.Owner,
			Sources:     cli.EnvVars("TIDEPOOL_GITHUB_OWNER"),
		},
		&cli.StringFlag{
			Name:        "github-repo",
			Usage:       "Name of the content repository",
			Destination: &c.Repo,
			Sources:     cli.EnvVars("TIDEPOOL_GITHUB_REPO"),
		},
		&cli.StringFlag{
			Name:        "github-branch",
			Usage:       "Branch read and written",
			Value:       githubinfra.DefaultBranch,
			Destination: &c.Branch,
			Sources:     cli.EnvVars("TIDEPOOL_GITHUB_BRANCH"),
		},
		&cli.StringFlag{
			Name:        "github-pages-dir",
			Usage:       "Repository directory holding markdown pages",
			Value:       usecase.DefaultPagesDir,
			Destination: &c.PagesDir,
			Sources:     cli.EnvVars("TIDEPOOL_GITHUB_PAGES_DIR"),
		},
		&cli.StringFlag{
			Name:        "github-uploads-dir",
			Usage:       "Repository directory holding uploaded images",
			Value:       usecase.DefaultUploadsDir,
			Destination: &c.UploadsDir,
			Sources:     cli.EnvVars("TIDEPOOL_GITHUB_UPLOADS_DIR"),
		},
		&cli.StringFlag{
			Name:        "github-uploads-url-prefix",
			Usage:       "Public URL path of uploaded images",
			Value:       usecase.DefaultUploadsURLPrefix,
			Destination: &c.UploadsURLPrefix,
			Sources:     cli.EnvVars("TIDEPOOL_GITHUB_UPLOADS_URL_PREFIX"),
		},
		&cli.StringFlag{
			Name:        "github-api-url",
			Usage:       "GitHub REST API base URL (GitHub Enterprise)",
			Destination: &c.APIURL,
			Sources:     cli.EnvVars("TIDEPOOL_GITHUB_API_URL"),
		},
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "Personal or fine-grained access token for writes",
			Destination: &c.Token,
			Sources:     cli.EnvVars("TIDEPOOL_GITHUB_TOKEN"),
		},
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID (instead of a token)",
			Destination: &c.AppID,
			Sources:     cli.EnvVars("TIDEPOOL_GITHUB_APP_ID"),
		},
		&cli.Int64Flag{
			Name:        "github-installation-id",
			Usage:       "GitHub App installation ID",
			Destination: &c.InstallationID,
			Sources:     cli.EnvVars("TIDEPOOL_GITHUB_INSTALLATION_ID"),
		},
		&cli.StringFlag{
			Name:        "github-private-key",
			Usage:       "GitHub App private key (PEM)",
			Destination: &c.PrivateKey,
			Sources:     cli.EnvVars("TIDEPOOL_GITHUB_PRIVATE_KEY"),
		},
		&cli.StringFlag{
			Name:        "github-private-key-file",
			Usage:       "Path to the GitHub App private key (PEM)",
			Destination: &c.PrivateKeyFile,
			Sources:     cli.EnvVars("TIDEPOOL_GITHUB_PRIVATE_KEY_FILE"),
		},
	}
}

// NewClient builds the contents API client. A token wins over App
// credentials; with neither, the client is read-only.
func (c *GitHub) NewClient() (*githubinfra.Client, error) {
	opts := []githubinfra.Option{
		githubinfra.WithBranch(c.Branch),
	}
	if c.APIURL != "" {
		opts = append(opts, githubinfra.WithBaseURL(c.APIURL))
	}

	switch {
	case c.Token != "":
		opts = append(opts, githubinfra.WithToken(c.Token))

	case c.AppID != 0:
		if c.InstallationID == 0 {
			return nil, goerr.New("github-installation-id is required with github-app-id", goerr.T(types.ErrTagMisconfigured))
		}
		key := []byte(c.PrivateKey)
		if len(key) == 0 && c.PrivateKeyFile != "" {
			data, err := os.ReadFile(c.PrivateKeyFile)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to read GitHub App private key",
					goerr.T(types.ErrTagMisconfigured),
					goerr.V("path", c.PrivateKeyFile),
				)
			}
			key = data
		}
		if len(key) == 0 {
			return nil, goerr.New("GitHub App private key is required with github-app-id", goerr.T(types.ErrTagMisconfigured))
		}
		opts = append(opts, githubinfra.WithAppCredential(c.AppID, c.InstallationID, key))
	}

	return githubinfra.NewClient(c.Owner, c.Repo, opts...)
}

// UseCaseOptions returns the repository layout options
func (c *GitHub) UseCaseOptions() []usecase.Option {
	return []usecase.Option{
		usecase.WithPagesDir(c.PagesDir),
		usecase.WithUploadsDir(c.UploadsDir),
		usecase.WithUploadsURLPrefix(c.UploadsURLPrefix),
	}
}
