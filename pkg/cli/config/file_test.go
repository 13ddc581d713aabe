package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/tidepool/pkg/cli/config"
	"github.com/urfave/cli/v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tidepool.toml")
	gt.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runWithFile(t *testing.T, args ...string) (config.GitHub, config.Auth, error) {
	t.Helper()
	var githubCfg config.GitHub
	var authCfg config.Auth

	flags := append([]cli.Flag{config.ConfigFlag()}, githubCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)

	cmd := &cli.Command{
		Name:  "test",
		Flags: flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, config.ApplyFile(c)
		},
		Action: func(ctx context.Context, c *cli.Command) error { return nil },
	}
	err := cmd.Run(context.Background(), append([]string{"test"}, args...))
	return githubCfg, authCfg, err
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log-level = "debug"

[github]
owner = "acme"
pages-dir = "content/docs"
`)
	values, err := config.LoadFile(path)
	gt.NoError(t, err)
	gt.V(t, values["log-level"]).Equal(any("debug"))
	gt.V(t, values["github-owner"]).Equal(any("acme"))
	gt.V(t, values["github-pages-dir"]).Equal(any("content/docs"))
}

func TestLoadFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
		gt.Error(t, err)
	})

	t.Run("broken toml", func(t *testing.T) {
		_, err := config.LoadFile(writeConfig(t, "owner = "))
		gt.Error(t, err)
	})
}

func TestApplyFile(t *testing.T) {
	path := writeConfig(t, `
allowed-users = ["octocat", "hubot"]

[github]
owner = "acme"
repo = "site"
app-id = 42
`)

	t.Run("fills unset flags", func(t *testing.T) {
		githubCfg, authCfg, err := runWithFile(t, "--config", path)
		gt.NoError(t, err)
		gt.V(t, githubCfg.Owner).Equal("acme")
		gt.V(t, githubCfg.Repo).Equal("site")
		gt.V(t, githubCfg.AppID).Equal(int64(42))
		gt.A(t, authCfg.AllowedUsers).Length(2)
	})

	t.Run("command line wins", func(t *testing.T) {
		githubCfg, _, err := runWithFile(t, "--config", path, "--github-owner", "other")
		gt.NoError(t, err)
		gt.V(t, githubCfg.Owner).Equal("other")
		gt.V(t, githubCfg.Repo).Equal("site")
	})

	t.Run("environment wins", func(t *testing.T) {
		t.Setenv("TIDEPOOL_GITHUB_REPO", "from-env")
		githubCfg, _, err := runWithFile(t, "--config", path)
		gt.NoError(t, err)
		gt.V(t, githubCfg.Repo).Equal("from-env")
	})

	t.Run("no file", func(t *testing.T) {
		githubCfg, _, err := runWithFile(t)
		gt.NoError(t, err)
		gt.V(t, githubCfg.Owner).Equal("")
	})

	t.Run("invalid value", func(t *testing.T) {
		bad := writeConfig(t, "[github]\napp-id = \"not-a-number\"\n")
		_, _, err := runWithFile(t, "--config", bad)
		gt.Error(t, err)
	})
}
