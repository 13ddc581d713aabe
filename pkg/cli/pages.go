package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/cli/config"
	"github.com/m-mizutani/tidepool/pkg/domain/interfaces"
	"github.com/m-mizutani/tidepool/pkg/domain/model"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
	"github.com/m-mizutani/tidepool/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdPages() *cli.Command {
	var githubCfg config.GitHub

	newContent := func() (interfaces.ContentUseCase, error) {
		client, err := githubCfg.NewClient()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create GitHub client")
		}
		return usecase.NewContent(client, githubCfg.UseCaseOptions()...), nil
	}

	return &cli.Command{
		Name:  "pages",
		Usage: "Inspect pages in the content repository",
		Flags: githubCfg.Flags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, config.ApplyFile(c)
		},
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List page slugs",
				Action: func(ctx context.Context, c *cli.Command) error {
					uc, err := newContent()
					if err != nil {
						return err
					}
					list, err := uc.ListPages(ctx)
					if err != nil {
						return err
					}
					printPages(os.Stdout, list.Files)
					return nil
				},
			},
			{
				Name:      "show",
				Usage:     "Print a page with its version SHA",
				ArgsUsage: "<slug>",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return goerr.New("exactly one slug is required", goerr.T(types.ErrTagBadRequest))
					}
					uc, err := newContent()
					if err != nil {
						return err
					}
					page, err := uc.ReadPage(ctx, types.Slug(c.Args().First()))
					if err != nil {
						return err
					}
					printPage(os.Stdout, page.Name, page.SHA, page.Content)
					return nil
				},
			},
		},
	}
}

func printPages(w io.Writer, pages []*model.PageSummary) {
	slug := color.New(color.FgCyan, color.Bold)
	for _, p := range pages {
		slug.Fprint(w, p.Slug)
		fmt.Fprintf(w, "\t%s\n", p.Name)
	}
}

func printPage(w io.Writer, name, sha, content string) {
	color.New(color.FgCyan, color.Bold).Fprintln(w, name)
	color.New(color.Faint).Fprintln(w, sha)
	fmt.Fprintln(w)
	fmt.Fprint(w, content)
}
