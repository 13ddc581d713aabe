package usecase

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/domain/interfaces"
	"github.com/m-mizutani/tidepool/pkg/domain/model"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
	"github.com/m-mizutani/tidepool/pkg/utils/async"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

type contentUseCase struct {
	githubClient interfaces.GitHubClient
	settings     *settings
	markdown     goldmark.Markdown
}

// NewContent creates a new instance of ContentUseCase
func NewContent(githubClient interfaces.GitHubClient, opts ...Option) *contentUseCase {
	return &contentUseCase{
		githubClient: githubClient,
		settings:     newSettings(opts),
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

func (uc *contentUseCase) pagePath(slug types.Slug) string {
	return path.Join(uc.settings.pagesDir, slug.FileName())
}

// ListPages lists markdown files of the pages directory
func (uc *contentUseCase) ListPages(ctx context.Context) (*model.PageList, error) {
	entries, err := uc.githubClient.ListContents(ctx, uc.settings.pagesDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list pages")
	}

	files := make([]*model.PageSummary, 0, len(entries))
	for _, entry := range entries {
		if entry.Type != model.EntryTypeFile || !types.IsMarkdownFile(entry.Name) {
			continue
		}
		files = append(files, &model.PageSummary{
			Name: entry.Name,
			Slug: types.SlugFromFileName(entry.Name),
		})
	}

	return &model.PageList{Files: files}, nil
}

// ReadPage returns the decoded page and its version token. A front matter
// block that fails to parse is logged and left out of the result.
func (uc *contentUseCase) ReadPage(ctx context.Context, slug types.Slug) (*model.Page, error) {
	if err := slug.Validate(); err != nil {
		return nil, err
	}

	file, err := uc.githubClient.GetFile(ctx, uc.pagePath(slug))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read page", goerr.V("slug", slug))
	}

	page := &model.Page{
		Name:    file.Name,
		SHA:     file.SHA,
		Content: string(file.Content),
	}

	fm, _, err := parseFrontMatter(file.Content)
	if err != nil {
		ctxlog.From(ctx).Warn("Malformed front matter",
			"slug", slug,
			"error", err,
		)
	} else {
		page.FrontMatter = fm
	}

	return page, nil
}

// UpdatePage writes the full new content of a page in a single attempt.
// input.SHA is sent as the expected prior version; a stale token is
// rejected upstream and returned as is.
func (uc *contentUseCase) UpdatePage(ctx context.Context, user *model.User, slug types.Slug, input *model.UpdatePageInput) (*model.UpdatePageResult, error) {
	logger := ctxlog.From(ctx)

	if user == nil || user.Login == "" {
		return nil, goerr.New("Missing GitHub session", goerr.T(types.ErrTagUnauthorized))
	}
	if err := slug.Validate(); err != nil {
		return nil, err
	}
	if input == nil {
		input = &model.UpdatePageInput{}
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	filePath := uc.pagePath(slug)
	info, err := uc.githubClient.PutFile(ctx, &model.PutFileInput{
		Path:    filePath,
		Message: fmt.Sprintf("Update %s via CMS", slug.FileName()),
		Content: []byte(input.Content),
		SHA:     input.SHA,
		Author:  user.CommitAuthor(),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update page",
			goerr.V("slug", slug),
			goerr.V("user", user.Login),
		)
	}

	logger.Info("Page updated",
		"slug", slug,
		"user", user.Login,
		"prior_sha", input.SHA,
		"sha", info.SHA,
	)

	uc.notify(ctx, &model.ChangeEvent{
		Kind:      model.ChangeKindPageUpdated,
		Path:      filePath,
		Actor:     user.Login.String(),
		CommitSHA: info.CommitSHA,
		At:        time.Now(),
	})

	return &model.UpdatePageResult{Content: info}, nil
}

// PreviewPage renders the markdown body of content to HTML
func (uc *contentUseCase) PreviewPage(ctx context.Context, input *model.PreviewInput) (*model.Preview, error) {
	if input == nil || input.Content == "" {
		return nil, goerr.New("Missing content", goerr.T(types.ErrTagBadRequest))
	}

	fm, body, err := parseFrontMatter([]byte(input.Content))
	if err != nil {
		return nil, goerr.Wrap(err, "Invalid front matter", goerr.T(types.ErrTagBadRequest))
	}

	var buf bytes.Buffer
	if err := uc.markdown.Convert(body, &buf); err != nil {
		return nil, goerr.Wrap(err, "failed to render markdown")
	}

	return &model.Preview{
		HTML:        buf.String(),
		FrontMatter: fm,
	}, nil
}

func (uc *contentUseCase) notify(ctx context.Context, event *model.ChangeEvent) {
	notifier := uc.settings.notifier
	async.Dispatch(ctx, func(ctx context.Context) error {
		return notifier.Notify(ctx, event)
	})
}
