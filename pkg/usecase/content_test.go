package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/tidepool/pkg/domain/interfaces"
	"github.com/m-mizutani/tidepool/pkg/domain/model"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
	githubinfra "github.com/m-mizutani/tidepool/pkg/infra/github"
	"github.com/m-mizutani/tidepool/pkg/infra/github/githubtest"
	"github.com/m-mizutani/tidepool/pkg/usecase"
)

// mockNotifier records change events
type mockNotifier struct {
	mu     sync.Mutex
	events chan *model.ChangeEvent
	err    error
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{events: make(chan *model.ChangeEvent, 8)}
}

func (m *mockNotifier) Notify(ctx context.Context, event *model.ChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events <- event
	return m.err
}

func (m *mockNotifier) wait(t *testing.T) *model.ChangeEvent {
	t.Helper()
	select {
	case ev := <-m.events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("notification was not sent")
		return nil
	}
}

var editor = &model.User{Login: "octocat", Name: "The Octocat"}

func setupContent(t *testing.T, opts ...usecase.Option) (*githubtest.Server, interfaces.ContentUseCase) {
	t.Helper()
	server := githubtest.NewServer("pool-owner", "pool-site")
	t.Cleanup(server.Close)

	client, err := githubinfra.NewClient("pool-owner", "pool-site",
		githubinfra.WithBaseURL(server.URL),
		githubinfra.WithToken("test-token"),
	)
	gt.NoError(t, err)

	return server, usecase.NewContent(client, opts...)
}

func TestContentUseCase_ListPages(t *testing.T) {
	server, uc := setupContent(t)
	server.PutFile("content/pages/about.md", []byte("# About"))
	server.PutFile("content/pages/services.md", []byte("# Services"))
	server.PutFile("content/pages/notes.txt", []byte("not a page"))
	server.PutFile("content/pages/archive/2023.md", []byte("# Old"))

	list, err := uc.ListPages(context.Background())
	gt.NoError(t, err)
	gt.Array(t, list.Files).Length(2)
	gt.Equal(t, list.Files[0].Name, "about.md")
	gt.Equal(t, list.Files[0].Slug, types.Slug("about"))
	gt.Equal(t, list.Files[1].Slug, types.Slug("services"))
}

func TestContentUseCase_ListPages_CustomDir(t *testing.T) {
	server, uc := setupContent(t, usecase.WithPagesDir("site/pages"))
	server.PutFile("site/pages/home.md", []byte("# Home"))

	list, err := uc.ListPages(context.Background())
	gt.NoError(t, err)
	gt.Array(t, list.Files).Length(1)
	gt.Equal(t, list.Files[0].Slug, types.Slug("home"))
}

func TestContentUseCase_ReadPage(t *testing.T) {
	server, uc := setupContent(t)
	body := strings.Join([]string{
		"---",
		"title: Pool Services",
		"description: Weekly cleaning",
		"promo_2_image: /images/uploads/b.png",
		"promo_2_text: Spring opening",
		"promo_1_image: /images/uploads/a.png",
		"promo_1_text: Free inspection",
		"---",
		"",
		"# Services",
	}, "\n")
	server.PutFile("content/pages/services.md", []byte(body))

	page, err := uc.ReadPage(context.Background(), "services")
	gt.NoError(t, err)
	gt.Equal(t, page.Name, "services.md")
	gt.Equal(t, page.Content, body)
	gt.Equal(t, page.SHA, githubtest.BlobSHA([]byte(body)))

	gt.NotNil(t, page.FrontMatter)
	gt.Equal(t, page.FrontMatter.Title, "Pool Services")
	gt.Equal(t, page.FrontMatter.Description, "Weekly cleaning")
	gt.Array(t, page.FrontMatter.Promotions).Length(2)
	gt.Equal(t, page.FrontMatter.Promotions[0].Text, "Free inspection")
	gt.Equal(t, page.FrontMatter.Promotions[1].Image, "/images/uploads/b.png")
}

func TestContentUseCase_ReadPage_MalformedFrontMatter(t *testing.T) {
	server, uc := setupContent(t)
	body := "---\ntitle: [unclosed\n---\n\n# Broken"
	server.PutFile("content/pages/broken.md", []byte(body))

	page, err := uc.ReadPage(context.Background(), "broken")
	gt.NoError(t, err)
	gt.Equal(t, page.Content, body)
	gt.Nil(t, page.FrontMatter)
}

func TestContentUseCase_ReadPage_Errors(t *testing.T) {
	server, uc := setupContent(t)

	testCases := []struct {
		name     string
		slug     types.Slug
		status   int
		upstream bool
	}{
		{name: "empty slug", slug: "", status: http.StatusBadRequest},
		{name: "traversal", slug: "../secrets", status: http.StatusBadRequest},
		{name: "nested path", slug: "archive/2023", status: http.StatusBadRequest},
		{name: "unknown page", slug: "missing", status: http.StatusNotFound, upstream: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.ReadPage(context.Background(), tc.slug)
			gt.Error(t, err)

			if tc.upstream {
				var upErr *types.UpstreamError
				gt.True(t, errors.As(err, &upErr))
				gt.Equal(t, upErr.Status, tc.status)
			} else {
				gt.Equal(t, types.HTTPStatus(err), tc.status)
			}
		})
	}

	// Invalid slugs never reach the API
	for _, r := range server.Requests() {
		gt.False(t, strings.Contains(r.Path, ".."))
	}
}

func TestContentUseCase_UpdatePage(t *testing.T) {
	notifier := newMockNotifier()
	server, uc := setupContent(t, usecase.WithNotifier(notifier))
	server.PutFile("content/pages/about.md", []byte("# About"))
	ctx := context.Background()

	page, err := uc.ReadPage(ctx, "about")
	gt.NoError(t, err)

	result, err := uc.UpdatePage(ctx, editor, "about", &model.UpdatePageInput{
		Content: "# About us",
		SHA:     page.SHA,
	})
	gt.NoError(t, err)
	gt.Equal(t, result.Content.SHA, githubtest.BlobSHA([]byte("# About us")))
	gt.Value(t, result.Content.SHA).NotEqual(page.SHA)

	stored, _ := server.File("content/pages/about.md")
	gt.Equal(t, string(stored), "# About us")

	writes := server.Writes()
	gt.Array(t, writes).Length(1)
	gt.Equal(t, writes[0].Body["message"], any("Update about.md via CMS"))
	author, ok := writes[0].Body["author"].(map[string]any)
	gt.True(t, ok)
	gt.Equal(t, author["email"], any("octocat@users.noreply.github.com"))

	event := notifier.wait(t)
	gt.Equal(t, event.Kind, model.ChangeKindPageUpdated)
	gt.Equal(t, event.Path, "content/pages/about.md")
	gt.Equal(t, event.Actor, "octocat")
	gt.Equal(t, event.CommitSHA, result.Content.CommitSHA)

	// Reading back returns the new version token
	reread, err := uc.ReadPage(ctx, "about")
	gt.NoError(t, err)
	gt.Equal(t, reread.SHA, result.Content.SHA)
}

func TestContentUseCase_UpdatePage_StaleSHA(t *testing.T) {
	server, uc := setupContent(t)
	server.PutFile("content/pages/about.md", []byte("# About"))
	ctx := context.Background()

	page, err := uc.ReadPage(ctx, "about")
	gt.NoError(t, err)

	// Someone else edits the page in between
	server.PutFile("content/pages/about.md", []byte("# About (edited elsewhere)"))

	_, err = uc.UpdatePage(ctx, editor, "about", &model.UpdatePageInput{
		Content: "# Mine",
		SHA:     page.SHA,
	})
	gt.Error(t, err)

	var upErr *types.UpstreamError
	gt.True(t, errors.As(err, &upErr))
	gt.Equal(t, upErr.Status, http.StatusConflict)

	stored, _ := server.File("content/pages/about.md")
	gt.Equal(t, string(stored), "# About (edited elsewhere)")
}

func TestContentUseCase_UpdatePage_Rejected(t *testing.T) {
	testCases := []struct {
		name   string
		user   *model.User
		slug   types.Slug
		input  *model.UpdatePageInput
		status int
	}{
		{
			name:   "no user",
			user:   nil,
			slug:   "about",
			input:  &model.UpdatePageInput{Content: "x", SHA: "abc"},
			status: http.StatusUnauthorized,
		},
		{
			name:   "user without login",
			user:   &model.User{},
			slug:   "about",
			input:  &model.UpdatePageInput{Content: "x", SHA: "abc"},
			status: http.StatusUnauthorized,
		},
		{
			name:   "invalid slug",
			user:   editor,
			slug:   "../about",
			input:  &model.UpdatePageInput{Content: "x", SHA: "abc"},
			status: http.StatusBadRequest,
		},
		{
			name:   "missing sha",
			user:   editor,
			slug:   "about",
			input:  &model.UpdatePageInput{Content: "x"},
			status: http.StatusBadRequest,
		},
		{
			name:   "missing content",
			user:   editor,
			slug:   "about",
			input:  &model.UpdatePageInput{SHA: "abc"},
			status: http.StatusBadRequest,
		},
		{
			name:   "nil input",
			user:   editor,
			slug:   "about",
			input:  nil,
			status: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server, uc := setupContent(t)
			server.PutFile("content/pages/about.md", []byte("# About"))

			_, err := uc.UpdatePage(context.Background(), tc.user, tc.slug, tc.input)
			gt.Error(t, err)
			gt.Equal(t, types.HTTPStatus(err), tc.status)
			gt.Array(t, server.Writes()).Length(0)
		})
	}
}

func TestContentUseCase_PreviewPage(t *testing.T) {
	_, uc := setupContent(t)

	preview, err := uc.PreviewPage(context.Background(), &model.PreviewInput{
		Content: "---\ntitle: Hello\n---\n\n# Pool Care\n\n| a | b |\n|---|---|\n| 1 | 2 |\n",
	})
	gt.NoError(t, err)
	gt.True(t, strings.Contains(preview.HTML, `<h1 id="pool-care">Pool Care</h1>`))
	gt.True(t, strings.Contains(preview.HTML, "<table>"))
	gt.False(t, strings.Contains(preview.HTML, "title: Hello"))
	gt.NotNil(t, preview.FrontMatter)
	gt.Equal(t, preview.FrontMatter.Title, "Hello")

	t.Run("plain markdown", func(t *testing.T) {
		preview, err := uc.PreviewPage(context.Background(), &model.PreviewInput{Content: "*hi*"})
		gt.NoError(t, err)
		gt.True(t, strings.Contains(preview.HTML, "<em>hi</em>"))
		gt.Nil(t, preview.FrontMatter)
	})

	t.Run("empty content", func(t *testing.T) {
		_, err := uc.PreviewPage(context.Background(), &model.PreviewInput{})
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagBadRequest))
	})
}
