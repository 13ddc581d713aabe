package interfaces

import (
	"context"

	"github.com/m-mizutani/tidepool/pkg/domain/model"
)

// GitHubClient defines operations on the content repository through the GitHub contents API
type GitHubClient interface {
	// ListContents lists entries of a directory
	ListContents(ctx context.Context, dir string) ([]*model.RepoEntry, error)

	// GetFile fetches a file and decodes its body
	GetFile(ctx context.Context, path string) (*model.RepoFile, error)

	// GetSHA returns the blob hash of path, or an empty string if it does not exist
	GetSHA(ctx context.Context, path string) (string, error)

	// PutFile creates or updates a file in a single write
	PutFile(ctx context.Context, input *model.PutFileInput) (*model.FileInfo, error)
}

// IdentityProvider authenticates users with GitHub OAuth
type IdentityProvider interface {
	// AuthCodeURL returns the URL the browser is sent to for login
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for the user's identity
	Exchange(ctx context.Context, code string) (*model.User, error)
}

// Notifier announces content changes
type Notifier interface {
	Notify(ctx context.Context, event *model.ChangeEvent) error
}
