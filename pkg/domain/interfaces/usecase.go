package interfaces

import (
	"context"

	"github.com/m-mizutani/tidepool/pkg/domain/model"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
)

// ContentUseCase defines operations on markdown pages
type ContentUseCase interface {
	// ListPages lists markdown pages in the pages directory
	ListPages(ctx context.Context) (*model.PageList, error)

	// ReadPage returns the decoded content of a page and its version token
	ReadPage(ctx context.Context, slug types.Slug) (*model.Page, error)

	// UpdatePage writes new content, guarded by the previously read version token
	UpdatePage(ctx context.Context, user *model.User, slug types.Slug, input *model.UpdatePageInput) (*model.UpdatePageResult, error)

	// PreviewPage renders markdown content to HTML
	PreviewPage(ctx context.Context, input *model.PreviewInput) (*model.Preview, error)
}

// ImageUseCase defines operations on uploaded images
type ImageUseCase interface {
	// UploadImage stores an image in the uploads directory, overwriting a file of the same name
	UploadImage(ctx context.Context, user *model.User, input *model.UploadImageInput) (*model.UploadedImage, error)

	// ListImages lists file names in the uploads directory
	ListImages(ctx context.Context) ([]string, error)
}

// AuthUseCase defines the admin authorization flow
type AuthUseCase interface {
	// LoginURL issues a signed state and returns the GitHub authorize URL
	LoginURL(ctx context.Context) (url string, state string, err error)

	// Callback completes the OAuth flow and returns the allowed user
	Callback(ctx context.Context, code, state, expectedState string) (*model.User, error)

	// Authorize checks that user may edit content
	Authorize(ctx context.Context, user *model.User) error
}
