package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/domain/interfaces"
	"github.com/m-mizutani/tidepool/pkg/domain/model"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
	"github.com/m-mizutani/tidepool/pkg/utils/async"
	_ "golang.org/x/image/webp"
)

type imageUseCase struct {
	githubClient interfaces.GitHubClient
	settings     *settings
}

// NewImage creates a new instance of ImageUseCase
func NewImage(githubClient interfaces.GitHubClient, opts ...Option) *imageUseCase {
	return &imageUseCase{
		githubClient: githubClient,
		settings:     newSettings(opts),
	}
}

// UploadImage commits the uploaded file to the uploads directory. A file
// with the same name is overwritten in place using its current blob hash.
func (uc *imageUseCase) UploadImage(ctx context.Context, user *model.User, input *model.UploadImageInput) (*model.UploadedImage, error) {
	logger := ctxlog.From(ctx)

	if user == nil || user.Login == "" {
		return nil, goerr.New("Missing GitHub session", goerr.T(types.ErrTagUnauthorized))
	}
	if input == nil || input.Body == nil {
		return nil, goerr.New("No file uploaded", goerr.T(types.ErrTagBadRequest))
	}
	if err := input.FileName.Validate(); err != nil {
		return nil, err
	}

	maxSize := uc.settings.maxUploadSize
	if input.Size > maxSize {
		return nil, tooLarge(input.Size, maxSize)
	}

	// Read one byte past the limit to detect oversized bodies without a declared size
	data, err := io.ReadAll(io.LimitReader(input.Body, maxSize+1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read uploaded file", goerr.T(types.ErrTagBadRequest))
	}
	if int64(len(data)) > maxSize {
		return nil, tooLarge(int64(len(data)), maxSize)
	}
	if len(data) == 0 {
		return nil, goerr.New("No file uploaded", goerr.T(types.ErrTagBadRequest))
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, goerr.Wrap(err, "Invalid image", goerr.T(types.ErrTagBadRequest), goerr.V("name", input.FileName))
	}

	mimeType := input.MimeType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "image/" + format
	}

	filePath := path.Join(uc.settings.uploadsDir, input.FileName.String())

	// An existing file is updated in place; otherwise it is created
	sha, err := uc.githubClient.GetSHA(ctx, filePath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to look up existing image", goerr.V("path", filePath))
	}

	info, err := uc.githubClient.PutFile(ctx, &model.PutFileInput{
		Path:    filePath,
		Message: fmt.Sprintf("Upload image %s via CMS", input.FileName),
		Content: data,
		SHA:     sha,
		Author:  user.CommitAuthor(),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to upload image",
			goerr.V("path", filePath),
			goerr.V("user", user.Login),
		)
	}

	logger.Info("Image uploaded",
		"path", filePath,
		"size_bytes", len(data),
		"format", format,
		"replaced", sha != "",
		"user", user.Login,
	)

	notifier := uc.settings.notifier
	event := &model.ChangeEvent{
		Kind:      model.ChangeKindImageUploaded,
		Path:      filePath,
		Actor:     user.Login.String(),
		CommitSHA: info.CommitSHA,
		At:        time.Now(),
	}
	async.Dispatch(ctx, func(ctx context.Context) error {
		return notifier.Notify(ctx, event)
	})

	return &model.UploadedImage{
		URL:      strings.TrimSuffix(uc.settings.uploadsURLPrefix, "/") + "/" + input.FileName.String(),
		FileName: input.FileName.String(),
		MimeType: mimeType,
	}, nil
}

// ListImages lists file names of the uploads directory. A missing directory
// means nothing was uploaded yet.
func (uc *imageUseCase) ListImages(ctx context.Context) ([]string, error) {
	entries, err := uc.githubClient.ListContents(ctx, uc.settings.uploadsDir)
	if err != nil {
		var upErr *types.UpstreamError
		if errors.As(err, &upErr) && upErr.IsNotFound() {
			return []string{}, nil
		}
		return nil, goerr.Wrap(err, "failed to list images")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type == model.EntryTypeFile {
			names = append(names, entry.Name)
		}
	}
	return names, nil
}

func tooLarge(size, max int64) error {
	return goerr.New(fmt.Sprintf("File too large (max %dMB)", max>>20),
		goerr.T(types.ErrTagBadRequest),
		goerr.V("size", size),
	)
}
