package usecase

import (
	"context"

	"github.com/m-mizutani/tidepool/pkg/domain/interfaces"
	"github.com/m-mizutani/tidepool/pkg/domain/model"
)

// Default repository layout of the site
const (
	DefaultPagesDir         = "content/pages"
	DefaultUploadsDir       = "public/images/uploads"
	DefaultUploadsURLPrefix = "/images/uploads"
	DefaultMaxUploadSize    = 10 << 20 // 10MB
)

type settings struct {
	pagesDir         string
	uploadsDir       string
	uploadsURLPrefix string
	maxUploadSize    int64
	notifier         interfaces.Notifier
}

func newSettings(opts []Option) *settings {
	s := &settings{
		pagesDir:         DefaultPagesDir,
		uploadsDir:       DefaultUploadsDir,
		uploadsURLPrefix: DefaultUploadsURLPrefix,
		maxUploadSize:    DefaultMaxUploadSize,
		notifier:         nopNotifier{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option is a functional option for content and image use cases
type Option func(*settings)

// WithPagesDir sets the repository directory holding markdown pages
func WithPagesDir(dir string) Option {
	return func(s *settings) {
		s.pagesDir = dir
	}
}

// WithUploadsDir sets the repository directory holding uploaded images
func WithUploadsDir(dir string) Option {
	return func(s *settings) {
		s.uploadsDir = dir
	}
}

// WithUploadsURLPrefix sets the public URL path under which uploads are served
func WithUploadsURLPrefix(prefix string) Option {
	return func(s *settings) {
		s.uploadsURLPrefix = prefix
	}
}

// WithMaxUploadSize sets the upper bound of an uploaded image in bytes
func WithMaxUploadSize(size int64) Option {
	return func(s *settings) {
		s.maxUploadSize = size
	}
}

// WithNotifier sets the notifier that receives change events
func WithNotifier(notifier interfaces.Notifier) Option {
	return func(s *settings) {
		s.notifier = notifier
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(ctx context.Context, event *model.ChangeEvent) error {
	return nil
}
